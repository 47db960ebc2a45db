// Package serve owns the long-lived state of one sync session: the
// VFS cache, the live tree, the optional root project, and the
// change-processor goroutine that keeps the two in lockstep. Grounded
// on original_source/src/serve_session.rs (ServeSession::new, its
// tree/imfs/message_queue/session_id accessors), adapted from a single
// Mutex<RojoTree> field (the Rust Imfs is internally synchronized the
// same way the tree is) to two independently-locked Go types —
// internal/vfs.Vfs and internal/tree.Tree each already serialize their
// own state, so ServeSession holds no lock of its own. Per spec.md §5,
// callers that need to touch both must take the Vfs lock first: the
// only code path that does (internal/changeprocessor) always reads
// from the Vfs before writing to the Tree.
package serve

import (
	"github.com/google/uuid"

	"github.com/rojo-rbx/rojo-core/internal/changeprocessor"
	"github.com/rojo-rbx/rojo-core/internal/messagequeue"
	"github.com/rojo-rbx/rojo-core/internal/middleware"
	"github.com/rojo-rbx/rojo-core/internal/patch"
	"github.com/rojo-rbx/rojo-core/internal/project"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// SessionID identifies one serve session, handed to clients at connect
// time so they can tell whether they're still talking to the session
// they subscribed to or a server that's since restarted.
type SessionID uuid.UUID

// NewSessionID mints a fresh random session id.
func NewSessionID() SessionID {
	return SessionID(uuid.New())
}

func (s SessionID) String() string {
	return uuid.UUID(s).String()
}

// ServeSession bundles every piece of state a running sync session
// needs: the file cache, the live instance tree, the root project (if
// any), the outbound patch queue, and the background processor handle
// wired between them.
type ServeSession struct {
	id          SessionID
	rootProject *project.Project
	vfs         *vfs.Vfs
	tree        *tree.Tree
	queue       *messagequeue.Queue[snapshot.AppliedPatchSet]
	processor   *changeprocessor.ChangeProcessor
}

// New builds a ServeSession rooted at root (a plain folder, or the
// folder/file a *.project.json manifest lives in). If rootProject is
// non-nil, the session is built from its manifest (SnapshotProjectFile
// starting at rootProject.FileLocation); otherwise root is snapshotted
// directly via the dispatcher's default dir/file dispatch. The initial
// tree is bootstrapped with the same compute-then-apply pass the
// change processor uses for every later update, so the bootstrap and
// steady-state code share one code path.
func New(v *vfs.Vfs, dispatcher *middleware.Dispatcher, rootProject *project.Project, root string) (*ServeSession, error) {
	ctx := &snapshot.Context{}
	if rootProject != nil {
		ctx.SyncRules = convertSyncRulesForContext(rootProject.SyncRules)
		ctx.IgnorePaths = rootProject.GlobIgnorePaths
		ctx.EmitLegacyScript = rootProject.EmitLegacyScript
	}

	var rootSnap *snapshot.Instance
	var err error
	if rootProject != nil {
		rootSnap, err = dispatcher.SnapshotProjectFile(ctx, v, rootProject.FileLocation)
	} else {
		rootSnap, err = dispatcher.Snapshot(ctx, v, root)
	}
	if err != nil {
		return nil, err
	}
	if rootSnap == nil {
		rootSnap = snapshot.New("Project", "Folder")
	}

	t := tree.New(rootSnap, snapshot.Metadata{})
	ps := patch.Compute(rootSnap, t, t.RootID())
	patch.Apply(t, ps)

	queue := messagequeue.New[snapshot.AppliedPatchSet]()
	processor := changeprocessor.Start(t, v, dispatcher, queue)

	return &ServeSession{
		id:          NewSessionID(),
		rootProject: rootProject,
		vfs:         v,
		tree:        t,
		queue:       queue,
		processor:   processor,
	}, nil
}

// SessionID returns the session's identity.
func (s *ServeSession) SessionID() SessionID {
	return s.id
}

// Tree returns the live instance tree. Tree is itself safe for
// concurrent use; callers don't take any additional lock here.
func (s *ServeSession) Tree() *tree.Tree {
	return s.tree
}

// Vfs returns the session's file cache.
func (s *ServeSession) Vfs() *vfs.Vfs {
	return s.vfs
}

// MessageQueue returns the queue of AppliedPatchSets produced as the
// session runs, which clients subscribe to by cursor to stream changes.
func (s *ServeSession) MessageQueue() *messagequeue.Queue[snapshot.AppliedPatchSet] {
	return s.queue
}

// RootProject returns the manifest the session was started from, or
// nil if it was started from a plain folder.
func (s *ServeSession) RootProject() *project.Project {
	return s.rootProject
}

// ServePlaceIDs returns the place id allowlist declared by the root
// project's servePlaceIds field, or nil if there isn't one.
func (s *ServeSession) ServePlaceIDs() []uint64 {
	if s.rootProject == nil {
		return nil
	}
	return s.rootProject.ServePlaceIDs
}

// Close stops the background change processor and waits for it to
// exit. The Vfs and Tree remain readable afterward; they're just no
// longer kept in sync.
func (s *ServeSession) Close() error {
	return s.processor.Stop()
}

func convertSyncRulesForContext(rules []project.SyncRule) []snapshot.SyncRule {
	out := make([]snapshot.SyncRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, snapshot.SyncRule{
			Pattern:    r.Pattern,
			Middleware: snapshot.Middleware(r.Middleware),
		})
	}
	return out
}
