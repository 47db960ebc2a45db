// Package changeprocessor owns the single goroutine that keeps the
// live tree in sync with the VFS: every VFS event is committed to the
// VFS cache, walked up to the nearest ancestor path with indexed tree
// Refs, re-snapshotted per each affected instance's instigating
// source, diffed, applied, and the resulting AppliedPatchSets are
// pushed to the outbound message queue. Grounded on
// original_source/src/change_processor.rs (handle_vfs_event,
// compute_and_apply_changes), translated from a crossbeam select loop
// + jod_thread join handle to an errgroup-coordinated goroutine with a
// context-based shutdown signal.
package changeprocessor

import (
	"context"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rojo-rbx/rojo-core/internal/middleware"
	"github.com/rojo-rbx/rojo-core/internal/patch"
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/rojolog"
	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

// ChangeProcessor owns the goroutine bridging a Vfs's change stream
// into Tree mutations. Callers communicate with it only by holding
// onto the handle returned by Start and calling Stop; it is otherwise
// the sole writer of both the Vfs cache and the Tree.
type ChangeProcessor struct {
	group  *errgroup.Group
	cancel context.CancelFunc
}

// Sink receives every AppliedPatchSet produced while processing one
// VFS event, mirroring message_queue.MessageQueue[AppliedPatchSet]'s
// role in the original.
type Sink interface {
	Push(...snapshot.AppliedPatchSet)
}

// Start spins up the processing goroutine and returns immediately.
func Start(t *tree.Tree, v *vfs.Vfs, dispatcher *middleware.Dispatcher, sink Sink) *ChangeProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)

	jc := &jobContext{tree: t, vfs: v, dispatcher: dispatcher, sink: sink}

	group.Go(func() error {
		events := v.ChangeReceiver()
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return nil
				}
				jc.handleEvent(ev)
			case <-gctx.Done():
				return nil
			}
		}
	})

	return &ChangeProcessor{group: group, cancel: cancel}
}

// Stop signals the processing goroutine to finish its current event
// and exit, then blocks until it has.
func (c *ChangeProcessor) Stop() error {
	c.cancel()
	return c.group.Wait()
}

type jobContext struct {
	tree       *tree.Tree
	vfs        *vfs.Vfs
	dispatcher *middleware.Dispatcher
	sink       Sink
}

func (jc *jobContext) handleEvent(ev vfs.Event) {
	jc.vfs.CommitChange(ev)

	affectedIDs := jc.findAffectedIDs(ev.Path)

	var applied []snapshot.AppliedPatchSet
	for _, id := range affectedIDs {
		ap, ok := jc.computeAndApply(id)
		if ok {
			applied = append(applied, ap)
		}
	}

	if len(applied) > 0 {
		jc.sink.Push(applied...)
	}
}

// findAffectedIDs walks from path up through its ancestor directories
// until it finds a path with indexed tree Refs, matching
// change_processor.rs's "find the nearest ancestor to this path that
// has associated instances" loop. This correctly handles large
// subtrees created in one batch of filesystem events, where the
// individual child paths that triggered events aren't yet instances in
// the tree.
func (jc *jobContext) findAffectedIDs(p string) []ref.Ref {
	current := p
	for {
		ids := jc.tree.GetIDsAtPath(current)
		if len(ids) > 0 {
			return ids
		}
		parent := parentOf(current)
		if parent == current {
			return nil
		}
		current = parent
	}
}

func parentOf(p string) string {
	clean := path.Clean(p)
	if clean == "/" || clean == "." || !strings.Contains(clean, "/") {
		return clean
	}
	return path.Dir(clean)
}

// computeAndApply re-snapshots id's instigating source, diffs it
// against the live tree, and applies the result, returning ok=false
// when id no longer warrants a patch (metadata missing, e.g. removed
// by an earlier id in the same batch).
func (jc *jobContext) computeAndApply(id ref.Ref) (snapshot.AppliedPatchSet, bool) {
	md, ok := jc.tree.GetMetadata(id)
	if !ok {
		return snapshot.AppliedPatchSet{}, false
	}

	var snap *snapshot.Instance
	var err error

	switch md.InstigatingSource.Kind {
	case snapshot.SourcePath:
		p := md.InstigatingSource.Path
		exists, existsErr := jc.vfs.Exists(p)
		if existsErr != nil {
			rojolog.Log.WithError(existsErr).WithField("path", p).Error("checking instigating path existence")
			return snapshot.AppliedPatchSet{}, false
		}
		if !exists {
			ps := &snapshot.PatchSet{Removed: []ref.Ref{id}}
			return patch.Apply(jc.tree, ps), true
		}
		snap, err = jc.dispatcher.Snapshot(&md.Context, jc.vfs, p)
	case snapshot.SourceProjectNode:
		full, projErr := jc.dispatcher.SnapshotProjectFile(&md.Context, jc.vfs, md.InstigatingSource.Path)
		if projErr != nil {
			err = projErr
			break
		}
		snap = findProjectSubtree(full, md.InstigatingSource.ProjectPath)
	default:
		rojolog.Log.WithField("id", id.String()).Warn("instance had no instigating source but was considered for an update")
		return snapshot.AppliedPatchSet{}, false
	}

	if err != nil {
		rojolog.Log.WithError(err).WithField("id", id.String()).Error("re-snapshotting instigating source")
		return snapshot.AppliedPatchSet{}, false
	}

	ps := patch.Compute(snap, jc.tree, id)
	return patch.Apply(jc.tree, ps), true
}

// findProjectSubtree walks projectPath (dotted keys rooted at the
// project's own name) down a freshly rendered project snapshot to find
// the node addressed by id's recorded project path.
func findProjectSubtree(root *snapshot.Instance, projectPath []string) *snapshot.Instance {
	if root == nil || len(projectPath) == 0 {
		return root
	}
	current := root
	for _, key := range projectPath[1:] {
		var next *snapshot.Instance
		for _, child := range current.Children {
			if child.Name == key {
				next = child
				break
			}
		}
		if next == nil {
			return nil
		}
		current = next
	}
	return current
}
