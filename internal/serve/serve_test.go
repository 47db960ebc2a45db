package serve

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/middleware"
	"github.com/rojo-rbx/rojo-core/internal/oracle"
	"github.com/rojo-rbx/rojo-core/internal/project"
	"github.com/rojo-rbx/rojo-core/internal/ref"
	"github.com/rojo-rbx/rojo-core/internal/variant"
	"github.com/rojo-rbx/rojo-core/internal/vfs"
)

func TestNewBootstrapsTreeFromFolder(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/foo.txt", []byte("hello")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 1)

	assert.NotEqual(t, SessionID{}, sess.SessionID())
	assert.Nil(t, sess.RootProject())
	assert.Nil(t, sess.ServePlaceIDs())
}

func TestNewPropagatesFilesChangedThroughMessageQueue(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/foo.txt", []byte("hello")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 1)
	leafID := root.Children[0]

	delivery := sess.MessageQueue().Subscribe(0)

	require.NoError(t, v.Write("/foo.txt", []byte("world")))
	backend.RaiseEvent(vfs.Modified, "/foo.txt")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	assert.Contains(t, got.Messages[0].Updated, leafID)
}

// S1: adding a script file to a synced folder produces one added child
// of the folder's root instance.
func TestServeScenarioS1AddScript(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/src/init.lua", []byte("-- root")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/src")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	assert.Equal(t, "ModuleScript", root.ClassName)
	assert.Equal(t, variant.String("-- root"), root.Properties["Source"])
	assert.Empty(t, root.Children)

	delivery := sess.MessageQueue().Subscribe(0)

	require.NoError(t, v.Write("/src/foo.lua", []byte("hello")))
	backend.RaiseEvent(vfs.Created, "/src/foo.lua")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Added, 1)

	fooID := got.Messages[0].Added[0]
	foo, ok := sess.Tree().GetInstance(fooID)
	require.True(t, ok)
	assert.Equal(t, "foo", foo.Name)
	assert.Equal(t, "ModuleScript", foo.ClassName)
	assert.Equal(t, variant.String("hello"), foo.Properties["Source"])
}

// S2: editing a script with CRLF line endings normalizes them to LF in
// the resulting Source update.
func TestServeScenarioS2EditScriptNormalizesCRLF(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/src/init.lua", []byte("-- root")))
	require.NoError(t, v.Write("/src/foo.lua", []byte("a\r\nb\r\n")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/src")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 1)
	fooID := root.Children[0]
	foo, ok := sess.Tree().GetInstance(fooID)
	require.True(t, ok)
	assert.Equal(t, variant.String("a\nb\n"), foo.Properties["Source"])

	delivery := sess.MessageQueue().Subscribe(0)

	require.NoError(t, v.Write("/src/foo.lua", []byte("a\r\n\r\nb\r\n")))
	backend.RaiseEvent(vfs.Modified, "/src/foo.lua")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Updated, 1)
	assert.Equal(t, fooID, got.Messages[0].Updated[0])

	foo, ok = sess.Tree().GetInstance(fooID)
	require.True(t, ok)
	assert.Equal(t, variant.String("a\n\nb\n"), foo.Properties["Source"])
}

// S3: deleting a file removes its instance from the tree.
func TestServeScenarioS3DeleteFile(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/src/init.lua", []byte("-- root")))
	require.NoError(t, v.Write("/src/hello.txt", []byte("hello")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/src")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 1)
	helloID := root.Children[0]
	hello, ok := sess.Tree().GetInstance(helloID)
	require.True(t, ok)
	assert.Equal(t, "StringValue", hello.ClassName)

	delivery := sess.MessageQueue().Subscribe(0)

	require.NoError(t, v.RemoveFile("/src/hello.txt"))
	backend.RaiseEvent(vfs.Removed, "/src/hello.txt")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	require.Contains(t, got.Messages[0].Removed, helloID)

	_, ok = sess.Tree().GetInstance(helloID)
	assert.False(t, ok)
}

// S4: moving a folder of several files into the synced tree in one
// batch produces a single added subtree with every file as a child,
// rather than one AppliedPatchSet per file. The backing vfs has no
// distinct "rename" event, so the move is modeled as the folder's
// files simply appearing under the synced root in one event, matching
// how a real filesystem watcher coalesces a directory move into a
// single notification on its parent.
func TestServeScenarioS4MoveFolderOfFiles(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/src/init.lua", []byte("-- root")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/src")
	require.NoError(t, err)
	defer sess.Close()

	delivery := sess.MessageQueue().Subscribe(0)

	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("/src/new-stuff/%d.txt", i)
		require.NoError(t, v.Write(name, []byte(fmt.Sprintf("content-%d", i))))
	}
	backend.RaiseEvent(vfs.Created, "/src/new-stuff")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Added, 1)

	folderID := got.Messages[0].Added[0]
	folder, ok := sess.Tree().GetInstance(folderID)
	require.True(t, ok)
	assert.Equal(t, "new-stuff", folder.Name)
	assert.Equal(t, "Folder", folder.ClassName)
	require.Len(t, folder.Children, 10)

	seen := make(map[string]bool, 10)
	for _, childID := range folder.Children {
		child, ok := sess.Tree().GetInstance(childID)
		require.True(t, ok)
		assert.Equal(t, "StringValue", child.ClassName)
		seen[child.Name] = true
	}
	for i := 0; i < 10; i++ {
		assert.True(t, seen[fmt.Sprintf("%d", i)])
	}
}

// S5: a `.model.json` file with no properties or children creates a
// single instance of the declared class and nothing else.
func TestServeScenarioS5JSONModelCreate(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	require.NoError(t, v.Write("/src/init.lua", []byte("-- root")))

	d := &middleware.Dispatcher{}
	sess, err := New(v, d, nil, "/src")
	require.NoError(t, err)
	defer sess.Close()

	delivery := sess.MessageQueue().Subscribe(0)

	require.NoError(t, v.Write("/src/test.model.json", []byte(`{"ClassName":"Model"}`)))
	backend.RaiseEvent(vfs.Created, "/src/test.model.json")

	got := <-delivery
	require.Len(t, got.Messages, 1)
	require.Len(t, got.Messages[0].Added, 1)

	modelID := got.Messages[0].Added[0]
	model, ok := sess.Tree().GetInstance(modelID)
	require.True(t, ok)
	assert.Equal(t, "test", model.Name)
	assert.Equal(t, "Model", model.ClassName)
	assert.Empty(t, model.Children)
	assert.Empty(t, model.Properties)
}

// S6: a Ref property declared through the RojoRefPointerTo_/RojoRefId
// attribute convention resolves to the target instance's real ref, and
// neither reserved attribute surfaces as a regular Attribute_ property.
func TestServeScenarioS6RefPropertyViaAttributes(t *testing.T) {
	backend := vfs.NewMemoryBackend()
	v := vfs.New(backend, true)
	defer v.Close()

	manifest := []byte(`{
		"name": "S6Project",
		"tree": {
			"$className": "Folder",
			"A": {
				"$className": "Model",
				"$attributes": { "RojoRefPointerTo_PrimaryPart": "B" }
			},
			"B": {
				"$className": "Part",
				"$attributes": { "RojoRefId": "B" }
			}
		}
	}`)
	require.NoError(t, v.Write("/default.project.json", manifest))

	proj, err := project.LoadFromBytes(manifest, "/default.project.json")
	require.NoError(t, err)

	d := &middleware.Dispatcher{Classes: oracle.NewStaticClassMetadata()}
	sess, err := New(v, d, proj, "/")
	require.NoError(t, err)
	defer sess.Close()

	root, ok := sess.Tree().GetInstance(sess.Tree().RootID())
	require.True(t, ok)
	require.Len(t, root.Children, 2)

	var aID, bID ref.Ref
	for _, childID := range root.Children {
		child, ok := sess.Tree().GetInstance(childID)
		require.True(t, ok)
		switch child.Name {
		case "A":
			aID = childID
		case "B":
			bID = childID
		}
	}
	require.NotEqual(t, ref.None, aID)
	require.NotEqual(t, ref.None, bID)

	a, ok := sess.Tree().GetInstance(aID)
	require.True(t, ok)

	primaryPart, ok := a.Properties["PrimaryPart"].(variant.Ref)
	require.True(t, ok)
	assert.True(t, primaryPart.HasLive)
	assert.Equal(t, bID, primaryPart.Resolved)

	_, hasRawAttribute := a.Properties["Attribute_RojoRefPointerTo_PrimaryPart"]
	assert.False(t, hasRawAttribute)
}
