package treemount

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/snapshot"
	"github.com/rojo-rbx/rojo-core/internal/tree"
	"github.com/rojo-rbx/rojo-core/internal/variant"
)

func newTestTree() *tree.Tree {
	root := snapshot.New("Game", "DataModel")
	t := tree.New(root, snapshot.Metadata{})

	folderID := t.InsertInstance("ReplicatedStorage", "Folder", snapshot.Metadata{}, t.RootID())
	scriptID := t.InsertInstance("Greeter", "ModuleScript", snapshot.Metadata{}, folderID)
	t.SetProperties(scriptID, map[string]variant.Value{
		"Source": variant.String("return 'hi'"),
	})

	return t
}

func TestReadDirListsChildrenAndMetaSidecars(t *testing.T) {
	fs := New(newTestTree())

	entries, err := fs.ReadDir("/")
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, e := range entries {
		names[e.Name()] = true
	}
	assert.True(t, names["ReplicatedStorage"])
	assert.True(t, names["ReplicatedStorage_meta.json"])
}

func TestOpenLeafReturnsSourceContent(t *testing.T) {
	fs := New(newTestTree())

	f, err := fs.Open("/ReplicatedStorage/Greeter")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "return 'hi'", string(data))
}

func TestOpenMetaSidecarIncludesClassName(t *testing.T) {
	fs := New(newTestTree())

	f, err := fs.Open("/ReplicatedStorage/Greeter_meta.json")
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ModuleScript"`)
	assert.Contains(t, string(data), `"return 'hi'"`)
}

func TestOpenMissingPathFails(t *testing.T) {
	fs := New(newTestTree())

	_, err := fs.Open("/DoesNotExist")
	assert.Error(t, err)
}

func TestLstatRootIsDir(t *testing.T) {
	fs := New(newTestTree())

	info, err := fs.Lstat("/")
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestWritesAreRejected(t *testing.T) {
	fs := New(newTestTree())

	_, err := fs.Create("/new.txt")
	assert.Error(t, err)

	err = fs.Remove("/ReplicatedStorage")
	assert.Error(t, err)
}
