package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `{
  "name": "TestPlace",
  "tree": {
    "$className": "DataModel",
    "ReplicatedStorage": {
      "$path": "src/shared"
    },
    "ServerScriptService": {
      "$className": "ServerScriptService",
      "$properties": { "Foo": 1 },
      "Sub": {
        "$path": { "optional": "src/maybe" }
      }
    }
  },
  "syncRules": [
    { "pattern": "*.txt", "middleware": "text" }
  ]
}`

func TestLoadFromBytes(t *testing.T) {
	p, err := LoadFromBytes([]byte(sampleManifest), "/proj/default.project.json")
	require.NoError(t, err)
	assert.Equal(t, "TestPlace", p.Name)
	assert.Equal(t, "DataModel", p.Tree.ClassName)

	rss := p.Tree.Children["ReplicatedStorage"]
	require.NotNil(t, rss)
	require.NotNil(t, rss.Path)
	assert.Equal(t, "src/shared", rss.Path.Path)
	assert.False(t, rss.Path.Optional)
	// $path present => ignoreUnknownInstances defaults false
	require.NotNil(t, rss.IgnoreUnknownInstances)
	assert.False(t, *rss.IgnoreUnknownInstances)

	sss := p.Tree.Children["ServerScriptService"]
	require.NotNil(t, sss)
	assert.Equal(t, float64(1), sss.Properties["Foo"])
	// no $path => ignoreUnknownInstances defaults true
	require.NotNil(t, sss.IgnoreUnknownInstances)
	assert.True(t, *sss.IgnoreUnknownInstances)

	sub := sss.Children["Sub"]
	require.NotNil(t, sub)
	require.NotNil(t, sub.Path)
	assert.True(t, sub.Path.Optional)

	require.Len(t, p.SyncRules, 1)
	assert.Equal(t, "text", p.SyncRules[0].Middleware)
}

func TestLoadFuzzyDirectory(t *testing.T) {
	dir := t.TempDir()
	manifestPath := filepath.Join(dir, DefaultFilename)
	require.NoError(t, os.WriteFile(manifestPath, []byte(sampleManifest), 0o644))

	p, err := LoadFuzzy(dir)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, manifestPath, p.FileLocation)
	assert.Equal(t, dir, p.FolderLocation())
}

func TestLoadFuzzyMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	p, err := LoadFuzzy(dir)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestIsProjectFile(t *testing.T) {
	assert.True(t, IsProjectFile("foo.project.json"))
	assert.False(t, IsProjectFile("foo.json"))
}
