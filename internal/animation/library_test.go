package animation

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeLottie(t *testing.T, dir, id string) {
	t.Helper()
	body := `{"v":"5.7.4","nm":"` + id + `","fr":30,"ip":0,"op":90,"w":256,"h":256,"layers":[]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(body), 0600))
}

func TestLibraryLookup(t *testing.T) {
	dir := t.TempDir()
	writeLottie(t, dir, "cat-ok")
	lib := NewLibrary(dir)

	meta, err := lib.Lookup("cat-ok")
	require.NoError(t, err)
	assert.Equal(t, "cat-ok", meta.Name)
	assert.Equal(t, 3*time.Second, meta.Duration())
	assert.Equal(t, 256, meta.Width)

	_, err = lib.Lookup("cat-sun")
	assert.True(t, errors.Is(err, ErrAssetNotFound))

	_, err = lib.Lookup("../secrets")
	assert.Error(t, err)
}

func TestLibraryCachesUntilInvalidated(t *testing.T) {
	dir := t.TempDir()
	writeLottie(t, dir, "cat-ok")
	lib := NewLibrary(dir)

	_, err := lib.Lookup("cat-ok")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, "cat-ok.json")))

	_, err = lib.Lookup("cat-ok")
	assert.NoError(t, err, "cached lookup should not touch the file")

	lib.Invalidate()
	_, err = lib.Lookup("cat-ok")
	assert.Error(t, err)
}

func TestLibraryListAndMissing(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"cat-ok", "cat-sun"} {
		writeLottie(t, dir, id)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0600))
	lib := NewLibrary(dir)

	ids, err := lib.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"cat-ok", "cat-sun"}, ids)

	missing := lib.Missing(map[string][]Step{"x": {{Animation: "cat-ok"}, {Animation: "cat-new"}}})
	assert.Contains(t, missing, "cat-new")
	assert.Contains(t, missing, "star-struck")
	assert.NotContains(t, missing, "cat-ok")
	assert.NotContains(t, missing, "cat-sun")
}

func TestAssetPlayer(t *testing.T) {
	dir := t.TempDir()
	writeLottie(t, dir, "cat-ok")
	p := NewAssetPlayer(NewLibrary(dir))

	inst, err := p.Load(TargetMain, "cat-ok")
	require.NoError(t, err)
	assert.Equal(t, "cat-ok", inst.Animation())
	assert.Equal(t, 1, p.Live())

	inst.Destroy()
	inst.Destroy()
	assert.Equal(t, 0, p.Live())

	_, err = p.Load(TargetHeader, "cat-missing")
	assert.Error(t, err)

	free := NewAssetPlayer(nil)
	_, err = free.Load(TargetHeader, "anything")
	assert.NoError(t, err)
}
