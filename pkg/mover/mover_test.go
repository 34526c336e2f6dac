package mover

import (
	"context"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/go-kit/log"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDir(t *testing.T, root, name string) string {
	t.Helper()

	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "frame.1001.exr"), []byte("frame"), 0o644))
	return dir
}

func TestMove(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	a := newDir(t, src, "sh010_comp_v001")
	b := newDir(t, src, "sh020_comp_v001")

	m := New(log.NewNopLogger())
	rep, err := m.Move(context.Background(), []string{a, b}, dest, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 0, rep.Failed)
	assert.Equal(t, "2 of 2 succeeded, 0 failed, 0 skipped", rep.String())

	for _, name := range []string{"sh010_comp_v001", "sh020_comp_v001"} {
		_, err := os.Stat(filepath.Join(dest, name, "frame.1001.exr"))
		assert.NoError(t, err)
	}
	_, err = os.Stat(a)
	assert.True(t, os.IsNotExist(err))
}

func TestMoveRenamesOnCollision(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	dir := newDir(t, src, "SHOT_010_comp")
	require.NoError(t, os.MkdirAll(filepath.Join(dest, "SHOT_010_comp"), 0o755))

	m := New(log.NewNopLogger())
	rep, err := m.Move(context.Background(), []string{dir}, dest, nil)
	require.NoError(t, err)

	require.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, filepath.Join(dest, "SHOT_010_comp_1"), rep.Results[0].Dest)
	_, err = os.Stat(filepath.Join(dest, "SHOT_010_comp_1", "frame.1001.exr"))
	assert.NoError(t, err)
}

func TestMoveSkipsMissingSource(t *testing.T) {
	dest := t.TempDir()

	m := New(log.NewNopLogger())
	rep, err := m.Move(context.Background(), []string{"/no/such/dir"}, dest, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Skipped)
	assert.Equal(t, 0, rep.Succeeded)
}

func TestMoveInvalidDestinationIsFatal(t *testing.T) {
	src := t.TempDir()
	dir := newDir(t, src, "sh010_comp_v001")

	m := New(log.NewNopLogger())
	_, err := m.Move(context.Background(), []string{dir}, "/no/such/dest", nil)
	require.Error(t, err)

	// Nothing was touched.
	_, err = os.Stat(dir)
	assert.NoError(t, err)
}

func TestMoveReportsProgress(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	dir := newDir(t, src, "sh010_comp_v001")

	var calls int
	m := New(log.NewNopLogger())
	_, err := m.Move(context.Background(), []string{dir, "/no/such/dir"}, dest, func(done, total int) {
		calls++
		assert.Equal(t, 2, total)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDelete(t *testing.T) {
	src := t.TempDir()
	a := newDir(t, src, "sh010_comp_v001")
	b := newDir(t, src, "sh020_comp_v001")

	m := New(log.NewNopLogger())
	rep := m.Delete(context.Background(), []string{a, b, "/no/such/dir"}, nil, nil)

	assert.Equal(t, 2, rep.Succeeded)
	assert.Equal(t, 1, rep.Skipped)
	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))
}

func TestDeletePreRemoveFailureKeepsDirectory(t *testing.T) {
	src := t.TempDir()
	a := newDir(t, src, "sh010_comp_v001")
	b := newDir(t, src, "sh020_comp_v001")

	pre := func(_ context.Context, path string) error {
		if path == a {
			return errors.New("archive unavailable")
		}
		return nil
	}

	m := New(log.NewNopLogger())
	rep := m.Delete(context.Background(), []string{a, b}, pre, nil)

	assert.Equal(t, 1, rep.Succeeded)
	assert.Equal(t, 1, rep.Failed)

	// The directory whose archive failed is left in place.
	_, err := os.Stat(a)
	assert.NoError(t, err)
	_, err = os.Stat(b)
	assert.True(t, os.IsNotExist(err))
}

func TestIsCrossDeviceError(t *testing.T) {
	exdev := &os.LinkError{Op: "rename", Old: "/render/seq", New: "/archive/seq", Err: syscall.EXDEV}
	assert.True(t, isCrossDeviceError(exdev))
	assert.False(t, isCrossDeviceError(errors.New("boom")))
	assert.False(t, isCrossDeviceError(os.ErrNotExist))
}

// The copy fallback for destinations on another filesystem must carry the
// whole tree over and then drop the source, like a rename would.
func TestCopyThenRemove(t *testing.T) {
	src := t.TempDir()
	dir := newDir(t, src, "sh010_comp_v001")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "preview"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "preview", "thumb.jpg"), []byte("jpg"), 0o644))

	dest := filepath.Join(t.TempDir(), "sh010_comp_v001")
	require.NoError(t, copyThenRemove(dir, dest))

	for _, name := range []string{"frame.1001.exr", filepath.Join("preview", "thumb.jpg")} {
		_, err := os.Stat(filepath.Join(dest, name))
		assert.NoError(t, err)
	}

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyThenRemoveKeepsSourceOnFailure(t *testing.T) {
	src := t.TempDir()
	dir := newDir(t, src, "sh010_comp_v001")

	// The destination parent is a regular file, so the copy cannot start.
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	err := copyThenRemove(dir, filepath.Join(blocker, "sh010_comp_v001"))
	require.Error(t, err)

	_, err = os.Stat(filepath.Join(dir, "frame.1001.exr"))
	assert.NoError(t, err)
}

func TestUniqueDest(t *testing.T) {
	dest := t.TempDir()

	assert.Equal(t, filepath.Join(dest, "seq"), uniqueDest(dest, "seq"))

	require.NoError(t, os.Mkdir(filepath.Join(dest, "seq"), 0o755))
	assert.Equal(t, filepath.Join(dest, "seq_1"), uniqueDest(dest, "seq"))

	require.NoError(t, os.Mkdir(filepath.Join(dest, "seq_1"), 0o755))
	assert.Equal(t, filepath.Join(dest, "seq_2"), uniqueDest(dest, "seq"))
}
