package attachments_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moyijulius/crime-report-platform/attachments"
)

func TestLocal_SaveAndDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads")
	store, err := attachments.NewLocal(dir)
	require.NoError(t, err)

	att, err := store.Save(context.Background(), attachments.File{
		Name:        "../witness statement.txt",
		ContentType: "text/plain",
		Body:        strings.NewReader("I saw it"),
	})
	require.NoError(t, err)

	assert.Equal(t, "../witness statement.txt", att.OriginalName)
	assert.Equal(t, int64(len("I saw it")), att.Size)
	assert.True(t, strings.HasSuffix(att.Path, "-witness_statement.txt"))
	assert.Equal(t, filepath.ToSlash(dir), filepath.ToSlash(filepath.Dir(filepath.FromSlash(att.Path))))

	content, err := os.ReadFile(filepath.FromSlash(att.Path))
	require.NoError(t, err)
	assert.Equal(t, "I saw it", string(content))

	require.NoError(t, store.Delete(context.Background(), att.Path))
	_, err = os.Stat(filepath.FromSlash(att.Path))
	assert.True(t, os.IsNotExist(err))

	// deleting twice is not an error
	assert.NoError(t, store.Delete(context.Background(), att.Path))
}

func TestLocal_SaveNamesNeverCollide(t *testing.T) {
	store, err := attachments.NewLocal(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(context.Background(), attachments.File{Name: "a.jpg", Body: strings.NewReader("1")})
	require.NoError(t, err)
	b, err := store.Save(context.Background(), attachments.File{Name: "a.jpg", Body: strings.NewReader("2")})
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
}

func TestLocal_DeleteRefusesPathsOutsideDir(t *testing.T) {
	root := t.TempDir()
	store, err := attachments.NewLocal(filepath.Join(root, "uploads"))
	require.NoError(t, err)

	outside := filepath.Join(root, "keep.txt")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	assert.Error(t, store.Delete(context.Background(), outside))
	assert.Error(t, store.Delete(context.Background(), filepath.Join(root, "uploads", "..", "keep.txt")))
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}

func TestLocal_SaveHonoursCancelledContext(t *testing.T) {
	store, err := attachments.NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.Save(ctx, attachments.File{Name: "a.jpg", Body: strings.NewReader("1")})
	assert.ErrorIs(t, err, context.Canceled)
}
