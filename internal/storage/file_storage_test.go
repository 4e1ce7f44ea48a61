package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStorage_SaveAndOpen(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), 1)
	require.NoError(t, err)

	orderID := uuid.New()
	relative, size, err := fs.Save(context.Background(), orderID, "draft.pdf", strings.NewReader("содержимое работы"))
	require.NoError(t, err)
	assert.Greater(t, size, int64(0))
	assert.Contains(t, relative, orderID.String())
	assert.Contains(t, relative, "draft.pdf")

	f, err := fs.Open(context.Background(), relative)
	require.NoError(t, err)
	defer f.Close()

	data, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "содержимое работы", string(data))
}

func TestFileStorage_SizeLimit(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), 1)
	require.NoError(t, err)

	tooBig := strings.NewReader(strings.Repeat("a", 1024*1024+1))
	_, _, err = fs.Save(context.Background(), uuid.New(), "huge.zip", tooBig)
	assert.Error(t, err)
}

func TestFileStorage_Delete(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir(), 1)
	require.NoError(t, err)

	relative, _, err := fs.Save(context.Background(), uuid.New(), "draft.docx", strings.NewReader("x"))
	require.NoError(t, err)

	require.NoError(t, fs.Delete(context.Background(), relative))
	_, err = fs.Open(context.Background(), relative)
	assert.Error(t, err)

	// Повторное удаление не считается ошибкой.
	assert.NoError(t, fs.Delete(context.Background(), relative))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "essay.pdf", sanitizeFilename("../../etc/essay.pdf"))
	assert.Equal(t, "file", sanitizeFilename(""))
	assert.NotContains(t, sanitizeFilename(`..\..\evil.doc`), `\`)
}
