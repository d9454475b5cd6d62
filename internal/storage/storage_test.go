package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestObjectKeyIgnoresClientFilename(t *testing.T) {
	key := ObjectKey("../../etc/passwd.pdf")

	require.True(t, strings.HasPrefix(key, "uploads/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))
	require.NotContains(t, key, "passwd")
	require.NotContains(t, key, "..")
}

func TestObjectKeyIsUnique(t *testing.T) {
	require.NotEqual(t, ObjectKey("photo.jpg"), ObjectKey("photo.jpg"))
}

func TestDisabledPresigner(t *testing.T) {
	p := NewDisabled()

	require.False(t, p.Enabled())

	upload, err := p.PresignUpload(context.Background(), "doc.pdf", "application/pdf")
	require.Nil(t, upload)
	require.ErrorIs(t, err, ErrStorageDisabled)
}
