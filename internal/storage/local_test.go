package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	key, err := store.Put(ctx, "transfer_1_abc.pdf", []byte("%PDF-1.4 test"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/transfer_1_abc.pdf", key)

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 test"), data)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Get(ctx, key)
	assert.Error(t, err)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	// Base() strips the directory component, so the write lands inside the
	// upload dir rather than escaping it.
	key, err := store.Put(context.Background(), "../../etc/passwd", []byte("x"))
	require.NoError(t, err)
	assert.Equal(t, "/uploads/passwd", key)
}

func TestIsS3Key(t *testing.T) {
	assert.True(t, IsS3Key("s3://transfers/a.pdf"))
	assert.False(t, IsS3Key("/uploads/a.pdf"))
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "a.pdf", LocalName("/uploads/a.pdf"))
	assert.Equal(t, "", LocalName("s3://transfers/a.pdf"))
}

// The key constructors must produce exactly what the backends record, so
// lookups by reconstructed key keep finding the stored rows.
func TestKeyConstructors(t *testing.T) {
	assert.Equal(t, "s3://transfers/a.pdf", S3Key("a.pdf"))
	assert.True(t, IsS3Key(S3Key("a.pdf")))

	assert.Equal(t, "/uploads/a.pdf", LocalKey("a.pdf"))
	assert.Equal(t, "a.pdf", LocalName(LocalKey("a.pdf")))
}
