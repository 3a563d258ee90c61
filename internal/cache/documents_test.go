package cache

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInMemoryDocumentStore_ResolvePreloaded(t *testing.T) {
	store := NewInMemoryDocumentStore(map[string]string{
		"abc123": "{ me { id } }",
	})
	doc, ok := store.Resolve("abc123")
	require.True(t, ok)
	require.Equal(t, "{ me { id } }", doc)
}

func TestInMemoryDocumentStore_ResolveMissing(t *testing.T) {
	store := NewInMemoryDocumentStore(nil)
	_, ok := store.Resolve("missing")
	require.False(t, ok)
}

func TestInMemoryDocumentStore_RegisterThenResolve(t *testing.T) {
	store := NewInMemoryDocumentStore(nil)
	query := "{ me { name } }"
	hash := Sha256Hash(query)

	_, ok := store.Resolve(hash)
	require.False(t, ok)

	store.Register(hash, query)
	doc, ok := store.Resolve(hash)
	require.True(t, ok)
	require.Equal(t, query, doc)
}

func TestSha256Hash_IsDeterministicAndSensitiveToContent(t *testing.T) {
	require.Equal(t, Sha256Hash("{ a }"), Sha256Hash("{ a }"))
	require.NotEqual(t, Sha256Hash("{ a }"), Sha256Hash("{ b }"))
}
