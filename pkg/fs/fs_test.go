package fs

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_U_Hash(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", Hash(""))
	assert.Len(t, Hash("../../etc/passwd"), 32)
	assert.NotEqual(t, Hash("a"), Hash("b"))
}

func Test_U_Documents(t *testing.T) {
	t.Parallel()
	ctx := t.Context()

	docs, err := NewDocuments(t.TempDir())
	require.NoError(t, err)

	_, err = docs.Get(ctx, "challenge", "1")
	assert.ErrorIs(t, err, ErrNotExist)

	require.NoError(t, docs.Put(ctx, "challenge", "1", []byte(`{"id":"1"}`)))
	require.NoError(t, docs.Put(ctx, "challenge", "2", []byte(`{"id":"2"}`)))
	require.NoError(t, docs.Put(ctx, "phase", "1", []byte(`{"id":"p1"}`)))

	b, err := docs.Get(ctx, "challenge", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1"}`, string(b))

	all, err := docs.List(ctx, "challenge")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, docs.Delete(ctx, "challenge", "1"))
	assert.ErrorIs(t, docs.Delete(ctx, "challenge", "1"), ErrNotExist)

	all, err = docs.List(ctx, "challenge")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	all, err = docs.List(ctx, "unknown")
	require.NoError(t, err)
	assert.Empty(t, all)
}

func Test_U_Assets(t *testing.T) {
	t.Parallel()

	assets, err := NewAssets(t.TempDir())
	require.NoError(t, err)

	size, sum, err := assets.Write("f1", strings.NewReader("hello"))
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	rc, err := assets.Open("f1")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(b))

	require.NoError(t, assets.Delete("f1"))
	_, err = assets.Open("f1")
	assert.Error(t, err)
}
