package keys

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	t.Parallel()
	root, err := url.Parse("http://127.0.0.1:2379")
	require.NoError(t, err)

	cases := []struct{ key, expected string }{
		{"", "http://127.0.0.1:2379/v2/keys/"},
		{"/", "http://127.0.0.1:2379/v2/keys/"},
		{"foo", "http://127.0.0.1:2379/v2/keys/foo"},
		{"/foo", "http://127.0.0.1:2379/v2/keys/foo"},
		{"foo/", "http://127.0.0.1:2379/v2/keys/foo"},
		{"//foo//bar//", "http://127.0.0.1:2379/v2/keys/foo/bar"},
		{"_hidden", "http://127.0.0.1:2379/v2/keys/_hidden"},
		{"dir/_hidden", "http://127.0.0.1:2379/v2/keys/dir/_hidden"},
		{"with space", "http://127.0.0.1:2379/v2/keys/with%20space"},
		{"/v2/keys/foo", "http://127.0.0.1:2379/v2/keys/v2/keys/foo"},
		{"/v2/keys", "http://127.0.0.1:2379/v2/keys/v2/keys"},
	}
	for _, c := range cases {
		assert.Equal(t, c.expected, Resolve(root, c.key).String(), c.key)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	t.Parallel()
	root, err := url.Parse("https://etcd.example.com:2379/")
	require.NoError(t, err)

	for _, key := range []string{"", "foo", "/foo/bar/", "_hidden", "a//b", "v2/keys/app"} {
		absolute := NormalizeKey(key)
		assert.Equal(t, absolute, NormalizeKey(absolute), key)
		assert.Equal(t, Resolve(root, key).String(), Resolve(root, absolute).String(), key)
		assert.Equal(t, "/v2/keys"+absolute, Resolve(root, absolute).Path, key)
	}
}

func TestResolveRootWithPath(t *testing.T) {
	t.Parallel()
	root, err := url.Parse("http://proxy.example.com/etcd/?foo=bar#fragment")
	require.NoError(t, err)

	assert.Equal(t, "http://proxy.example.com/etcd/v2/keys/foo", Resolve(root, "foo").String())
	assert.Equal(t, "http://proxy.example.com/etcd/v2/keys/etcd/v2/keys/foo", Resolve(root, "/etcd/v2/keys/foo").String())
	// Root is not modified
	assert.Equal(t, "/etcd/", root.Path)
}

func TestNormalizeKey(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/", NormalizeKey(""))
	assert.Equal(t, "/", NormalizeKey("///"))
	assert.Equal(t, "/foo", NormalizeKey("foo"))
	assert.Equal(t, "/foo/bar", NormalizeKey("/foo//bar/"))
}

func TestIsHidden(t *testing.T) {
	t.Parallel()
	assert.True(t, IsHidden("_foo"))
	assert.True(t, IsHidden("/dir/_foo/"))
	assert.False(t, IsHidden("/_dir/foo"))
	assert.False(t, IsHidden("/"))
}
