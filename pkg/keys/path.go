package keys

import (
	"net/url"
	"strings"
)

// Prefix of the keys API, version and collection root.
const Prefix = "/v2/keys"

// Resolve returns the absolute URL of the key.
// The key is joined to "{root}/v2/keys" with exactly one "/" between segments,
// leading, trailing and repeated slashes in the key are ignored.
// The key content is not interpreted, "v2/keys/foo" is a regular key.
func Resolve(root *url.URL, key string) *url.URL {
	return &url.URL{
		Scheme: root.Scheme,
		User:   root.User,
		Host:   root.Host,
		Path:   strings.TrimRight(root.Path, "/") + Prefix + NormalizeKey(key),
	}
}

// NormalizeKey returns the key in the absolute form used by the server, eg. "foo//bar/" -> "/foo/bar".
func NormalizeKey(key string) string {
	var segments []string
	for _, s := range strings.Split(key, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return "/" + strings.Join(segments, "/")
}

// IsHidden returns true if the last segment of the key starts with "_", such keys are not listed by the server.
func IsHidden(key string) bool {
	key = NormalizeKey(key)
	return strings.HasPrefix(key[strings.LastIndex(key, "/")+1:], "_")
}
