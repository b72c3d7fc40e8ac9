package cachestore

import "strings"

// cachePrefix roots cache entries below the segment, apart from general
// objects.
const cachePrefix = "caches"

var keySanitizer = strings.NewReplacer("?", "~", "&", "~", "#", "~", "%", "~")

// sanitizeKey strips exactly one leading and one trailing slash and replaces
// characters that S3 request URLs treat specially. Idempotent on its own
// output.
func sanitizeKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	key = strings.TrimSuffix(key, "/")
	return keySanitizer.Replace(key)
}

// ResolveCachePath maps a cache key to its storage path under
// <segment>/caches/.
func (s *Store) ResolveCachePath(key string) string {
	return s.segment + "/" + cachePrefix + "/" + sanitizeKey(key)
}

// ResolveObjectPath maps an object key to its storage path under the
// segment.
func (s *Store) ResolveObjectPath(key string) string {
	return s.segment + "/" + sanitizeKey(key)
}
