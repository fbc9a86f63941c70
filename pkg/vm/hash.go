package vm

import "hash/fnv"

// hashString produces the content-address the string pool keys on. FNV-1a
// is the standard library's own string-hash workhorse (used internally by
// maphash's fallback and by encoding/gob's type cache); nothing in the
// corpus pulls in a faster non-cryptographic hash like xxhash for this
// purely in-process, non-adversarial use, so reaching past the standard
// library here would add a dependency with no concern to justify it.
func hashString(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
