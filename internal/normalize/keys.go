package normalize

import "github.com/zeebo/xxh3"

// KeySet tracks natural keys seen during a load by their 64-bit xxh3 hash.
// Collisions are possible in theory; it is used for reporting only.
type KeySet struct {
	seen map[uint64]struct{}
	dups int
}

// NewKeySet returns a KeySet sized for n keys.
func NewKeySet(n int) *KeySet {
	return &KeySet{seen: make(map[uint64]struct{}, n)}
}

// Add records key and reports whether it had not been seen before.
func (s *KeySet) Add(key string) bool {
	h := xxh3.HashString(key)
	if _, ok := s.seen[h]; ok {
		s.dups++
		return false
	}
	s.seen[h] = struct{}{}
	return true
}

// Len returns the number of distinct keys.
func (s *KeySet) Len() int { return len(s.seen) }

// Duplicates returns how many Add calls hit an existing key.
func (s *KeySet) Duplicates() int { return s.dups }
