// Package hash provides the fast name-hashing primitive used to build
// O(1) lookup tables over variable names: the dictionary assembler's
// name-to-logical-variable index (dict.nameIndex, §4.5).
package hash

import "github.com/cespare/xxhash/v2"

// Name computes the xxHash64 of a variable name, used as the key for
// name-indexed lookup maps in dict. Collisions are
// handled by falling back to an exact string compare on lookup, the same
// two-step (hash, then verify) pattern the teacher uses for metric IDs.
func Name(name string) uint64 {
	return xxhash.Sum64String(name)
}
