package roles

import (
	"fmt"
	"math/rand"
	"sort"
)

// GeneratePool expands a distribution into a flat, shuffled list of
// role definitions. Every role id in the distribution must exist in
// the catalog; an unknown id fails the whole pool (no partial deals).
func GeneratePool(distribution Distribution, catalog []Role) ([]Role, error) {
	pool := make([]Role, 0, distribution.Total())

	// Iterate ids in sorted order so errors are stable; the shuffle
	// below makes the iteration order irrelevant to the result.
	ids := make([]string, 0, len(distribution))
	for id := range distribution {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		role := findRole(catalog, id)
		if role == nil {
			return nil, fmt.Errorf("role %q not found in catalog", id)
		}
		for i := 0; i < distribution[id]; i++ {
			pool = append(pool, *role)
		}
	}

	shuffle(pool)

	return pool, nil
}

// shuffle is an in-place Fisher-Yates: each permutation of the pool is
// equally likely.
func shuffle(pool []Role) {
	for i := len(pool) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		pool[i], pool[j] = pool[j], pool[i]
	}
}
