package utils

import (
	"sort"
	"strings"
)

// SortByRankAndKey sorts by rank (lower first) then by key, case-insensitive.
// The sort is stable so equal entries keep their input order.
func SortByRankAndKey[T any](xs []T, rankOf func(T) int, keyOf func(T) string) {
	sort.SliceStable(xs, func(i, j int) bool {
		rI, rJ := rankOf(xs[i]), rankOf(xs[j])
		if rI != rJ {
			return rI < rJ
		}
		return strings.ToLower(keyOf(xs[i])) < strings.ToLower(keyOf(xs[j]))
	})
}
