// Package snowflake compares platform external ids. Ids are unsigned
// decimal strings ("snowflakes") that grow monotonically; numeric order
// is (length, lexicographic) order, which avoids parsing ids that
// overflow int64.
package snowflake

import "sort"

// Compare returns a negative value if a < b, zero if equal, positive if
// a > b, in numeric snowflake order. An empty id sorts before any
// non-empty id (the "no cursor yet" case).
func Compare(a, b string) int {
	a = trimLeadingZeros(a)
	b = trimLeadingZeros(b)

	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Less reports whether a < b in snowflake order.
func Less(a, b string) bool {
	return Compare(a, b) < 0
}

// Max returns the greater of a and b in snowflake order.
func Max(a, b string) string {
	if Compare(a, b) >= 0 {
		return a
	}
	return b
}

// Min returns the lesser of a and b in snowflake order. An empty id is
// the minimum.
func Min(a, b string) string {
	if Compare(a, b) <= 0 {
		return a
	}
	return b
}

// Sort orders ids ascending in snowflake order.
func Sort(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		return Less(ids[i], ids[j])
	})
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' {
		i++
	}
	return s[i:]
}
