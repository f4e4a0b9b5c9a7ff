package reconcile

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Checksum returns the uppercase hex SHA-256 digest of attrs. Each pair is
// rendered as name=value, the lines are sorted and joined with "\n", so the
// result does not depend on map iteration order. Values must be single-line.
func Checksum(attrs map[string]string) string {
	lines := make([]string, 0, len(attrs))
	for k, v := range attrs {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
