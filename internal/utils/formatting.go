package utils

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// HumanSize renders a byte count with binary units ("6.0 GiB").
func HumanSize(n int64) string {
	if n < 0 {
		return "0 B"
	}
	return humanize.IBytes(uint64(n))
}

// ParseSize accepts "5GB", "5 GiB", "1024" and returns bytes.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	return int64(n), nil
}
