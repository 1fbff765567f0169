package icefun

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseAddr parses a flash address or size. It accepts the integer syntax of
// Go literals (decimal, 0x, 0o, 0b, underscores) with an optional K (1024)
// or M (1024*1024) suffix, e.g. "64K", "0x20000", "1M".
func ParseAddr(s string) (int, error) {
	num := strings.TrimSpace(s)
	mult := uint64(1)
	switch {
	case strings.HasSuffix(num, "K"):
		mult = 1 << 10
		num = num[:len(num)-1]
	case strings.HasSuffix(num, "M"):
		mult = 1 << 20
		num = num[:len(num)-1]
	}

	v, err := strconv.ParseUint(num, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if v > math.MaxInt/mult {
		return 0, fmt.Errorf("invalid address %q: %w", s, strconv.ErrRange)
	}
	return int(v * mult), nil
}
