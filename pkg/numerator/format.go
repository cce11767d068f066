// Package numerator provides formatting helpers for sequential document numbers.
package numerator

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	corenumerator "bizdesk/internal/core/numerator"
)

// Format creates the final number string.
// The value is left-padded with zeros to cfg.PadWidth and never truncated.
func Format(cfg corenumerator.Config, num int64) string {
	padWidth := cfg.PadWidth
	if padWidth <= 0 {
		padWidth = corenumerator.DefaultPadWidth
	}

	if cfg.Prefix != "" {
		return fmt.Sprintf("%s-%0*d", cfg.Prefix, padWidth, num)
	}
	return fmt.Sprintf("%0*d", padWidth, num)
}

// BuildKey creates the stored sequence key based on config and period.
func BuildKey(domainKey string, cfg corenumerator.Config, period time.Time) string {
	switch cfg.ResetPeriod {
	case corenumerator.ResetMonth:
		return fmt.Sprintf("%s_%s", domainKey, period.Format("2006_01"))
	case corenumerator.ResetYear:
		return fmt.Sprintf("%s_%s", domainKey, period.Format("2006"))
	default:
		return domainKey
	}
}

// ParseNumber extracts numeric part from formatted number.
// Returns -1 if parsing fails.
func ParseNumber(formatted string) int64 {
	digits := formatted
	if i := strings.LastIndexByte(formatted, '-'); i >= 0 {
		digits = formatted[i+1:]
	}
	if digits == "" {
		return -1
	}

	for _, r := range digits {
		if r < '0' || r > '9' {
			return -1
		}
	}
	num, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return -1
	}
	return num
}
