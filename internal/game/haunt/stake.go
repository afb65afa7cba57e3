package haunt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseStake converts the first word of a chat command into a stake.
// Accepted forms: a positive integer ("150"), a k/m suffixed amount ("2k"),
// a percentage of the current balance ("25%") and "all".
// Percentages and "all" may evaluate to zero on an empty balance; callers
// enforce the minimum bet.
func ParseStake(raw string, balance int64) (int64, error) {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}
	word := strings.ToLower(fields[0])

	switch {
	case word == "all":
		return max(balance, 0), nil

	case strings.HasSuffix(word, "%"):
		pct, err := strconv.ParseFloat(strings.TrimSuffix(word, "%"), 64)
		if err != nil || math.IsNaN(pct) || pct <= 0 || pct > 100 {
			return 0, fmt.Errorf("%w: percentage must be in (0, 100]", ErrInvalidAmount)
		}
		return int64(math.Floor(float64(max(balance, 0)) * pct / 100)), nil

	case strings.HasSuffix(word, "k"), strings.HasSuffix(word, "m"):
		mult := 1000.0
		if strings.HasSuffix(word, "m") {
			mult = 1000000.0
		}
		n, err := strconv.ParseFloat(word[:len(word)-1], 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) || n <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, fields[0])
		}
		v := n * mult
		if v >= math.MaxInt64 {
			return 0, fmt.Errorf("%w: %q is too large", ErrInvalidAmount, fields[0])
		}
		stake := int64(math.Floor(v))
		if stake <= 0 {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, fields[0])
		}
		return stake, nil
	}

	stake, err := strconv.ParseInt(word, 10, 64)
	if err != nil || stake <= 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, fields[0])
	}
	return stake, nil
}
