package interpret

import (
	"math"
	"regexp"
	"strings"
)

const textRangeUnreadable = "Reference range not interpretable"

// Range is a parsed reference range. Open bounds are infinite.
type Range struct {
	Min, Max float64
	// Strict bounds exclude the limit itself ("<5").
	MinStrict, MaxStrict bool
}

var (
	intervalPattern = regexp.MustCompile(`^\s*([-+]?\d+(?:[.,]\d+)?)\s*(?:-|–|à|a|to|\.\.)\s*([-+]?\d+(?:[.,]\d+)?)`)
	boundPattern    = regexp.MustCompile(`^\s*(<=|>=|≤|≥|<|>)\s*([-+]?\d+(?:[.,]\d+)?)`)
)

// ParseRange reads "4.5-11", "4,5 à 11 g/L", "<5", ">= 0.3" and similar.
func ParseRange(s string) (Range, bool) {
	s = strings.TrimSpace(s)
	if m := intervalPattern.FindStringSubmatch(s); m != nil {
		lo, ok1 := ParseNumber(m[1])
		hi, ok2 := ParseNumber(m[2])
		if !ok1 || !ok2 || lo > hi {
			return Range{}, false
		}
		return Range{Min: lo, Max: hi}, true
	}
	if m := boundPattern.FindStringSubmatch(s); m != nil {
		v, ok := ParseNumber(m[2])
		if !ok {
			return Range{}, false
		}
		switch m[1] {
		case "<":
			return Range{Min: math.Inf(-1), Max: v, MaxStrict: true}, true
		case "<=", "≤":
			return Range{Min: math.Inf(-1), Max: v}, true
		case ">":
			return Range{Min: v, Max: math.Inf(1), MinStrict: true}, true
		default:
			return Range{Min: v, Max: math.Inf(1)}, true
		}
	}
	return Range{}, false
}

// Below reports whether v falls under the range.
func (r Range) Below(v float64) bool {
	if r.MinStrict {
		return v <= r.Min
	}
	return v < r.Min
}

// Above reports whether v falls over the range.
func (r Range) Above(v float64) bool {
	if r.MaxStrict {
		return v >= r.Max
	}
	return v > r.Max
}

// AgainstRange classifies value against a free-text reference range. A value
// more than twice the upper limit, or under half the lower limit, is critical.
func AgainstRange(value, refRange string) (Status, string) {
	rng, ok := ParseRange(refRange)
	if !ok {
		return StatusNormal, textRangeUnreadable
	}
	v, ok := ParseNumber(value)
	if !ok {
		return StatusAbnormal, textNotNumeric
	}
	switch {
	case rng.Below(v):
		if rng.Min > 0 && v < rng.Min/2 {
			return StatusCritical, "Far below reference range"
		}
		return StatusAbnormal, "Below reference range"
	case rng.Above(v):
		if rng.Max > 0 && !math.IsInf(rng.Max, 1) && v > rng.Max*2 {
			return StatusCritical, "Far above reference range"
		}
		return StatusAbnormal, "Above reference range"
	}
	return StatusNormal, "Within reference range"
}
