package interpret

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	textNoRule          = "No interpretation rule for this measurement"
	textRecentInfection = "IgM positive, possible recent infection, check IgG avidity"
	textNotNumeric      = "Value is not a number"
	textUnreadable      = "Result could not be read"
	textEmpty           = "No value entered"
)

var numberPattern = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)

// ParseNumber extracts the first number of s. Decimal commas are accepted and
// trailing units are ignored ("11,2 g/dL" is 11.2).
func ParseNumber(s string) (float64, bool) {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Interpret classifies a named biological result. Known names use the
// built-in tables; other names are read against refRange when one is given.
// It is cheap enough to call on every keystroke.
func Interpret(name, value, refRange string) Result {
	r := Result{Name: name, Value: value, Status: StatusNormal}
	if strings.TrimSpace(value) == "" {
		r.Interpretation = textEmpty
		return r
	}

	kind, ok := ParseKind(name)
	if !ok || !isBiology(kind) {
		if strings.TrimSpace(refRange) != "" {
			r.Status, r.Interpretation = AgainstRange(value, refRange)
			return r
		}
		r.Interpretation = textNoRule
		return r
	}
	r.Kind = kind

	if sero, ok := serologyRules[kind]; ok {
		pos, known := qualitative(value)
		if immunityTests[kind] {
			if igm, found := antibody(value, "igm"); found && igm {
				r.Status, r.Interpretation = StatusCritical, textRecentInfection
				return r
			}
			if igg, found := antibody(value, "igg"); found {
				pos, known = igg, true
			}
		}
		switch {
		case !known:
			r.Status, r.Interpretation = StatusAbnormal, textUnreadable
		case pos:
			r.Status, r.Interpretation = sero.positive, sero.positiveText
		default:
			r.Status, r.Interpretation = sero.negative, sero.negativeText
		}
		return r
	}

	v, numeric := ParseNumber(value)
	if !numeric || (isUrine(kind) && strings.Contains(value, "+")) {
		if isUrine(kind) {
			if st, text, ok := dipstick(value); ok {
				r.Status, r.Interpretation = st, text
				return r
			}
		}
		r.Status, r.Interpretation = StatusAbnormal, textNotNumeric
		return r
	}

	r.Status, r.Interpretation = biologyRules[kind].Apply(v)
	return r
}

// Numeric classifies v for a kind with a threshold table.
func Numeric(kind Kind, v float64) (Result, bool) {
	rule, ok := biologyRules[kind]
	if !ok {
		rule, ok = vitalRules[kind]
	}
	if !ok {
		return Result{}, false
	}
	st, text := rule.Apply(v)
	return Result{Kind: kind, Value: strconv.FormatFloat(v, 'f', -1, 64), Status: st, Interpretation: text}, true
}

func isBiology(k Kind) bool {
	_, table := biologyRules[k]
	_, sero := serologyRules[k]
	return table || sero
}

func isUrine(k Kind) bool { return k == KindAlbuminuria || k == KindGlycosuria }
