package interpret

import "strings"

// Status is the classification of one measurement.
type Status string

const (
	StatusNormal   Status = "normal"
	StatusAbnormal Status = "abnormal"
	StatusCritical Status = "critical"
)

func (s Status) rank() int {
	switch s {
	case StatusCritical:
		return 2
	case StatusAbnormal:
		return 1
	}
	return 0
}

// Worse reports whether s is more severe than other.
func (s Status) Worse(other Status) bool { return s.rank() > other.rank() }

// Result is the outcome of interpreting one measurement.
type Result struct {
	Kind           Kind   `json:"kind,omitempty"`
	Name           string `json:"name,omitempty"`
	Value          string `json:"value,omitempty"`
	Status         Status `json:"status"`
	Interpretation string `json:"interpretation"`
}

// Abnormal reports whether r is abnormal or critical.
func (r Result) Abnormal() bool { return r.Status != StatusNormal }

// Op compares a value against a band limit.
type Op int

const (
	Lt Op = iota
	Le
	Gt
	Ge
)

func (o Op) holds(v, limit float64) bool {
	switch o {
	case Lt:
		return v < limit
	case Le:
		return v <= limit
	case Gt:
		return v > limit
	case Ge:
		return v >= limit
	}
	return false
}

// Band is one threshold of a Rule.
type Band struct {
	Op     Op
	Limit  float64
	Status Status
	Text   string
}

// Rule is an ordered threshold table. The first band that holds decides the
// result; when none holds the value is normal.
type Rule struct {
	Unit   string
	Bands  []Band
	Normal string
}

// Apply classifies v.
func (r Rule) Apply(v float64) (Status, string) {
	for _, b := range r.Bands {
		if b.Op.holds(v, b.Limit) {
			return b.Status, b.Text
		}
	}
	return StatusNormal, r.Normal
}

var biologyRules = map[Kind]Rule{
	KindHemoglobin: {
		Unit: "g/dL",
		Bands: []Band{
			{Lt, 8, StatusCritical, "Severe anemia"},
			{Lt, 11, StatusAbnormal, "Anemia"},
			{Gt, 16, StatusAbnormal, "Elevated hemoglobin"},
		},
		Normal: "Normal hemoglobin",
	},
	KindGlycemia: {
		Unit: "g/L",
		Bands: []Band{
			{Lt, 0.4, StatusCritical, "Severe hypoglycemia"},
			{Lt, 0.7, StatusAbnormal, "Hypoglycemia"},
			{Ge, 2.0, StatusCritical, "Severe hyperglycemia"},
			{Gt, 1.26, StatusAbnormal, "Hyperglycemia, screen for diabetes"},
		},
		Normal: "Normal glycemia",
	},
	KindCreatinine: {
		Unit: "mg/L",
		Bands: []Band{
			{Ge, 12, StatusCritical, "Markedly elevated creatinine, renal impairment"},
			{Gt, 9, StatusAbnormal, "Elevated creatinine for pregnancy"},
			{Lt, 3.5, StatusAbnormal, "Low creatinine"},
		},
		Normal: "Normal creatinine",
	},
	KindPlatelets: {
		Unit: "G/L",
		Bands: []Band{
			{Lt, 50, StatusCritical, "Severe thrombocytopenia"},
			{Lt, 150, StatusAbnormal, "Thrombocytopenia"},
			{Gt, 450, StatusAbnormal, "Thrombocytosis"},
		},
		Normal: "Normal platelet count",
	},
	KindAlbuminuria: {
		Unit: "g/24h",
		Bands: []Band{
			{Ge, 5, StatusCritical, "Massive proteinuria"},
			{Ge, 0.3, StatusAbnormal, "Significant proteinuria, screen for preeclampsia"},
		},
		Normal: "No significant proteinuria",
	},
	KindGlycosuria: {
		Unit: "g/L",
		Bands: []Band{
			{Ge, 5, StatusCritical, "Heavy glycosuria"},
			{Gt, 0, StatusAbnormal, "Glycosuria present"},
		},
		Normal: "No glycosuria",
	},
}

// serology describes how a qualitative result is read for one test.
type serology struct {
	positive     Status
	positiveText string
	negative     Status
	negativeText string
}

var serologyRules = map[Kind]serology{
	KindToxoplasmosis: {StatusNormal, "Immune to toxoplasmosis", StatusAbnormal, "Not immune to toxoplasmosis, monthly serology follow-up"},
	KindRubella:       {StatusNormal, "Immune to rubella", StatusAbnormal, "Not immune to rubella, postpartum vaccination"},
	KindHIV:           {StatusCritical, "HIV positive, specialist referral", StatusNormal, "HIV negative"},
	KindHepatitisB:    {StatusCritical, "HBs antigen positive, newborn serovaccination required", StatusNormal, "HBs antigen negative"},
	KindSyphilis:      {StatusCritical, "Syphilis serology positive, treatment required", StatusNormal, "Syphilis serology negative"},
}

// Markers are matched on folded values. Negative markers are checked first
// because "non reactif" contains "reactif". Toxoplasmosis and rubella results
// listing IgG and IgM are read per antibody class first.
var (
	negativeMarkers = []string{"negatif", "negative", "non reactif", "non-reactif", "non reactive", "absence", "absent", "non immunise", "non immunisee", "non immune", "not immune", "neg"}
	positiveMarkers = []string{"positif", "positive", "reactif", "reactive", "presence", "present", "immunise", "immunisee", "immune", "pos", "+"}
)

func qualitative(value string) (positive, known bool) {
	v := Fold(value)
	for _, m := range negativeMarkers {
		if containsWord(v, m) {
			return false, true
		}
	}
	for _, m := range positiveMarkers {
		if containsWord(v, m) {
			return true, true
		}
	}
	return false, false
}

// immunityTests report IgG (immunity) and IgM (recent infection) separately.
var immunityTests = map[Kind]bool{KindToxoplasmosis: true, KindRubella: true}

// antibody reads the part of value naming class, as in
// "IgG positif, IgM négatif".
func antibody(value, class string) (positive, found bool) {
	v := strings.NewReplacer(" et ", ",", " and ", ",", ";", ",", "/", ",").Replace(Fold(value))
	for _, part := range strings.Split(v, ",") {
		if !containsWord(part, class) {
			continue
		}
		rest := strings.TrimSpace(strings.Replace(part, class, "", 1))
		if pos, known := qualitative(rest); known {
			return pos, true
		}
	}
	return false, false
}

// containsWord matches m at word boundaries, except for symbol markers.
func containsWord(s, m string) bool {
	if m == "+" {
		return len(s) > 0 && s[0] == '+'
	}
	for i := 0; i+len(m) <= len(s); i++ {
		if s[i:i+len(m)] != m {
			continue
		}
		before := i == 0 || !isLetter(s[i-1])
		after := i+len(m) == len(s) || !isLetter(s[i+len(m)])
		if before && after {
			return true
		}
	}
	return false
}

func isLetter(b byte) bool { return b >= 'a' && b <= 'z' }

// dipstick reads urine strip notation: negative, traces, +, ++, +++.
func dipstick(value string) (Status, string, bool) {
	v := Fold(value)
	switch {
	case v == "":
		return "", "", false
	case strings.Count(v, "+") >= 3:
		return StatusCritical, "Strongly positive urine strip", true
	case strings.Count(v, "+") > 0:
		return StatusAbnormal, "Positive urine strip", true
	case strings.Contains(v, "trace"):
		return StatusAbnormal, "Traces on urine strip", true
	}
	if pos, ok := qualitative(v); ok {
		if pos {
			return StatusAbnormal, "Positive urine strip", true
		}
		return StatusNormal, "Negative urine strip", true
	}
	return "", "", false
}
