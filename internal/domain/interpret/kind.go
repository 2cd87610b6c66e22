// Package interpret classifies clinical measurements as normal, abnormal or
// critical. Rules are threshold tables keyed by an explicit measurement Kind;
// free-text names are mapped to a Kind once, by ParseKind.
//
// The tables are illustrative and must not be used for clinical decisions.
package interpret

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Kind identifies a measurement.
type Kind string

const (
	KindUnknown Kind = ""

	// Biology
	KindHemoglobin    Kind = "hemoglobin"
	KindGlycemia      Kind = "glycemia"
	KindCreatinine    Kind = "creatinine"
	KindPlatelets     Kind = "platelets"
	KindAlbuminuria   Kind = "albuminuria"
	KindGlycosuria    Kind = "glycosuria"
	KindToxoplasmosis Kind = "toxoplasmosis"
	KindRubella       Kind = "rubella"
	KindHIV           Kind = "hiv"
	KindHepatitisB    Kind = "hepatitis_b"
	KindSyphilis      Kind = "syphilis"

	// Ultrasound
	KindCrownRumpLength     Kind = "crown_rump_length"
	KindNuchalTranslucency  Kind = "nuchal_translucency"
	KindBiparietalDiameter  Kind = "biparietal_diameter"
	KindTransverseAbdominal Kind = "transverse_abdominal_diameter"
	KindFemurLength         Kind = "femur_length"
	KindEmbryoCount         Kind = "embryo_count"

	// Clinical
	KindBloodPressure  Kind = "blood_pressure"
	KindTemperature    Kind = "temperature"
	KindHeartRate      Kind = "heart_rate"
	KindFetalHeartRate Kind = "fetal_heart_rate"
)

var aliases = map[Kind][]string{
	KindHemoglobin:    {"hemoglobine", "hemoglobin", "hb", "hgb"},
	KindGlycemia:      {"glycemie", "glycemie a jeun", "glycemia", "glucose", "blood glucose", "fasting glucose"},
	KindCreatinine:    {"creatinine", "creatininemie", "creatinemie"},
	KindPlatelets:     {"plaquettes", "platelets", "numeration plaquettaire", "plt"},
	KindAlbuminuria:   {"albuminurie", "proteinurie", "albuminuria", "proteinuria"},
	KindGlycosuria:    {"glucosurie", "glycosurie", "glycosuria", "glucosuria"},
	KindToxoplasmosis: {"toxoplasmose", "toxoplasmosis", "serologie toxoplasmose", "toxo"},
	KindRubella:       {"rubeole", "rubella", "serologie rubeole"},
	KindHIV:           {"vih", "hiv", "serologie vih"},
	KindHepatitisB:    {"hepatite b", "hepatitis b", "ag hbs", "aghbs", "hbsag"},
	KindSyphilis:      {"syphilis", "tpha", "vdrl", "tpha-vdrl"},

	KindCrownRumpLength:     {"lcc", "longueur cranio-caudale", "longueur cranio caudale", "crown-rump length", "crown rump length", "crl"},
	KindNuchalTranslucency:  {"clarte nucale", "cn", "nuchal translucency", "nt"},
	KindBiparietalDiameter:  {"bip", "diametre biparietal", "biparietal diameter", "bpd"},
	KindTransverseAbdominal: {"dat", "diametre abdominal transverse", "transverse abdominal diameter", "tad"},
	KindFemurLength:         {"lf", "longueur femorale", "femur length", "fl"},
	KindEmbryoCount:         {"nombre d'embryons", "nombre embryons", "embryo count", "number of embryos"},

	KindBloodPressure:  {"ta", "tension arterielle", "pression arterielle", "blood pressure", "bp"},
	KindTemperature:    {"temperature", "temp"},
	KindHeartRate:      {"pouls", "frequence cardiaque", "heart rate", "fc", "hr"},
	KindFetalHeartRate: {"bcf", "bruits du coeur foetal", "bruits du coeur fœtal", "rythme cardiaque foetal", "fetal heart rate", "fhr", "rcf"},
}

var exactAliases = map[string]Kind{}

func init() {
	for kind, names := range aliases {
		for _, n := range names {
			exactAliases[Fold(n)] = kind
		}
	}
}

// units may trail a measurement name, as in "Hémoglobine g/dL".
var units = map[string]bool{
	"g/dl": true, "g/l": true, "mg/l": true, "mmol/l": true, "umol/l": true, "µmol/l": true,
	"mm": true, "cm": true, "bpm": true, "mmhg": true, "°c": true, "c": true, "%": true,
}

// ParseKind maps a measurement name in French or English to its Kind.
// Matching ignores case and accents, and a trailing parenthetical or unit;
// otherwise the name must equal a known alias. "Hémoglobine glyquée" is not
// hemoglobin.
func ParseKind(name string) (Kind, bool) {
	folded := Fold(name)
	for folded != "" {
		if k, ok := exactAliases[folded]; ok {
			return k, true
		}
		trimmed := trimQualifier(folded)
		if trimmed == folded {
			break
		}
		folded = trimmed
	}
	return KindUnknown, false
}

// trimQualifier drops one trailing "(...)", "[...]", ", unit" or unit word.
func trimQualifier(s string) string {
	if strings.HasSuffix(s, ")") || strings.HasSuffix(s, "]") {
		open := "("
		if strings.HasSuffix(s, "]") {
			open = "["
		}
		if i := strings.LastIndex(s, open); i > 0 {
			return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s[:i]), ","))
		}
		return s
	}
	if i := strings.LastIndexAny(s, " ,"); i > 0 && units[strings.TrimSpace(s[i+1:])] {
		return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s[:i]), ","))
	}
	return s
}

// Fold lower-cases s, strips diacritics and collapses whitespace.
func Fold(s string) string {
	s = strings.NewReplacer("œ", "oe", "Œ", "oe", "’", "'", "æ", "ae").Replace(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}
