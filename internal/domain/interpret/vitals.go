package interpret

import (
	"strconv"
	"strings"
)

var vitalRules = map[Kind]Rule{
	KindTemperature: {
		Unit: "°C",
		Bands: []Band{
			{Ge, 40, StatusCritical, "Hyperpyrexia"},
			{Ge, 38, StatusAbnormal, "Fever"},
			{Lt, 35, StatusCritical, "Hypothermia"},
			{Lt, 36, StatusAbnormal, "Low temperature"},
		},
		Normal: "Normal temperature",
	},
	KindHeartRate: {
		Unit: "bpm",
		Bands: []Band{
			{Ge, 130, StatusCritical, "Severe tachycardia"},
			{Gt, 100, StatusAbnormal, "Tachycardia"},
			{Lt, 40, StatusCritical, "Severe bradycardia"},
			{Lt, 50, StatusAbnormal, "Bradycardia"},
		},
		Normal: "Normal heart rate",
	},
	KindFetalHeartRate: {
		Unit: "bpm",
		Bands: []Band{
			{Lt, 100, StatusCritical, "Severe fetal bradycardia"},
			{Lt, 110, StatusAbnormal, "Fetal bradycardia"},
			{Gt, 180, StatusCritical, "Severe fetal tachycardia"},
			{Gt, 160, StatusAbnormal, "Fetal tachycardia"},
		},
		Normal: "Normal fetal heart rate",
	},
}

var (
	systolicRule = Rule{
		Unit: "mmHg",
		Bands: []Band{
			{Ge, 160, StatusCritical, "Severe hypertension"},
			{Ge, 140, StatusAbnormal, "Hypertension"},
			{Lt, 90, StatusAbnormal, "Hypotension"},
		},
		Normal: "Normal blood pressure",
	}
	diastolicRule = Rule{
		Unit: "mmHg",
		Bands: []Band{
			{Ge, 110, StatusCritical, "Severe hypertension"},
			{Ge, 90, StatusAbnormal, "Hypertension"},
			{Lt, 60, StatusAbnormal, "Hypotension"},
		},
		Normal: "Normal blood pressure",
	}
)

// ParseBloodPressure reads "systolic/diastolic". Values given in cmHg
// ("12/8") are converted to mmHg.
func ParseBloodPressure(s string) (systolic, diastolic float64, ok bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	sys, ok1 := ParseNumber(parts[0])
	dia, ok2 := ParseNumber(parts[1])
	if !ok1 || !ok2 || sys <= 0 || dia <= 0 {
		return 0, 0, false
	}
	if sys < 30 && dia < 30 {
		sys, dia = sys*10, dia*10
	}
	return sys, dia, true
}

// BloodPressure classifies a "systolic/diastolic" reading. The worse of the
// two components decides.
func BloodPressure(s string) Result {
	r := Result{Kind: KindBloodPressure, Value: s, Status: StatusNormal}
	sys, dia, ok := ParseBloodPressure(s)
	if !ok {
		r.Status, r.Interpretation = StatusAbnormal, "Blood pressure must be written systolic/diastolic"
		return r
	}
	sStatus, sText := systolicRule.Apply(sys)
	dStatus, dText := diastolicRule.Apply(dia)
	r.Status, r.Interpretation = sStatus, sText
	if dStatus.Worse(sStatus) {
		r.Status, r.Interpretation = dStatus, dText
	}
	return r
}

// Vital classifies a clinical measurement given as text. Blood pressure is
// read as "systolic/diastolic"; other kinds as a number.
func Vital(kind Kind, value string) (Result, bool) {
	if kind == KindBloodPressure {
		return BloodPressure(value), true
	}
	rule, ok := vitalRules[kind]
	if !ok {
		return Result{}, false
	}
	r := Result{Kind: kind, Value: value, Status: StatusNormal}
	v, ok := ParseNumber(value)
	if !ok {
		r.Status, r.Interpretation = StatusAbnormal, textNotNumeric
		return r, true
	}
	r.Status, r.Interpretation = rule.Apply(v)
	return r, true
}

// VitalValue is Vital for a number.
func VitalValue(kind Kind, v float64) (Result, bool) {
	return Vital(kind, strconv.FormatFloat(v, 'f', -1, 64))
}
