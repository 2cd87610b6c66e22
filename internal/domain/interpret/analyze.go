package interpret

// Act is a biological test result as entered on an exam.
type Act struct {
	Name           string
	Value          string
	Unit           string
	ReferenceRange string
}

// Measurement is one numeric ultrasound value.
type Measurement struct {
	Kind  Kind
	Value float64
}

// Vitals holds the clinical readings of one exam. Nil or empty fields are
// skipped.
type Vitals struct {
	BloodPressure  string
	Temperature    *float64
	HeartRate      *float64
	FetalHeartRate *float64
}

// AnalyzeActs interprets every act that has a value, in order.
func AnalyzeActs(acts []Act) []Result {
	out := make([]Result, 0, len(acts))
	for _, a := range acts {
		if a.Value == "" {
			continue
		}
		out = append(out, Interpret(a.Name, a.Value, a.ReferenceRange))
	}
	return out
}

// AnalyzeUltrasound interprets each measurement at gaWeeks (nil if unknown).
func AnalyzeUltrasound(ms []Measurement, gaWeeks *float64) []Result {
	out := make([]Result, 0, len(ms))
	for _, m := range ms {
		if r, ok := Ultrasound(m.Kind, m.Value, gaWeeks); ok {
			out = append(out, r)
		}
	}
	return out
}

// AnalyzeVitals interprets the readings that are present.
func AnalyzeVitals(v Vitals) []Result {
	var out []Result
	if v.BloodPressure != "" {
		out = append(out, BloodPressure(v.BloodPressure))
	}
	for _, f := range []struct {
		kind  Kind
		value *float64
	}{
		{KindTemperature, v.Temperature},
		{KindHeartRate, v.HeartRate},
		{KindFetalHeartRate, v.FetalHeartRate},
	} {
		if f.value == nil {
			continue
		}
		if r, ok := VitalValue(f.kind, *f.value); ok {
			out = append(out, r)
		}
	}
	if out == nil {
		out = []Result{}
	}
	return out
}

// Worst returns the most severe status among results, normal when empty.
func Worst(results []Result) Status {
	worst := StatusNormal
	for _, r := range results {
		if r.Status.Worse(worst) {
			worst = r.Status
		}
	}
	return worst
}

// Anomalies keeps the abnormal and critical results.
func Anomalies(results []Result) []Result {
	out := make([]Result, 0)
	for _, r := range results {
		if r.Abnormal() {
			out = append(out, r)
		}
	}
	return out
}
