package interpret

import (
	"fmt"
	"strconv"
)

// growthPoint is the 5th-95th percentile interval of a biometric at one
// gestational week, in millimetres.
type growthPoint struct {
	week      float64
	low, high float64
}

// growthCurves are interpolated linearly between weeks.
var growthCurves = map[Kind][]growthPoint{
	KindBiparietalDiameter: {
		{12, 18, 24}, {16, 31, 39}, {20, 44, 52}, {24, 55, 65},
		{28, 66, 76}, {32, 76, 86}, {36, 83, 93}, {40, 88, 100},
	},
	KindTransverseAbdominal: {
		{12, 18, 25}, {16, 29, 37}, {20, 41, 51}, {24, 53, 65},
		{28, 64, 78}, {32, 75, 91}, {36, 86, 102}, {40, 94, 112},
	},
	KindFemurLength: {
		{12, 6, 10}, {16, 19, 24}, {20, 30, 35}, {24, 40, 46},
		{28, 49, 55}, {32, 57, 64}, {36, 65, 71}, {40, 70, 78},
	},
	KindCrownRumpLength: {
		{7, 7, 13}, {8, 12, 20}, {9, 18, 28}, {10, 25, 37},
		{11, 34, 48}, {12, 45, 61}, {13, 57, 75}, {14, 70, 88},
	},
}

// Rules used when the gestational age is unknown or outside the curves.
var ultrasoundRules = map[Kind]Rule{
	KindCrownRumpLength: {
		Unit: "mm",
		Bands: []Band{
			{Le, 0, StatusAbnormal, "Invalid crown-rump length"},
			{Lt, 45, StatusAbnormal, "Below the 11-14 week screening window"},
			{Gt, 84, StatusAbnormal, "Above the 11-14 week screening window"},
		},
		Normal: "Within the 11-14 week screening window",
	},
	KindNuchalTranslucency: {
		Unit: "mm",
		Bands: []Band{
			{Ge, 3.5, StatusCritical, "Increased nuchal translucency, karyotype counselling"},
			{Ge, 3.0, StatusAbnormal, "Borderline nuchal translucency"},
		},
		Normal: "Normal nuchal translucency",
	},
	KindEmbryoCount: {
		Bands: []Band{
			{Lt, 1, StatusCritical, "No embryo visualized"},
			{Ge, 3, StatusCritical, "Higher-order multiple pregnancy"},
			{Ge, 2, StatusAbnormal, "Twin pregnancy, high-risk follow-up"},
		},
		Normal: "Singleton pregnancy",
	},
}

const (
	ntWindowStart = 11.0
	ntWindowEnd   = 14.0
	// growth deviations beyond this share of the interval width are critical
	criticalSpread = 0.5
)

// Ultrasound classifies one ultrasound measurement in millimetres (or a count
// for KindEmbryoCount). gaWeeks is the gestational age in weeks, or nil.
func Ultrasound(kind Kind, v float64, gaWeeks *float64) (Result, bool) {
	r := Result{Kind: kind, Value: strconv.FormatFloat(v, 'f', -1, 64), Status: StatusNormal}

	switch kind {
	case KindNuchalTranslucency:
		if gaWeeks != nil && (*gaWeeks < ntWindowStart || *gaWeeks > ntWindowEnd) {
			r.Interpretation = "Nuchal translucency is only assessed between 11 and 14 weeks"
			return r, true
		}
	case KindEmbryoCount:
	case KindCrownRumpLength, KindBiparietalDiameter, KindTransverseAbdominal, KindFemurLength:
		if gaWeeks != nil {
			if low, high, ok := expected(kind, *gaWeeks); ok {
				r.Status, r.Interpretation = againstCurve(v, low, high, *gaWeeks)
				return r, true
			}
		}
		if _, ok := ultrasoundRules[kind]; !ok {
			if v <= 0 {
				r.Status, r.Interpretation = StatusAbnormal, "Invalid measurement"
			} else {
				r.Interpretation = "Not compared to growth curves without a gestational age"
			}
			return r, true
		}
	default:
		return Result{}, false
	}

	r.Status, r.Interpretation = ultrasoundRules[kind].Apply(v)
	return r, true
}

// expected returns the interpolated percentile interval at ga.
func expected(kind Kind, ga float64) (low, high float64, ok bool) {
	curve := growthCurves[kind]
	if len(curve) == 0 || ga < curve[0].week || ga > curve[len(curve)-1].week {
		return 0, 0, false
	}
	for i := 1; i < len(curve); i++ {
		a, b := curve[i-1], curve[i]
		if ga > b.week {
			continue
		}
		f := (ga - a.week) / (b.week - a.week)
		return a.low + f*(b.low-a.low), a.high + f*(b.high-a.high), true
	}
	last := curve[len(curve)-1]
	return last.low, last.high, true
}

func againstCurve(v, low, high, ga float64) (Status, string) {
	spread := (high - low) * criticalSpread
	switch {
	case v < low-spread:
		return StatusCritical, fmt.Sprintf("Well below expected range at %.1f weeks (%.0f-%.0f mm)", ga, low, high)
	case v < low:
		return StatusAbnormal, fmt.Sprintf("Below expected range at %.1f weeks (%.0f-%.0f mm)", ga, low, high)
	case v > high+spread:
		return StatusCritical, fmt.Sprintf("Well above expected range at %.1f weeks (%.0f-%.0f mm)", ga, low, high)
	case v > high:
		return StatusAbnormal, fmt.Sprintf("Above expected range at %.1f weeks (%.0f-%.0f mm)", ga, low, high)
	}
	return StatusNormal, fmt.Sprintf("Consistent with %.1f weeks", ga)
}
