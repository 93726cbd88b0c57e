package fitness

import (
	"fmt"
	"math"
)

// Weights is the per-project weight set of the total score. Sit-ups only
// apply to female students; for male students the weight is dropped, not
// redistributed, so their weights sum to 0.90 with the defaults.
type Weights struct {
	BMI           float64 `json:"bmi"`
	VitalCapacity float64 `json:"vitalCapacity"`
	Run50m        float64 `json:"run50m"`
	RopeSkipping  float64 `json:"ropeSkipping"`
	SitUps        float64 `json:"sitUps"`
	SitAndReach   float64 `json:"sitAndReach"`
	StandingJump  float64 `json:"standingJump"`
}

// DefaultWeights returns the current national weight table.
func DefaultWeights() Weights {
	return Weights{
		BMI:           0.15,
		VitalCapacity: 0.15,
		Run50m:        0.20,
		RopeSkipping:  0.10,
		SitUps:        0.10,
		SitAndReach:   0.20,
		StandingJump:  0.20,
	}
}

// For returns the weights that apply to gender.
func (w Weights) For(gender Gender) (map[Project]float64, error) {
	m := map[Project]float64{
		ProjectBMI:           w.BMI,
		ProjectVitalCapacity: w.VitalCapacity,
		ProjectRun50m:        w.Run50m,
		ProjectRopeSkipping:  w.RopeSkipping,
		ProjectSitAndReach:   w.SitAndReach,
		ProjectStandingJump:  w.StandingJump,
	}
	switch gender {
	case Male:
		return m, nil
	case Female:
		m[ProjectSitUps] = w.SitUps
		return m, nil
	default:
		return nil, ErrUnknownGender
	}
}

// Total is Σ score × weight over the projects that apply to the scores'
// gender, rounded to two decimals (see Round2).
func (w Weights) Total(s ItemScores) (float64, error) {
	weights, err := w.For(s.Gender)
	if err != nil {
		return 0, fmt.Errorf("total score: %w", err)
	}
	if s.Gender == Female && s.Female == nil {
		return 0, ErrMissingSitUps
	}
	scores := s.Map()
	total := 0.0
	for _, p := range Projects {
		if wt, ok := weights[p]; ok {
			total += scores[p] * wt
		}
	}
	return Round2(total), nil
}

// Round2 rounds to two decimals, halves away from zero. The rounding is
// applied to x*100 as a float64, so 0.125 -> 0.13 and -0.125 -> -0.13.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
