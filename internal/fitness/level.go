package fitness

import (
	"encoding/json"
	"fmt"
)

// GradeLevel is the band a total score falls into.
type GradeLevel string

const (
	Excellent GradeLevel = "excellent"
	Good      GradeLevel = "good"
	Pass      GradeLevel = "pass"
	Fail      GradeLevel = "fail"
)

// GradeLevels is ordered best first.
var GradeLevels = []GradeLevel{Excellent, Good, Pass, Fail}

var levelLabels = map[GradeLevel]string{
	Excellent: "优秀",
	Good:      "良好",
	Pass:      "及格",
	Fail:      "不及格",
}

// ParseGradeLevel accepts the token or its display label.
func ParseGradeLevel(s string) (GradeLevel, error) {
	for _, l := range GradeLevels {
		if s == string(l) || s == levelLabels[l] {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown grade level %q", s)
}

// Label is the display name used in spreadsheets and the UI.
func (l GradeLevel) Label() string { return levelLabels[l] }

func (l *GradeLevel) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseGradeLevel(s)
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// Thresholds are the closed lower bounds of the upper three levels.
type Thresholds struct {
	Excellent float64 `json:"excellent"`
	Good      float64 `json:"good"`
	Pass      float64 `json:"pass"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{Excellent: 90, Good: 80, Pass: 60}
}

// Classify maps a total score to its level, checking from the top down so
// a score equal to a bound lands in the higher level.
func (t Thresholds) Classify(total float64) GradeLevel {
	switch {
	case total >= t.Excellent:
		return Excellent
	case total >= t.Good:
		return Good
	case total >= t.Pass:
		return Pass
	default:
		return Fail
	}
}
