package fitness

import (
	"strings"
	"time"
)

// Gender is the tag that drives sit-ups validation, scoring and weighting.
type Gender int

const (
	GenderUnknown Gender = iota
	Male
	Female
)

// ParseGender accepts the two literal tokens used by the spreadsheets
// ("男"/"女") and their English spellings.
func ParseGender(s string) (Gender, bool) {
	switch strings.TrimSpace(s) {
	case "男", "male":
		return Male, true
	case "女", "female":
		return Female, true
	default:
		return GenderUnknown, false
	}
}

func (g Gender) String() string {
	switch g {
	case Male:
		return "male"
	case Female:
		return "female"
	default:
		return "unknown"
	}
}

func (g Gender) MarshalText() ([]byte, error) { return []byte(g.String()), nil }

func (g *Gender) UnmarshalText(b []byte) error {
	v, ok := ParseGender(string(b))
	if !ok {
		return ErrUnknownGender
	}
	*g = v
	return nil
}

// Label is the token written back to spreadsheets.
func (g Gender) Label() string {
	switch g {
	case Male:
		return "男"
	case Female:
		return "女"
	default:
		return ""
	}
}

// Project names a scored test item.
type Project string

const (
	ProjectBMI           Project = "bmi"
	ProjectVitalCapacity Project = "vital_capacity"
	ProjectRun50m        Project = "run_50m"
	ProjectRopeSkipping  Project = "rope_skipping"
	ProjectSitUps        Project = "sit_ups"
	ProjectSitAndReach   Project = "sit_and_reach"
	ProjectStandingJump  Project = "standing_jump"
)

// Projects lists every scored item in weight-table order.
var Projects = []Project{
	ProjectBMI,
	ProjectVitalCapacity,
	ProjectRun50m,
	ProjectRopeSkipping,
	ProjectSitUps,
	ProjectSitAndReach,
	ProjectStandingJump,
}

// Measurements are the raw values of one test. SitUps is nil when the cell
// was absent or empty; unparsable numeric cells arrive as NaN.
type Measurements struct {
	Height        float64  `json:"height"`        // cm
	Weight        float64  `json:"weight"`        // kg
	VitalCapacity float64  `json:"vitalCapacity"` // mL
	Run50m        float64  `json:"run50m"`        // s
	RopeSkipping  float64  `json:"ropeSkipping1min"`
	SitUps        *float64 `json:"sitUps1min,omitempty"`
	SitAndReach   float64  `json:"sitAndReach"`  // cm
	StandingJump  float64  `json:"standingJump"` // cm
}

// ImportRow is one spreadsheet record.
type ImportRow struct {
	StudentNo string `json:"studentNo"`
	Name      string `json:"name"`
	Gender    string `json:"gender"`
	Grade     string `json:"grade"`
	Class     string `json:"class"`
	Measurements
}

// CommonScores are the item scores every student receives.
type CommonScores struct {
	BMI           float64 `json:"bmi"`
	VitalCapacity float64 `json:"vitalCapacity"`
	Run50m        float64 `json:"run50m"`
	RopeSkipping  float64 `json:"ropeSkipping"`
	SitAndReach   float64 `json:"sitAndReach"`
	StandingJump  float64 `json:"standingJump"`
}

// FemaleScores carries the item only female students are scored on.
type FemaleScores struct {
	SitUps float64 `json:"sitUps"`
}

// ItemScores is tagged by Gender. Female is set iff Gender == Female.
type ItemScores struct {
	Gender Gender `json:"-"`
	CommonScores
	Female *FemaleScores `json:"female,omitempty"`
}

// MaleItemScores builds the male variant.
func MaleItemScores(c CommonScores) ItemScores {
	return ItemScores{Gender: Male, CommonScores: c}
}

// FemaleItemScores builds the female variant.
func FemaleItemScores(c CommonScores, sitUps float64) ItemScores {
	return ItemScores{Gender: Female, CommonScores: c, Female: &FemaleScores{SitUps: sitUps}}
}

// Map returns project -> score. The sit-ups entry exists only for the female variant.
func (s ItemScores) Map() map[Project]float64 {
	m := map[Project]float64{
		ProjectBMI:           s.BMI,
		ProjectVitalCapacity: s.VitalCapacity,
		ProjectRun50m:        s.Run50m,
		ProjectRopeSkipping:  s.RopeSkipping,
		ProjectSitAndReach:   s.SitAndReach,
		ProjectStandingJump:  s.StandingJump,
	}
	if s.Gender == Female && s.Female != nil {
		m[ProjectSitUps] = s.Female.SitUps
	}
	return m
}

// TestScore is a persisted record. GradeLevel must always equal
// Thresholds.Classify(TotalScore); callers editing TotalScore re-derive it.
type TestScore struct {
	ID           string     `json:"scoreId"`
	StudentID    string     `json:"studentId"`
	AcademicYear string     `json:"academicYear"`
	Measurements            // raw values
	TotalScore   float64    `json:"totalScore"`
	GradeLevel   GradeLevel `json:"gradeLevel"`
	CreatedAt    time.Time  `json:"createTime"`
	UpdatedAt    time.Time  `json:"updateTime"`
	ModifyCount  int        `json:"modifyCount"`
}
