package fitness

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
)

var (
	ErrNoStandard      = errors.New("no scoring standard")
	ErrUnknownProject  = errors.New("unknown project")
	ErrUnknownField    = errors.New("unknown field")
	ErrUnknownGender   = errors.New("unknown gender")
	ErrMissingSitUps   = errors.New("female scores require a sit-ups score")
	ErrInvalidStandard = errors.New("invalid scoring standard")
)

// ItemScorer converts one raw measurement into a 0..100 item score.
// grade is the school grade (e.g. "六年级"), not the grade level.
type ItemScorer interface {
	Score(gender Gender, grade string, project Project, raw float64) (float64, error)
}

// ClampScorer is the fallback used when no standards table is wired in:
// the raw value itself, clamped to [0,100]. It ignores gender and grade.
type ClampScorer struct{}

func (ClampScorer) Score(_ Gender, _ string, _ Project, raw float64) (float64, error) {
	return clamp(raw, 0, 100), nil
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Min(hi, math.Max(lo, v))
}

// ScoreRange is one band of a standard: raw values in [Min,Max] earn Score.
type ScoreRange struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Score float64 `json:"score"`
}

// ScoreStandard is the curve for one gender × school grade × project.
type ScoreStandard struct {
	Gender    string       `json:"gender"`
	Grade     string       `json:"grade"`
	Project   Project      `json:"project"`
	Standards []ScoreRange `json:"standards"`
}

type standardKey struct {
	gender  Gender
	grade   string
	project Project
}

// StandardsTable scores against banded standards. Lookups that find no
// standard fail with ErrNoStandard unless Fallback is set.
type StandardsTable struct {
	bands    map[standardKey][]ScoreRange
	Fallback ItemScorer
	// Logger receives one warning per key that is scored by Fallback.
	Logger *zap.Logger
	warned sync.Map
}

// NewStandardsTable indexes the given standards.
func NewStandardsTable(standards []ScoreStandard) (*StandardsTable, error) {
	t := &StandardsTable{bands: make(map[standardKey][]ScoreRange, len(standards))}
	for i, s := range standards {
		g, ok := ParseGender(s.Gender)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d: gender %q", ErrInvalidStandard, i, s.Gender)
		}
		if !knownProject(s.Project) {
			return nil, fmt.Errorf("%w: entry %d: %w %q", ErrInvalidStandard, i, ErrUnknownProject, s.Project)
		}
		if len(s.Standards) == 0 {
			return nil, fmt.Errorf("%w: entry %d: no bands", ErrInvalidStandard, i)
		}
		for _, b := range s.Standards {
			if b.Min > b.Max {
				return nil, fmt.Errorf("%w: entry %d: band min %g > max %g", ErrInvalidStandard, i, b.Min, b.Max)
			}
		}
		k := standardKey{gender: g, grade: strings.TrimSpace(s.Grade), project: s.Project}
		t.bands[k] = append(t.bands[k], s.Standards...)
	}
	return t, nil
}

// LoadStandards reads a JSON array of ScoreStandard.
func LoadStandards(r io.Reader) (*StandardsTable, error) {
	var standards []ScoreStandard
	if err := json.NewDecoder(r).Decode(&standards); err != nil {
		return nil, fmt.Errorf("decode standards: %w", err)
	}
	return NewStandardsTable(standards)
}

// LoadStandardsFile returns the table stored at path, or ClampScorer when
// path is empty.
func LoadStandardsFile(path string) (ItemScorer, error) {
	if path == "" {
		return ClampScorer{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	table, err := LoadStandards(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// Score returns the score of the first band containing raw. A value outside
// every band takes the score of the nearest band, on either side, since for
// timed projects a lower raw value is the better one.
func (t *StandardsTable) Score(gender Gender, grade string, project Project, raw float64) (float64, error) {
	key := standardKey{gender: gender, grade: strings.TrimSpace(grade), project: project}
	bands, found := t.bands[key]
	if !found {
		if t.Fallback != nil {
			t.noteFallback(key)
			return t.Fallback.Score(gender, grade, project, raw)
		}
		return 0, fmt.Errorf("%w for %s/%s/%s", ErrNoStandard, gender, grade, project)
	}
	if math.IsNaN(raw) {
		return 0, nil
	}
	best, bestDist := 0.0, math.Inf(1)
	for _, b := range bands {
		if raw >= b.Min && raw <= b.Max {
			return clamp(b.Score, 0, 100), nil
		}
		d := math.Min(math.Abs(raw-b.Min), math.Abs(raw-b.Max))
		if d < bestDist {
			best, bestDist = b.Score, d
		}
	}
	return clamp(best, 0, 100), nil
}

func (t *StandardsTable) noteFallback(k standardKey) {
	if t.Logger == nil {
		return
	}
	if _, seen := t.warned.LoadOrStore(k, struct{}{}); seen {
		return
	}
	t.Logger.Warn("no standard for lookup, scoring with fallback",
		zap.Stringer("gender", k.gender),
		zap.String("grade", k.grade),
		zap.String("project", string(k.project)),
	)
}

func knownProject(p Project) bool {
	for _, k := range Projects {
		if k == p {
			return true
		}
	}
	return false
}

// BMI is weight(kg) / height(m)².
func BMI(heightCM, weightKG float64) float64 {
	m := heightCM / 100
	return weightKG / (m * m)
}

// ScoreItems scores every project of one student. BMI is derived first and
// scored like any other project; sit-ups are scored only for female students.
func ScoreItems(s ItemScorer, gender Gender, grade string, m Measurements) (ItemScores, error) {
	score := func(p Project, raw float64) (float64, error) {
		v, err := s.Score(gender, grade, p, raw)
		if err != nil {
			return 0, fmt.Errorf("score %s: %w", p, err)
		}
		return v, nil
	}

	var (
		c   CommonScores
		err error
	)
	if c.BMI, err = score(ProjectBMI, BMI(m.Height, m.Weight)); err != nil {
		return ItemScores{}, err
	}
	if c.VitalCapacity, err = score(ProjectVitalCapacity, m.VitalCapacity); err != nil {
		return ItemScores{}, err
	}
	if c.Run50m, err = score(ProjectRun50m, m.Run50m); err != nil {
		return ItemScores{}, err
	}
	if c.RopeSkipping, err = score(ProjectRopeSkipping, m.RopeSkipping); err != nil {
		return ItemScores{}, err
	}
	if c.SitAndReach, err = score(ProjectSitAndReach, m.SitAndReach); err != nil {
		return ItemScores{}, err
	}
	if c.StandingJump, err = score(ProjectStandingJump, m.StandingJump); err != nil {
		return ItemScores{}, err
	}

	switch gender {
	case Male:
		return MaleItemScores(c), nil
	case Female:
		if m.SitUps == nil {
			return ItemScores{}, ErrMissingSitUps
		}
		su, err := score(ProjectSitUps, *m.SitUps)
		if err != nil {
			return ItemScores{}, err
		}
		return FemaleItemScores(c, su), nil
	default:
		return ItemScores{}, ErrUnknownGender
	}
}
