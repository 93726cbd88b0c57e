package fitness

import "fmt"

// LevelCounts holds how many records of a cohort fall into each level.
type LevelCounts struct {
	Excellent int `json:"excellentCount"`
	Good      int `json:"goodCount"`
	Pass      int `json:"passCount"`
	Fail      int `json:"failCount"`
}

func (c LevelCounts) Total() int { return c.Excellent + c.Good + c.Pass + c.Fail }

// Add counts one record of level l.
func (c *LevelCounts) Add(l GradeLevel) {
	switch l {
	case Excellent:
		c.Excellent++
	case Good:
		c.Good++
	case Pass:
		c.Pass++
	case Fail:
		c.Fail++
	}
}

// PassRate is the percentage of Excellent+Good+Pass records, 0 for an empty cohort.
func PassRate(c LevelCounts) float64 {
	return percent(c.Excellent+c.Good+c.Pass, c.Total())
}

// ExcellentRate is the percentage of Excellent+Good records, 0 for an empty cohort.
func ExcellentRate(c LevelCounts) float64 {
	return percent(c.Excellent+c.Good, c.Total())
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(n) * 100 / float64(total))
}

// GradeDistribution summarises one school grade inside a cohort.
type GradeDistribution struct {
	Grade         string  `json:"grade"`
	TotalCount    int     `json:"totalCount"`
	PassRate      float64 `json:"passRate"`
	ExcellentRate float64 `json:"excellentRate"`
	AverageScore  float64 `json:"averageScore"`
}

// CohortStatistics is derived from a cohort's records and never stored.
type CohortStatistics struct {
	TotalCount int `json:"totalCount"`
	LevelCounts
	PassRate          float64             `json:"passRate"`
	ExcellentRate     float64             `json:"excellentRate"`
	AverageScore      float64             `json:"averageScore"`
	GradeDistribution []GradeDistribution `json:"gradeDistribution,omitempty"`
}

// NewCohortStatistics derives rates from level counts alone.
func NewCohortStatistics(c LevelCounts) CohortStatistics {
	return CohortStatistics{
		TotalCount:    c.Total(),
		LevelCounts:   c,
		PassRate:      PassRate(c),
		ExcellentRate: ExcellentRate(c),
	}
}

// CohortMember is the slice of a record the aggregator needs.
type CohortMember struct {
	Grade      string
	TotalScore float64
	Level      GradeLevel
}

type gradeAcc struct {
	counts LevelCounts
	sum    float64
}

// Aggregate computes cohort statistics plus a per-school-grade breakdown,
// listed in order of first appearance.
func Aggregate(members []CohortMember) CohortStatistics {
	var (
		all    LevelCounts
		sum    float64
		order  []string
		grades = map[string]*gradeAcc{}
	)
	for _, m := range members {
		all.Add(m.Level)
		sum += m.TotalScore
		acc, seen := grades[m.Grade]
		if !seen {
			acc = &gradeAcc{}
			grades[m.Grade] = acc
			order = append(order, m.Grade)
		}
		acc.counts.Add(m.Level)
		acc.sum += m.TotalScore
	}

	st := NewCohortStatistics(all)
	st.AverageScore = average(sum, st.TotalCount)
	for _, g := range order {
		acc := grades[g]
		st.GradeDistribution = append(st.GradeDistribution, GradeDistribution{
			Grade:         g,
			TotalCount:    acc.counts.Total(),
			PassRate:      PassRate(acc.counts),
			ExcellentRate: ExcellentRate(acc.counts),
			AverageScore:  average(acc.sum, acc.counts.Total()),
		})
	}
	return st
}

func average(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return Round2(sum / float64(n))
}

// ProjectAverage is the mean item score of one project across a cohort.
type ProjectAverage struct {
	Project      Project `json:"project"`
	Count        int     `json:"count"`
	AverageScore float64 `json:"averageScore"`
}

// AverageProjects averages item scores per project, in Projects order.
// Sit-ups average over female members only; a project no member was scored
// on is left out.
func AverageProjects(scores []ItemScores) []ProjectAverage {
	sums := map[Project]float64{}
	counts := map[Project]int{}
	for _, s := range scores {
		for p, v := range s.Map() {
			sums[p] += v
			counts[p]++
		}
	}
	out := []ProjectAverage{}
	for _, p := range Projects {
		if n := counts[p]; n > 0 {
			out = append(out, ProjectAverage{Project: p, Count: n, AverageScore: average(sums[p], n)})
		}
	}
	return out
}

// ScoreBand is one bucket of a total-score histogram, Min <= total < Max.
// The last bucket also holds totals equal to its Max.
type ScoreBand struct {
	Range string  `json:"range"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}

var distributionEdges = []float64{0, 60, 70, 80, 90, 100}

// Distribution buckets totals into 0-60, 60-70, 70-80, 80-90 and 90-100.
func Distribution(totals []float64) []ScoreBand {
	bands := make([]ScoreBand, len(distributionEdges)-1)
	for i := range bands {
		lo, hi := distributionEdges[i], distributionEdges[i+1]
		bands[i] = ScoreBand{Range: fmt.Sprintf("%g-%g", lo, hi), Min: lo, Max: hi}
	}
	for _, t := range totals {
		i := len(bands) - 1
		for i > 0 && t < bands[i].Min {
			i--
		}
		bands[i].Count++
	}
	return bands
}
