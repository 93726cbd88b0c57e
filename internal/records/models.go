package records

import (
	"context"
	"errors"
	"time"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidValue = errors.New("invalid value")
)

type Student struct {
	ID         string         `json:"studentId"`
	StudentNo  string         `json:"studentNo"`
	Name       string         `json:"name"`
	Gender     fitness.Gender `json:"gender"`
	Grade      string         `json:"grade"`
	Class      string         `json:"class"`
	SchoolCode string         `json:"schoolCode"`
	CreatedAt  time.Time      `json:"createTime"`
	UpdatedAt  time.Time      `json:"updateTime"`
}

// ScoreWithStudent is a test score joined with the student it belongs to.
type ScoreWithStudent struct {
	fitness.TestScore
	StudentNo   string         `json:"studentNo"`
	StudentName string         `json:"studentName"`
	Gender      fitness.Gender `json:"gender"`
	Grade       string         `json:"grade"`
	Class       string         `json:"class"`
}

// Filter selects a cohort. Zero fields do not filter; Limit 0 returns all rows.
type Filter struct {
	AcademicYear string
	Grade        string
	Class        string
	GradeLevel   fitness.GradeLevel
	Keyword      string // student number or name
	Limit        int
	Offset       int
}

// ImportRecord is one entry of the import history.
type ImportRecord struct {
	ID           string    `json:"id"`
	AcademicYear string    `json:"academicYear"`
	FileName     string    `json:"fileName"`
	FileKey      string    `json:"fileKey,omitempty"`
	Overwrite    bool      `json:"overwrite"`
	SuccessCount int       `json:"successCount"`
	FailCount    int       `json:"failCount"`
	CreatedAt    time.Time `json:"createTime"`
}

// FilterOptions lists the values a score listing can be narrowed by.
type FilterOptions struct {
	AcademicYears []string      `json:"academicYears"`
	Grades        []string      `json:"grades"`
	Classes       []string      `json:"classes"`
	GradeLevels   []LevelOption `json:"gradeLevels,omitempty"`
}

type LevelOption struct {
	Label string             `json:"label"`
	Value fitness.GradeLevel `json:"value"`
}

type Store interface {
	// WithTx runs fn against a Store whose writes commit together. An error
	// from fn discards all of them.
	WithTx(ctx context.Context, fn func(tx Store) error) error

	// UpsertStudent matches on (SchoolCode, StudentNo) and returns the stored student.
	UpsertStudent(ctx context.Context, s Student) (Student, error)
	GetStudent(ctx context.Context, id string) (Student, error)
	FindStudent(ctx context.Context, schoolCode, studentNo string) (Student, error)

	FindScore(ctx context.Context, studentID, academicYear string) (fitness.TestScore, error)
	PutScore(ctx context.Context, s fitness.TestScore) error
	GetScore(ctx context.Context, id string) (ScoreWithStudent, error)
	ListScores(ctx context.Context, f Filter) ([]ScoreWithStudent, int, error)
	// DeleteScores removes the given scores and reports how many existed.
	DeleteScores(ctx context.Context, ids []string) (int, error)
	// FilterOptions returns the distinct academic years, grades and classes
	// that have at least one score, sorted.
	FilterOptions(ctx context.Context) (FilterOptions, error)

	AppendImport(ctx context.Context, rec ImportRecord) error
	GetImport(ctx context.Context, id string) (ImportRecord, error)
	ListImports(ctx context.Context, limit, offset int) ([]ImportRecord, int, error)
}
