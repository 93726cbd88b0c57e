package records

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

// FieldTotalScore names the total score in single-field edits.
const FieldTotalScore = "totalScore"

// Service persists pipeline output and answers queries over stored scores.
type Service struct {
	store      Store
	pipeline   *fitness.Pipeline
	schoolCode string
	logger     *zap.Logger
	now        func() time.Time
}

type ServiceOption func(*Service)

func WithSchoolCode(code string) ServiceOption { return func(s *Service) { s.schoolCode = code } }
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}
func WithClock(now func() time.Time) ServiceOption { return func(s *Service) { s.now = now } }

func NewService(store Store, p *fitness.Pipeline, opts ...ServiceOption) *Service {
	s := &Service{store: store, pipeline: p, logger: zap.NewNop(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.Named("records")
	return s
}

// ImportRequest is one uploaded batch.
type ImportRequest struct {
	AcademicYear string
	Overwrite    bool
	FileName     string
	FileKey      string // archived upload, empty when not archived
	Rows         []fitness.ImportRow
}

// Import runs the batch through the pipeline and stores every valid row. A
// student who already has a score for the year is a row failure unless
// Overwrite is set, in which case the stored score is replaced in place.
// The rows and the history entry are written in one transaction; a store
// error leaves nothing behind.
func (s *Service) Import(ctx context.Context, req ImportRequest) (fitness.ImportResult, error) {
	if req.AcademicYear == "" {
		return fitness.ImportResult{}, fmt.Errorf("%w: academic year is required", ErrInvalidValue)
	}
	res, err := s.pipeline.Import(ctx, req.Rows)
	if err != nil {
		return fitness.ImportResult{}, err
	}

	now := s.now()
	var rec ImportRecord
	err = s.store.WithTx(ctx, func(tx Store) error {
		saved := make([]fitness.Evaluation, 0, len(res.Records))
		for _, ev := range res.Records {
			err := s.save(ctx, tx, req, ev, now)
			switch {
			case err == nil:
				saved = append(saved, ev)
			case errors.Is(err, errScoreExists):
				res.SuccessCount--
				res.FailCount++
				res.Errors = append(res.Errors, fitness.ImportError{
					Row:     ev.Row,
					Field:   string(fitness.FieldStudentNo),
					Message: fmt.Sprintf("row %d: student %s already has a score for %s", ev.Row, ev.Input.StudentNo, req.AcademicYear),
				})
			default:
				return fmt.Errorf("row %d: %w", ev.Row, err)
			}
		}
		res.Records = saved

		rec = ImportRecord{
			ID:           uuid.NewString(),
			AcademicYear: req.AcademicYear,
			FileName:     req.FileName,
			FileKey:      req.FileKey,
			Overwrite:    req.Overwrite,
			SuccessCount: res.SuccessCount,
			FailCount:    res.FailCount,
			CreatedAt:    now,
		}
		if err := tx.AppendImport(ctx, rec); err != nil {
			return fmt.Errorf("record import: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("import rolled back", zap.String("file", req.FileName), zap.Error(err))
		return fitness.ImportResult{}, err
	}
	res.Success = res.FailCount == 0
	sort.SliceStable(res.Errors, func(i, j int) bool { return res.Errors[i].Row < res.Errors[j].Row })

	s.logger.Info("import stored",
		zap.String("import_id", rec.ID),
		zap.String("academic_year", req.AcademicYear),
		zap.String("file", req.FileName),
		zap.Int("success", res.SuccessCount),
		zap.Int("failed", res.FailCount),
	)
	return res, nil
}

var errScoreExists = errors.New("score exists")

// save checks for an existing score before writing anything, so a rejected
// duplicate leaves the stored student untouched.
func (s *Service) save(ctx context.Context, tx Store, req ImportRequest, ev fitness.Evaluation, now time.Time) error {
	in := ev.Input
	var prev *fitness.TestScore
	known, err := tx.FindStudent(ctx, s.schoolCode, in.StudentNo)
	switch {
	case err == nil:
		cur, err := tx.FindScore(ctx, known.ID, req.AcademicYear)
		switch {
		case err == nil:
			if !req.Overwrite {
				return errScoreExists
			}
			prev = &cur
		case !errors.Is(err, ErrNotFound):
			return err
		}
	case !errors.Is(err, ErrNotFound):
		return err
	}

	st, err := tx.UpsertStudent(ctx, Student{
		StudentNo:  in.StudentNo,
		Name:       in.Name,
		Gender:     ev.Gender,
		Grade:      in.Grade,
		Class:      in.Class,
		SchoolCode: s.schoolCode,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return err
	}

	score := fitness.TestScore{
		ID:           uuid.NewString(),
		StudentID:    st.ID,
		AcademicYear: req.AcademicYear,
		Measurements: in.Measurements,
		TotalScore:   ev.TotalScore,
		GradeLevel:   ev.Level,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if prev != nil {
		score.ID, score.CreatedAt, score.ModifyCount = prev.ID, prev.CreatedAt, prev.ModifyCount
	}
	if ev.Gender == fitness.Male {
		// not scored for male students, so not kept either
		score.SitUps = nil
	}
	return tx.PutScore(ctx, score)
}

// UpdateField edits one stored value. Editing a measurement rescores the
// record; editing the total directly re-derives only the grade level.
func (s *Service) UpdateField(ctx context.Context, scoreID, field string, value float64) (ScoreWithStudent, error) {
	cur, err := s.store.GetScore(ctx, scoreID)
	if err != nil {
		return ScoreWithStudent{}, err
	}
	sc := cur.TestScore

	if field == FieldTotalScore {
		if math.IsNaN(value) || value < 0 || value > 100 {
			return ScoreWithStudent{}, fmt.Errorf("%w: total score must be between 0 and 100", ErrInvalidValue)
		}
		sc.TotalScore = fitness.Round2(value)
		sc.GradeLevel = s.pipeline.Classify(sc.TotalScore)
	} else {
		f := fitness.Field(field)
		if f == fitness.FieldSitUps && cur.Gender == fitness.Male {
			return ScoreWithStudent{}, fmt.Errorf("%w: sit-ups is not recorded for male students", ErrInvalidValue)
		}
		res, err := fitness.ValidateField(f, value, cur.Gender)
		if err != nil {
			return ScoreWithStudent{}, fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if !res.Valid {
			return ScoreWithStudent{}, fmt.Errorf("%w: %s", ErrInvalidValue, res.Message)
		}
		setMeasurement(&sc.Measurements, f, value)
		_, total, level, err := s.pipeline.Score(cur.Gender, cur.Grade, sc.Measurements)
		if err != nil {
			return ScoreWithStudent{}, fmt.Errorf("rescore %s: %w", scoreID, err)
		}
		sc.TotalScore, sc.GradeLevel = total, level
	}

	sc.ModifyCount++
	sc.UpdatedAt = s.now()
	if err := s.store.PutScore(ctx, sc); err != nil {
		return ScoreWithStudent{}, err
	}
	s.logger.Debug("score updated", zap.String("score_id", scoreID), zap.String("field", field))
	cur.TestScore = sc
	return cur, nil
}

func setMeasurement(m *fitness.Measurements, f fitness.Field, v float64) {
	switch f {
	case fitness.FieldHeight:
		m.Height = v
	case fitness.FieldWeight:
		m.Weight = v
	case fitness.FieldVitalCapacity:
		m.VitalCapacity = v
	case fitness.FieldRun50m:
		m.Run50m = v
	case fitness.FieldRopeSkipping:
		m.RopeSkipping = v
	case fitness.FieldSitUps:
		m.SitUps = &v
	case fitness.FieldSitAndReach:
		m.SitAndReach = v
	case fitness.FieldStandingJump:
		m.StandingJump = v
	}
}

func (s *Service) ListScores(ctx context.Context, f Filter) ([]ScoreWithStudent, int, error) {
	return s.store.ListScores(ctx, f)
}

// Statistics aggregates every score matching f; paging is ignored.
func (s *Service) Statistics(ctx context.Context, f Filter) (fitness.CohortStatistics, error) {
	f.Limit, f.Offset = 0, 0
	rows, _, err := s.store.ListScores(ctx, f)
	if err != nil {
		return fitness.CohortStatistics{}, err
	}
	members := make([]fitness.CohortMember, len(rows))
	for i, r := range rows {
		members[i] = fitness.CohortMember{Grade: r.Grade, TotalScore: r.TotalScore, Level: r.GradeLevel}
	}
	return fitness.Aggregate(members), nil
}

// DeleteScore removes one score.
func (s *Service) DeleteScore(ctx context.Context, id string) error {
	n, err := s.store.DeleteScores(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	s.logger.Info("score deleted", zap.String("score_id", id))
	return nil
}

// DeleteScores removes every listed score in one transaction and reports how
// many existed. Unknown ids are skipped.
func (s *Service) DeleteScores(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: no score ids", ErrInvalidValue)
	}
	var n int
	err := s.store.WithTx(ctx, func(tx Store) error {
		var err error
		n, err = tx.DeleteScores(ctx, ids)
		return err
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("scores deleted", zap.Int("requested", len(ids)), zap.Int("deleted", n))
	return n, nil
}

// FilterOptions lists the stored academic years, grades and classes plus
// every grade level.
func (s *Service) FilterOptions(ctx context.Context) (FilterOptions, error) {
	opts, err := s.store.FilterOptions(ctx)
	if err != nil {
		return FilterOptions{}, err
	}
	opts.GradeLevels = make([]LevelOption, 0, len(fitness.GradeLevels))
	for _, l := range fitness.GradeLevels {
		opts.GradeLevels = append(opts.GradeLevels, LevelOption{Label: l.Label(), Value: l})
	}
	return opts, nil
}

// ProjectAverages rescores the stored measurements matching f and averages
// the item scores per project.
func (s *Service) ProjectAverages(ctx context.Context, f Filter) ([]fitness.ProjectAverage, error) {
	f.Limit, f.Offset = 0, 0
	rows, _, err := s.store.ListScores(ctx, f)
	if err != nil {
		return nil, err
	}
	items := make([]fitness.ItemScores, 0, len(rows))
	for _, r := range rows {
		sc, _, _, err := s.pipeline.Score(r.Gender, r.Grade, r.Measurements)
		if err != nil {
			return nil, fmt.Errorf("score %s: %w", r.ID, err)
		}
		items = append(items, sc)
	}
	return fitness.AverageProjects(items), nil
}

// ScoreDistribution buckets the totals of every score matching f.
func (s *Service) ScoreDistribution(ctx context.Context, f Filter) ([]fitness.ScoreBand, error) {
	f.Limit, f.Offset = 0, 0
	rows, _, err := s.store.ListScores(ctx, f)
	if err != nil {
		return nil, err
	}
	totals := make([]float64, len(rows))
	for i, r := range rows {
		totals[i] = r.TotalScore
	}
	return fitness.Distribution(totals), nil
}

func (s *Service) GetImport(ctx context.Context, id string) (ImportRecord, error) {
	return s.store.GetImport(ctx, id)
}

func (s *Service) ListImports(ctx context.Context, limit, offset int) ([]ImportRecord, int, error) {
	return s.store.ListImports(ctx, limit, offset)
}
