package fitness

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Evaluation is a validated and scored row.
type Evaluation struct {
	Row        int        `json:"row"`
	Input      ImportRow  `json:"input"`
	Gender     Gender     `json:"-"`
	BMI        float64    `json:"bmi"`
	Scores     ItemScores `json:"scores"`
	TotalScore float64    `json:"totalScore"`
	Level      GradeLevel `json:"gradeLevel"`
}

// Outcome is what the pipeline produced for one row. Evaluation is nil when
// the row failed validation or could not be scored.
type Outcome struct {
	Row        int
	Validation RowValidationResult
	Evaluation *Evaluation
	ScoreErr   error
}

// ImportError is one line of an import report.
type ImportError struct {
	Row     int    `json:"row"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ImportResult is the terminal report of a batch: partial failure is data,
// not an error.
type ImportResult struct {
	Success      bool          `json:"success"`
	SuccessCount int           `json:"successCount"`
	FailCount    int           `json:"failCount"`
	Errors       []ImportError `json:"errors"`
	Records      []Evaluation  `json:"-"`
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithWeights(w Weights) Option { return func(p *Pipeline) { p.weights = w } }
func WithThresholds(t Thresholds) Option { return func(p *Pipeline) { p.thresholds = t } }

// WithWorkers bounds the number of rows scored concurrently; n <= 0 keeps
// the GOMAXPROCS default.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithLogger(l *zap.Logger) Option { return func(p *Pipeline) { p.logger = l } }

// Pipeline validates, scores and classifies rows. It holds no mutable state
// and is safe for concurrent use.
type Pipeline struct {
	scorer     ItemScorer
	weights    Weights
	thresholds Thresholds
	workers    int
	logger     *zap.Logger
}

// NewPipeline requires the item scorer explicitly; pass ClampScorer{} to run
// on the fallback.
func NewPipeline(scorer ItemScorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		scorer:     scorer,
		weights:    DefaultWeights(),
		thresholds: DefaultThresholds(),
		workers:    runtime.GOMAXPROCS(0),
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	p.logger = p.logger.Named("import-pipeline")
	switch s := scorer.(type) {
	case ClampScorer, *ClampScorer:
		p.logger.Warn("no standards table configured, item scores use the clamp fallback")
	case *StandardsTable:
		if s.Fallback != nil {
			p.logger.Warn("standards table has a fallback scorer, lookups without a standard use it")
			if s.Logger == nil {
				s.Logger = p.logger
			}
		}
	}
	return p
}

// Classify maps a total score to a level with the pipeline's thresholds.
func (p *Pipeline) Classify(total float64) GradeLevel { return p.thresholds.Classify(total) }

// Score computes total and level of already validated measurements.
func (p *Pipeline) Score(gender Gender, grade string, m Measurements) (ItemScores, float64, GradeLevel, error) {
	items, err := ScoreItems(p.scorer, gender, grade, m)
	if err != nil {
		return ItemScores{}, 0, "", err
	}
	total, err := p.weights.Total(items)
	if err != nil {
		return ItemScores{}, 0, "", err
	}
	return items, total, p.thresholds.Classify(total), nil
}

// Process runs one row through validation, scoring and classification.
// index is the row's 1-based position in its batch.
func (p *Pipeline) Process(row ImportRow, index int) Outcome {
	out := Outcome{Row: index, Validation: ValidateRow(row, index)}
	if !out.Validation.Valid() {
		return out
	}
	gender, _ := ParseGender(row.Gender)
	items, total, level, err := p.Score(gender, row.Grade, row.Measurements)
	if err != nil {
		out.ScoreErr = err
		return out
	}
	out.Evaluation = &Evaluation{
		Row:        index,
		Input:      row,
		Gender:     gender,
		BMI:        BMI(row.Height, row.Weight),
		Scores:     items,
		TotalScore: total,
		Level:      level,
	}
	return out
}

// Run processes a batch in parallel. Outcomes keep the rows' input order.
// The only error is ctx's, when the batch is abandoned.
func (p *Pipeline) Run(ctx context.Context, rows []ImportRow) ([]Outcome, error) {
	outcomes := make([]Outcome, len(rows))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, row := range rows {
		i, row := i, row
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcomes[i] = p.Process(row, i+1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// Import runs the batch and folds the outcomes into an ImportResult.
func (p *Pipeline) Import(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	outcomes, err := p.Run(ctx, rows)
	if err != nil {
		return ImportResult{}, err
	}
	res := Summarize(outcomes)
	p.logger.Info("batch processed",
		zap.Int("rows", len(rows)),
		zap.Int("success", res.SuccessCount),
		zap.Int("failed", res.FailCount),
	)
	return res, nil
}

// Summarize folds outcomes into an ImportResult, preserving their order.
func Summarize(outcomes []Outcome) ImportResult {
	res := ImportResult{Errors: []ImportError{}}
	for _, o := range outcomes {
		switch {
		case !o.Validation.Valid():
			res.FailCount++
			for _, e := range o.Validation.Errors {
				res.Errors = append(res.Errors, ImportError{Row: e.Row, Field: string(e.Field), Message: e.Error()})
			}
		case o.ScoreErr != nil:
			res.FailCount++
			res.Errors = append(res.Errors, ImportError{Row: o.Row, Message: fmt.Sprintf("row %d: %v", o.Row, o.ScoreErr)})
		default:
			res.SuccessCount++
			res.Records = append(res.Records, *o.Evaluation)
		}
	}
	res.Success = res.FailCount == 0
	return res
}
