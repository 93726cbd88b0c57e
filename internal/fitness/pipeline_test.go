package fitness_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

func validRows(n int) []fitness.ImportRow {
	rows := make([]fitness.ImportRow, 0, n)
	for i := 0; i < n; i++ {
		r := exampleRow()
		if i%2 == 1 {
			r = femaleRow()
		}
		r.StudentNo = fmt.Sprintf("2024%04d", i)
		rows = append(rows, r)
	}
	return rows
}

func TestImportAllValid(t *testing.T) {
	p := fitness.NewPipeline(fitness.ClampScorer{}, fitness.WithWorkers(4))
	res, err := p.Import(context.Background(), validRows(250))
	if err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 250 || res.FailCount != 0 || len(res.Errors) != 0 || !res.Success {
		t.Fatalf("result: success=%d fail=%d errors=%v", res.SuccessCount, res.FailCount, res.Errors)
	}
	for i, r := range res.Records {
		if r.Row != i+1 {
			t.Fatalf("record %d has row %d", i, r.Row)
		}
	}
}

func TestImportPreservesRowOrder(t *testing.T) {
	rows := validRows(40)
	bad := map[int]bool{3: true, 17: true, 18: true, 39: true}
	for i := range rows {
		if bad[i] {
			rows[i].Height = 10
			rows[i].Name = ""
		}
	}
	p := fitness.NewPipeline(fitness.ClampScorer{}, fitness.WithWorkers(8))
	res, err := p.Import(context.Background(), rows)
	if err != nil {
		t.Fatal(err)
	}
	if res.FailCount != 4 || res.SuccessCount != 36 || res.Success {
		t.Fatalf("success=%d fail=%d", res.SuccessCount, res.FailCount)
	}
	wantRows := []int{4, 4, 18, 18, 19, 19, 40, 40}
	if len(res.Errors) != len(wantRows) {
		t.Fatalf("errors: %v", res.Errors)
	}
	for i, e := range res.Errors {
		if e.Row != wantRows[i] {
			t.Errorf("error %d row %d want %d", i, e.Row, wantRows[i])
		}
		if !strings.HasPrefix(e.Message, fmt.Sprintf("row %d: ", wantRows[i])) {
			t.Errorf("message %q", e.Message)
		}
	}
	if res.Errors[0].Field != string(fitness.FieldName) || res.Errors[1].Field != string(fitness.FieldHeight) {
		t.Errorf("fields out of order: %v", res.Errors[:2])
	}
}

func TestProcessExampleRow(t *testing.T) {
	p := fitness.NewPipeline(fitness.ClampScorer{})
	out := p.Process(exampleRow(), 1)
	if !out.Validation.Valid() || out.Evaluation == nil {
		t.Fatalf("outcome: %+v", out)
	}
	ev := out.Evaluation
	// clamp scores: bmi 19.10, vital 100, run 8.5, rope 100, reach 12.5, jump 100
	want := fitness.Round2(19.100091827364558*0.15 + 100*0.15 + 8.5*0.2 + 100*0.1 + 12.5*0.2 + 100*0.2)
	if ev.TotalScore != want {
		t.Fatalf("total = %v, want %v", ev.TotalScore, want)
	}
	if ev.Level != fitness.DefaultThresholds().Classify(ev.TotalScore) {
		t.Fatalf("level %s does not match total %v", ev.Level, ev.TotalScore)
	}
	if ev.Gender != fitness.Male || ev.Scores.Female != nil {
		t.Fatalf("gender variant: %+v", ev.Scores)
	}
}

func TestProcessScoreFailureCountsAsFailedRow(t *testing.T) {
	tbl := loadTable(t)
	p := fitness.NewPipeline(tbl)
	res, err := p.Import(context.Background(), []fitness.ImportRow{exampleRow()})
	if err != nil {
		t.Fatal(err)
	}
	if res.FailCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("result: %+v", res)
	}
	if !strings.Contains(res.Errors[0].Message, "no scoring standard") {
		t.Fatalf("message %q", res.Errors[0].Message)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := fitness.NewPipeline(fitness.ClampScorer{}, fitness.WithWorkers(1))
	if _, err := p.Run(ctx, validRows(5)); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestCustomWeightsAndThresholds(t *testing.T) {
	w := fitness.DefaultWeights()
	w.StandingJump = 0
	p := fitness.NewPipeline(fitness.ClampScorer{},
		fitness.WithWeights(w),
		fitness.WithThresholds(fitness.Thresholds{Excellent: 200, Good: 150, Pass: 1}),
	)
	out := p.Process(exampleRow(), 1)
	if out.Evaluation == nil {
		t.Fatalf("outcome: %+v", out)
	}
	if out.Evaluation.Level != fitness.Pass {
		t.Fatalf("level = %s", out.Evaluation.Level)
	}
	base := fitness.NewPipeline(fitness.ClampScorer{}).Process(exampleRow(), 1).Evaluation
	if out.Evaluation.TotalScore >= base.TotalScore {
		t.Fatalf("weights not applied: %v vs default %v", out.Evaluation.TotalScore, base.TotalScore)
	}
}

func TestFallbackScorerIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	fitness.NewPipeline(fitness.ClampScorer{}, fitness.WithLogger(zap.New(core)))
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if name := logs.All()[0].LoggerName; name != "import-pipeline" {
		t.Fatalf("logger name %q", name)
	}

	core, logs = observer.New(zapcore.WarnLevel)
	fitness.NewPipeline(&fitness.ClampScorer{}, fitness.WithLogger(zap.New(core)))
	if logs.Len() != 1 {
		t.Fatalf("pointer clamp scorer: %d warnings", logs.Len())
	}

	core, logs = observer.New(zapcore.WarnLevel)
	fitness.NewPipeline(loadTable(t), fitness.WithLogger(zap.New(core)))
	if logs.Len() != 0 {
		t.Fatalf("unexpected warnings: %v", logs.All())
	}
}

func TestTableFallbackIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tbl := loadTable(t)
	tbl.Fallback = fitness.ClampScorer{}
	p := fitness.NewPipeline(tbl, fitness.WithLogger(zap.New(core)))
	if logs.Len() != 1 {
		t.Fatalf("construction: %d warnings", logs.Len())
	}

	// the male table has run_50m and bmi; the other four projects fall back
	for i := 1; i <= 2; i++ {
		if out := p.Process(exampleRow(), i); out.Evaluation == nil {
			t.Fatalf("row %d: %+v", i, out)
		}
	}
	if logs.Len() != 5 {
		t.Fatalf("expected 1+4 warnings, got %d", logs.Len())
	}
	for _, e := range logs.All()[1:] {
		if e.LoggerName != "import-pipeline" {
			t.Fatalf("fallback logged on %q", e.LoggerName)
		}
	}
}
