package fitness_test

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

func loadTable(t *testing.T) *fitness.StandardsTable {
	t.Helper()
	f, err := os.Open("testdata/standards.json")
	if err != nil {
		t.Fatalf("open standards: %v", err)
	}
	defer f.Close()
	tbl, err := fitness.LoadStandards(f)
	if err != nil {
		t.Fatalf("load standards: %v", err)
	}
	return tbl
}

func TestClampScorer(t *testing.T) {
	s := fitness.ClampScorer{}
	cases := map[float64]float64{-3: 0, 0: 0, 42.5: 42.5, 100: 100, 185: 100, math.NaN(): 0}
	for in, want := range cases {
		got, err := s.Score(fitness.Male, "六年级", fitness.ProjectStandingJump, in)
		if err != nil {
			t.Fatalf("score: %v", err)
		}
		if got != want {
			t.Errorf("clamp(%v) = %v, want %v", in, got, want)
		}
	}
}

func TestStandardsTableBands(t *testing.T) {
	tbl := loadTable(t)
	cases := []struct {
		raw  float64
		want float64
	}{
		{7.9, 100},
		{8.0, 85},
		{8.5, 85},
		{10.9, 70},
		{19.0, 40},
		{3.0, 100}, // faster than every band: nearest band
		{25.0, 40}, // slower than every band: nearest band
	}
	for _, c := range cases {
		got, err := tbl.Score(fitness.Male, "六年级", fitness.ProjectRun50m, c.raw)
		if err != nil {
			t.Fatalf("score %v: %v", c.raw, err)
		}
		if got != c.want {
			t.Errorf("run50m %v -> %v, want %v", c.raw, got, c.want)
		}
	}
}

func TestStandardsTableMissingKey(t *testing.T) {
	tbl := loadTable(t)
	_, err := tbl.Score(fitness.Female, "六年级", fitness.ProjectRun50m, 9)
	if !errors.Is(err, fitness.ErrNoStandard) {
		t.Fatalf("err = %v, want ErrNoStandard", err)
	}

	tbl.Fallback = fitness.ClampScorer{}
	got, err := tbl.Score(fitness.Female, "六年级", fitness.ProjectRun50m, 9)
	if err != nil || got != 9 {
		t.Fatalf("fallback score = %v, %v", got, err)
	}
}

func TestStandardsTableFallbackIsLoggedOncePerKey(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tbl := loadTable(t)
	tbl.Fallback = fitness.ClampScorer{}
	tbl.Logger = zap.New(core)

	for i := 0; i < 3; i++ {
		if _, err := tbl.Score(fitness.Female, "六年级", fitness.ProjectRun50m, 9); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := tbl.Score(fitness.Male, "六年级", fitness.ProjectRun50m, 8.5); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 1 {
		t.Fatalf("expected one warning, got %d", logs.Len())
	}
	if _, err := tbl.Score(fitness.Female, "五年级", fitness.ProjectRun50m, 9); err != nil {
		t.Fatal(err)
	}
	if logs.Len() != 2 {
		t.Fatalf("second key: %d warnings", logs.Len())
	}
}

func TestLoadStandardsFile(t *testing.T) {
	s, err := fitness.LoadStandardsFile("")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(fitness.ClampScorer); !ok {
		t.Fatalf("empty path: %T", s)
	}
	s, err = fitness.LoadStandardsFile(filepath.Join("testdata", "standards.json"))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*fitness.StandardsTable); !ok {
		t.Fatalf("table path: %T", s)
	}
	if _, err := fitness.LoadStandardsFile(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing file: %v", err)
	}
	bad := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fitness.LoadStandardsFile(bad); err == nil || !strings.Contains(err.Error(), "bad.json") {
		t.Fatalf("bad file: %v", err)
	}
}

func TestLoadStandardsRejectsBadInput(t *testing.T) {
	bad := []string{
		`[{"gender":"x","grade":"一年级","project":"bmi","standards":[{"min":0,"max":1,"score":1}]}]`,
		`[{"gender":"男","grade":"一年级","project":"shot_put","standards":[{"min":0,"max":1,"score":1}]}]`,
		`[{"gender":"男","grade":"一年级","project":"bmi","standards":[]}]`,
		`[{"gender":"男","grade":"一年级","project":"bmi","standards":[{"min":5,"max":1,"score":1}]}]`,
		`{`,
	}
	for _, in := range bad {
		if _, err := fitness.LoadStandards(strings.NewReader(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}

func TestBMI(t *testing.T) {
	got := fitness.BMI(165, 52)
	if math.Abs(got-19.100091827364556) > 1e-9 {
		t.Fatalf("BMI = %v", got)
	}
}

func TestScoreItemsGenderVariants(t *testing.T) {
	m := exampleRow().Measurements
	male, err := fitness.ScoreItems(fitness.ClampScorer{}, fitness.Male, "六年级", m)
	if err != nil {
		t.Fatalf("male: %v", err)
	}
	if male.Female != nil {
		t.Fatal("male variant must not carry sit-ups")
	}
	if _, has := male.Map()[fitness.ProjectSitUps]; has {
		t.Fatal("male map must not contain sit-ups")
	}
	if male.StandingJump != 100 || male.Run50m != 8.5 {
		t.Fatalf("unexpected clamp scores: %+v", male.CommonScores)
	}

	if _, err := fitness.ScoreItems(fitness.ClampScorer{}, fitness.Female, "六年级", m); !errors.Is(err, fitness.ErrMissingSitUps) {
		t.Fatalf("female without sit-ups: err = %v", err)
	}

	m.SitUps = f64(45)
	female, err := fitness.ScoreItems(fitness.ClampScorer{}, fitness.Female, "六年级", m)
	if err != nil {
		t.Fatalf("female: %v", err)
	}
	if female.Female == nil || female.Female.SitUps != 45 {
		t.Fatalf("female sit-ups = %+v", female.Female)
	}
	if len(female.Map()) != 7 {
		t.Fatalf("female map has %d projects", len(female.Map()))
	}

	if _, err := fitness.ScoreItems(fitness.ClampScorer{}, fitness.GenderUnknown, "", m); !errors.Is(err, fitness.ErrUnknownGender) {
		t.Fatalf("unknown gender: err = %v", err)
	}
}

func TestScoreItemsPropagatesMissingStandard(t *testing.T) {
	tbl := loadTable(t)
	_, err := fitness.ScoreItems(tbl, fitness.Male, "六年级", exampleRow().Measurements)
	if !errors.Is(err, fitness.ErrNoStandard) {
		t.Fatalf("err = %v, want ErrNoStandard", err)
	}
}
