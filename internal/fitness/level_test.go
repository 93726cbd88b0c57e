package fitness_test

import (
	"encoding/json"
	"testing"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

func TestClassifyBoundaries(t *testing.T) {
	th := fitness.DefaultThresholds()
	cases := []struct {
		total float64
		want  fitness.GradeLevel
	}{
		{100, fitness.Excellent},
		{90.00, fitness.Excellent},
		{89.99, fitness.Good},
		{80.00, fitness.Good},
		{79.99, fitness.Pass},
		{60.00, fitness.Pass},
		{59.99, fitness.Fail},
		{0, fitness.Fail},
	}
	for _, c := range cases {
		if got := th.Classify(c.total); got != c.want {
			t.Errorf("Classify(%v) = %s, want %s", c.total, got, c.want)
		}
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	th := fitness.Thresholds{Excellent: 95, Good: 85, Pass: 70}
	if got := th.Classify(90); got != fitness.Good {
		t.Fatalf("got %s", got)
	}
	if got := th.Classify(69.99); got != fitness.Fail {
		t.Fatalf("got %s", got)
	}
}

func TestGradeLevelParsing(t *testing.T) {
	for _, l := range fitness.GradeLevels {
		byToken, err := fitness.ParseGradeLevel(string(l))
		if err != nil || byToken != l {
			t.Errorf("token %s: %v %v", l, byToken, err)
		}
		byLabel, err := fitness.ParseGradeLevel(l.Label())
		if err != nil || byLabel != l {
			t.Errorf("label %s: %v %v", l.Label(), byLabel, err)
		}
	}
	if _, err := fitness.ParseGradeLevel("great"); err == nil {
		t.Fatal("expected error")
	}

	var got struct{ Level fitness.GradeLevel }
	if err := json.Unmarshal([]byte(`{"Level":"良好"}`), &got); err != nil || got.Level != fitness.Good {
		t.Fatalf("unmarshal label: %v %v", got.Level, err)
	}
}
