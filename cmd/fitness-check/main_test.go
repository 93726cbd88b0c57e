package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

const csvFile = "学号,姓名,性别,年级,班级,身高(厘米),体重(千克),肺活量(毫升),50米跑(秒),1分钟跳绳(次),坐位体前屈(厘米),立定跳远(厘米)\n" +
	"2024001,张三,男,六年级,1班,165,52,2800,8.5,150,12.5,185\n" +
	"2024002,李四,女,六年级,1班,160,48,2600,9.2,140,15,175\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestRunTextReport(t *testing.T) {
	path := writeFile(t, "scores.csv", csvFile)
	var out bytes.Buffer
	if err := run(context.Background(), []string{"-file", path}, &out); err != nil {
		t.Fatal(err)
	}
	s := out.String()
	for _, want := range []string{"success: 1  failed: 1", "2024001", "row 2: sit-ups is required for female students", "pass rate: 0.00%"} {
		if !strings.Contains(s, want) {
			t.Errorf("report lacks %q:\n%s", want, s)
		}
	}
}

func TestRunJSONStrict(t *testing.T) {
	path := writeFile(t, "scores.csv", csvFile)
	var out bytes.Buffer
	err := run(context.Background(), []string{"-file", path, "-json", "-strict"}, &out)
	if !errors.Is(err, errRowsFailed) {
		t.Fatalf("err = %v", err)
	}
	var res fitness.ImportResult
	if err := json.Unmarshal(out.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.SuccessCount != 1 || res.FailCount != 1 || len(res.Errors) != 1 || res.Errors[0].Row != 2 {
		t.Fatalf("result: %+v", res)
	}
}

func TestRunFileFromEnv(t *testing.T) {
	t.Setenv("FITNESS_CHECK_FILE", writeFile(t, "scores.csv", csvFile))
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "success: 1") {
		t.Fatalf("report: %s", out.String())
	}
}

func TestRunRejectsBadInput(t *testing.T) {
	var out bytes.Buffer
	if err := run(context.Background(), nil, &out); err == nil {
		t.Fatal("missing -file accepted")
	}
	txt := writeFile(t, "scores.txt", csvFile)
	if err := run(context.Background(), []string{"-file", txt}, &out); err == nil {
		t.Fatal(".txt accepted")
	}
	bad := writeFile(t, "standards.json", "{")
	path := writeFile(t, "scores.csv", csvFile)
	if err := run(context.Background(), []string{"-file", path, "-standards", bad}, &out); err == nil {
		t.Fatal("broken standards accepted")
	}
}
