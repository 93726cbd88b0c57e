// Command fitness-check validates and scores a fitness spreadsheet offline
// and prints the import report without storing anything.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"

	"github.com/mind-engage/fitness-records/internal/fitness"
	"github.com/mind-engage/fitness-records/internal/sheet"
)

// errRowsFailed makes -strict runs exit non-zero.
var errRowsFailed = errors.New("some rows failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "fitness-check:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("fitness-check", flag.ContinueOnError)
	var (
		_         = fs.String("config", "", "config file (optional), json format")
		file      = fs.String("file", "", "spreadsheet to check (.xlsx or .csv)")
		standards = fs.String("standards", "", "scoring standards table (json); empty uses the clamp fallback")
		workers   = fs.Int("workers", 0, "rows scored concurrently (0 = GOMAXPROCS)")
		asJSON    = fs.Bool("json", false, "print the report as json")
		strict    = fs.Bool("strict", false, "exit non-zero when any row fails")
		verbose   = fs.Bool("v", false, "log pipeline activity to stderr")
	)
	if err := ff.Parse(fs, args,
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.JSONParser),
		ff.WithEnvVarPrefix("FITNESS_CHECK"),
	); err != nil {
		return err
	}
	if *file == "" {
		return errors.New("-file is required")
	}

	logger := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return err
		}
		logger = l
		defer logger.Sync()
	}

	scorer, err := fitness.LoadStandardsFile(*standards)
	if err != nil {
		return fmt.Errorf("standards: %w", err)
	}
	rows, err := readRows(*file)
	if err != nil {
		return err
	}

	p := fitness.NewPipeline(scorer, fitness.WithWorkers(*workers), fitness.WithLogger(logger))
	res, err := p.Import(ctx, rows)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
	} else {
		printReport(stdout, res)
	}
	if *strict && !res.Success {
		return errRowsFailed
	}
	return nil
}

func readRows(path string) ([]fitness.ImportRow, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if err := sheet.CheckFile(path, st.Size(), sheet.MaxFileSize); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return sheet.Read(f, path)
}

func printReport(w io.Writer, res fitness.ImportResult) {
	fmt.Fprintf(w, "rows: %d  success: %d  failed: %d\n", res.SuccessCount+res.FailCount, res.SuccessCount, res.FailCount)
	if len(res.Records) > 0 {
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ROW\tSTUDENT\tNAME\tTOTAL\tLEVEL")
		for _, r := range res.Records {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", r.Row, r.Input.StudentNo, r.Input.Name, fitness.FormatScore(r.TotalScore), r.Level.Label())
		}
		tw.Flush()
	}
	if len(res.Errors) > 0 {
		fmt.Fprintln(w, "errors:")
		for _, e := range res.Errors {
			fmt.Fprintln(w, "  "+e.Message)
		}
	}
	members := make([]fitness.CohortMember, len(res.Records))
	for i, r := range res.Records {
		members[i] = fitness.CohortMember{Grade: r.Input.Grade, TotalScore: r.TotalScore, Level: r.Level}
	}
	st := fitness.Aggregate(members)
	fmt.Fprintf(w, "pass rate: %s  excellent rate: %s  average: %s\n",
		fitness.FormatPercentage(st.PassRate), fitness.FormatPercentage(st.ExcellentRate), fitness.FormatScore(st.AverageScore))
}
