package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

// MaxFileSize is the upload limit when none is configured.
const MaxFileSize = 10 << 20

var (
	ErrUnsupportedFile = errors.New("file must be .xlsx or .csv")
	ErrFileTooLarge    = errors.New("file is too large")
	ErrNoSheet         = errors.New("no sheet found in file")
	ErrNoData          = errors.New("file has no data rows")
	ErrMissingColumns  = errors.New("missing required columns")
)

// MissingColumnsError lists the required headers a file lacks.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return ErrMissingColumns.Error() + ": " + strings.Join(e.Columns, ", ")
}

func (e *MissingColumnsError) Is(target error) bool { return target == ErrMissingColumns }

// Format is the container format of an upload.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// DetectFormat picks the format from the file name.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "xlsx":
		return FormatXLSX, nil
	case "csv":
		return FormatCSV, nil
	default:
		return "", ErrUnsupportedFile
	}
}

// CheckFile validates name and size before anything is parsed. limit <= 0
// means MaxFileSize.
func CheckFile(name string, size, limit int64) error {
	if _, err := DetectFormat(name); err != nil {
		return err
	}
	if limit <= 0 {
		limit = MaxFileSize
	}
	if size > limit {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrFileTooLarge, size, limit)
	}
	return nil
}

// Read parses the first sheet of an xlsx file or a csv file into rows, in
// file order. Blank lines are skipped.
func Read(r io.Reader, name string) ([]fitness.ImportRow, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}
	var records [][]string
	switch format {
	case FormatXLSX:
		records, err = readXLSX(r)
	case FormatCSV:
		records, err = readCSV(r)
	}
	if err != nil {
		return nil, err
	}
	return parseRecords(records)
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheet
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func readCSV(r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cr := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("bad csv: %w", err)
	}
	return records, nil
}

func parseRecords(records [][]string) ([]fitness.ImportRow, error) {
	if len(records) == 0 {
		return nil, ErrNoData
	}
	idx := map[string]int{}
	for i, h := range records[0] {
		idx[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, c := range RequiredColumns {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	rows := make([]fitness.ImportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		cell := func(col string) string {
			i, ok := idx[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		row := fitness.ImportRow{
			StudentNo: cell(ColStudentNo),
			Name:      cell(ColName),
			Gender:    cell(ColGender),
			Grade:     cell(ColGrade),
			Class:     cell(ColClass),
			Measurements: fitness.Measurements{
				Height:        number(cell(ColHeight)),
				Weight:        number(cell(ColWeight)),
				VitalCapacity: number(cell(ColVitalCapacity)),
				Run50m:        number(cell(ColRun50m)),
				RopeSkipping:  number(cell(ColRopeSkipping)),
				SitAndReach:   number(cell(ColSitAndReach)),
				StandingJump:  number(cell(ColStandingJump)),
			},
		}
		if s := cell(ColSitUps); s != "" {
			v := number(s)
			row.SitUps = &v
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	return rows, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// number parses a numeric cell; empty or non-numeric cells become NaN so the
// validators report them.
func number(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
