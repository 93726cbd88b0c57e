package fitness

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/hashicorp/go-multierror"
)

// Field identifies an ImportRow attribute in validation errors.
type Field string

const (
	FieldStudentNo     Field = "studentNo"
	FieldName          Field = "name"
	FieldGender        Field = "gender"
	FieldHeight        Field = "height"
	FieldWeight        Field = "weight"
	FieldVitalCapacity Field = "vitalCapacity"
	FieldRun50m        Field = "run50m"
	FieldRopeSkipping  Field = "ropeSkipping1min"
	FieldSitUps        Field = "sitUps1min"
	FieldSitAndReach   Field = "sitAndReach"
	FieldStandingJump  Field = "standingJump"
)

// FieldResult is the verdict of a single field validator.
type FieldResult struct {
	Valid   bool
	Message string
}

var passed = FieldResult{Valid: true}

func invalid(format string, args ...any) FieldResult {
	return FieldResult{Message: fmt.Sprintf(format, args...)}
}

func ValidateStudentNo(no string) FieldResult {
	no = strings.TrimSpace(no)
	if no == "" {
		return invalid("student number is required")
	}
	if utf8.RuneCountInString(no) > 20 {
		return invalid("student number must not exceed 20 characters")
	}
	return passed
}

func ValidateName(name string) FieldResult {
	name = strings.TrimSpace(name)
	if name == "" {
		return invalid("name is required")
	}
	if n := utf8.RuneCountInString(name); n < 2 || n > 20 {
		return invalid("name must be 2-20 characters long")
	}
	return passed
}

func ValidateGender(gender string) FieldResult {
	if _, known := ParseGender(gender); !known {
		return invalid(`gender must be "男" or "女"`)
	}
	return passed
}

// bound describes a closed numeric interval. strictPositive adds the
// "> 0" precondition some measurements carry in front of the range.
type bound struct {
	label          string
	unit           string
	min, max       float64
	strictPositive bool
	nonNegative    bool
}

func (b bound) check(v float64) FieldResult {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s must be a number", b.label)
	}
	if b.strictPositive && v <= 0 {
		return invalid("%s must be a number greater than 0", b.label)
	}
	if b.nonNegative && v < 0 {
		return invalid("%s must be a non-negative number", b.label)
	}
	if v < b.min || v > b.max {
		return invalid("%s must be between %g and %g %s", b.label, b.min, b.max, b.unit)
	}
	return passed
}

var (
	heightBound        = bound{label: "height", unit: "cm", min: 50, max: 250, strictPositive: true}
	weightBound        = bound{label: "weight", unit: "kg", min: 10, max: 200, strictPositive: true}
	vitalCapacityBound = bound{label: "vital capacity", unit: "mL", min: 500, max: 8000, strictPositive: true}
	run50mBound        = bound{label: "50m run", unit: "s", min: 4, max: 20, strictPositive: true}
	ropeSkippingBound  = bound{label: "rope skipping", unit: "per minute", min: 0, max: 300, nonNegative: true}
	sitUpsBound        = bound{label: "sit-ups", unit: "per minute", min: 0, max: 100, nonNegative: true}
	sitAndReachBound   = bound{label: "sit-and-reach", unit: "cm", min: -20, max: 50}
	standingJumpBound  = bound{label: "standing jump", unit: "cm", min: 50, max: 350, strictPositive: true}
)

func ValidateHeight(cm float64) FieldResult        { return heightBound.check(cm) }
func ValidateWeight(kg float64) FieldResult        { return weightBound.check(kg) }
func ValidateVitalCapacity(ml float64) FieldResult { return vitalCapacityBound.check(ml) }
func ValidateRun50m(sec float64) FieldResult       { return run50mBound.check(sec) }
func ValidateRopeSkipping(n float64) FieldResult   { return ropeSkippingBound.check(n) }
func ValidateSitAndReach(cm float64) FieldResult   { return sitAndReachBound.check(cm) }
func ValidateStandingJump(cm float64) FieldResult  { return standingJumpBound.check(cm) }

// ValidateSitUps always passes for male students. Every other row must
// carry a count; a row whose gender is not recognized is reported as such.
func ValidateSitUps(count *float64, gender string) FieldResult {
	g, _ := ParseGender(gender)
	switch {
	case g == Male:
		return passed
	case count == nil && g == Female:
		return invalid("sit-ups is required for female students")
	case count == nil:
		return invalid("sit-ups is required unless the student is male")
	}
	return sitUpsBound.check(*count)
}

// FieldError is one failed field of one row.
type FieldError struct {
	Row     int    `json:"row"`
	Field   Field  `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("row %d: %s", e.Row, e.Message) }

// RowValidationResult lists every failed field of a row, in field order.
type RowValidationResult struct {
	Row    int
	Errors []FieldError
}

func (r RowValidationResult) Valid() bool { return len(r.Errors) == 0 }

// Messages renders each error as "row {index}: {reason}".
func (r RowValidationResult) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.Error())
	}
	return out
}

// Err folds the row's errors into one; nil when the row is valid.
func (r RowValidationResult) Err() error {
	var merr *multierror.Error
	for _, e := range r.Errors {
		merr = multierror.Append(merr, e)
	}
	return merr.ErrorOrNil()
}

// ValidateRow runs every field validator against row; index is the row's
// 1-based position in the batch. Nothing short-circuits.
func ValidateRow(row ImportRow, index int) RowValidationResult {
	checks := []struct {
		field Field
		res   FieldResult
	}{
		{FieldStudentNo, ValidateStudentNo(row.StudentNo)},
		{FieldName, ValidateName(row.Name)},
		{FieldGender, ValidateGender(row.Gender)},
		{FieldHeight, ValidateHeight(row.Height)},
		{FieldWeight, ValidateWeight(row.Weight)},
		{FieldVitalCapacity, ValidateVitalCapacity(row.VitalCapacity)},
		{FieldRun50m, ValidateRun50m(row.Run50m)},
		{FieldRopeSkipping, ValidateRopeSkipping(row.RopeSkipping)},
		{FieldSitUps, ValidateSitUps(row.SitUps, row.Gender)},
		{FieldSitAndReach, ValidateSitAndReach(row.SitAndReach)},
		{FieldStandingJump, ValidateStandingJump(row.StandingJump)},
	}
	res := RowValidationResult{Row: index}
	for _, c := range checks {
		if !c.res.Valid {
			res.Errors = append(res.Errors, FieldError{Row: index, Field: c.field, Message: c.res.Message})
		}
	}
	return res
}

// ValidateField checks a single measurement by field name, used when a stored
// score is edited one field at a time.
func ValidateField(field Field, value float64, gender Gender) (FieldResult, error) {
	switch field {
	case FieldHeight:
		return ValidateHeight(value), nil
	case FieldWeight:
		return ValidateWeight(value), nil
	case FieldVitalCapacity:
		return ValidateVitalCapacity(value), nil
	case FieldRun50m:
		return ValidateRun50m(value), nil
	case FieldRopeSkipping:
		return ValidateRopeSkipping(value), nil
	case FieldSitUps:
		return ValidateSitUps(&value, gender.String()), nil
	case FieldSitAndReach:
		return ValidateSitAndReach(value), nil
	case FieldStandingJump:
		return ValidateStandingJump(value), nil
	default:
		return FieldResult{}, fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
}
