package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

// queryer is the part of *sql.DB and *sql.Tx the store needs.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLStore persists records through database/sql. Queries use $n
// placeholders, which both the pgx and sqlite drivers accept.
type SQLStore struct {
	db *sql.DB // nil inside a transaction
	q  queryer
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, q: db}
}

// WithTx runs fn inside one database transaction. Called on a store that is
// already in a transaction, fn joins it.
func (s *SQLStore) WithTx(ctx context.Context, fn func(Store) error) (err error) {
	if s.db == nil {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(&SQLStore{q: tx})
}

func (s *SQLStore) UpsertStudent(ctx context.Context, st Student) (Student, error) {
	now := st.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}
	created := st.CreatedAt
	if created.IsZero() {
		created = now
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO students (id,school_code,student_no,name,gender,grade,class,created_at,updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (school_code, student_no) DO UPDATE SET
		  name=EXCLUDED.name, gender=EXCLUDED.gender, grade=EXCLUDED.grade,
		  class=EXCLUDED.class, updated_at=EXCLUDED.updated_at`,
		st.ID, st.SchoolCode, st.StudentNo, st.Name, st.Gender.String(), st.Grade, st.Class, created.Unix(), now.Unix())
	if err != nil {
		return Student{}, fmt.Errorf("upsert student %s: %w", st.StudentNo, err)
	}
	var id string
	if err := s.q.QueryRowContext(ctx, `SELECT id FROM students WHERE school_code=$1 AND student_no=$2`,
		st.SchoolCode, st.StudentNo).Scan(&id); err != nil {
		return Student{}, err
	}
	return s.GetStudent(ctx, id)
}

func (s *SQLStore) GetStudent(ctx context.Context, id string) (Student, error) {
	row := s.q.QueryRowContext(ctx, `SELECT id,school_code,student_no,name,gender,grade,class,created_at,updated_at
		FROM students WHERE id=$1`, id)
	var (
		st               Student
		gender           string
		created, updated int64
	)
	if err := row.Scan(&st.ID, &st.SchoolCode, &st.StudentNo, &st.Name, &gender, &st.Grade, &st.Class, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Student{}, ErrNotFound
		}
		return Student{}, err
	}
	st.Gender, _ = fitness.ParseGender(gender)
	st.CreatedAt, st.UpdatedAt = time.Unix(created, 0), time.Unix(updated, 0)
	return st, nil
}

func (s *SQLStore) FindStudent(ctx context.Context, schoolCode, studentNo string) (Student, error) {
	var id string
	err := s.q.QueryRowContext(ctx, `SELECT id FROM students WHERE school_code=$1 AND student_no=$2`,
		schoolCode, studentNo).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrNotFound
	}
	if err != nil {
		return Student{}, err
	}
	return s.GetStudent(ctx, id)
}

const scoreColumns = `sc.id, sc.student_id, sc.academic_year,
	sc.height, sc.weight, sc.vital_capacity, sc.run_50m, sc.rope_skipping, sc.sit_ups,
	sc.sit_and_reach, sc.standing_jump, sc.total_score, sc.grade_level,
	sc.created_at, sc.updated_at, sc.modify_count`

type scanner interface {
	Scan(dest ...any) error
}

func scanScore(row scanner, extra ...any) (fitness.TestScore, error) {
	var (
		t                fitness.TestScore
		sitUps           sql.NullFloat64
		level            string
		created, updated int64
	)
	dest := []any{&t.ID, &t.StudentID, &t.AcademicYear,
		&t.Height, &t.Weight, &t.VitalCapacity, &t.Run50m, &t.RopeSkipping, &sitUps,
		&t.SitAndReach, &t.StandingJump, &t.TotalScore, &level,
		&created, &updated, &t.ModifyCount}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return fitness.TestScore{}, err
	}
	if sitUps.Valid {
		v := sitUps.Float64
		t.SitUps = &v
	}
	t.GradeLevel = fitness.GradeLevel(level)
	t.CreatedAt, t.UpdatedAt = time.Unix(created, 0), time.Unix(updated, 0)
	return t, nil
}

func (s *SQLStore) FindScore(ctx context.Context, studentID, academicYear string) (fitness.TestScore, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+scoreColumns+` FROM test_scores sc
		WHERE sc.student_id=$1 AND sc.academic_year=$2`, studentID, academicYear)
	t, err := scanScore(row)
	if errors.Is(err, sql.ErrNoRows) {
		return fitness.TestScore{}, ErrNotFound
	}
	return t, err
}

func (s *SQLStore) PutScore(ctx context.Context, t fitness.TestScore) error {
	var sitUps sql.NullFloat64
	if t.SitUps != nil {
		sitUps = sql.NullFloat64{Float64: *t.SitUps, Valid: true}
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO test_scores
		(id,student_id,academic_year,height,weight,vital_capacity,run_50m,rope_skipping,sit_ups,
		 sit_and_reach,standing_jump,total_score,grade_level,created_at,updated_at,modify_count)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		ON CONFLICT (id) DO UPDATE SET
		  height=EXCLUDED.height, weight=EXCLUDED.weight, vital_capacity=EXCLUDED.vital_capacity,
		  run_50m=EXCLUDED.run_50m, rope_skipping=EXCLUDED.rope_skipping, sit_ups=EXCLUDED.sit_ups,
		  sit_and_reach=EXCLUDED.sit_and_reach, standing_jump=EXCLUDED.standing_jump,
		  total_score=EXCLUDED.total_score, grade_level=EXCLUDED.grade_level,
		  updated_at=EXCLUDED.updated_at, modify_count=EXCLUDED.modify_count`,
		t.ID, t.StudentID, t.AcademicYear, t.Height, t.Weight, t.VitalCapacity, t.Run50m, t.RopeSkipping, sitUps,
		t.SitAndReach, t.StandingJump, t.TotalScore, string(t.GradeLevel),
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(), t.ModifyCount)
	if err != nil {
		return fmt.Errorf("put score %s: %w", t.ID, err)
	}
	return nil
}

const joinedColumns = scoreColumns + `, st.student_no, st.name, st.gender, st.grade, st.class`

func scanJoined(row scanner) (ScoreWithStudent, error) {
	var (
		out    ScoreWithStudent
		gender string
	)
	t, err := scanScore(row, &out.StudentNo, &out.StudentName, &gender, &out.Grade, &out.Class)
	if err != nil {
		return ScoreWithStudent{}, err
	}
	out.TestScore = t
	out.Gender, _ = fitness.ParseGender(gender)
	return out, nil
}

func (s *SQLStore) GetScore(ctx context.Context, id string) (ScoreWithStudent, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+joinedColumns+`
		FROM test_scores sc JOIN students st ON st.id = sc.student_id
		WHERE sc.id=$1`, id)
	out, err := scanJoined(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ScoreWithStudent{}, ErrNotFound
	}
	return out, err
}

// where renders the filter as a WHERE clause with numbered placeholders.
func where(f Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.AcademicYear != "" {
		conds = append(conds, "sc.academic_year="+arg(f.AcademicYear))
	}
	if f.Grade != "" {
		conds = append(conds, "st.grade="+arg(f.Grade))
	}
	if f.Class != "" {
		conds = append(conds, "st.class="+arg(f.Class))
	}
	if f.GradeLevel != "" {
		conds = append(conds, "sc.grade_level="+arg(string(f.GradeLevel)))
	}
	if f.Keyword != "" {
		like := "%" + f.Keyword + "%"
		conds = append(conds, "(st.student_no LIKE "+arg(like)+" OR st.name LIKE "+arg(like)+")")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (s *SQLStore) ListScores(ctx context.Context, f Filter) ([]ScoreWithStudent, int, error) {
	cond, args := where(f)
	from := ` FROM test_scores sc JOIN students st ON st.id = sc.student_id` + cond

	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count scores: %w", err)
	}

	q := `SELECT ` + joinedColumns + from + ` ORDER BY st.grade, st.class, st.student_no`
	if f.Limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, max(f.Offset, 0))
	}
	rows, err := s.q.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list scores: %w", err)
	}
	defer rows.Close()

	out := []ScoreWithStudent{}
	for rows.Next() {
		r, err := scanJoined(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *SQLStore) DeleteScores(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	marks := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		marks[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	res, err := s.q.ExecContext(ctx, `DELETE FROM test_scores WHERE id IN (`+strings.Join(marks, ",")+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete scores: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *SQLStore) FilterOptions(ctx context.Context) (FilterOptions, error) {
	var (
		opts FilterOptions
		err  error
	)
	if opts.AcademicYears, err = s.distinct(ctx, `SELECT DISTINCT sc.academic_year FROM test_scores sc ORDER BY 1`); err != nil {
		return FilterOptions{}, err
	}
	if opts.Grades, err = s.distinct(ctx, `SELECT DISTINCT st.grade
		FROM test_scores sc JOIN students st ON st.id = sc.student_id ORDER BY 1`); err != nil {
		return FilterOptions{}, err
	}
	if opts.Classes, err = s.distinct(ctx, `SELECT DISTINCT st.class
		FROM test_scores sc JOIN students st ON st.id = sc.student_id ORDER BY 1`); err != nil {
		return FilterOptions{}, err
	}
	return opts, nil
}

func (s *SQLStore) distinct(ctx context.Context, q string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("filter options: %w", err)
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *SQLStore) AppendImport(ctx context.Context, rec ImportRecord) error {
	overwrite := 0
	if rec.Overwrite {
		overwrite = 1
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO import_history
		(id,academic_year,file_name,file_key,overwrite,success_count,fail_count,created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.AcademicYear, rec.FileName, rec.FileKey, overwrite, rec.SuccessCount, rec.FailCount, rec.CreatedAt.Unix())
	return err
}

const importColumns = `id,academic_year,file_name,file_key,overwrite,success_count,fail_count,created_at`

func scanImport(row scanner) (ImportRecord, error) {
	var (
		r         ImportRecord
		overwrite int
		created   int64
	)
	if err := row.Scan(&r.ID, &r.AcademicYear, &r.FileName, &r.FileKey, &overwrite, &r.SuccessCount, &r.FailCount, &created); err != nil {
		return ImportRecord{}, err
	}
	r.Overwrite = overwrite == 1
	r.CreatedAt = time.Unix(created, 0)
	return r, nil
}

func (s *SQLStore) GetImport(ctx context.Context, id string) (ImportRecord, error) {
	r, err := scanImport(s.q.QueryRowContext(ctx, `SELECT `+importColumns+` FROM import_history WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return ImportRecord{}, ErrNotFound
	}
	return r, err
}

func (s *SQLStore) ListImports(ctx context.Context, limit, offset int) ([]ImportRecord, int, error) {
	var total int
	if err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM import_history`).Scan(&total); err != nil {
		return nil, 0, err
	}
	q := `SELECT ` + importColumns + ` FROM import_history ORDER BY created_at DESC, id DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, max(offset, 0))
	}
	rows, err := s.q.QueryContext(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := []ImportRecord{}
	for rows.Next() {
		r, err := scanImport(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}
