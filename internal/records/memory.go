package records

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mind-engage/fitness-records/internal/fitness"
)

type memoryStore struct {
	txMu     sync.Mutex // serializes WithTx
	mu       sync.RWMutex
	students map[string]Student
	scores   map[string]fitness.TestScore
	imports  []ImportRecord
}

// NewInMemoryStore is a Store for tests and offline runs.
func NewInMemoryStore() Store {
	return &memoryStore{
		students: map[string]Student{},
		scores:   map[string]fitness.TestScore{},
	}
}

// WithTx runs fn on a copy of the store and swaps the copy in when fn
// succeeds. Writes made outside a transaction while one is open are lost.
func (m *memoryStore) WithTx(_ context.Context, fn func(Store) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	tx := &memoryStore{
		students: make(map[string]Student, len(m.students)),
		scores:   make(map[string]fitness.TestScore, len(m.scores)),
		imports:  append([]ImportRecord(nil), m.imports...),
	}
	for k, v := range m.students {
		tx.students[k] = v
	}
	for k, v := range m.scores {
		tx.scores[k] = v
	}
	m.mu.RUnlock()

	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	m.students, m.scores, m.imports = tx.students, tx.scores, tx.imports
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) UpsertStudent(_ context.Context, s Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cur := range m.students {
		if cur.SchoolCode == s.SchoolCode && cur.StudentNo == s.StudentNo {
			s.ID, s.CreatedAt = id, cur.CreatedAt
			m.students[id] = s
			return s, nil
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	m.students[s.ID] = s
	return s, nil
}

func (m *memoryStore) GetStudent(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return Student{}, ErrNotFound
	}
	return s, nil
}

func (m *memoryStore) FindStudent(_ context.Context, schoolCode, studentNo string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.students {
		if s.SchoolCode == schoolCode && s.StudentNo == studentNo {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

func (m *memoryStore) FindScore(_ context.Context, studentID, academicYear string) (fitness.TestScore, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.scores {
		if s.StudentID == studentID && s.AcademicYear == academicYear {
			return s, nil
		}
	}
	return fitness.TestScore{}, ErrNotFound
}

func (m *memoryStore) PutScore(_ context.Context, s fitness.TestScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.students[s.StudentID]; !ok {
		return ErrNotFound
	}
	m.scores[s.ID] = s
	return nil
}

func (m *memoryStore) GetScore(_ context.Context, id string) (ScoreWithStudent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.scores[id]
	if !ok {
		return ScoreWithStudent{}, ErrNotFound
	}
	return join(s, m.students[s.StudentID]), nil
}

func join(s fitness.TestScore, st Student) ScoreWithStudent {
	return ScoreWithStudent{
		TestScore:   s,
		StudentNo:   st.StudentNo,
		StudentName: st.Name,
		Gender:      st.Gender,
		Grade:       st.Grade,
		Class:       st.Class,
	}
}

func (m *memoryStore) ListScores(_ context.Context, f Filter) ([]ScoreWithStudent, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ScoreWithStudent
	for _, s := range m.scores {
		row := join(s, m.students[s.StudentID])
		if matches(row, f) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.Class != b.Class {
			return a.Class < b.Class
		}
		return a.StudentNo < b.StudentNo
	})
	total := len(out)
	return page(out, f.Limit, f.Offset), total, nil
}

func matches(r ScoreWithStudent, f Filter) bool {
	switch {
	case f.AcademicYear != "" && r.AcademicYear != f.AcademicYear:
		return false
	case f.Grade != "" && r.Grade != f.Grade:
		return false
	case f.Class != "" && r.Class != f.Class:
		return false
	case f.GradeLevel != "" && r.GradeLevel != f.GradeLevel:
		return false
	case f.Keyword != "" && !strings.Contains(r.StudentNo, f.Keyword) && !strings.Contains(r.StudentName, f.Keyword):
		return false
	}
	return true
}

func (m *memoryStore) DeleteScores(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := m.scores[id]; ok {
			delete(m.scores, id)
			n++
		}
	}
	return n, nil
}

func (m *memoryStore) FilterOptions(_ context.Context) (FilterOptions, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	years, grades, classes := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, s := range m.scores {
		st := m.students[s.StudentID]
		years[s.AcademicYear] = true
		grades[st.Grade] = true
		classes[st.Class] = true
	}
	return FilterOptions{
		AcademicYears: sortedKeys(years),
		Grades:        sortedKeys(grades),
		Classes:       sortedKeys(classes),
	}, nil
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func page[T any](in []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

func (m *memoryStore) AppendImport(_ context.Context, rec ImportRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imports = append(m.imports, rec)
	return nil
}

func (m *memoryStore) GetImport(_ context.Context, id string) (ImportRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.imports {
		if r.ID == id {
			return r, nil
		}
	}
	return ImportRecord{}, ErrNotFound
}

// ListImports returns the newest imports first.
func (m *memoryStore) ListImports(_ context.Context, limit, offset int) ([]ImportRecord, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ImportRecord, len(m.imports))
	for i, r := range m.imports {
		out[len(m.imports)-1-i] = r
	}
	return page(out, limit, offset), len(out), nil
}
