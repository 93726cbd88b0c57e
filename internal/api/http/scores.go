package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fitness-records/internal/fitness"
	"github.com/mind-engage/fitness-records/internal/records"
	"github.com/mind-engage/fitness-records/internal/sheet"
)

type scoreQuery struct {
	AcademicYear string `validate:"max=20"`
	Grade        string `validate:"max=20"`
	ClassName    string `validate:"max=20"`
	GradeLevel   string `validate:"omitempty,oneof=excellent good pass fail 优秀 良好 及格 不及格"`
	Keyword      string `validate:"max=50"`
}

// filterFromQuery reads the cohort filters shared by listing, export and
// statistics.
func filterFromQuery(r *http.Request) (records.Filter, error) {
	q := r.URL.Query()
	sq := scoreQuery{
		AcademicYear: strings.TrimSpace(q.Get("academicYear")),
		Grade:        strings.TrimSpace(q.Get("grade")),
		ClassName:    strings.TrimSpace(q.Get("className")),
		GradeLevel:   strings.TrimSpace(q.Get("gradeLevel")),
		Keyword:      strings.TrimSpace(q.Get("keyword")),
	}
	if err := validate.Struct(sq); err != nil {
		return records.Filter{}, err
	}
	f := records.Filter{
		AcademicYear: sq.AcademicYear,
		Grade:        sq.Grade,
		Class:        sq.ClassName,
		Keyword:      sq.Keyword,
	}
	if sq.GradeLevel != "" {
		f.GradeLevel, _ = fitness.ParseGradeLevel(sq.GradeLevel)
	}
	return f, nil
}

// GET /scores?academicYear=&grade=&className=&gradeLevel=&keyword=&page=&pageSize=
func ListScoresHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		page, size := paging(r)
		f.Limit, f.Offset = size, (page-1)*size
		list, total, err := svc.ListScores(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, Page[records.ScoreWithStudent]{Items: list, Total: total, Page: page, PageSize: size})
	}
}

type updateScoreReq struct {
	Field string   `json:"field" validate:"required"`
	Value *float64 `json:"value" validate:"required"`
}

// PATCH /scores/{scoreID}
//
// Body {"field": "run50m", "value": 8.9}. The total and grade level of the
// record are re-derived.
func UpdateScoreHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "scoreID"))
		if id == "" {
			http.Error(w, "scoreID required", http.StatusBadRequest)
			return
		}
		var req updateScoreReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, err)
			return
		}
		sc, err := svc.UpdateField(r.Context(), id, req.Field, *req.Value)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sc)
	}
}

// DELETE /scores/{scoreID}
func DeleteScoreHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.DeleteScore(r.Context(), chi.URLParam(r, "scoreID")); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type deleteScoresReq struct {
	ScoreIDs []string `json:"scoreIds" validate:"required,min=1,max=1000,dive,required"`
}

// DELETE /scores
//
// Body {"scoreIds": [...]}. Unknown ids are skipped; the response carries the
// number deleted.
func DeleteScoresHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req deleteScoresReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			writeError(w, err)
			return
		}
		n, err := svc.DeleteScores(r.Context(), req.ScoreIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"deleted": n})
	}
}

// GET /scores/filter-options
func FilterOptionsHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opts, err := svc.FilterOptions(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, opts)
	}
}

var exportHeader = []string{
	sheet.ColAcademicYear,
	sheet.ColStudentNo,
	sheet.ColName,
	sheet.ColGender,
	sheet.ColGrade,
	sheet.ColClass,
	sheet.ColHeight,
	sheet.ColWeight,
	sheet.ColVitalCapacity,
	sheet.ColRun50m,
	sheet.ColRopeSkipping,
	sheet.ColSitUps,
	sheet.ColSitAndReach,
	sheet.ColStandingJump,
	sheet.ColTotalScore,
	sheet.ColGradeLevel,
}

func exportRow(s records.ScoreWithStudent) []any {
	var sitUps any = ""
	if s.SitUps != nil {
		sitUps = *s.SitUps
	}
	return []any{
		s.AcademicYear, s.StudentNo, s.StudentName, s.Gender.Label(), s.Grade, s.Class,
		s.Height, s.Weight, s.VitalCapacity, s.Run50m, s.RopeSkipping, sitUps,
		s.SitAndReach, s.StandingJump,
		fitness.FormatScore(s.TotalScore), s.GradeLevel.Label(),
	}
}

// GET /scores/export takes the listing filters and returns every match as xlsx.
func ExportScoresHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		list, _, err := svc.ListScores(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		rows := make([][]any, len(list))
		for i, s := range list {
			rows[i] = exportRow(s)
		}
		var buf bytes.Buffer
		if err := sheet.Write(&buf, exportHeader, rows); err != nil {
			http.Error(w, "export: "+err.Error(), http.StatusInternalServerError)
			return
		}
		serveXLSX(w, "fitness_scores.xlsx", buf.Bytes())
	}
}
