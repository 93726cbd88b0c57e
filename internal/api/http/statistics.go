package http

import (
	"net/http"

	"github.com/mind-engage/fitness-records/internal/records"
)

// GET /statistics?academicYear=&grade=&className=
func StatisticsHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		st, err := svc.Statistics(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// GET /statistics/project-averages?academicYear=&grade=&className=
func ProjectAveragesHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		avgs, err := svc.ProjectAverages(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, avgs)
	}
}

// GET /statistics/distribution?academicYear=&grade=&className=
func DistributionHandler(svc *records.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := filterFromQuery(r)
		if err != nil {
			writeError(w, err)
			return
		}
		bands, err := svc.ScoreDistribution(r.Context(), f)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, bands)
	}
}
