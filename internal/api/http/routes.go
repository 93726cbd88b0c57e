// Package http exposes the import and score endpoints as chi handlers.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/fitness-records/internal/records"
	"github.com/mind-engage/fitness-records/internal/storage"
)

// Mount registers every fitness endpoint on r. bs may be nil, in which case
// uploads are not archived.
func Mount(r chi.Router, svc *records.Service, bs storage.BlobStore, maxUpload int64) {
	r.Route("/import", func(ir chi.Router) {
		ir.Post("/upload", UploadImportHandler(svc, bs, maxUpload))
		ir.Get("/template", TemplateHandler())
		ir.Get("/history", ImportHistoryHandler(svc))
		ir.Get("/history/{importID}/file", ImportFileHandler(svc, bs))
	})
	r.Route("/scores", func(sr chi.Router) {
		sr.Get("/", ListScoresHandler(svc))
		sr.Delete("/", DeleteScoresHandler(svc))
		sr.Get("/export", ExportScoresHandler(svc))
		sr.Get("/filter-options", FilterOptionsHandler(svc))
		sr.Patch("/{scoreID}", UpdateScoreHandler(svc))
		sr.Delete("/{scoreID}", DeleteScoreHandler(svc))
	})
	r.Route("/statistics", func(sr chi.Router) {
		sr.Get("/", StatisticsHandler(svc))
		sr.Get("/project-averages", ProjectAveragesHandler(svc))
		sr.Get("/distribution", DistributionHandler(svc))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
}
