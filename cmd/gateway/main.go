package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	api "github.com/mind-engage/fitness-records/internal/api/http"
	"github.com/mind-engage/fitness-records/internal/config"
	"github.com/mind-engage/fitness-records/internal/db"
	"github.com/mind-engage/fitness-records/internal/fitness"
	"github.com/mind-engage/fitness-records/internal/records"
	"github.com/mind-engage/fitness-records/internal/storage"
)

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer dbh.Close()
	store := records.NewSQLStore(dbh)

	// --- Scoring ---
	scorer, err := fitness.LoadStandardsFile(cfg.StandardsPath)
	if err != nil {
		logger.Fatal("load standards", zap.String("path", cfg.StandardsPath), zap.Error(err))
	}
	pipeline := fitness.NewPipeline(scorer,
		fitness.WithWorkers(cfg.Workers),
		fitness.WithLogger(logger),
	)
	svc := records.NewService(store, pipeline,
		records.WithSchoolCode(cfg.SchoolCode),
		records.WithServiceLogger(logger),
	)

	bs, err := storage.NewFSStore(cfg.BlobBasePath)
	if err != nil {
		logger.Fatal("blob store", zap.Error(err))
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.Mount(r, svc, bs, cfg.MaxUploadBytes)
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := dbh.PingContext(r.Context()); err != nil {
			http.Error(w, "db: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(200)
	})

	logger.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("db", cfg.DBDriver),
		zap.Bool("standards", cfg.StandardsPath != ""),
	)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	lvl, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
