package main

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"diagnosis-decoder/internal/artifact"
	"diagnosis-decoder/internal/auth"
	"diagnosis-decoder/internal/bus"
	"diagnosis-decoder/internal/config"
	"diagnosis-decoder/internal/encounter"
	"diagnosis-decoder/internal/inference"
	"diagnosis-decoder/internal/recording"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	if err := config.InitLogger(cfg.Log); err != nil {
		panic("init logger: " + err.Error())
	}
	defer func() { _ = zap.L().Sync() }()

	db, err := connectDB(cfg.DatabaseURL)
	if err != nil {
		zap.L().Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	runMigrations(cfg.MigrationsPath, cfg.DatabaseURL)

	// Collaborator clients.
	sttClient := recording.NewSTTClient(cfg.STTServiceURL)
	classifier := inference.NewClassifierClient(cfg.ClassifierServiceURL)
	twin := inference.NewTwinClient(cfg.TwinServiceURL)

	// Core services.
	notify := bus.New[encounter.Notification](16)
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry)
	userRepo := auth.NewRepository(db)
	encounterRepo := encounter.NewRepository(db)
	artifactStore := artifact.NewStore(cfg.ArtifactDir)

	pipeline := recording.NewPipeline(recording.NewStore(cfg.DataDir), sttClient, cfg.TranscribeTimeout)
	orchestrator := inference.NewOrchestrator(classifier, twin)
	confirmSvc := encounter.NewService(encounterRepo, userRepo, artifact.NewPDFGenerator(), artifactStore, notify, nil)

	// Handlers.
	authHandler := auth.NewHandler(userRepo, issuer)
	recordingHandler := recording.NewHandler(pipeline)
	analysisHandler := inference.NewHandler(orchestrator)
	encounterHandler := encounter.NewHandler(confirmSvc, encounterRepo, artifactStore)
	dashboardHandler := encounter.NewDashboardHandler(notify)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000", "http://127.0.0.1:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Route("/api", func(r chi.Router) {
		auth.RegisterRoutes(r, authHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(issuer))
			encounter.RegisterRoutes(r, encounterHandler)
			r.Get("/dashboard/events", dashboardHandler.HandleEvents)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireDoctor)
				recording.RegisterRoutes(r, recordingHandler)
				inference.RegisterRoutes(r, analysisHandler)
				encounter.RegisterDoctorRoutes(r, encounterHandler)
			})
		})
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	zap.L().Info("server starting", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, r); err != nil {
		zap.L().Fatal("server stopped", zap.Error(err))
	}
}

func connectDB(connStr string) (*sql.DB, error) {
	var db *sql.DB
	var err error
	for i := 0; i < 10; i++ {
		db, err = sql.Open("postgres", connStr)
		if err == nil {
			err = db.Ping()
		}
		if err == nil {
			return db, nil
		}
		zap.L().Info("waiting for database", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	return nil, err
}

func runMigrations(sourceURL, dbURL string) {
	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		zap.L().Warn("migration init failed", zap.Error(err))
		return
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		zap.L().Warn("migration up failed", zap.Error(err))
		return
	}
	zap.L().Info("migrations applied")
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}
