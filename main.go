package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	apihttp "estate-billing/internal/api/http"
	"estate-billing/internal/audit"
	"estate-billing/internal/auth"
	billingapp "estate-billing/internal/billing/application"
	billingcache "estate-billing/internal/billing/cache"
	billingrepo "estate-billing/internal/billing/infrastructure/postgres"
	billinghttp "estate-billing/internal/billing/interfaces/http"
	forecastapp "estate-billing/internal/forecast/application"
	forecastrepo "estate-billing/internal/forecast/infrastructure/postgres"
	forecasthttp "estate-billing/internal/forecast/interfaces/http"
	"estate-billing/internal/notify"
	"estate-billing/internal/observability/metrics"
	"estate-billing/internal/scheduler"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	_ = godotenv.Load()

	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init()

	forecastCfg, err := forecastapp.LoadConfig()
	if err != nil {
		logger.Fatalf("forecast config error: %v", err)
	}

	summaryCache := buildSummaryCache(cfg, logger)
	gateway := billingrepo.NewSourceGateway(db)
	summaryRepo := billingrepo.NewSummaryRepository(db)

	billingService, err := billingapp.NewSummaryService(
		gateway,
		summaryRepo,
		billingapp.SystemClock{},
		logger,
		billingapp.WithWorkers(cfg.Workers),
		billingapp.WithCache(summaryCache),
	)
	if err != nil {
		logger.Fatalf("billing service error: %v", err)
	}

	trendReader := forecastrepo.NewTrendReader(db)
	predictionRepo := forecastrepo.NewPredictionRepository(db)

	forecastOpts := []forecastapp.ForecastOption{
		forecastapp.WithHistoryMonths(forecastCfg.HistoryMonths),
		forecastapp.WithHorizonMonths(forecastCfg.HorizonMonths),
	}
	if forecastCfg.WebhookURL != "" {
		forecastOpts = append(forecastOpts, forecastapp.WithNotifier(notify.NewWebhookNotifier(forecastCfg.WebhookURL)))
	}
	forecastService, err := forecastapp.NewForecastService(
		trendReader,
		predictionRepo,
		forecastapp.SystemClock{},
		logger,
		forecastOpts...,
	)
	if err != nil {
		logger.Fatalf("forecast service error: %v", err)
	}

	reconciler, err := forecastapp.NewReconciler(predictionRepo, trendReader, forecastapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("reconciler error: %v", err)
	}

	generateHandler, err := billinghttp.NewGenerateHandler(billingService, logger)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}
	predictHandler, err := forecasthttp.NewPredictHandler(forecastService, logger)
	if err != nil {
		logger.Fatalf("forecast handler error: %v", err)
	}
	reconcileHandler, err := forecasthttp.NewReconcileHandler(reconciler, logger)
	if err != nil {
		logger.Fatalf("reconcile handler error: %v", err)
	}

	jobScheduler := scheduler.New(billingService, forecastService, reconciler, forecastCfg.Schedule.DailyAt, logger)
	go jobScheduler.Start(context.Background())

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)
	auditMiddleware := audit.NewMiddleware(audit.NewRepository(db), logger)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/billing/generate", generateHandler)
	mux.Handle("/api/v1/forecast/predict", predictHandler)
	mux.Handle("/api/v1/forecast/reconcile", reconcileHandler)
	mux.Handle("/api/v1/summaries", apihttp.NewSummariesHandler(summaryRepo))
	mux.Handle("/api/v1/predictions", apihttp.NewPredictionsHandler(predictionRepo))
	mux.Handle("/api/v1/exports/summaries.csv", apihttp.NewExportSummariesCSVHandler(summaryRepo))
	mux.Handle("/api/v1/exports/summaries.xlsx", apihttp.NewExportSummariesXLSXHandler(summaryRepo))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(authMiddleware.Wrap(auditMiddleware.Wrap(mux)), logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL   string
	HTTPAddr      string
	JWTSecret     string
	Workers       int
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
}

func loadConfig() config {
	cfg := config{
		DatabaseURL:   getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:      getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:     getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
		Workers:       getenvIntDefault("BILLING_WORKERS", 4),
		RedisAddr:     getenvDefault("REDIS_ADDR", ""),
		RedisPassword: getenvDefault("REDIS_PASSWORD", ""),
		RedisDB:       getenvIntDefault("REDIS_DB", 0),
		CacheTTL:      getenvDuration("SUMMARY_CACHE_TTL", time.Hour),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func buildSummaryCache(cfg config, logger *log.Logger) billingcache.SummaryCache {
	if cfg.RedisAddr == "" {
		return billingcache.NewMemoryCache(cfg.CacheTTL, nil)
	}
	redisCache, err := billingcache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
	if err != nil {
		logger.Fatalf("redis cache error: %v", err)
	}
	return redisCache
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
