package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"fdiadmin"
	"fdiadmin/internal/auth"
	"fdiadmin/internal/backend"
	"fdiadmin/internal/config"
	"fdiadmin/internal/console"
	"fdiadmin/internal/dashboard"
	"fdiadmin/internal/database"
	"fdiadmin/internal/metrics"
	"fdiadmin/internal/middleware"
	"fdiadmin/internal/scheduler"
	"fdiadmin/internal/uptime"

	"github.com/gorilla/csrf"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	filePerm          = 0o600
	readTimeout       = 15 * time.Second
	writeTimeout      = 30 * time.Second
	serverIdleTimeout = 60 * time.Second
	shutdownTimeout   = 10 * time.Second
	cleanupInterval   = time.Hour
)

func setupLogging(logFilePath string) (*os.File, error) {
	if logFilePath == "" {
		logFilePath = "fdiadmin.log"
	}

	cleaned := filepath.Clean(logFilePath)
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(".", cleaned)
	}

	absBase, err := filepath.Abs(".")
	if err != nil {
		return nil, err
	}
	absTarget, err := filepath.Abs(cleaned)
	if err != nil {
		return nil, err
	}
	if absTarget != absBase && !strings.HasPrefix(absTarget, absBase+string(os.PathSeparator)) {
		return nil, fmt.Errorf("invalid log path: %s", logFilePath)
	}

	dir := filepath.Dir(absTarget)
	if mkErr := os.MkdirAll(dir, 0o750); mkErr != nil {
		return nil, mkErr
	}

	logFile, err := os.OpenFile(absTarget, os.O_CREATE|os.O_WRONLY|os.O_APPEND, filePerm) // #nosec G304
	if err != nil {
		return nil, err
	}

	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
	return logFile, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	logFile, err := setupLogging(cfg.LogFile)
	if err != nil {
		log.Fatal("Failed to set up logging:", err)
	}
	defer func() {
		if closeErr := logFile.Close(); closeErr != nil {
			log.Printf("Failed to close log file: %v", closeErr)
		}
	}()

	log.Println("Logging initialized. Log file:", logFile.Name())

	m := metrics.New(prometheus.DefaultRegisterer)
	api := backend.New(cfg.APIBaseURL, backend.WithTimeout(cfg.APITimeout), backend.WithObserver(m))
	log.Printf("Using bot API at %s", api.BaseURL())

	store, db, err := setupSessionStore(cfg)
	if err != nil {
		log.Printf("Failed to set up session store: %v", err)
		return
	}
	if db != nil {
		defer func() {
			if err := db.Close(); err != nil {
				log.Printf("Failed to close database connection: %v", err)
			}
		}()
	}

	workspaces := console.NewWorkspaces()
	checker := uptime.NewChecker(api, m)

	jobs, err := startBackgroundServices(cfg, store, workspaces, checker)
	if err != nil {
		log.Printf("Failed to schedule background jobs: %v", err)
		return
	}
	defer jobs.Stop()

	t, err := dashboard.ParseTemplates(fdiadmin.Files)
	if err != nil {
		log.Fatalf("Error parsing templates: %v", err)
	}
	dashboard.InitTemplates(t)

	r := mux.NewRouter()
	registerHandlers(r, cfg, &dashboard.Env{
		Store:      store,
		API:        api,
		Workspaces: workspaces,
		Recorder:   m,
		Backend:    checker,
	})
	setupStaticFiles(r)

	protected := setupCSRFMiddleware(r, cfg)
	handler := middleware.RequestID(middleware.Logging(protected))

	startServer(handler, cfg.Port)
}

func setupSessionStore(cfg config.Config) (auth.Store, *sql.DB, error) {
	opts := auth.Options{TTL: cfg.SessionTTL, Secure: cfg.SecureCookies}

	if cfg.SessionStore != config.SessionStorePostgres {
		store, err := auth.NewCookieStore(cfg.SessionKey, opts)
		return store, nil, err
	}

	db, err := database.Connect(cfg.DBConnString)
	if err != nil {
		return nil, nil, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}
	log.Println("Session store: postgres")
	return auth.NewPostgresStore(db, opts), db, nil
}

func startBackgroundServices(cfg config.Config, store auth.Store, workspaces *console.Workspaces, checker *uptime.Checker) (*scheduler.Scheduler, error) {
	var sessions scheduler.SessionCleaner
	if pg, ok := store.(*auth.PostgresStore); ok {
		sessions = pg
	}

	s := scheduler.New()
	if _, err := s.ScheduleInterval(cfg.HealthCheckInterval, checker.Check); err != nil {
		return nil, err
	}
	if _, err := s.ScheduleInterval(cleanupInterval, scheduler.CleanupJob(sessions, workspaces, cfg.SessionTTL)); err != nil {
		return nil, err
	}

	go checker.Check()
	s.Start()
	return s, nil
}

func registerHandlers(r *mux.Router, cfg config.Config, env *dashboard.Env) {
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}).Methods("GET")

	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	dashboard.RegisterHandlers(r, env)
}

func setupStaticFiles(r *mux.Router) {
	staticFiles, err := fs.Sub(fdiadmin.Files, "static")
	if err != nil {
		log.Fatalf("Error accessing static files: %v", err)
	}
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(staticFiles))))
}

func setupCSRFMiddleware(r *mux.Router, cfg config.Config) http.Handler {
	sameSite := csrf.SameSiteLaxMode
	switch cfg.CSRFSameSite {
	case "strict":
		sameSite = csrf.SameSiteStrictMode
	case "none":
		sameSite = csrf.SameSiteNoneMode
	}

	opts := []csrf.Option{
		csrf.CookieName(cfg.CSRFCookieName),
		csrf.Secure(cfg.CSRFSecure),
		csrf.HttpOnly(true),
		csrf.Path("/"),
		csrf.SameSite(sameSite),
		csrf.TrustedOrigins(cfg.CSRFTrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Printf("CSRF check failed for %s %s: %v", r.Method, r.URL.Path, csrf.FailureReason(r))
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
		})),
	}

	protect := csrf.Protect(cfg.CSRFKey, opts...)
	protected := protect(r)
	if !cfg.CSRFSecure {
		protected = withPlaintextHTTP(protected)
	}

	return withCSRFTokHeader(protected)
}

// withPlaintextHTTP lets the CSRF origin checks accept http:// when cookies are not marked secure.
func withPlaintextHTTP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
	})
}

func withCSRFTokHeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead:
			w.Header().Set("X-CSRF-Token", csrf.Token(r))
		}
		next.ServeHTTP(w, r)
	})
}

func startServer(handler http.Handler, port string) {
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  serverIdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("Starting server on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed to start:", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown failed: %v", err)
	}
}
