package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/kjannette/stroomslim-backend/internal/alerts"
	"github.com/kjannette/stroomslim-backend/internal/logging"
	"github.com/kjannette/stroomslim-backend/internal/models"
	"github.com/kjannette/stroomslim-backend/internal/pricing"
)

const maxCheapestHours = 48

var (
	errHoursInvalid = errors.New("hours must be a positive integer")
	errDaysInvalid  = errors.New("days must be a positive integer")
)

// PriceService is the read side of the price source.
type PriceService interface {
	CurrentPrice(ctx context.Context, now time.Time) (models.PricePoint, error)
	Today(ctx context.Context, now time.Time) (pricing.Series, error)
	History(ctx context.Context, now time.Time, days int) ([]pricing.DayHistory, error)
	Location() *time.Location
}

// AlertTrigger runs one alert pass on demand.
type AlertTrigger interface {
	RunNow(ctx context.Context) (*alerts.RunSummary, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	Port       int
	APIKey     string
	CORSOrigin string
	DB         Pinger
	Prices     PriceService
	// Alerts is nil when email alerts are disabled.
	Alerts AlertTrigger
	Logger *slog.Logger
	Now    func() time.Time
}

type Server struct {
	db         Pinger
	prices     PriceService
	alerts     AlertTrigger
	apiKey     string
	logger     *slog.Logger
	now        func() time.Time
	router     *chi.Mux
	httpServer *http.Server
}

func NewServer(opts Options) *Server {
	s := &Server{
		db:     opts.DB,
		prices: opts.Prices,
		alerts: opts.Alerts,
		apiKey: opts.APIKey,
		logger: logging.OrDiscard(opts.Logger).With("component", "api"),
		now:    opts.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(opts.CORSOrigin))
	r.Use(s.authMiddleware)

	// Health check (no auth required)
	r.Get("/health", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/prices/today", s.handlePricesToday)
		r.Get("/prices/current", s.handleCurrentPrice)
		r.Get("/prices/cheapest", s.handleCheapest)
		r.Get("/prices/history", s.handleHistory)
		r.Post("/alerts/run", s.handleRunAlerts)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:        fmt.Sprintf(":%d", opts.Port),
		Handler:     r,
		ReadTimeout: 10 * time.Second,
		// Manual alert runs answer synchronously.
		WriteTimeout: 2 * time.Minute,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info("REST API server started",
		"addr", "http://localhost"+s.httpServer.Addr,
		"auth", s.apiKey != "",
		"alerts", s.alerts != nil,
	)
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(allowOrigin string) func(http.Handler) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("http request",
				"request_id", chimiddleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"duration_ms", float64(time.Since(start).Microseconds())/1000,
			)
		})
	}
}

// --- validation helpers ---

func parseHours(r *http.Request, defaultHours int) (int, error) {
	v := r.URL.Query().Get("hours")
	if v == "" {
		return defaultHours, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errHoursInvalid
	}
	if n > maxCheapestHours {
		return maxCheapestHours, nil
	}
	return n, nil
}

func parseDays(r *http.Request) (int, error) {
	v := r.URL.Query().Get("days")
	if v == "" {
		return pricing.DefaultHistoryDays, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, errDaysInvalid
	}
	if n > pricing.MaxHistoryDays {
		return pricing.MaxHistoryDays, nil
	}
	return n, nil
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
