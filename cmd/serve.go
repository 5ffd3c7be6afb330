package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/trustlens/internal/analyze"
	"github.com/sells-group/trustlens/internal/model"
)

var servePort int

// analysisService is the part of analyze.Analyzer the HTTP layer needs.
type analysisService interface {
	Analyze(ctx context.Context, url string) (*model.AnalysisReport, error)
	History(ctx context.Context, url string) (*model.HistoryResult, error)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initAnalyzer(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           buildRouter(env.Analyzer, cfg.Server.AllowedOrigins, cfg.Server.RateLimitPerMinute),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// buildRouter wires the HTTP routes. perMinute <= 0 disables rate limiting.
func buildRouter(svc analysisService, origins []string, perMinute int) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	limiter := newClientLimiter(perMinute)
	r.With(limiter.middleware).Post("/analyze", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a url field")
			return
		}
		if req.URL == "" {
			writeError(w, http.StatusBadRequest, string(analyze.KindInvalidURL), "url is required")
			return
		}

		report, err := svc.Analyze(r.Context(), req.URL)
		if err != nil {
			writeAnalyzeError(w, req.URL, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	})

	r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
		u := r.URL.Query().Get("url")
		if u == "" {
			writeError(w, http.StatusBadRequest, string(analyze.KindInvalidURL), "url query parameter is required")
			return
		}
		h, err := svc.History(r.Context(), u)
		if err != nil {
			writeAnalyzeError(w, u, err)
			return
		}
		writeJSON(w, http.StatusOK, h)
	})

	return r
}

func writeAnalyzeError(w http.ResponseWriter, url string, err error) {
	kind := analyze.KindOf(err)
	switch kind {
	case analyze.KindInvalidURL:
		writeError(w, http.StatusBadRequest, string(kind), err.Error())
	case analyze.KindFetchBlocked, analyze.KindFetchFailed:
		writeError(w, http.StatusUnprocessableEntity, string(kind), err.Error())
	default:
		zap.L().Error("serve: request failed", zap.String("url", url), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "analysis failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]string{"error": kind, "message": msg})
}

// limiterIdle is how long a client bucket may sit unused before it is
// dropped. Buckets refill within a minute, so an evicted client starts
// with the same allowance it would have had.
const limiterIdle = 10 * time.Minute

// clientLimiter keeps one token bucket per client IP.
type clientLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*clientBucket
	limit     rate.Limit
	burst     int
	lastSweep time.Time
	now       func() time.Time
}

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perMinute int) *clientLimiter {
	if perMinute <= 0 {
		return nil
	}
	return &clientLimiter{
		limiters: make(map[string]*clientBucket),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		now:      time.Now,
	}
}

func (c *clientLimiter) get(client string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= limiterIdle {
		c.sweep(now)
	}
	b, ok := c.limiters[client]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(c.limit, c.burst)}
		c.limiters[client] = b
	}
	b.lastSeen = now
	return b.lim
}

// sweep drops buckets idle for longer than limiterIdle. Callers hold mu.
func (c *clientLimiter) sweep(now time.Time) {
	for k, b := range c.limiters {
		if now.Sub(b.lastSeen) > limiterIdle {
			delete(c.limiters, k)
		}
	}
	c.lastSweep = now
}

func (c *clientLimiter) middleware(next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !c.get(clientKey(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "too many analysis requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
