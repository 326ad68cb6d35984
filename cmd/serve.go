package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/comps-valuation/internal/export"
	"github.com/sells-group/comps-valuation/internal/model"
	"github.com/sells-group/comps-valuation/internal/resilience"
	"github.com/sells-group/comps-valuation/internal/store"
)

var servePort int

const maxRequestBody = 1 << 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the valuation HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}

		env, err := initEnv(ctx, "serve")
		if err != nil {
			return err
		}
		defer env.Close()

		api := &apiServer{
			store:    env.Store,
			runner:   env.Pipeline,
			breakers: env.Breakers,
			health: healthFlags{
				LLM:    cfg.LLM.Provider,
				Market: cfg.Market.Provider,
				Search: env.Search,
			},
			now: time.Now,
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           api.routes(cfg.Server.AllowedOrigins),
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

		zap.L().Info("starting server", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// analysisRunner runs one analysis. Implemented by *pipeline.Pipeline.
type analysisRunner interface {
	Run(ctx context.Context, req model.AnalysisRequest) (*model.Analysis, error)
}

type healthFlags struct {
	LLM    string
	Market string
	Search bool
}

type apiServer struct {
	store    store.Store
	runner   analysisRunner
	breakers *resilience.Registry
	health   healthFlags
	now      func() time.Time
}

func (s *apiServer) routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/ping", s.handlePing)
	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/analyses", s.handleList)
		r.Get("/analysis/{id}", s.handleGet)
		r.Get("/analysis/{id}/export", s.handleExport)
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *apiServer) handlePing(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"service":   "comps-valuation",
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	storageOK := s.store.Ping(r.Context()) == nil
	status := "healthy"
	if !storageOK {
		status = "degraded"
	}

	body := map[string]any{
		"status":    status,
		"timestamp": s.now().UTC().Format(time.RFC3339),
		"dependencies": map[string]any{
			"llm":            s.health.LLM,
			"marketData":     s.health.Market,
			"storage":        storageOK,
			"documentSearch": s.health.Search,
		},
	}
	if s.breakers != nil {
		body["circuitBreakers"] = s.breakers.States()
	}
	respondJSON(w, http.StatusOK, body)
}

func (s *apiServer) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "request body must be a JSON object")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	a, err := s.runner.Run(r.Context(), req)
	if err != nil {
		zap.L().Error("analysis failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Analysis failed", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *apiServer) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AnalysisFilter{Status: model.AnalysisStatus(q.Get("status"))}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "limit must be an integer")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", "offset must be an integer")
		return
	}

	list, err := s.store.ListAnalyses(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list analyses", err.Error())
		return
	}
	if list == nil {
		list = []model.Analysis{}
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *apiServer) handleGet(w http.ResponseWriter, r *http.Request) {
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, a)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}
	a, ok := s.lookup(w, r)
	if !ok {
		return
	}

	now := s.now()
	var buf bytes.Buffer
	if err := export.Write(&buf, a, format, now); err != nil {
		if errors.Is(err, export.ErrNoResults) {
			respondError(w, http.StatusNotFound, "Analysis or comparable data not found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "Export failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(a.ID, format, now)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// lookup loads the analysis named by the {id} path parameter, writing a 404
// or 500 response when it cannot.
func (s *apiServer) lookup(w http.ResponseWriter, r *http.Request) (*model.Analysis, bool) {
	a, err := s.store.GetAnalysis(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "Analysis not found", "")
			return nil, false
		}
		respondError(w, http.StatusInternalServerError, "Failed to retrieve analysis", err.Error())
		return nil, false
	}
	return a, true
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, msg, detail string) {
	body := map[string]string{"error": msg}
	if detail != "" {
		body["message"] = detail
	}
	respondJSON(w, status, body)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
