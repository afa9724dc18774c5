/*
File: server.go
Version: 4.0.0
Description: HTTP prediction service. GET/POST /predict classify one URL, /healthz reports
             model and cache state, /robots.txt keeps crawlers out. Requests pass the
             limiter first; identical concurrent URLs are coalesced and results cached.
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultServerTimeout = 5 * time.Second
	// Room for the JSON envelope around the URL in POST bodies.
	maxBodyOverhead = 1024
)

// Classifier is the part of the Predictor the service depends on.
type Classifier interface {
	Predict(url string) (*Prediction, error)
}

type Server struct {
	cfg        *Config
	classifier Classifier
	cache      *PredictionCache
	flight     *ShardedGroup[*Prediction]
	limiter    *Limiter
	started    time.Time
}

type predictRequest struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewServer(cfg *Config, c Classifier) (*Server, error) {
	limiter, err := NewLimiter(cfg.Server.RateLimit, cfg.Server.AllowedClients)
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:        cfg,
		classifier: c,
		cache:      NewPredictionCache(cfg.Server.CacheSize),
		flight:     NewShardedGroup[*Prediction](),
		limiter:    limiter,
		started:    time.Now(),
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", s.admit(s.handlePredict))
	mux.HandleFunc("/healthz", s.admit(s.handleHealth))
	mux.HandleFunc("/robots.txt", handleRobotsTxt)
	return mux
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.RequestTimeout(),
		WriteTimeout:      2 * s.cfg.RequestTimeout(),
	}

	go s.limiter.StartCleanupRoutine(ctx)

	errCh := make(chan error, 1)
	go func() {
		LogInfo("[SERVER] Listening on http://%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	LogInfo("[SERVER] Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultServerTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

func handleRobotsTxt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("User-agent: *\nDisallow: /\n"))
}

// admit applies the limiter decision before calling next.
func (s *Server) admit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientIP := getIPFromRemoteAddr(r.RemoteAddr)
		action, delay, reason := s.limiter.Check(clientIP)
		switch action {
		case ActionDeny:
			LogWarn("[SERVER] %s", reason)
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
			return
		case ActionDrop:
			LogWarn("[SERVER] %s", reason)
			w.Header().Set("Retry-After", "1")
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		case ActionDelay:
			if IsDebugEnabled() {
				LogDebug("[SERVER] %s", reason)
			}
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-r.Context().Done():
				timer.Stop()
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout())
	defer cancel()

	var url string
	switch r.Method {
	case http.MethodGet:
		url = r.URL.Query().Get("url")
	case http.MethodPost:
		r.Body = http.MaxBytesReader(w, r.Body, int64(s.cfg.Server.MaxURLLength+maxBodyOverhead))
		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
			return
		}
		url = req.URL
	default:
		w.Header().Set("Allow", "GET, POST")
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	if strings.TrimSpace(url) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing url"})
		return
	}
	if len(url) > s.cfg.Server.MaxURLLength {
		writeJSON(w, http.StatusRequestURITooLong, errorResponse{Error: "url too long"})
		return
	}

	pred, err := s.classify(ctx, url)
	if err != nil {
		switch {
		case errors.Is(err, ErrMalformedURL):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "timeout"})
		default:
			LogError("[SERVER] Prediction for %q failed: %v", url, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "prediction failed"})
		}
		return
	}
	writeJSON(w, http.StatusOK, pred)
}

// classify serves from the cache when possible and otherwise runs the classifier
// once per URL among concurrent callers.
func (s *Server) classify(ctx context.Context, url string) (*Prediction, error) {
	if p, ok := s.cache.Get(url); ok {
		return &p, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pred, err, shared := s.flight.Do(url, func() (*Prediction, error) {
		p, err := s.classifier.Predict(url)
		if err != nil {
			return nil, err
		}
		s.cache.Add(url, *p)
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if shared && IsDebugEnabled() {
		LogDebug("[SERVER] Coalesced prediction for %s", url)
	}
	out := *pred
	return &out, nil
}

type healthResponse struct {
	Status     string     `json:"status"`
	Uptime     string     `json:"uptime"`
	ModelRunID string     `json:"model_run_id,omitempty"`
	Trees      int        `json:"trees,omitempty"`
	Features   int        `json:"features,omitempty"`
	Classes    []string   `json:"classes,omitempty"`
	UnderLoad  bool       `json:"under_load"`
	Cache      CacheStats `json:"cache"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
		UnderLoad: s.limiter.IsUnderLoad(),
		Cache:     s.cache.Stats(),
	}
	if m, ok := s.classifier.(interface{ Model() *ModelArtifact }); ok {
		if a := m.Model(); a != nil {
			resp.ModelRunID = a.RunID
			resp.Trees = len(a.Forest.Trees)
			resp.Features = len(a.Features)
			resp.Classes = a.Classes
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		LogDebug("[SERVER] Failed to write response: %v", err)
	}
}
