package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"quiz-agent/internal/application/port/input"
	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/domain/entity"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog"
)

const maxBodyBytes = 1 << 20

type Options struct {
	// ServiceName tags every request log line.
	ServiceName string
	// AccessLog turns on per-request logging through httplog.
	AccessLog bool
	// LogLevel is the service log level; httplog logs through zerolog, so it
	// is translated rather than shared with the zap logger.
	LogLevel string
}

type Server struct {
	dispatcher input.RunDispatcher
	logger     output.LoggerPort
	router     chi.Router
}

func NewServer(dispatcher input.RunDispatcher, logger output.LoggerPort, opts Options) *Server {
	s := &Server{dispatcher: dispatcher, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.AccessLog {
		name := opts.ServiceName
		if name == "" {
			name = "quiz-agent"
		}
		r.Use(httplog.RequestLogger(httplog.NewLogger(name, httplog.Options{
			JSON:     true,
			Concise:  true,
			LogLevel: AccessLogLevel(opts.LogLevel),
		})))
	}
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleStart)
	r.Get("/health", s.handleHealth)

	s.router = r
	return s
}

// AccessLogLevel maps a zap level name onto one zerolog accepts. httplog
// exits the process on a level it cannot parse, so unknown names fall back
// to info.
func AccessLogLevel(level string) string {
	switch l := strings.ToLower(strings.TrimSpace(level)); l {
	case "debug", "info", "warn", "error", "panic", "fatal":
		return l
	case "warning":
		return "warn"
	case "dpanic":
		return "panic"
	}
	return "info"
}

func (s *Server) Handler() http.Handler {
	return s.router
}

type startRequest struct {
	Email  string
	Secret string
	URL    string
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || body == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Invalid JSON"})
		return
	}

	req, ok := parseStart(body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Missing fields"})
		return
	}

	runID := s.dispatcher.Dispatch(entity.Session{
		Email:    req.Email,
		Secret:   req.Secret,
		StartURL: req.URL,
	})
	s.logger.Info("Quiz request accepted",
		"run_id", runID,
		"request_id", middleware.GetReqID(r.Context()),
		"url", req.URL,
	)

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Quiz processing started",
		"status":  "ok",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

// parseStart requires email, secret and url to be non-empty strings.
func parseStart(body map[string]any) (startRequest, bool) {
	email, _ := body["email"].(string)
	secret, _ := body["secret"].(string)
	url, _ := body["url"].(string)
	if email == "" || secret == "" || url == "" {
		return startRequest{}, false
	}
	return startRequest{Email: email, Secret: secret, URL: url}, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
