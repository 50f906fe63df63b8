package api

import (
	"encoding/json"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/metrics"
	"github.com/Kerhoff/MenuRater/internal/service"
	"github.com/Kerhoff/MenuRater/internal/session"
)

// Options tune the HTTP surface.
type Options struct {
	SessionTTL         time.Duration
	CookieSecure       bool
	CORSAllowedOrigins []string
}

// Server provides the HTML pages and form endpoints.
type Server struct {
	svc          *service.Service
	sessions     session.Store
	metrics      *metrics.Metrics
	logger       *logrus.Logger
	templates    map[string]*template.Template
	sessionTTL   time.Duration
	cookieSecure bool
	handler      http.Handler
}

// NewServer creates a Server and registers all routes. m may be nil.
func NewServer(svc *service.Service, sessions session.Store, m *metrics.Metrics, logger *logrus.Logger, opts Options) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		svc:          svc,
		sessions:     sessions,
		metrics:      m,
		logger:       logger,
		templates:    templates,
		sessionTTL:   opts.SessionTTL,
		cookieSecure: opts.CookieSecure,
	}

	router := mux.NewRouter()
	s.routes(router)

	s.handler = router
	if len(opts.CORSAllowedOrigins) > 0 {
		s.handler = cors.New(cors.Options{
			AllowedOrigins:   opts.CORSAllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost},
			AllowCredentials: true,
		}).Handler(router)
	}
	return s, nil
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(r *mux.Router) {
	r.Use(s.logRequests, s.recoverPanics, s.loadSession)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/register", s.handleRegisterForm).Methods(http.MethodGet)
	r.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/login", s.handleLoginForm).Methods(http.MethodGet)
	r.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/logout", s.handleLogout).Methods(http.MethodGet)

	protected := r.NewRoute().Subrouter()
	protected.Use(s.requireLogin)

	protected.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	protected.HandleFunc("/add", s.handleAddRestaurant).Methods(http.MethodPost)
	protected.HandleFunc("/share/{id:[0-9]+}", s.handleShare).Methods(http.MethodPost)
	protected.HandleFunc("/restaurant/{id:[0-9]+}", s.handleViewMenuItems).Methods(http.MethodGet)
	protected.HandleFunc("/restaurant/{id:[0-9]+}/add_menu_item", s.handleAddMenuItem).Methods(http.MethodPost)
	protected.HandleFunc("/menu_item/{id:[0-9]+}/rate", s.handleRate).Methods(http.MethodPost)
	protected.HandleFunc("/menu_item/{id:[0-9]+}/update_notes", s.handleUpdateNotes).Methods(http.MethodPost)
	protected.HandleFunc("/menu_item/{id:[0-9]+}/history", s.handleHistory).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"service":   "menurater",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

func (s *Server) badRequest(w http.ResponseWriter, message string) {
	http.Error(w, message, http.StatusBadRequest)
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.WithError(err).WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Error("Request failed")
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// flashRedirect queues a notice on the caller's session and redirects.
func (s *Server) flashRedirect(w http.ResponseWriter, r *http.Request, message, target string) {
	sess, err := s.ensureSession(w, r)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.sessions.AddFlash(r.Context(), sess.ID, message); err != nil {
		s.serverError(w, r, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// ---------------------------------------------------------------------------
// Request helpers
// ---------------------------------------------------------------------------

// pathID extracts the {id} route variable and converts it to int64.
func pathID(r *http.Request) (int64, error) {
	raw, ok := mux.Vars(r)["id"]
	if !ok {
		return 0, fmt.Errorf("missing id in path")
	}
	return strconv.ParseInt(raw, 10, 64)
}

// formValue returns a posted field and whether it was present at all.
func formValue(r *http.Request, key string) (string, bool) {
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	values, ok := r.PostForm[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return values[0], true
}

// parseRating rejects anything that is not a finite float.
func parseRating(raw string) (float64, error) {
	rating, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid rating %q: %w", raw, err)
	}
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0, fmt.Errorf("invalid rating %q: not a finite number", raw)
	}
	return rating, nil
}
