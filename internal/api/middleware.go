package api

import (
	"context"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/service"
	"github.com/Kerhoff/MenuRater/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	sessionKey   contextKey = "session"
	principalKey contextKey = "principal"
	requestKey   contextKey = "request_info"
)

// requestInfo is filled in by inner middleware so the request log can report
// who made the request.
type requestInfo struct {
	UserID int64
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey).(*session.Session)
	if sess == nil {
		return &session.Session{}
	}
	return sess
}

func principalFrom(ctx context.Context) models.Principal {
	p, _ := ctx.Value(principalKey).(models.Principal)
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs and measures every routed request.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		info := &requestInfo{}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestKey, info)))

		elapsed := time.Since(start)
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tmpl, err := current.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}
		if s.metrics != nil {
			s.metrics.ObserveRequest(r.Method, route, rec.status, elapsed)
		}

		entry := s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": elapsed.Milliseconds(),
			"user_id":     info.UserID,
		})
		if rec.status >= http.StatusInternalServerError {
			entry.Warn("HTTP request failed")
		} else {
			entry.Debug("HTTP request")
		}
	})
}

func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rv := recover(); rv != nil {
				if rv == http.ErrAbortHandler {
					panic(rv)
				}
				s.logger.WithFields(logrus.Fields{
					"panic": rv,
					"stack": string(debug.Stack()),
				}).Error("Panic in HTTP handler")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// loadSession attaches the caller's session to the request. Callers without
// a live session get an empty one; nothing is stored until ensureSession.
func (s *Server) loadSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &session.Session{}
		if cookie, err := r.Cookie(session.CookieName); err == nil && cookie.Value != "" {
			found, err := s.sessions.Get(r.Context(), cookie.Value)
			if err != nil {
				s.serverError(w, r, err)
				return
			}
			if found != nil {
				sess = found
			}
		}

		if info, ok := r.Context().Value(requestKey).(*requestInfo); ok {
			info.UserID = sess.UserID
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// ensureSession returns the request's session, creating and storing it first
// when the caller has none yet.
func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	sess := sessionFrom(r.Context())
	if sess.ID != "" {
		return sess, nil
	}
	created, err := s.sessions.New(r.Context())
	if err != nil {
		return nil, err
	}
	*sess = *created
	s.setSessionCookie(w, sess.ID)
	return sess, nil
}

// requireLogin resolves the session's user into a principal or sends the
// caller to the login page.
func (s *Server) requireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !sess.Authenticated() {
			s.flashRedirect(w, r, "Please log in to access this page.", "/login")
			return
		}

		p, err := s.svc.ResolvePrincipal(r.Context(), sess.UserID)
		if errors.Is(err, service.ErrUnauthenticated) {
			s.flashRedirect(w, r, "Please log in to access this page.", "/login")
			return
		}
		if err != nil {
			s.serverError(w, r, err)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, p)))
	})
}

func (s *Server) setSessionCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     session.CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(s.sessionTTL / time.Second),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}
