package api

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/service"
)

func (s *Server) handleRegisterForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "register.html", "Register", nil)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	username, ok := formValue(r, "username")
	if !ok {
		s.badRequest(w, "username is required")
		return
	}
	password, ok := formValue(r, "password")
	if !ok {
		s.badRequest(w, "password is required")
		return
	}

	_, err := s.svc.Register(r.Context(), username, password)
	var verr *service.ValidationError
	switch {
	case err == nil:
		s.flashRedirect(w, r, "Registration successful! Please log in.", "/login")
	case errors.Is(err, service.ErrConflict):
		s.flashRedirect(w, r, "Username already exists. Please choose a different one.", "/register")
	case errors.As(err, &verr):
		s.flashRedirect(w, r, verr.Message, "/register")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "login.html", "Log in", nil)
}

// handleLogin binds the user to a fresh session id so that an id issued
// before login is never reused after it.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	username, ok := formValue(r, "username")
	if !ok {
		s.badRequest(w, "username is required")
		return
	}
	password, ok := formValue(r, "password")
	if !ok {
		s.badRequest(w, "password is required")
		return
	}

	p, err := s.svc.Login(r.Context(), username, password)
	if errors.Is(err, service.ErrInvalidCredentials) {
		s.observeLogin(false)
		s.flashRedirect(w, r, "Invalid credentials. Please try again.", "/login")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.observeLogin(true)

	old := sessionFrom(r.Context())
	if old.ID != "" {
		if err := s.sessions.Destroy(r.Context(), old.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
	}
	sess, err := s.sessions.New(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.sessions.SetUser(r.Context(), sess.ID, p.UserID); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, sess.ID)

	s.logger.WithFields(logrus.Fields{"user_id": p.UserID, "username": p.Username}).Info("User logged in")
	http.Redirect(w, r, "/", http.StatusFound)
}

// handleLogout always ends on the login page, with or without a session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	old := sessionFrom(r.Context())
	if old.ID != "" {
		if err := s.sessions.Destroy(r.Context(), old.ID); err != nil {
			s.serverError(w, r, err)
			return
		}
	}

	sess, err := s.sessions.New(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	if err := s.sessions.AddFlash(r.Context(), sess.ID, "You have been logged out."); err != nil {
		s.serverError(w, r, err)
		return
	}
	s.setSessionCookie(w, sess.ID)

	if old.Authenticated() {
		s.logger.WithField("user_id", old.UserID).Info("User logged out")
	}
	http.Redirect(w, r, "/login", http.StatusFound)
}

func (s *Server) observeLogin(success bool) {
	if s.metrics != nil {
		s.metrics.ObserveLogin(success)
	}
}
