package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Kerhoff/MenuRater/internal/service"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := q.Get("search")
	view := service.NormalizeView(q.Get("view"))

	restaurants, err := s.svc.ListRestaurants(r.Context(), principalFrom(r.Context()), search, view)
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, "index.html", "Restaurants", indexBody{
		Restaurants: restaurants,
		Search:      search,
		View:        view,
	})
}

func (s *Server) handleAddRestaurant(w http.ResponseWriter, r *http.Request) {
	name, ok := formValue(r, "name")
	if !ok {
		s.badRequest(w, "name is required")
		return
	}

	_, err := s.svc.AddRestaurant(r.Context(), principalFrom(r.Context()), name)
	var verr *service.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, "/", http.StatusFound)
	case errors.As(err, &verr):
		s.flashRedirect(w, r, verr.Message, "/")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid restaurant id")
		return
	}
	username, ok := formValue(r, "username")
	if !ok {
		s.badRequest(w, "username is required")
		return
	}

	err = s.svc.ShareRestaurant(r.Context(), principalFrom(r.Context()), id, username)
	switch {
	case err == nil:
		s.flashRedirect(w, r, fmt.Sprintf("Restaurant shared with %s", username), "/")
	case errors.Is(err, service.ErrNotFound):
		s.flashRedirect(w, r, "Restaurant not found.", "/")
	case errors.Is(err, service.ErrForbidden):
		s.flashRedirect(w, r, "You can only share restaurants you own.", "/")
	case errors.Is(err, service.ErrUserNotFound):
		s.flashRedirect(w, r, "User not found.", "/")
	case errors.Is(err, service.ErrAlreadyShared):
		s.flashRedirect(w, r, "Restaurant already shared with this user.", "/")
	default:
		s.serverError(w, r, err)
	}
}
