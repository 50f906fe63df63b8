package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Kerhoff/MenuRater/internal/models"
	"github.com/Kerhoff/MenuRater/internal/service"
)

func restaurantPath(id int64) string {
	return fmt.Sprintf("/restaurant/%d", id)
}

func (s *Server) handleViewMenuItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid restaurant id")
		return
	}

	restaurant, items, err := s.svc.ViewMenuItems(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		s.flashRedirect(w, r, "Restaurant not found.", "/")
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	s.render(w, r, "menu_items.html", restaurant.Name, menuItemsBody{
		Restaurant: restaurant,
		Items:      items,
	})
}

func (s *Server) handleAddMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid restaurant id")
		return
	}
	name, ok := formValue(r, "name")
	if !ok {
		s.badRequest(w, "name is required")
		return
	}
	rawRating, ok := formValue(r, "rating")
	if !ok {
		s.badRequest(w, "rating is required")
		return
	}
	rating, err := parseRating(rawRating)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var notes *string
	if v, ok := formValue(r, "notes"); ok {
		notes = &v
	}

	_, err = s.svc.AddMenuItem(r.Context(), principalFrom(r.Context()), id, name, rating, notes)
	var verr *service.ValidationError
	switch {
	case err == nil:
		http.Redirect(w, r, restaurantPath(id), http.StatusFound)
	case errors.Is(err, service.ErrNotFound):
		s.flashRedirect(w, r, "Restaurant not found.", "/")
	case errors.As(err, &verr):
		s.flashRedirect(w, r, verr.Message, restaurantPath(id))
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid menu item id")
		return
	}
	rawRating, ok := formValue(r, "rating")
	if !ok {
		s.badRequest(w, "rating is required")
		return
	}
	rating, err := parseRating(rawRating)
	if err != nil {
		s.badRequest(w, err.Error())
		return
	}
	var notes *string
	if v, ok := formValue(r, "notes"); ok {
		notes = &v
	}

	item, err := s.svc.RateMenuItem(r.Context(), principalFrom(r.Context()), id, rating, notes)
	s.finishRevision(w, r, item, err, "Rating updated successfully!", "You can only rate your own menu items.")
}

func (s *Server) handleUpdateNotes(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.badRequest(w, "invalid menu item id")
		return
	}
	notes, _ := formValue(r, "notes")

	item, err := s.svc.UpdateNotes(r.Context(), principalFrom(r.Context()), id, notes)
	s.finishRevision(w, r, item, err, "Notes updated successfully!", "You can only update notes for your own menu items.")
}

// finishRevision maps the outcome of a rate or notes update to a notice.
func (s *Server) finishRevision(w http.ResponseWriter, r *http.Request, item *models.MenuItem, err error, success, forbidden string) {
	var verr *service.ValidationError
	switch {
	case err == nil:
		s.flashRedirect(w, r, success, restaurantPath(item.RestaurantID))
	case errors.Is(err, service.ErrNotFound):
		s.flashRedirect(w, r, "Menu item not found.", "/")
	case errors.Is(err, service.ErrForbidden):
		s.flashRedirect(w, r, forbidden, restaurantPath(item.RestaurantID))
	case errors.As(err, &verr) && item != nil:
		s.flashRedirect(w, r, verr.Message, restaurantPath(item.RestaurantID))
	case errors.As(err, &verr):
		s.flashRedirect(w, r, verr.Message, "/")
	default:
		s.serverError(w, r, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid menu item id")
		return
	}

	revisions, err := s.svc.MenuItemHistory(r.Context(), id)
	if errors.Is(err, service.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "menu item not found")
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to get menu item history")
		s.respondError(w, http.StatusInternalServerError, "failed to get menu item history")
		return
	}

	s.respondJSON(w, http.StatusOK, revisions)
}
