package service

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/events"
	"github.com/Kerhoff/MenuRater/internal/repository"
)

// maxNameLength matches the VARCHAR(100) name columns.
const maxNameLength = 100

// Service is the business logic layer. Each exported method runs in exactly
// one unit of work on the store and publishes its domain event after commit.
type Service struct {
	store     repository.Store
	logger    *logrus.Logger
	publisher events.Publisher
	now       func() time.Time
}

// New creates a new Service. A nil publisher discards events.
func New(store repository.Store, logger *logrus.Logger, publisher events.Publisher) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		store:     store,
		logger:    logger,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	event.Timestamp = s.now()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"type":          event.Type,
			"restaurant_id": event.RestaurantID,
		}).Warn("Failed to publish event")
	}
}

func validateName(name, what string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid(what + " name is required.")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid(what + " name must be at most 100 characters.")
	}
	return name, nil
}

func validateRating(rating float64) error {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return invalid("Rating must be a finite number.")
	}
	return nil
}
