// Package events publishes domain activity to external sinks. Publishing is
// best effort: callers log failures and carry on.
package events

import (
	"context"
	"errors"
	"time"
)

// Type names a kind of domain event.
type Type string

const (
	MenuItemRated     Type = "menu_item.rated"
	MenuItemAnnotated Type = "menu_item.annotated"
	RestaurantShared  Type = "restaurant.shared"
)

// Event is the wire form of a domain event.
type Event struct {
	Type         Type      `json:"type"`
	RestaurantID int64     `json:"restaurant_id"`
	MenuItemID   int64     `json:"menu_item_id,omitempty"`
	UserID       int64     `json:"user_id"`
	Username     string    `json:"username"`
	TargetUserID int64     `json:"target_user_id,omitempty"`
	Rating       *float64  `json:"rating,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Multi fans an event out to every publisher. One failing sink does not stop
// the others.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every publisher and joins their errors.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
