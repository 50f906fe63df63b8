package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MenuRater/internal/events"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot posts a one-line summary of each domain event to an activity chat.
type Bot struct {
	api    sender
	chatID int64
	logger *logrus.Logger
}

var _ events.Publisher = (*Bot)(nil)

// NewBot creates a new Telegram bot instance
func NewBot(token string, chatID int64, logger *logrus.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}

	logger.Infof("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:    api,
		chatID: chatID,
		logger: logger,
	}, nil
}

// Publish sends the event summary. The Bot API call has no context support,
// so ctx is only checked before sending.
func (b *Bot) Publish(ctx context.Context, event events.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.logger.WithField("type", event.Type).Debug("Posting event to activity chat")
	return b.SendMessage(Summary(event))
}

// SendMessage sends plain text to the activity chat.
func (b *Bot) SendMessage(text string) error {
	msg := tgbotapi.NewMessage(b.chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return nil
}

// Summary renders an event as a single line of chat text.
func Summary(event events.Event) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s ", event.Username)

	switch event.Type {
	case events.MenuItemRated:
		fmt.Fprintf(&sb, "rated menu item #%d", event.MenuItemID)
		if event.Rating != nil {
			fmt.Fprintf(&sb, " %.1f", *event.Rating)
		}
	case events.MenuItemAnnotated:
		fmt.Fprintf(&sb, "updated notes on menu item #%d", event.MenuItemID)
	case events.RestaurantShared:
		fmt.Fprintf(&sb, "shared restaurant #%d with user #%d", event.RestaurantID, event.TargetUserID)
		return sb.String()
	default:
		fmt.Fprintf(&sb, "did %s", event.Type)
	}

	fmt.Fprintf(&sb, " in restaurant #%d", event.RestaurantID)
	return sb.String()
}
