package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"menuforge/internal/domain"

	"github.com/segmentio/kafka-go"
)

// RefreshNotifier receives a hint that a venue's menu changed, after the
// store has already refreshed; the websocket hub implements it.
type RefreshNotifier interface {
	NotifyMenuUpdated(venueSlug string)
}

// Consumer listens for menu change events and replaces the store's state
// wholesale on every insert/update/delete notification.
type Consumer struct {
	Reader   *kafka.Reader
	Store    MenuStoreInterface
	Notifier RefreshNotifier
}

func NewConsumer(reader *kafka.Reader, store MenuStoreInterface, notifier RefreshNotifier) *Consumer {
	return &Consumer{
		Reader:   reader,
		Store:    store,
		Notifier: notifier,
	}
}

func (c *Consumer) Start(ctx context.Context) {
	log.Println("Starting menu change consumer...")
	for {
		message, err := c.Reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Printf("Error reading message: %v", err)
			continue
		}

		var event domain.ChangeEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Printf("Error unmarshaling message: %v", err)
			continue
		}

		c.ProcessChange(ctx, event)
	}
}

func (c *Consumer) ProcessChange(ctx context.Context, event domain.ChangeEvent) {
	if event.Type != domain.ChangeEventMenuChanged {
		return
	}
	log.Printf("Processing change: table=%s venue=%q", event.Table, event.VenueSlug)

	if err := c.Store.Refresh(ctx, event.VenueSlug); err != nil && !errors.Is(err, ErrMenuEmpty) {
		log.Printf("Error refreshing menu for venue %q: %v", event.VenueSlug, err)
		return
	}

	if c.Notifier != nil {
		c.Notifier.NotifyMenuUpdated(event.VenueSlug)
	}
}
