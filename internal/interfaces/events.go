package interfaces

import (
	"context"

	"quest-maker/internal/models"
)

// EventPublisher публикует события квеста.
//
//go:generate mockery --name EventPublisher --output ./mocks --outpkg mocks --case=underscore
type EventPublisher interface {
	PublishQuestEvent(ctx context.Context, event models.QuestEvent) error
	Close() error
}
