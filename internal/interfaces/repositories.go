package interfaces

import (
	"context"

	"quest-maker/internal/models"
	"quest-maker/internal/play"

	"github.com/google/uuid"
)

// QuestRepository - библиотека сохранённых квестов.
//
//go:generate mockery --name QuestRepository --output ./mocks --outpkg mocks --case=underscore
type QuestRepository interface {
	// Save создает запись, если quest.ID нулевой, иначе обновляет существующую.
	// Возвращает ID записи.
	Save(ctx context.Context, quest *models.SavedQuest) (uuid.UUID, error)

	// GetByID возвращает квест вместе с документом.
	// Returns models.ErrQuestNotFound if no quest with the given ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (*models.SavedQuest, error)

	// List возвращает записи без документов, свежие первыми.
	List(ctx context.Context, limit, offset int) ([]models.SavedQuestSummary, error)

	// Delete удаляет запись. Returns models.ErrQuestNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRepository хранит снимки прохождения между перезапусками.
//
//go:generate mockery --name SessionRepository --output ./mocks --outpkg mocks --case=underscore
type SessionRepository interface {
	SaveSnapshot(ctx context.Context, workspaceID string, session play.Session) error
	// GetSnapshot returns models.ErrSnapshotNotFound if nothing is stored.
	GetSnapshot(ctx context.Context, workspaceID string) (*play.Session, error)
	DeleteSnapshot(ctx context.Context, workspaceID string) error
}
