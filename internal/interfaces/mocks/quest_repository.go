package mocks

import (
	"context"

	"quest-maker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// QuestRepository is a mock type for the QuestRepository type
type QuestRepository struct {
	mock.Mock
}

func (m *QuestRepository) Save(ctx context.Context, quest *models.SavedQuest) (uuid.UUID, error) {
	args := m.Called(ctx, quest)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *QuestRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.SavedQuest, error) {
	args := m.Called(ctx, id)
	if q, ok := args.Get(0).(*models.SavedQuest); ok {
		return q, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *QuestRepository) List(ctx context.Context, limit, offset int) ([]models.SavedQuestSummary, error) {
	args := m.Called(ctx, limit, offset)
	if list, ok := args.Get(0).([]models.SavedQuestSummary); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *QuestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
