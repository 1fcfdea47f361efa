package mocks

import (
	"context"

	"quest-maker/internal/play"

	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock type for the SessionRepository type
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) SaveSnapshot(ctx context.Context, workspaceID string, session play.Session) error {
	args := m.Called(ctx, workspaceID, session)
	return args.Error(0)
}

func (m *SessionRepository) GetSnapshot(ctx context.Context, workspaceID string) (*play.Session, error) {
	args := m.Called(ctx, workspaceID)
	if s, ok := args.Get(0).(*play.Session); ok {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) DeleteSnapshot(ctx context.Context, workspaceID string) error {
	args := m.Called(ctx, workspaceID)
	return args.Error(0)
}
