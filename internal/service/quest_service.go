package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"quest-maker/internal/interfaces"
	"quest-maker/internal/models"
	"quest-maker/internal/play"
	"quest-maker/internal/serializer"
	"quest-maker/internal/workspace"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultWorkspaceID - ключ снимков прохождения единственного рабочего пространства.
const DefaultWorkspaceID = "default"

const eventTimeout = 5 * time.Second

// QuestEventSink получает события квеста, например для рассылки по WebSocket.
type QuestEventSink interface {
	QuestEvent(event models.QuestEvent)
}

// QuestService связывает рабочее пространство с библиотекой, снимками прохождения и шиной событий.
// Библиотека и снимки необязательны: без них соответствующие операции возвращают ErrStorageOffline
// или просто не сохраняют прохождение.
type QuestService struct {
	ws          *workspace.Workspace
	quests      interfaces.QuestRepository
	sessions    interfaces.SessionRepository
	publisher   interfaces.EventPublisher
	sink        QuestEventSink
	workspaceID string
	logger      *zap.Logger

	mu        sync.Mutex
	libraryID uuid.UUID // Запись библиотеки, из которой открыт текущий квест
}

// Option настраивает QuestService.
type Option func(*QuestService)

// WithQuestRepository подключает библиотеку квестов.
func WithQuestRepository(repo interfaces.QuestRepository) Option {
	return func(s *QuestService) { s.quests = repo }
}

// WithSessionRepository подключает хранилище снимков прохождения.
func WithSessionRepository(repo interfaces.SessionRepository) Option {
	return func(s *QuestService) { s.sessions = repo }
}

// WithEventSink подключает получателя событий квеста.
func WithEventSink(sink QuestEventSink) Option {
	return func(s *QuestService) { s.sink = sink }
}

// WithWorkspaceID задаёт ключ снимков прохождения.
func WithWorkspaceID(id string) Option {
	return func(s *QuestService) { s.workspaceID = id }
}

// NewQuestService создает сервис. publisher обязателен: без брокера передается NopPublisher.
func NewQuestService(ws *workspace.Workspace, publisher interfaces.EventPublisher, logger *zap.Logger, opts ...Option) *QuestService {
	s := &QuestService{
		ws:          ws,
		publisher:   publisher,
		workspaceID: DefaultWorkspaceID,
		logger:      logger.Named("QuestService"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Workspace возвращает рабочее пространство для операций редактора.
func (s *QuestService) Workspace() *workspace.Workspace {
	return s.ws
}

// EnterPlay начинает прохождение. При resume восстанавливается сохранённый снимок;
// отсутствующий или испорченный снимок означает новое прохождение.
func (s *QuestService) EnterPlay(ctx context.Context, resume bool) (workspace.PlayState, error) {
	var snapshot *play.Session
	if resume && s.sessions != nil {
		snap, err := s.sessions.GetSnapshot(ctx, s.workspaceID)
		switch {
		case err == nil:
			snapshot = snap
		case errors.Is(err, models.ErrSnapshotNotFound):
			s.logger.Debug("No play snapshot to resume, starting fresh")
		default:
			s.logger.Warn("Failed to load play snapshot, starting fresh", zap.Error(err))
		}
	}

	state, err := s.ws.EnterPlay(ctx, snapshot)
	if err != nil && snapshot != nil && errors.Is(err, play.ErrInvalidSession) {
		s.logger.Warn("Stored play snapshot is invalid, starting fresh", zap.Error(err))
		state, err = s.ws.EnterPlay(ctx, nil)
	}
	if err != nil {
		return workspace.PlayState{}, err
	}
	s.saveSnapshot(ctx, state.Session)
	return state, nil
}

// ExitPlay завершает прохождение и удаляет его снимок.
func (s *QuestService) ExitPlay(ctx context.Context) error {
	if err := s.ws.ExitPlay(ctx); err != nil {
		return err
	}
	s.dropSnapshot(ctx)
	return nil
}

// PlayState возвращает состояние прохождения.
func (s *QuestService) PlayState(ctx context.Context) (workspace.PlayState, error) {
	return s.ws.PlayState(ctx)
}

// Choose выполняет выбор.
func (s *QuestService) Choose(ctx context.Context, next string) (workspace.PlayState, error) {
	state, err := s.ws.Choose(ctx, next)
	switch {
	case err == nil:
		choicesTotal.WithLabelValues("ok").Inc()
	case errors.Is(err, models.ErrDanglingReference):
		choicesTotal.WithLabelValues("dangling").Inc()
		return workspace.PlayState{}, err
	default:
		return workspace.PlayState{}, err
	}
	s.saveSnapshot(ctx, state.Session)
	return state, nil
}

// Back шагает назад по истории.
func (s *QuestService) Back(ctx context.Context) (workspace.PlayState, error) {
	return s.navigate(ctx, s.ws.Back)
}

// Forward шагает вперёд по истории.
func (s *QuestService) Forward(ctx context.Context) (workspace.PlayState, error) {
	return s.navigate(ctx, s.ws.Forward)
}

// JumpTo переходит к записи истории.
func (s *QuestService) JumpTo(ctx context.Context, index int) (workspace.PlayState, error) {
	return s.navigate(ctx, func(ctx context.Context) (workspace.PlayState, error) {
		return s.ws.JumpTo(ctx, index)
	})
}

func (s *QuestService) navigate(ctx context.Context, op func(context.Context) (workspace.PlayState, error)) (workspace.PlayState, error) {
	state, err := op(ctx)
	if err != nil {
		return workspace.PlayState{}, err
	}
	s.saveSnapshot(ctx, state.Session)
	return state, nil
}

// Ошибка хранилища снимков не прерывает прохождение.
func (s *QuestService) saveSnapshot(ctx context.Context, session play.Session) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.SaveSnapshot(ctx, s.workspaceID, session); err != nil {
		s.logger.Warn("Failed to persist play snapshot", zap.Error(err))
	}
}

func (s *QuestService) dropSnapshot(ctx context.Context) {
	if s.sessions == nil {
		return
	}
	if err := s.sessions.DeleteSnapshot(ctx, s.workspaceID); err != nil {
		s.logger.Warn("Failed to delete play snapshot", zap.Error(err))
	}
}

// Export сериализует текущий квест в выбранный формат.
func (s *QuestService) Export(ctx context.Context, format workspace.Format) (workspace.Artifact, error) {
	art, err := s.ws.Export(ctx, format)
	if err != nil {
		return workspace.Artifact{}, err
	}
	exportsTotal.WithLabelValues(string(format)).Inc()
	s.emit(ctx, models.QuestEvent{Type: models.QuestEventExported, QuestID: s.currentLibraryID(), Title: art.Title, Format: string(format)})
	s.logger.Info("Quest exported", zap.String("format", string(format)), zap.String("filename", art.Filename), zap.Int("bytes", len(art.Body)))
	return art, nil
}

// Import заменяет текущий квест содержимым файла. Активное прохождение и его снимок сбрасываются.
func (s *QuestService) Import(ctx context.Context, format workspace.Format, r io.Reader) (models.GameMeta, error) {
	meta, err := s.ws.Import(ctx, format, r)
	if err != nil {
		importsTotal.WithLabelValues(string(format), "failed").Inc()
		s.logger.Warn("Import rejected", zap.String("format", string(format)), zap.Error(err))
		return models.GameMeta{}, err
	}
	importsTotal.WithLabelValues(string(format), "ok").Inc()

	s.setLibraryID(uuid.Nil)
	s.dropSnapshot(ctx)
	s.emit(ctx, models.QuestEvent{Type: models.QuestEventImported, Title: meta.Title, Format: string(format)})
	return meta, nil
}

// SaveToLibrary сохраняет текущий квест. Квест, открытый из библиотеки, обновляет свою запись.
func (s *QuestService) SaveToLibrary(ctx context.Context) (*models.SavedQuest, error) {
	if s.quests == nil {
		return nil, models.ErrStorageOffline
	}
	meta, err := s.ws.Meta(ctx)
	if err != nil {
		return nil, err
	}
	doc, err := serializer.Dump(meta)
	if err != nil {
		return nil, err
	}

	quest := &models.SavedQuest{
		ID:       s.currentLibraryUUID(),
		Title:    meta.Title,
		Icon:     meta.Icon,
		Document: doc,
	}
	id, err := s.quests.Save(ctx, quest)
	if err != nil {
		return nil, fmt.Errorf("failed to save quest to library: %w", err)
	}
	quest.ID = id
	s.setLibraryID(id)
	librarySavesTotal.Inc()

	s.emit(ctx, models.QuestEvent{Type: models.QuestEventSaved, QuestID: id.String(), Title: meta.Title})
	return quest, nil
}

// ListLibrary возвращает сохранённые квесты, свежие первыми.
func (s *QuestService) ListLibrary(ctx context.Context, limit, offset int) ([]models.SavedQuestSummary, error) {
	if s.quests == nil {
		return nil, models.ErrStorageOffline
	}
	return s.quests.List(ctx, limit, offset)
}

// OpenFromLibrary заменяет текущий квест сохранённым.
func (s *QuestService) OpenFromLibrary(ctx context.Context, id uuid.UUID) (models.GameMeta, error) {
	if s.quests == nil {
		return models.GameMeta{}, models.ErrStorageOffline
	}
	saved, err := s.quests.GetByID(ctx, id)
	if err != nil {
		return models.GameMeta{}, err
	}
	meta, err := serializer.Load(saved.Document)
	if err != nil {
		s.logger.Error("Saved quest document is unreadable", zap.String("questID", id.String()), zap.Error(err))
		return models.GameMeta{}, err
	}
	if err := s.ws.Load(ctx, meta); err != nil {
		return models.GameMeta{}, err
	}
	s.setLibraryID(id)
	s.dropSnapshot(ctx)
	return meta, nil
}

// DeleteFromLibrary удаляет запись библиотеки. Текущий квест не меняется.
func (s *QuestService) DeleteFromLibrary(ctx context.Context, id uuid.UUID) error {
	if s.quests == nil {
		return models.ErrStorageOffline
	}
	if err := s.quests.Delete(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	if s.libraryID == id {
		s.libraryID = uuid.Nil
	}
	s.mu.Unlock()

	s.emit(ctx, models.QuestEvent{Type: models.QuestEventDeleted, QuestID: id.String()})
	return nil
}

func (s *QuestService) currentLibraryUUID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.libraryID
}

func (s *QuestService) currentLibraryID() string {
	if id := s.currentLibraryUUID(); id != uuid.Nil {
		return id.String()
	}
	return ""
}

func (s *QuestService) setLibraryID(id uuid.UUID) {
	s.mu.Lock()
	s.libraryID = id
	s.mu.Unlock()
}

// emit публикует событие. Ошибка брокера только логируется.
func (s *QuestService) emit(ctx context.Context, event models.QuestEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if s.sink != nil {
		s.sink.QuestEvent(event)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.publisher.PublishQuestEvent(pubCtx, event); err != nil {
		s.logger.Warn("Failed to publish quest event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}
