package service

import (
	"context"
	"sync"

	"quest-maker/internal/interfaces"
	"quest-maker/internal/models"
	"quest-maker/internal/play"

	"go.uber.org/zap"
)

// UnlockNotifier раздаёт уведомления о достижениях получателям и публикует событие в шину.
// Вызывается из горутины рабочего пространства, поэтому публикация идёт в отдельной горутине.
type UnlockNotifier struct {
	targets   []play.Notifier
	publisher interfaces.EventPublisher
	logger    *zap.Logger
	inflight  sync.WaitGroup
}

var _ play.Notifier = (*UnlockNotifier)(nil)

// NewUnlockNotifier создает уведомитель. publisher может быть nil.
func NewUnlockNotifier(publisher interfaces.EventPublisher, logger *zap.Logger, targets ...play.Notifier) *UnlockNotifier {
	return &UnlockNotifier{
		targets:   targets,
		publisher: publisher,
		logger:    logger.Named("UnlockNotifier"),
	}
}

// AchievementUnlocked реализует play.Notifier.
func (n *UnlockNotifier) AchievementUnlocked(note play.Notification) {
	achievementsUnlockedTotal.Inc()
	n.logger.Info("Achievement unlocked", zap.String("achievement", note.Achievement))

	for _, t := range n.targets {
		t.AchievementUnlocked(note)
	}

	if n.publisher == nil {
		return
	}
	event := models.QuestEvent{
		Type:        models.QuestEventAchievementUnlocked,
		Achievement: note.Achievement,
		OccurredAt:  note.ShownAt.UTC(),
	}
	n.inflight.Add(1)
	go func() {
		defer n.inflight.Done()
		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		defer cancel()
		if err := n.publisher.PublishQuestEvent(ctx, event); err != nil {
			n.logger.Warn("Failed to publish achievement event", zap.String("achievement", event.Achievement), zap.Error(err))
		}
	}()
}

// Wait дожидается публикации уже отправленных событий.
// Вызывается при остановке после закрытия рабочего пространства и до закрытия publisher.
func (n *UnlockNotifier) Wait() {
	n.inflight.Wait()
}
