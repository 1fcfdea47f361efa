package models

import "time"

// QuestEventType - тип события квеста.
type QuestEventType string

const (
	QuestEventSaved               QuestEventType = "quest.saved"
	QuestEventDeleted             QuestEventType = "quest.deleted"
	QuestEventImported            QuestEventType = "quest.imported"
	QuestEventExported            QuestEventType = "quest.exported"
	QuestEventAchievementUnlocked QuestEventType = "quest.achievement_unlocked"
)

// QuestEvent - сообщение, публикуемое в шину событий.
type QuestEvent struct {
	Type        QuestEventType `json:"type"`
	QuestID     string         `json:"quest_id,omitempty"`
	Title       string         `json:"title"`
	Format      string         `json:"format,omitempty"`
	Achievement string         `json:"achievement,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}
