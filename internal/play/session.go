package play

import (
	"errors"
	"fmt"

	"quest-maker/internal/models"
)

// ErrInvalidSession - снимок сессии нарушает инварианты и не может быть восстановлен.
var ErrInvalidSession = errors.New("invalid play session snapshot")

// Session - состояние одного прохождения.
type Session struct {
	CurrentID    string   `json:"currentId"`
	History      []string `json:"history"`      // Ветка отбрасывается при расхождении
	HistoryIndex int      `json:"historyIndex"` // Указатель в History
	Visited      []string `json:"visited"`      // Множество в порядке первого посещения
	Unlocked     []string `json:"unlocked"`     // Без повторов, в порядке открытия
}

// NewSession возвращает начальное состояние прохождения.
func NewSession() Session {
	return Session{
		CurrentID:    models.StartID,
		History:      []string{models.StartID},
		HistoryIndex: 0,
		Visited:      []string{models.StartID},
		Unlocked:     []string{},
	}
}

// Clone возвращает глубокую копию.
func (s Session) Clone() Session {
	return Session{
		CurrentID:    s.CurrentID,
		History:      append([]string{}, s.History...),
		HistoryIndex: s.HistoryIndex,
		Visited:      append([]string{}, s.Visited...),
		Unlocked:     append([]string{}, s.Unlocked...),
	}
}

// HasVisited сообщает, достигался ли сценарий в этой сессии.
func (s Session) HasVisited(id string) bool {
	return contains(s.Visited, id)
}

// HasUnlocked сообщает, открыто ли достижение.
func (s Session) HasUnlocked(name string) bool {
	return contains(s.Unlocked, name)
}

// Validate проверяет инварианты снимка.
func (s Session) Validate() error {
	if len(s.History) == 0 {
		return fmt.Errorf("%w: empty history", ErrInvalidSession)
	}
	if s.HistoryIndex < 0 || s.HistoryIndex >= len(s.History) {
		return fmt.Errorf("%w: history index %d out of range [0,%d)", ErrInvalidSession, s.HistoryIndex, len(s.History))
	}
	// CurrentID может отличаться от History[HistoryIndex], если текущий сценарий удалили во время игры
	if s.CurrentID == "" {
		return fmt.Errorf("%w: empty current scenario", ErrInvalidSession)
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
