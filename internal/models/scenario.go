package models

import (
	"strings"
	"unicode"
)

// StartID - идентификатор обязательного стартового сценария.
const StartID = "start"

// Choice - подпись перехода и идентификатор целевого сценария.
// Ссылка не проверяется при создании: цель может ещё не существовать.
type Choice struct {
	Text string `json:"text"`
	Next string `json:"next"`
}

// Scenario - узел истории.
type Scenario struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	Location    string   `json:"location"`
	Choices     []Choice `json:"choices"`
	Ending      bool     `json:"ending"`      // Описательный флаг, не блокирует выборы
	Achievement string   `json:"achievement"` // Пустая строка = достижения нет
	EndingText  string   `json:"endingText"`  // Эпилог, показывается вместе с Text
}

// Clone возвращает копию сценария с собственным срезом выборов.
func (s Scenario) Clone() Scenario {
	c := s
	if s.Choices != nil {
		c.Choices = make([]Choice, len(s.Choices))
		copy(c.Choices, s.Choices)
	}
	return c
}

// Equal сравнивает сценарии поле за полем; nil и пустой список выборов равны.
func (s Scenario) Equal(o Scenario) bool {
	if s.ID != o.ID || s.Text != o.Text || s.Location != o.Location ||
		s.Ending != o.Ending || s.Achievement != o.Achievement || s.EndingText != o.EndingText {
		return false
	}
	if len(s.Choices) != len(o.Choices) {
		return false
	}
	for i := range s.Choices {
		if s.Choices[i] != o.Choices[i] {
			return false
		}
	}
	return true
}

// NewPlaceholderScenario создает сценарий-заготовку для редактора.
func NewPlaceholderScenario(id string) Scenario {
	return Scenario{
		ID:       id,
		Text:     "New scenario text here...",
		Location: "📍 New Location",
		Choices:  []Choice{{Text: "Choice 1", Next: StartID}},
	}
}

// DefaultChoice - выбор, добавляемый редактором по умолчанию.
func DefaultChoice() Choice {
	return Choice{Text: "New choice", Next: StartID}
}

// SanitizeID обрезает пробелы и удаляет все символы кроме [A-Za-z0-9_].
func SanitizeID(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if r == '_' || (r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
