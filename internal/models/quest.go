package models

import (
	"time"

	"github.com/google/uuid"
)

// GameMeta - квест целиком: заголовок, иконка и граф сценариев.
type GameMeta struct {
	Title     string `json:"title"`
	Icon      string `json:"icon"` // Задумано не длиннее двух видимых символов, не проверяется
	Scenarios *Graph `json:"scenarios"`
}

// Clone возвращает глубокую копию.
func (m GameMeta) Clone() GameMeta {
	return GameMeta{Title: m.Title, Icon: m.Icon, Scenarios: m.Scenarios.Clone()}
}

// Equal сравнивает заголовок, иконку и граф.
func (m GameMeta) Equal(o GameMeta) bool {
	return m.Title == o.Title && m.Icon == o.Icon && m.Scenarios.Equal(o.Scenarios)
}

// SavedQuest - квест, сохранённый в библиотеке.
type SavedQuest struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Icon      string    `db:"icon" json:"icon"`
	Document  []byte    `db:"document" json:"-"` // Документ сериализатора как есть
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// SavedQuestSummary - запись библиотеки без документа, для списков.
type SavedQuestSummary struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Icon      string    `db:"icon" json:"icon"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// DefaultQuest возвращает встроенный квест, с которого начинается редактор.
func DefaultQuest() GameMeta {
	return GameMeta{
		Title: "The Mini Mundane Quest",
		Icon:  "🍕",
		Scenarios: NewGraph(
			Scenario{
				ID:       StartID,
				Text:     "You're hungry. It's 9pm. Your quest: Decide what to eat.\n\nYour fridge is mostly empty. Your willpower is questionable. What do you do?",
				Location: "🏠 Home - Kitchen",
				Choices: []Choice{
					{Text: "Order pizza (the safe choice)", Next: "pizza_ending"},
					{Text: "Eat cereal", Next: "cereal_ending"},
					{Text: "Just go to sleep hungry", Next: "sleep_ending"},
				},
			},
			Scenario{
				ID:          "pizza_ending",
				Text:        "You order pizza. The estimated time: 45 minutes.\n\nThe pizza arrives in 20 minutes. It's hot, delicious, and exactly what you needed.",
				Location:    "🍕 Home - Pizza Victory",
				Choices:     []Choice{{Text: "Start Over", Next: StartID}},
				Ending:      true,
				Achievement: "PIZZA CHAMPION",
				EndingText:  "✨ PERFECT ENDING: You eat pizza and watch TV. Life is good. You made the right choice. Tomorrow you'll eat vegetables. Probably.",
			},
			Scenario{
				ID:          "cereal_ending",
				Text:        "You pour cereal. The box is almost empty. You get mostly crumbs and that weird cereal dust.\n\nThe milk expires tomorrow. You're living on the edge.",
				Location:    "🥣 Home - Kitchen Table",
				Choices:     []Choice{{Text: "Start Over", Next: StartID}},
				Ending:      true,
				Achievement: "EFFICIENCY EXPERT",
				EndingText:  "✨ ENDING: You finished dinner in 3 minutes. You saved money. You also feel empty inside, but that might not be related to the cereal. Tomorrow will be better. Probably.",
			},
			Scenario{
				ID:          "sleep_ending",
				Text:        "You decide food is overrated and go to bed.\n\nYour stomach disagrees. It makes whale sounds. You regret everything.",
				Location:    "🛏️ Home - Bedroom",
				Choices:     []Choice{{Text: "Start Over", Next: StartID}},
				Ending:      true,
				Achievement: "HUNGER STRIKE",
				EndingText:  "💀 ENDING: You wake up at 3am absolutely starving. You eat an entire bag of chips in the dark. This was not your best decision.",
			},
		),
	}
}
