package graphstore

import (
	"fmt"
	"strconv"
	"time"

	"quest-maker/internal/models"

	"go.uber.org/zap"
)

// Field - редактируемое поле сценария.
type Field string

const (
	FieldText        Field = "text"
	FieldLocation    Field = "location"
	FieldEnding      Field = "ending"
	FieldAchievement Field = "achievement"
	FieldEndingText  Field = "endingText"
	FieldChoices     Field = "choices"
)

// ChoiceField - редактируемое поле выбора.
type ChoiceField string

const (
	ChoiceFieldText ChoiceField = "text"
	ChoiceFieldNext ChoiceField = "next"
)

// FieldUpdate - новое значение одного поля сценария.
type FieldUpdate struct {
	Field Field
	Value any
}

// ChoiceUpdate - новое значение одного поля выбора.
type ChoiceUpdate struct {
	Field ChoiceField
	Value string
}

// Store владеет графом сценариев и гарантирует его целостность.
// Store не потокобезопасен: им владеет один актор (см. workspace).
type Store struct {
	graph  *models.Graph
	now    func() time.Time
	logger *zap.Logger
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени для генерации id.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создает хранилище поверх копии графа.
// Если в графе нет "start", он добавляется заготовкой.
func New(graph *models.Graph, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		graph:  graph.Clone(),
		now:    time.Now,
		logger: logger.Named("GraphStore"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if !s.graph.Has(models.StartID) {
		s.graph.Put(models.StartID, models.NewPlaceholderScenario(models.StartID))
	}
	return s
}

// Graph возвращает копию текущего графа.
func (s *Store) Graph() *models.Graph {
	return s.graph.Clone()
}

// Scenario возвращает копию сценария. Реализует play.Source.
func (s *Store) Scenario(id string) (models.Scenario, bool) {
	return s.graph.Get(id)
}

// IDs возвращает идентификаторы в порядке графа.
func (s *Store) IDs() []string {
	return s.graph.IDs()
}

// Replace заменяет граф целиком (импорт). Граф без "start" отклоняется.
func (s *Store) Replace(graph *models.Graph) error {
	if !graph.Has(models.StartID) {
		return fmt.Errorf("%w: graph has no %q scenario", models.ErrSchema, models.StartID)
	}
	s.graph = graph.Clone()
	s.logger.Debug("Graph replaced", zap.Int("scenarios", s.graph.Len()))
	return nil
}

// Create вставляет сценарий-заготовку под новым уникальным id и возвращает id.
func (s *Store) Create() string {
	base := "scenario_" + strconv.FormatInt(s.now().UnixMilli(), 10)
	id := base
	for n := 1; s.graph.Has(id); n++ {
		id = base + "_" + strconv.Itoa(n)
	}
	s.graph.Put(id, models.NewPlaceholderScenario(id))
	s.logger.Debug("Scenario created", zap.String("scenarioID", id))
	return id
}

// Delete удаляет сценарий. Выборы, ссылавшиеся на него, остаются как есть.
func (s *Store) Delete(id string) error {
	if id == models.StartID {
		return fmt.Errorf("%w: %q cannot be deleted", models.ErrProtectedNode, id)
	}
	if !s.graph.Delete(id) {
		return fmt.Errorf("%w: %q", models.ErrNotFound, id)
	}
	s.logger.Debug("Scenario deleted", zap.String("scenarioID", id))
	return nil
}

// Update заменяет одно поле сценария. Тип value должен соответствовать полю.
func (s *Store) Update(id string, field Field, value any) error {
	return s.UpdateFields(id, FieldUpdate{Field: field, Value: value})
}

// UpdateFields заменяет несколько полей сценария разом.
// Поля применяются к копии: если хоть одно не подходит, сценарий не меняется.
func (s *Store) UpdateFields(id string, updates ...FieldUpdate) error {
	sc, ok := s.graph.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrNotFound, id)
	}
	for _, u := range updates {
		if err := applyField(&sc, u.Field, u.Value); err != nil {
			return err
		}
	}
	s.graph.Put(id, sc)
	return nil
}

func applyField(sc *models.Scenario, field Field, value any) error {
	switch field {
	case FieldText, FieldLocation, FieldAchievement, FieldEndingText:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: %s expects a string, got %T", models.ErrInvalidField, field, value)
		}
		switch field {
		case FieldText:
			sc.Text = v
		case FieldLocation:
			sc.Location = v
		case FieldAchievement:
			sc.Achievement = v
		case FieldEndingText:
			sc.EndingText = v
		}
	case FieldEnding:
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s expects a bool, got %T", models.ErrInvalidField, field, value)
		}
		sc.Ending = v
	case FieldChoices:
		v, ok := value.([]models.Choice)
		if !ok {
			return fmt.Errorf("%w: %s expects a choice list, got %T", models.ErrInvalidField, field, value)
		}
		sc.Choices = append([]models.Choice(nil), v...)
	default:
		return fmt.Errorf("%w: %q", models.ErrInvalidField, field)
	}
	return nil
}

// Rename меняет ключ сценария и переписывает все выборы, указывавшие на старый id.
// Изменения собираются на копии графа и подменяются одним присваиванием:
// при любой ошибке граф остается прежним.
func (s *Store) Rename(oldID, newID string) (string, error) {
	newID = models.SanitizeID(newID)
	if newID == "" {
		return "", models.ErrEmptyID
	}
	if !s.graph.Has(oldID) {
		return "", fmt.Errorf("%w: %q", models.ErrNotFound, oldID)
	}
	if newID == oldID {
		return oldID, nil
	}
	if oldID == models.StartID {
		return "", fmt.Errorf("%w: %q cannot be renamed", models.ErrProtectedNode, oldID)
	}
	if s.graph.Has(newID) {
		return "", fmt.Errorf("%w: %q", models.ErrDuplicateID, newID)
	}

	next := s.graph.Clone()
	if !next.Rekey(oldID, newID) {
		return "", fmt.Errorf("%w: %q", models.ErrNotFound, oldID)
	}
	rewritten := 0
	for _, sc := range next.Scenarios() {
		changed := false
		for i := range sc.Choices {
			if sc.Choices[i].Next == oldID {
				sc.Choices[i].Next = newID
				changed = true
				rewritten++
			}
		}
		if changed {
			next.Put(sc.ID, sc)
		}
	}

	s.graph = next
	s.logger.Debug("Scenario renamed",
		zap.String("oldID", oldID),
		zap.String("newID", newID),
		zap.Int("rewrittenChoices", rewritten),
	)
	return newID, nil
}

// AddChoice добавляет выбор в конец списка.
func (s *Store) AddChoice(id string, choice models.Choice) (int, error) {
	sc, ok := s.graph.Get(id)
	if !ok {
		return 0, fmt.Errorf("%w: %q", models.ErrNotFound, id)
	}
	sc.Choices = append(sc.Choices, choice)
	s.graph.Put(id, sc)
	return len(sc.Choices) - 1, nil
}

// UpdateChoice меняет одно поле выбора по позиции.
func (s *Store) UpdateChoice(id string, index int, field ChoiceField, value string) error {
	return s.UpdateChoiceFields(id, index, ChoiceUpdate{Field: field, Value: value})
}

// UpdateChoiceFields меняет несколько полей выбора разом, все или ни одного.
func (s *Store) UpdateChoiceFields(id string, index int, updates ...ChoiceUpdate) error {
	sc, ok := s.graph.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrNotFound, id)
	}
	if index < 0 || index >= len(sc.Choices) {
		return fmt.Errorf("%w: %d (scenario %q has %d choices)", models.ErrIndex, index, id, len(sc.Choices))
	}
	for _, u := range updates {
		switch u.Field {
		case ChoiceFieldText:
			sc.Choices[index].Text = u.Value
		case ChoiceFieldNext:
			sc.Choices[index].Next = u.Value
		default:
			return fmt.Errorf("%w: choice field %q", models.ErrInvalidField, u.Field)
		}
	}
	s.graph.Put(id, sc)
	return nil
}

// DeleteChoice удаляет выбор по позиции, сохраняя порядок остальных.
func (s *Store) DeleteChoice(id string, index int) error {
	sc, ok := s.graph.Get(id)
	if !ok {
		return fmt.Errorf("%w: %q", models.ErrNotFound, id)
	}
	if index < 0 || index >= len(sc.Choices) {
		return fmt.Errorf("%w: %d (scenario %q has %d choices)", models.ErrIndex, index, id, len(sc.Choices))
	}
	sc.Choices = append(sc.Choices[:index], sc.Choices[index+1:]...)
	s.graph.Put(id, sc)
	return nil
}
