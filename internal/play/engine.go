package play

import (
	"fmt"
	"time"

	"quest-maker/internal/models"

	"go.uber.org/zap"
)

// UnlockDisplayDuration - сколько висит уведомление о новом достижении.
const UnlockDisplayDuration = 3 * time.Second

// Source - откуда движок берёт сценарии: живое хранилище редактора или статичный граф.
type Source interface {
	Scenario(id string) (models.Scenario, bool)
}

// Notification - всплывающее уведомление об открытом достижении. Не блокирует ввод.
type Notification struct {
	Achievement string    `json:"achievement"`
	ShownAt     time.Time `json:"shownAt"`
	DismissAt   time.Time `json:"dismissAt"`
}

// Notifier получает уведомления об открытых достижениях.
// Вызывается синхронно, поэтому реализация не должна блокироваться.
type Notifier interface {
	AchievementUnlocked(n Notification)
}

// NotifierFunc позволяет использовать функцию как Notifier.
type NotifierFunc func(Notification)

// AchievementUnlocked реализует Notifier.
func (f NotifierFunc) AchievementUnlocked(n Notification) { f(n) }

// Engine - машина состояний прохождения.
type Engine struct {
	source       Source
	session      Session
	notification *Notification
	notifier     Notifier
	now          func() time.Time
	logger       *zap.Logger
}

// Option настраивает Engine.
type Option func(*Engine)

// WithNotifier подключает получателя уведомлений о достижениях.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithClock подменяет источник времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine начинает новое прохождение со сценария "start".
func NewEngine(source Source, logger *zap.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Engine{
		source:  source,
		session: NewSession(),
		now:     time.Now,
		logger:  logger.Named("PlayEngine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session возвращает снимок текущего состояния.
func (e *Engine) Session() Session {
	return e.session.Clone()
}

// Restore подменяет состояние ранее сохранённым снимком.
func (e *Engine) Restore(s Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.session = s.Clone()
	e.notification = nil
	return nil
}

// Choose выполняет переход по выбору.
// Несуществующая цель - ошибка ErrDanglingReference, сессия при этом не меняется.
func (e *Engine) Choose(targetID string) (*Notification, error) {
	target, ok := e.source.Scenario(targetID)
	if !ok {
		return nil, fmt.Errorf("%w: %q", models.ErrDanglingReference, targetID)
	}

	s := &e.session
	// Выбор после шага назад отбрасывает покинутую ветку вперёд
	if s.HistoryIndex < len(s.History)-1 {
		s.History = s.History[:s.HistoryIndex+1]
	}
	s.History = append(s.History, targetID)
	s.HistoryIndex = len(s.History) - 1
	if !s.HasVisited(targetID) {
		s.Visited = append(s.Visited, targetID)
	}

	var unlocked *Notification
	if target.Achievement != "" && !s.HasUnlocked(target.Achievement) {
		s.Unlocked = append(s.Unlocked, target.Achievement)
		unlocked = e.announce(target.Achievement)
	}

	// Выбор, ведущий на "start", полностью сбрасывает сессию.
	// Возврат к "start" через Back/JumpTo сессию не сбрасывает.
	if targetID == models.StartID {
		e.session = NewSession()
		e.logger.Debug("Session restarted")
		return unlocked, nil
	}

	s.CurrentID = targetID
	return unlocked, nil
}

func (e *Engine) announce(achievement string) *Notification {
	shown := e.now()
	n := Notification{
		Achievement: achievement,
		ShownAt:     shown,
		DismissAt:   shown.Add(UnlockDisplayDuration),
	}
	e.notification = &n
	e.logger.Info("Achievement unlocked", zap.String("achievement", achievement))
	if e.notifier != nil {
		e.notifier.AchievementUnlocked(n)
	}
	return &n
}

// Back шагает назад по истории. В начале истории ничего не делает.
func (e *Engine) Back() bool {
	if e.session.HistoryIndex == 0 {
		return false
	}
	e.session.HistoryIndex--
	e.session.CurrentID = e.session.History[e.session.HistoryIndex]
	return true
}

// Forward шагает вперёд по истории. В конце истории ничего не делает.
func (e *Engine) Forward() bool {
	if e.session.HistoryIndex >= len(e.session.History)-1 {
		return false
	}
	e.session.HistoryIndex++
	e.session.CurrentID = e.session.History[e.session.HistoryIndex]
	return true
}

// JumpTo переходит на запись истории с номером index.
// Индекс вне диапазона - ошибка программиста: проверяйте его через CanJumpTo.
func (e *Engine) JumpTo(index int) {
	if !e.CanJumpTo(index) {
		panic(fmt.Sprintf("play: history index %d out of range [0,%d)", index, len(e.session.History)))
	}
	e.session.HistoryIndex = index
	e.session.CurrentID = e.session.History[index]
}

// CanJumpTo сообщает, допустим ли индекс истории.
func (e *Engine) CanJumpTo(index int) bool {
	return index >= 0 && index < len(e.session.History)
}

// ActiveNotification возвращает уведомление, пока оно не истекло.
func (e *Engine) ActiveNotification() (Notification, bool) {
	if e.notification == nil {
		return Notification{}, false
	}
	if !e.now().Before(e.notification.DismissAt) {
		e.notification = nil
		return Notification{}, false
	}
	return *e.notification, true
}

// View - то, что видит игрок в текущей точке.
type View struct {
	Scenario      models.Scenario `json:"scenario"`
	AtEnding      bool            `json:"atEnding"` // Только подсказка: выборы остаются доступны
	CanGoBack     bool            `json:"canGoBack"`
	CanGoForward  bool            `json:"canGoForward"`
	HistoryIndex  int             `json:"historyIndex"`
	HistoryLength int             `json:"historyLength"`
	Unlocked      []string        `json:"unlocked"`
	Notification  *Notification   `json:"notification,omitempty"`
}

// View собирает представление текущего сценария.
// Если автор удалил текущий сценарий во время игры, указатель переводится на "start"
// без изменения истории и достижений.
func (e *Engine) View() View {
	current, ok := e.source.Scenario(e.session.CurrentID)
	if !ok {
		e.logger.Warn("Current scenario disappeared, falling back to start", zap.String("scenarioID", e.session.CurrentID))
		e.session.CurrentID = models.StartID
		current, _ = e.source.Scenario(models.StartID)
	}
	v := View{
		Scenario:      current,
		AtEnding:      current.Ending,
		CanGoBack:     e.session.HistoryIndex > 0,
		CanGoForward:  e.session.HistoryIndex < len(e.session.History)-1,
		HistoryIndex:  e.session.HistoryIndex,
		HistoryLength: len(e.session.History),
		Unlocked:      append([]string{}, e.session.Unlocked...),
	}
	if n, ok := e.ActiveNotification(); ok {
		v.Notification = &n
	}
	return v
}

// TimelineEntry - запись истории для навигации прыжками.
type TimelineEntry struct {
	Index      int    `json:"index"`
	ScenarioID string `json:"scenarioId"`
	Label      string `json:"label"`
	Current    bool   `json:"current"`
	Visited    bool   `json:"visited"`
}

// Timeline перечисляет историю. Метка - локация сценария или его id, если сценария уже нет.
func (e *Engine) Timeline() []TimelineEntry {
	entries := make([]TimelineEntry, 0, len(e.session.History))
	for i, id := range e.session.History {
		label := id
		if sc, ok := e.source.Scenario(id); ok {
			label = sc.Location
		}
		entries = append(entries, TimelineEntry{
			Index:      i,
			ScenarioID: id,
			Label:      label,
			Current:    i == e.session.HistoryIndex,
			Visited:    e.session.HasVisited(id),
		})
	}
	return entries
}
