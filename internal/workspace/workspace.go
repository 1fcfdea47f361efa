package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"

	"quest-maker/internal/achievements"
	"quest-maker/internal/bundle"
	"quest-maker/internal/graphstore"
	"quest-maker/internal/models"
	"quest-maker/internal/play"
	"quest-maker/internal/serializer"

	"go.uber.org/zap"
)

// ErrClosed - рабочее пространство остановлено.
var ErrClosed = errors.New("workspace is closed")

// Format - формат импорта/экспорта.
type Format string

const (
	FormatData   Format = "data"   // Документ {title, icon, scenarios}
	FormatBundle Format = "bundle" // Самостоятельный HTML с плеером
)

// Artifact - результат экспорта. Сохранение файла остаётся за вызывающим.
type Artifact struct {
	Title       string // Заголовок квеста на момент экспорта
	Filename    string
	ContentType string
	Body        []byte
}

// Overview - сводка редактора.
type Overview struct {
	Title        string   `json:"title"`
	Icon         string   `json:"icon"`
	ScenarioIDs  []string `json:"scenarioIds"`
	Focus        string   `json:"focus"`
	Achievements []string `json:"achievements"`
	Playing      bool     `json:"playing"`
}

// PlayState - всё, что нужно клиенту для отрисовки прохождения.
type PlayState struct {
	View              play.View            `json:"view"`
	Timeline          []play.TimelineEntry `json:"timeline"`
	Session           play.Session         `json:"session"`
	TotalAchievements int                  `json:"totalAchievements"`
}

// Workspace владеет квестом, фокусом редактора и активной сессией прохождения.
// Всё изменяемое состояние принадлежит одной горутине: каждая операция - замыкание,
// которое выполняется в ней до конца, поэтому операции не перемежаются.
type Workspace struct {
	ops     chan func()
	closing chan struct{}
	done    chan struct{}

	title    string
	icon     string
	store    *graphstore.Store
	catalog  *achievements.Catalog
	focus    string
	engine   *play.Engine
	notifier play.Notifier
	opts     []graphstore.Option
	logger   *zap.Logger
}

// Option настраивает Workspace.
type Option func(*Workspace)

// WithNotifier передаёт уведомления о достижениях каждому новому прохождению.
func WithNotifier(n play.Notifier) Option {
	return func(w *Workspace) { w.notifier = n }
}

// WithStoreOptions пробрасывает опции в graphstore.
func WithStoreOptions(opts ...graphstore.Option) Option {
	return func(w *Workspace) { w.opts = append(w.opts, opts...) }
}

// New создает рабочее пространство с квестом meta. Нужно вызвать Start.
func New(meta models.GameMeta, logger *zap.Logger, opts ...Option) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Workspace{
		ops:     make(chan func()),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
		title:   meta.Title,
		icon:    meta.Icon,
		focus:   models.StartID,
		logger:  logger.Named("Workspace"),
	}
	for _, opt := range opts {
		opt(w)
	}
	graph := meta.Scenarios
	if graph == nil {
		graph = models.NewGraph()
	}
	w.store = graphstore.New(graph, logger, w.opts...)
	w.catalog = achievements.NewCatalog(w.store)
	return w
}

// Start запускает горутину-владельца.
func (w *Workspace) Start() {
	go w.run()
}

func (w *Workspace) run() {
	defer close(w.done)
	for {
		select {
		case op := <-w.ops:
			op()
		case <-w.closing:
			return
		}
	}
}

// Close останавливает горутину-владельца и ждёт её завершения.
func (w *Workspace) Close() {
	close(w.closing)
	<-w.done
}

// do выполняет fn в горутине-владельце и ждёт завершения.
func (w *Workspace) do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	op := func() {
		defer close(finished)
		fn()
	}
	select {
	case w.ops <- op:
	case <-w.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-finished
	return nil
}

// call - do для операций, которые сами возвращают ошибку.
func (w *Workspace) call(ctx context.Context, fn func() error) error {
	var opErr error
	if err := w.do(ctx, func() { opErr = fn() }); err != nil {
		return err
	}
	return opErr
}

// Overview возвращает сводку редактора.
func (w *Workspace) Overview(ctx context.Context) (Overview, error) {
	var o Overview
	err := w.do(ctx, func() {
		o = Overview{
			Title:        w.title,
			Icon:         w.icon,
			ScenarioIDs:  w.store.IDs(),
			Focus:        w.focus,
			Achievements: w.catalog.List(),
			Playing:      w.engine != nil,
		}
	})
	return o, err
}

// Meta возвращает копию квеста.
func (w *Workspace) Meta(ctx context.Context) (models.GameMeta, error) {
	var meta models.GameMeta
	err := w.do(ctx, func() { meta = w.meta() })
	return meta, err
}

func (w *Workspace) meta() models.GameMeta {
	return models.GameMeta{Title: w.title, Icon: w.icon, Scenarios: w.store.Graph()}
}

// SetMeta меняет заголовок и/или иконку. nil - поле не трогать.
func (w *Workspace) SetMeta(ctx context.Context, title, icon *string) error {
	return w.do(ctx, func() {
		if title != nil {
			w.title = *title
		}
		if icon != nil {
			w.icon = *icon
		}
	})
}

// Select переводит фокус редактора на сценарий.
func (w *Workspace) Select(ctx context.Context, id string) error {
	return w.call(ctx, func() error {
		if _, ok := w.store.Scenario(id); !ok {
			return fmt.Errorf("%w: %q", models.ErrNotFound, id)
		}
		w.focus = id
		return nil
	})
}

// Scenarios возвращает все сценарии в порядке графа.
func (w *Workspace) Scenarios(ctx context.Context) ([]models.Scenario, error) {
	var list []models.Scenario
	err := w.do(ctx, func() { list = w.store.Graph().Scenarios() })
	return list, err
}

// Scenario возвращает один сценарий.
func (w *Workspace) Scenario(ctx context.Context, id string) (models.Scenario, error) {
	var sc models.Scenario
	err := w.call(ctx, func() error {
		var ok bool
		if sc, ok = w.store.Scenario(id); !ok {
			return fmt.Errorf("%w: %q", models.ErrNotFound, id)
		}
		return nil
	})
	return sc, err
}

// CreateScenario добавляет заготовку и переводит на неё фокус.
func (w *Workspace) CreateScenario(ctx context.Context) (string, error) {
	var id string
	err := w.do(ctx, func() {
		id = w.store.Create()
		w.focus = id
	})
	return id, err
}

// DeleteScenario удаляет сценарий и возвращает фокус на "start".
func (w *Workspace) DeleteScenario(ctx context.Context, id string) error {
	return w.call(ctx, func() error {
		if err := w.store.Delete(id); err != nil {
			return err
		}
		w.focus = models.StartID
		return nil
	})
}

// UpdateScenario меняет одно поле сценария.
func (w *Workspace) UpdateScenario(ctx context.Context, id string, field graphstore.Field, value any) error {
	return w.call(ctx, func() error { return w.store.Update(id, field, value) })
}

// UpdateScenarioFields меняет несколько полей одной операцией и возвращает сценарий после правки.
// Если какое-то поле не применилось, сценарий остаётся прежним.
func (w *Workspace) UpdateScenarioFields(ctx context.Context, id string, updates []graphstore.FieldUpdate) (models.Scenario, error) {
	var sc models.Scenario
	err := w.call(ctx, func() error {
		if err := w.store.UpdateFields(id, updates...); err != nil {
			return err
		}
		sc, _ = w.store.Scenario(id)
		return nil
	})
	return sc, err
}

// RenameScenario меняет id сценария и переводит фокус на новый id.
func (w *Workspace) RenameScenario(ctx context.Context, oldID, newID string) (string, error) {
	var renamed string
	err := w.call(ctx, func() error {
		var err error
		if renamed, err = w.store.Rename(oldID, newID); err != nil {
			return err
		}
		w.focus = renamed
		return nil
	})
	return renamed, err
}

// AddChoice добавляет выбор и возвращает его позицию.
func (w *Workspace) AddChoice(ctx context.Context, id string, choice models.Choice) (int, error) {
	var index int
	err := w.call(ctx, func() error {
		var err error
		index, err = w.store.AddChoice(id, choice)
		return err
	})
	return index, err
}

// UpdateChoice меняет поле выбора.
func (w *Workspace) UpdateChoice(ctx context.Context, id string, index int, field graphstore.ChoiceField, value string) error {
	return w.call(ctx, func() error { return w.store.UpdateChoice(id, index, field, value) })
}

// UpdateChoiceFields меняет поля выбора одной операцией и возвращает сценарий после правки.
func (w *Workspace) UpdateChoiceFields(ctx context.Context, id string, index int, updates []graphstore.ChoiceUpdate) (models.Scenario, error) {
	var sc models.Scenario
	err := w.call(ctx, func() error {
		if err := w.store.UpdateChoiceFields(id, index, updates...); err != nil {
			return err
		}
		sc, _ = w.store.Scenario(id)
		return nil
	})
	return sc, err
}

// DeleteChoice удаляет выбор.
func (w *Workspace) DeleteChoice(ctx context.Context, id string, index int) error {
	return w.call(ctx, func() error { return w.store.DeleteChoice(id, index) })
}

// Achievements возвращает список достижений квеста.
func (w *Workspace) Achievements(ctx context.Context) ([]string, error) {
	var list []string
	err := w.do(ctx, func() { list = w.catalog.List() })
	return list, err
}

// EnterPlay начинает прохождение поверх живого графа.
// Если передан снимок, сессия восстанавливается из него.
func (w *Workspace) EnterPlay(ctx context.Context, snapshot *play.Session) (PlayState, error) {
	var state PlayState
	err := w.call(ctx, func() error {
		var opts []play.Option
		if w.notifier != nil {
			opts = append(opts, play.WithNotifier(w.notifier))
		}
		engine := play.NewEngine(w.store, w.logger, opts...)
		if snapshot != nil {
			if err := engine.Restore(*snapshot); err != nil {
				return err
			}
		}
		w.engine = engine
		state = w.playState()
		return nil
	})
	return state, err
}

// ExitPlay завершает прохождение.
func (w *Workspace) ExitPlay(ctx context.Context) error {
	return w.call(ctx, func() error {
		if w.engine == nil {
			return models.ErrNotPlaying
		}
		w.engine = nil
		return nil
	})
}

// PlayState возвращает текущее состояние прохождения.
func (w *Workspace) PlayState(ctx context.Context) (PlayState, error) {
	return w.playing(ctx, func(*play.Engine) error { return nil })
}

// Choose выполняет выбор в активном прохождении.
func (w *Workspace) Choose(ctx context.Context, next string) (PlayState, error) {
	return w.playing(ctx, func(e *play.Engine) error {
		_, err := e.Choose(next)
		return err
	})
}

// Back шагает назад по истории.
func (w *Workspace) Back(ctx context.Context) (PlayState, error) {
	return w.playing(ctx, func(e *play.Engine) error {
		e.Back()
		return nil
	})
}

// Forward шагает вперёд по истории.
func (w *Workspace) Forward(ctx context.Context) (PlayState, error) {
	return w.playing(ctx, func(e *play.Engine) error {
		e.Forward()
		return nil
	})
}

// JumpTo переходит к записи истории. Недопустимый индекс - ErrIndex.
func (w *Workspace) JumpTo(ctx context.Context, index int) (PlayState, error) {
	return w.playing(ctx, func(e *play.Engine) error {
		if !e.CanJumpTo(index) {
			return fmt.Errorf("%w: history index %d", models.ErrIndex, index)
		}
		e.JumpTo(index)
		return nil
	})
}

func (w *Workspace) playing(ctx context.Context, fn func(*play.Engine) error) (PlayState, error) {
	var state PlayState
	err := w.call(ctx, func() error {
		if w.engine == nil {
			return models.ErrNotPlaying
		}
		if err := fn(w.engine); err != nil {
			return err
		}
		state = w.playState()
		return nil
	})
	return state, err
}

func (w *Workspace) playState() PlayState {
	return PlayState{
		View:              w.engine.View(),
		Timeline:          w.engine.Timeline(),
		Session:           w.engine.Session(),
		TotalAchievements: len(w.catalog.List()),
	}
}

// Export сериализует текущий квест.
func (w *Workspace) Export(ctx context.Context, format Format) (Artifact, error) {
	meta, err := w.Meta(ctx)
	if err != nil {
		return Artifact{}, err
	}
	switch format {
	case FormatData:
		body, err := serializer.Dump(meta)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Title: meta.Title, Filename: serializer.Filename(meta.Title), ContentType: serializer.ContentType, Body: body}, nil
	case FormatBundle:
		body, err := bundle.Generate(meta)
		if err != nil {
			return Artifact{}, err
		}
		return Artifact{Title: meta.Title, Filename: bundle.Filename(meta.Title), ContentType: bundle.ContentType, Body: body}, nil
	default:
		return Artifact{}, fmt.Errorf("%w: unknown format %q", models.ErrBadRequest, format)
	}
}

// Decode разбирает содержимое файла, не трогая состояние.
func Decode(format Format, content []byte) (models.GameMeta, error) {
	switch format {
	case FormatData:
		return serializer.Load(content)
	case FormatBundle:
		return bundle.Parse(content)
	default:
		return models.GameMeta{}, fmt.Errorf("%w: unknown format %q", models.ErrBadRequest, format)
	}
}

// Import читает и проверяет файл вне горутины-владельца, затем атомарно подменяет квест.
// При ошибке чтения или разбора прежнее состояние не меняется.
// Перекрывающиеся импорты применяются в порядке доставки: побеждает последний.
func (w *Workspace) Import(ctx context.Context, format Format, r io.Reader) (models.GameMeta, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return models.GameMeta{}, fmt.Errorf("failed to read import: %w", err)
	}
	meta, err := Decode(format, content)
	if err != nil {
		return models.GameMeta{}, err
	}
	if err := w.Load(ctx, meta); err != nil {
		return models.GameMeta{}, err
	}
	return meta, nil
}

// Load подменяет квест целиком: фокус возвращается на "start", прохождение завершается.
func (w *Workspace) Load(ctx context.Context, meta models.GameMeta) error {
	if meta.Scenarios == nil {
		return fmt.Errorf("%w: quest has no scenarios", models.ErrSchema)
	}
	return w.call(ctx, func() error {
		if err := w.store.Replace(meta.Scenarios); err != nil {
			return err
		}
		w.title = meta.Title
		w.icon = meta.Icon
		w.focus = models.StartID
		w.engine = nil
		w.logger.Info("Quest loaded",
			zap.String("title", meta.Title),
			zap.Int("scenarios", meta.Scenarios.Len()),
		)
		return nil
	})
}
