package play_test

import (
	"errors"
	"testing"
	"time"

	"quest-maker/internal/graphstore"
	"quest-maker/internal/models"
	"quest-maker/internal/play"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newClock() *clock { return &clock{t: time.Unix(1700000000, 0)} }

func pizzaEngine(opts ...play.Option) *play.Engine {
	return play.NewEngine(models.DefaultQuest().Scenarios, zap.NewNop(), opts...)
}

func chainGraph() *models.Graph {
	return models.NewGraph(
		models.Scenario{ID: "start", Location: "Gate", Choices: []models.Choice{{Text: "in", Next: "hall"}}},
		models.Scenario{ID: "hall", Location: "Hall", Achievement: "EXPLORER", Choices: []models.Choice{
			{Text: "up", Next: "tower"},
			{Text: "down", Next: "cellar"},
			{Text: "broken", Next: "nowhere"},
		}},
		models.Scenario{ID: "tower", Location: "Tower", Choices: []models.Choice{{Text: "back", Next: "hall"}}},
		models.Scenario{ID: "cellar", Location: "Cellar", Ending: true, Choices: []models.Choice{{Text: "again", Next: "start"}}},
	)
}

func TestNewEngineStartsAtStart(t *testing.T) {
	e := pizzaEngine()
	assert.Equal(t, play.NewSession(), e.Session())
}

func TestPizzaBackKeepsAchievements(t *testing.T) {
	e := pizzaEngine()

	n, err := e.Choose("pizza_ending")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "PIZZA CHAMPION", n.Achievement)

	s := e.Session()
	assert.Equal(t, "pizza_ending", s.CurrentID)
	assert.Equal(t, []string{"PIZZA CHAMPION"}, s.Unlocked)

	require.True(t, e.Back())
	s = e.Session()
	assert.Equal(t, models.StartID, s.CurrentID)
	assert.Equal(t, []string{"PIZZA CHAMPION"}, s.Unlocked)
	assert.Equal(t, []string{"start", "pizza_ending"}, s.History)
}

func TestChooseStartResetsSession(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	for _, id := range []string{"hall", "tower", "hall", "cellar"} {
		_, err := e.Choose(id)
		require.NoError(t, err)
	}
	require.Equal(t, 5, len(e.Session().History))

	_, err := e.Choose(models.StartID)
	require.NoError(t, err)

	s := e.Session()
	assert.Equal(t, []string{"start"}, s.History)
	assert.Equal(t, 0, s.HistoryIndex)
	assert.Equal(t, []string{"start"}, s.Visited)
	assert.Empty(t, s.Unlocked)
	assert.Equal(t, models.StartID, s.CurrentID)
}

func TestChooseStartStillAnnouncesItsAchievement(t *testing.T) {
	g := models.NewGraph(
		models.Scenario{ID: "start", Achievement: "LOOPER", Choices: []models.Choice{{Text: "again", Next: "start"}}},
	)
	var got []string
	e := play.NewEngine(g, zap.NewNop(), play.WithNotifier(play.NotifierFunc(func(n play.Notification) {
		got = append(got, n.Achievement)
	})))

	n, err := e.Choose(models.StartID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, []string{"LOOPER"}, got)
	assert.Empty(t, e.Session().Unlocked)
}

func TestBackAndForwardAtEdgesAreNoOps(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	before := e.Session()
	assert.False(t, e.Back())
	assert.Equal(t, before, e.Session())

	_, err := e.Choose("hall")
	require.NoError(t, err)
	before = e.Session()
	assert.False(t, e.Forward())
	assert.Equal(t, before, e.Session())
}

func TestChooseAfterBackTruncatesForwardBranch(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	_, _ = e.Choose("hall")
	_, _ = e.Choose("tower")
	require.True(t, e.Back())

	_, err := e.Choose("cellar")
	require.NoError(t, err)

	s := e.Session()
	assert.Equal(t, []string{"start", "hall", "cellar"}, s.History)
	assert.Equal(t, 2, s.HistoryIndex)
	assert.False(t, e.Forward())
	// Посещения не откатываются вместе с веткой
	assert.True(t, s.HasVisited("tower"))
}

func TestAchievementUnlockedOnce(t *testing.T) {
	c := newClock()
	calls := 0
	e := play.NewEngine(chainGraph(), zap.NewNop(),
		play.WithClock(c.now),
		play.WithNotifier(play.NotifierFunc(func(play.Notification) { calls++ })),
	)

	n, err := e.Choose("hall")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, c.t.Add(play.UnlockDisplayDuration), n.DismissAt)

	_, _ = e.Choose("tower")
	n, err = e.Choose("hall")
	require.NoError(t, err)
	assert.Nil(t, n)

	assert.Equal(t, []string{"EXPLORER"}, e.Session().Unlocked)
	assert.Equal(t, 1, calls)
}

func TestDanglingChoiceLeavesSessionUntouched(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	_, _ = e.Choose("hall")
	before := e.Session()

	n, err := e.Choose("nowhere")
	assert.Nil(t, n)
	assert.True(t, errors.Is(err, models.ErrDanglingReference))
	if diff := cmp.Diff(before, e.Session()); diff != "" {
		t.Errorf("session changed (-before +after):\n%s", diff)
	}
}

func TestJumpTo(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	_, _ = e.Choose("hall")
	_, _ = e.Choose("tower")

	e.JumpTo(0)
	s := e.Session()
	assert.Equal(t, models.StartID, s.CurrentID)
	assert.Equal(t, 3, len(s.History))
	assert.Equal(t, []string{"EXPLORER"}, s.Unlocked)

	e.JumpTo(2)
	assert.Equal(t, "tower", e.Session().CurrentID)

	assert.False(t, e.CanJumpTo(3))
	assert.Panics(t, func() { e.JumpTo(3) })
	assert.Panics(t, func() { e.JumpTo(-1) })
}

func TestActiveNotificationExpires(t *testing.T) {
	c := newClock()
	e := play.NewEngine(chainGraph(), zap.NewNop(), play.WithClock(c.now))
	_, _ = e.Choose("hall")

	n, ok := e.ActiveNotification()
	require.True(t, ok)
	assert.Equal(t, "EXPLORER", n.Achievement)

	c.advance(play.UnlockDisplayDuration - time.Millisecond)
	_, ok = e.ActiveNotification()
	assert.True(t, ok)

	c.advance(time.Millisecond)
	_, ok = e.ActiveNotification()
	assert.False(t, ok)
	assert.Nil(t, e.View().Notification)
}

func TestViewFollowsLiveStore(t *testing.T) {
	store := graphstore.New(chainGraph(), zap.NewNop())
	e := play.NewEngine(store, zap.NewNop())
	_, _ = e.Choose("hall")
	_, _ = e.Choose("cellar")

	v := e.View()
	assert.True(t, v.AtEnding)
	assert.Equal(t, "Cellar", v.Scenario.Location)
	assert.True(t, v.CanGoBack)
	assert.False(t, v.CanGoForward)

	require.NoError(t, store.Update("cellar", graphstore.FieldLocation, "Wine cellar"))
	assert.Equal(t, "Wine cellar", e.View().Scenario.Location)

	// Текущий сценарий удалён во время игры
	require.NoError(t, store.Delete("cellar"))
	v = e.View()
	assert.Equal(t, models.StartID, v.Scenario.ID)
	assert.Equal(t, models.StartID, e.Session().CurrentID)
	assert.Equal(t, 3, v.HistoryLength)
}

func TestTimeline(t *testing.T) {
	store := graphstore.New(chainGraph(), zap.NewNop())
	e := play.NewEngine(store, zap.NewNop())
	_, _ = e.Choose("hall")
	_, _ = e.Choose("tower")
	e.Back()
	require.NoError(t, store.Delete("tower"))

	want := []play.TimelineEntry{
		{Index: 0, ScenarioID: "start", Label: "Gate", Visited: true},
		{Index: 1, ScenarioID: "hall", Label: "Hall", Current: true, Visited: true},
		{Index: 2, ScenarioID: "tower", Label: "tower", Visited: true},
	}
	assert.Equal(t, want, e.Timeline())
}

func TestRestore(t *testing.T) {
	e := play.NewEngine(chainGraph(), zap.NewNop())
	_, _ = e.Choose("hall")
	snap := e.Session()

	other := play.NewEngine(chainGraph(), zap.NewNop())
	require.NoError(t, other.Restore(snap))
	assert.Equal(t, snap, other.Session())

	bad := snap.Clone()
	bad.HistoryIndex = 7
	assert.True(t, errors.Is(other.Restore(bad), play.ErrInvalidSession))

	bad = snap.Clone()
	bad.CurrentID = ""
	assert.True(t, errors.Is(other.Restore(bad), play.ErrInvalidSession))

	assert.True(t, errors.Is(other.Restore(play.Session{}), play.ErrInvalidSession))
	assert.Equal(t, snap, other.Session())
}
