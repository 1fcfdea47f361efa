package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"quest-maker/internal/bundle"
	"quest-maker/internal/graphstore"
	"quest-maker/internal/interfaces/mocks"
	"quest-maker/internal/messaging"
	"quest-maker/internal/models"
	"quest-maker/internal/play"
	"quest-maker/internal/serializer"
	"quest-maker/internal/workspace"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.QuestEvent
}

func (r *recordingSink) QuestEvent(e models.QuestEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) types() []models.QuestEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.QuestEventType
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newService(t *testing.T, opts ...Option) *QuestService {
	t.Helper()
	ws := workspace.New(models.DefaultQuest(), zap.NewNop())
	ws.Start()
	t.Cleanup(ws.Close)
	return NewQuestService(ws, messaging.NewNopPublisher(zap.NewNop()), zap.NewNop(), opts...)
}

func TestPlayPersistsSnapshots(t *testing.T) {
	ctx := context.Background()
	sessions := new(mocks.SessionRepository)
	sessions.On("SaveSnapshot", mock.Anything, DefaultWorkspaceID, mock.AnythingOfType("play.Session")).Return(nil)
	sessions.On("DeleteSnapshot", mock.Anything, DefaultWorkspaceID).Return(nil)
	s := newService(t, WithSessionRepository(sessions))

	okBefore := testutil.ToFloat64(choicesTotal.WithLabelValues("ok"))
	danglingBefore := testutil.ToFloat64(choicesTotal.WithLabelValues("dangling"))

	_, err := s.EnterPlay(ctx, false)
	require.NoError(t, err)
	state, err := s.Choose(ctx, "pizza_ending")
	require.NoError(t, err)
	assert.Equal(t, "pizza_ending", state.Session.CurrentID)
	_, err = s.Back(ctx)
	require.NoError(t, err)
	_, err = s.Forward(ctx)
	require.NoError(t, err)
	_, err = s.JumpTo(ctx, 0)
	require.NoError(t, err)

	_, err = s.JumpTo(ctx, 9)
	assert.True(t, errors.Is(err, models.ErrIndex))

	require.NoError(t, s.ws.UpdateScenario(ctx, "start", graphstore.FieldChoices, []models.Choice{{Text: "Secret", Next: "hidden"}}))
	_, err = s.Choose(ctx, "hidden")
	assert.True(t, errors.Is(err, models.ErrDanglingReference))

	require.NoError(t, s.ExitPlay(ctx))
	assert.True(t, errors.Is(s.ExitPlay(ctx), models.ErrNotPlaying))

	// enter, choose, back, forward, jump
	sessions.AssertNumberOfCalls(t, "SaveSnapshot", 5)
	sessions.AssertNumberOfCalls(t, "DeleteSnapshot", 1)
	assert.Equal(t, okBefore+1, testutil.ToFloat64(choicesTotal.WithLabelValues("ok")))
	assert.Equal(t, danglingBefore+1, testutil.ToFloat64(choicesTotal.WithLabelValues("dangling")))
}

func TestSnapshotFailureDoesNotBreakPlay(t *testing.T) {
	sessions := new(mocks.SessionRepository)
	sessions.On("SaveSnapshot", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	s := newService(t, WithSessionRepository(sessions))

	_, err := s.EnterPlay(context.Background(), false)
	require.NoError(t, err)
	state, err := s.Choose(context.Background(), "sleep_ending")
	require.NoError(t, err)
	assert.Equal(t, []string{"HUNGER STRIKE"}, state.Session.Unlocked)
}

func TestResume(t *testing.T) {
	stored := play.Session{
		CurrentID:    "cereal_ending",
		History:      []string{"start", "cereal_ending"},
		HistoryIndex: 1,
		Visited:      []string{"start", "cereal_ending"},
		Unlocked:     []string{"EFFICIENCY EXPERT"},
	}
	cases := []struct {
		name      string
		snapshot  *play.Session
		err       error
		wantAt    string
		wantIndex int
	}{
		{"valid snapshot", &stored, nil, "cereal_ending", 1},
		{"no snapshot", nil, models.ErrSnapshotNotFound, models.StartID, 0},
		{"broken snapshot", &play.Session{HistoryIndex: 3}, nil, models.StartID, 0},
		{"redis error", nil, errors.New("timeout"), models.StartID, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			sessions := new(mocks.SessionRepository)
			sessions.On("GetSnapshot", mock.Anything, DefaultWorkspaceID).Return(tc.snapshot, tc.err)
			sessions.On("SaveSnapshot", mock.Anything, DefaultWorkspaceID, mock.Anything).Return(nil)
			s := newService(t, WithSessionRepository(sessions))

			state, err := s.EnterPlay(context.Background(), true)
			require.NoError(t, err)
			assert.Equal(t, tc.wantAt, state.Session.CurrentID)
			assert.Equal(t, tc.wantIndex, state.Session.HistoryIndex)
			sessions.AssertExpectations(t)
		})
	}
}

func TestLibraryOffline(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	_, err := s.SaveToLibrary(ctx)
	assert.True(t, errors.Is(err, models.ErrStorageOffline))
	_, err = s.ListLibrary(ctx, 10, 0)
	assert.True(t, errors.Is(err, models.ErrStorageOffline))
	_, err = s.OpenFromLibrary(ctx, uuid.New())
	assert.True(t, errors.Is(err, models.ErrStorageOffline))
	assert.True(t, errors.Is(s.DeleteFromLibrary(ctx, uuid.New()), models.ErrStorageOffline))
}

func TestSaveOpenAndDeleteLibrary(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()
	sink := &recordingSink{}
	quests := new(mocks.QuestRepository)
	publisher := new(mocks.EventPublisher)
	publisher.On("PublishQuestEvent", mock.Anything, mock.Anything).Return(nil)

	ws := workspace.New(models.DefaultQuest(), zap.NewNop())
	ws.Start()
	t.Cleanup(ws.Close)
	s := NewQuestService(ws, publisher, zap.NewNop(), WithQuestRepository(quests), WithEventSink(sink))

	quests.On("Save", mock.Anything, mock.MatchedBy(func(q *models.SavedQuest) bool {
		return q.ID == uuid.Nil && q.Title == "The Mini Mundane Quest"
	})).Return(id, nil).Once()
	saved, err := s.SaveToLibrary(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, saved.ID)

	meta, err := serializer.Load(saved.Document)
	require.NoError(t, err)
	assert.True(t, models.DefaultQuest().Equal(meta))

	// Повторное сохранение обновляет ту же запись
	quests.On("Save", mock.Anything, mock.MatchedBy(func(q *models.SavedQuest) bool { return q.ID == id })).Return(id, nil).Once()
	_, err = s.SaveToLibrary(ctx)
	require.NoError(t, err)

	otherID := uuid.New()
	doc, err := serializer.Dump(models.GameMeta{Title: "Other", Icon: "🐉", Scenarios: models.NewGraph(models.Scenario{ID: "start", Text: "Dragon"})})
	require.NoError(t, err)
	quests.On("GetByID", mock.Anything, otherID).Return(&models.SavedQuest{ID: otherID, Title: "Other", Document: doc}, nil)
	opened, err := s.OpenFromLibrary(ctx, otherID)
	require.NoError(t, err)
	assert.Equal(t, "Other", opened.Title)
	overview, err := ws.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"start"}, overview.ScenarioIDs)

	missing := uuid.New()
	quests.On("GetByID", mock.Anything, missing).Return(nil, models.ErrQuestNotFound)
	_, err = s.OpenFromLibrary(ctx, missing)
	assert.True(t, errors.Is(err, models.ErrQuestNotFound))

	quests.On("Delete", mock.Anything, otherID).Return(nil)
	require.NoError(t, s.DeleteFromLibrary(ctx, otherID))

	// После удаления открытой записи сохранение создаёт новую
	quests.On("Save", mock.Anything, mock.MatchedBy(func(q *models.SavedQuest) bool {
		return q.ID == uuid.Nil && q.Title == "Other"
	})).Return(uuid.New(), nil).Once()
	_, err = s.SaveToLibrary(ctx)
	require.NoError(t, err)

	quests.AssertExpectations(t)
	assert.Equal(t, []models.QuestEventType{
		models.QuestEventSaved, models.QuestEventSaved, models.QuestEventDeleted, models.QuestEventSaved,
	}, sink.types())
	publisher.AssertNumberOfCalls(t, "PublishQuestEvent", 4)
}

func TestImportAndExport(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	sessions := new(mocks.SessionRepository)
	sessions.On("DeleteSnapshot", mock.Anything, DefaultWorkspaceID).Return(nil)
	s := newService(t, WithEventSink(sink), WithSessionRepository(sessions))

	okBefore := testutil.ToFloat64(importsTotal.WithLabelValues("bundle", "ok"))
	failedBefore := testutil.ToFloat64(importsTotal.WithLabelValues("data", "failed"))
	exportsBefore := testutil.ToFloat64(exportsTotal.WithLabelValues("bundle"))

	art, err := s.Export(ctx, workspace.FormatBundle)
	require.NoError(t, err)
	assert.Equal(t, "the_mini_mundane_quest.html", art.Filename)

	_, err = s.Import(ctx, workspace.FormatData, strings.NewReader("not json"))
	assert.True(t, errors.Is(err, models.ErrParse))

	meta, err := s.Import(ctx, workspace.FormatBundle, bytes.NewReader(art.Body))
	require.NoError(t, err)
	assert.Equal(t, "The Mini Mundane Quest", meta.Title)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(importsTotal.WithLabelValues("bundle", "ok")))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(importsTotal.WithLabelValues("data", "failed")))
	assert.Equal(t, exportsBefore+1, testutil.ToFloat64(exportsTotal.WithLabelValues("bundle")))
	assert.Equal(t, []models.QuestEventType{models.QuestEventExported, models.QuestEventImported}, sink.types())
	sessions.AssertNumberOfCalls(t, "DeleteSnapshot", 1)
}

type recordingNotifier struct {
	got chan play.Notification
}

func (r recordingNotifier) AchievementUnlocked(n play.Notification) { r.got <- n }

func TestUnlockNotifierFansOut(t *testing.T) {
	published := make(chan models.QuestEvent, 1)
	publisher := new(mocks.EventPublisher)
	publisher.On("PublishQuestEvent", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { published <- args.Get(1).(models.QuestEvent) }).
		Return(nil)

	target := recordingNotifier{got: make(chan play.Notification, 1)}
	before := testutil.ToFloat64(achievementsUnlockedTotal)

	shown := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	n := NewUnlockNotifier(publisher, zap.NewNop(), target)
	n.AchievementUnlocked(play.Notification{Achievement: "PIZZA CHAMPION", ShownAt: shown, DismissAt: shown.Add(play.UnlockDisplayDuration)})

	assert.Equal(t, "PIZZA CHAMPION", (<-target.got).Achievement)
	select {
	case e := <-published:
		assert.Equal(t, models.QuestEventAchievementUnlocked, e.Type)
		assert.Equal(t, "PIZZA CHAMPION", e.Achievement)
		assert.Equal(t, shown, e.OccurredAt)
	case <-time.After(2 * time.Second):
		t.Fatal("achievement event was not published")
	}
	assert.Equal(t, before+1, testutil.ToFloat64(achievementsUnlockedTotal))
}

func TestUnlockNotifierWaitDrainsPublishes(t *testing.T) {
	release := make(chan struct{})
	publisher := new(mocks.EventPublisher)
	publisher.On("PublishQuestEvent", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil)

	n := NewUnlockNotifier(publisher, zap.NewNop())
	n.AchievementUnlocked(play.Notification{Achievement: "HUNGER STRIKE", ShownAt: time.Now()})

	drained := make(chan struct{})
	go func() {
		n.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		t.Fatal("Wait returned while a publish was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-drained:
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return after the publish finished")
	}
	publisher.AssertNumberOfCalls(t, "PublishQuestEvent", 1)
}

func TestExportEventMatchesArtifact(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	s := newService(t, WithEventSink(sink))

	stop := make(chan struct{})
	renamed := make(chan struct{})
	go func() {
		defer close(renamed)
		titles := []string{"Night Snack", "Breakfast Run"}
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			title := titles[i%2]
			_ = s.ws.SetMeta(ctx, &title, nil)
		}
	}()

	var artifacts []workspace.Artifact
	for i := 0; i < 50; i++ {
		art, err := s.Export(ctx, workspace.FormatBundle)
		require.NoError(t, err)
		artifacts = append(artifacts, art)
	}
	close(stop)
	<-renamed

	sink.mu.Lock()
	events := append([]models.QuestEvent(nil), sink.events...)
	sink.mu.Unlock()
	require.Len(t, events, len(artifacts))
	for i, art := range artifacts {
		assert.Equal(t, art.Title, events[i].Title)
		assert.Equal(t, bundle.Filename(events[i].Title), art.Filename)
	}
}
