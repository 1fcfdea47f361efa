package notify_test

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"quest-maker/internal/notify"
	"quest-maker/internal/play"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type received struct {
	Type    string          `json:"type"`
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func startHub(t *testing.T) (*notify.Hub, *websocket.Conn) {
	t.Helper()
	hub := notify.NewHub(nil, zap.NewNop())
	hub.Start()
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(hub)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	return hub, conn
}

func readMessage(t *testing.T, conn *websocket.Conn) received {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg received
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestAchievementNotificationIsDelivered(t *testing.T) {
	hub, conn := startHub(t)

	shown := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	hub.AchievementUnlocked(play.Notification{
		Achievement: "PIZZA CHAMPION",
		ShownAt:     shown,
		DismissAt:   shown.Add(play.UnlockDisplayDuration),
	})

	msg := readMessage(t, conn)
	assert.Equal(t, notify.TypeAchievementUnlocked, msg.Type)
	assert.Equal(t, notify.TopicAchievements, msg.Topic)

	var n play.Notification
	require.NoError(t, json.Unmarshal(msg.Payload, &n))
	assert.Equal(t, "PIZZA CHAMPION", n.Achievement)
	assert.Equal(t, 3*time.Second, n.DismissAt.Sub(n.ShownAt))
}

func TestUnsubscribedTopicIsSkipped(t *testing.T) {
	hub, conn := startHub(t)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "unsubscribe", "topic": notify.TopicAchievements}))
	require.NoError(t, conn.WriteJSON(map[string]string{"action": "subscribe", "topic": "probe"}))

	// Команды обрабатываются по порядку: первый пришедший probe означает, что отписка применена
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				hub.Broadcast(notify.Message{Type: "probe", Topic: "probe"})
			}
		}
	}()
	first := readMessage(t, conn)
	close(stop)
	require.Equal(t, "probe", first.Type)

	hub.AchievementUnlocked(play.Notification{Achievement: "HIDDEN"})
	hub.Broadcast(notify.Message{Type: notify.TypeQuestEvent, Topic: notify.TopicQuest, Payload: "saved"})

	for {
		msg := readMessage(t, conn)
		if msg.Type == "probe" {
			continue
		}
		assert.Equal(t, notify.TypeQuestEvent, msg.Type)
		break
	}
}

func TestClosedHub(t *testing.T) {
	hub := notify.NewHub(nil, zap.NewNop())
	hub.Start()
	hub.Close()

	assert.False(t, hub.Broadcast(notify.Message{Type: "x", Topic: "y"}))
	assert.Equal(t, 0, hub.Clients())
}
