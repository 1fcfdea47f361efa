package notify

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"quest-maker/internal/models"
	"quest-maker/internal/play"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Темы, на которые клиент подписан сразу после подключения.
const (
	TopicAchievements = "achievements"
	TopicQuest        = "quest"
)

// Типы сообщений.
const (
	TypeAchievementUnlocked = "achievement_unlocked"
	TypeQuestEvent          = "quest_event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Message - сообщение клиенту.
type Message struct {
	Type    string `json:"type"`
	Topic   string `json:"topic"`
	Payload any    `json:"payload"`
}

type client struct {
	id     uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.RWMutex
	topics map[string]bool
}

func (c *client) subscribe(topic string) {
	c.mu.Lock()
	c.topics[topic] = true
	c.mu.Unlock()
}

func (c *client) unsubscribe(topic string) {
	c.mu.Lock()
	delete(c.topics, topic)
	c.mu.Unlock()
}

func (c *client) subscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topics[topic]
}

// Hub рассылает уведомления подключенным клиентам превью.
// Отправка никогда не блокирует вызывающего: медленный клиент отключается.
type Hub struct {
	clients    map[uuid.UUID]*client
	register   chan *client
	unregister chan *client
	broadcast  chan Message
	count      chan chan int
	done       chan struct{}
	closeOnce  sync.Once
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

var _ play.Notifier = (*Hub)(nil)

// NewHub создает хаб. Пустой allowedOrigins разрешает любой Origin.
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	h := &Hub{
		clients:    make(map[uuid.UUID]*client),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan Message, sendBuffer),
		count:      make(chan chan int),
		done:       make(chan struct{}),
		logger:     logger.Named("NotifyHub"),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return len(allowedOrigins) == 0 || origin == "" || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// Start запускает цикл хаба в отдельной горутине.
func (h *Hub) Start() {
	go h.run()
}

// Close отключает всех клиентов и останавливает цикл.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

func (h *Hub) run() {
	for {
		select {
		case <-h.done:
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.logger.Info("Notification hub stopped")
			return

		case c := <-h.register:
			h.clients[c.id] = c
			h.logger.Info("Client connected", zap.String("clientID", c.id.String()), zap.Int("clients", len(h.clients)))

		case c := <-h.unregister:
			if _, ok := h.clients[c.id]; ok {
				close(c.send)
				delete(h.clients, c.id)
				h.logger.Info("Client disconnected", zap.String("clientID", c.id.String()))
			}

		case reply := <-h.count:
			reply <- len(h.clients)

		case msg := <-h.broadcast:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("Failed to marshal notification", zap.String("type", msg.Type), zap.Error(err))
				continue
			}
			for id, c := range h.clients {
				if !c.subscribed(msg.Topic) {
					continue
				}
				select {
				case c.send <- data:
				default:
					h.logger.Warn("Client send queue is full, disconnecting", zap.String("clientID", id.String()))
					close(c.send)
					delete(h.clients, id)
				}
			}
		}
	}
}

// Broadcast ставит сообщение в очередь рассылки. Возвращает false, если очередь полна или хаб остановлен.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.logger.Warn("Broadcast queue is full, message dropped", zap.String("type", msg.Type))
		return false
	}
}

// AchievementUnlocked реализует play.Notifier.
func (h *Hub) AchievementUnlocked(n play.Notification) {
	h.Broadcast(Message{Type: TypeAchievementUnlocked, Topic: TopicAchievements, Payload: n})
}

// QuestEvent рассылает событие квеста подписчикам темы quest.
func (h *Hub) QuestEvent(event models.QuestEvent) {
	h.Broadcast(Message{Type: TypeQuestEvent, Topic: TopicQuest, Payload: event})
}

// Clients возвращает число подключенных клиентов, 0 после остановки.
func (h *Hub) Clients() int {
	reply := make(chan int, 1)
	select {
	case h.count <- reply:
		return <-reply
	case <-h.done:
		return 0
	}
}

// ServeHTTP переводит соединение в WebSocket и регистрирует клиента.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader уже ответил клиенту
		h.logger.Warn("Failed to upgrade connection", zap.Error(err))
		return
	}

	c := &client{
		id:     uuid.New(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		topics: map[string]bool{TopicAchievements: true, TopicQuest: true},
	}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go h.writePump(c)
	go h.readPump(c)
}

// readPump принимает команды подписки и следит за pong.
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("WebSocket read error", zap.String("clientID", c.id.String()), zap.Error(err))
			}
			return
		}

		var cmd struct {
			Action string `json:"action"`
			Topic  string `json:"topic"`
		}
		if err := json.Unmarshal(data, &cmd); err != nil {
			h.logger.Debug("Ignoring malformed client command", zap.String("clientID", c.id.String()), zap.Error(err))
			continue
		}
		switch cmd.Action {
		case "subscribe":
			c.subscribe(cmd.Topic)
		case "unsubscribe":
			c.unsubscribe(cmd.Topic)
		}
	}
}

// writePump отправляет сообщения из очереди и пинги.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Одно сообщение - один фрейм
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				h.logger.Debug("Failed to write message", zap.String("clientID", c.id.String()), zap.Error(err))
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
