package gateway

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/qianlnk/deducebot/models"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// 消息类型，客户端发送 say/dm，服务端推送 channel/private/error
const (
	TypeSay     = "say"
	TypeDM      = "dm"
	TypeChannel = "channel"
	TypePrivate = "private"
	TypeError   = "error"
)

const (
	readLimit       = 64 * 1024
	writeTimeout    = 5 * time.Second
	pongWait        = 60 * time.Second
	pingInterval    = 15 * time.Second
	maxPingFailures = 3
)

// Message WebSocket消息结构
type Message struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Content string `json:"content"`
}

// connection 一个玩家的连接，写操作需要串行
type connection struct {
	id       string
	key      string
	player   string
	channels []string
	conn     *websocket.Conn

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

func (c *connection) write(msg Message) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.conn.WriteJSON(msg)
	_ = c.conn.SetWriteDeadline(time.Time{})
	return err
}

func (c *connection) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
}

func (c *connection) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *connection) inChannel(name string) bool {
	for _, ch := range c.channels {
		if ch == name {
			return true
		}
	}
	return false
}

// Hub WebSocket连接管理器，每个连接是一个玩家，频道相当于房间
type Hub struct {
	handler MessageHandler
	logger  *zap.Logger

	mu           sync.RWMutex
	connections  map[string]*connection // 玩家名(小写) -> 连接
	rooms        map[string][]string    // 频道 -> 玩家名(小写)
	participants map[string]*wsParticipant
}

func NewHub(handler MessageHandler, logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		handler:      handler,
		logger:       logger.Named("websocket"),
		connections:  make(map[string]*connection),
		rooms:        make(map[string][]string),
		participants: make(map[string]*wsParticipant),
	}
}

// Register 注册新连接并加入频道，同名玩家的旧连接会被关闭
func (h *Hub) Register(player string, channels []string, conn *websocket.Conn) string {
	c := &connection{
		id:       uuid.NewString(),
		key:      strings.ToLower(player),
		player:   player,
		channels: channels,
		conn:     conn,
		done:     make(chan struct{}),
	}

	h.mu.Lock()
	if old, ok := h.connections[c.key]; ok {
		old.close()
		h.leaveRooms(old)
	}
	h.connections[c.key] = c
	for _, ch := range channels {
		h.rooms[ch] = append(h.rooms[ch], c.key)
	}
	h.mu.Unlock()

	h.logger.Info("玩家已连接",
		zap.String("player", player),
		zap.String("connection_id", c.id),
		zap.Strings("channels", channels))

	go h.handleMessages(c)
	go h.pingLoop(c)
	return c.id
}

// Participant 按名字复用玩家身份
func (h *Hub) Participant(name string) models.Participant {
	return h.participant(name)
}

func (h *Hub) participant(name string) *wsParticipant {
	key := strings.ToLower(name)
	h.mu.Lock()
	defer h.mu.Unlock()
	if p, ok := h.participants[key]; ok {
		return p
	}
	p := &wsParticipant{hub: h, key: key, name: name}
	h.participants[key] = p
	return p
}

// Channel 频道对应的消息通道
func (h *Hub) Channel(name string) models.Channel {
	return &roomChannel{hub: h, name: name}
}

// Connected 玩家是否在线
func (h *Hub) Connected(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.connections[strings.ToLower(name)]
	return ok
}

// Broadcast 向频道内所有连接发送消息
func (h *Hub) Broadcast(channel string, msg Message) error {
	h.mu.RLock()
	conns := make([]*connection, 0, len(h.rooms[channel]))
	for _, key := range h.rooms[channel] {
		if c, ok := h.connections[key]; ok {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()

	var errs error
	for _, c := range conns {
		errs = multierr.Append(errs, c.write(msg))
	}
	return errs
}

// SendTo 向指定玩家发送消息
func (h *Hub) SendTo(player string, msg Message) error {
	h.mu.RLock()
	c, ok := h.connections[strings.ToLower(player)]
	h.mu.RUnlock()
	if !ok {
		return ErrNotConnected
	}
	if err := c.write(msg); err != nil {
		h.remove(c)
		return err
	}
	return nil
}

// Close 关闭所有连接
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*connection, 0, len(h.connections))
	for _, c := range h.connections {
		conns = append(conns, c)
	}
	h.connections = make(map[string]*connection)
	h.rooms = make(map[string][]string)
	h.mu.Unlock()

	for _, c := range conns {
		c.close()
	}
}

// remove 移除连接，已被新连接替换时不动映射
func (h *Hub) remove(c *connection) {
	c.close()

	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.connections[c.key]; !ok || cur != c {
		return
	}
	delete(h.connections, c.key)
	h.leaveRooms(c)
	h.logger.Info("玩家已断开", zap.String("player", c.player), zap.String("connection_id", c.id))
}

// leaveRooms 调用方需持有写锁
func (h *Hub) leaveRooms(c *connection) {
	for _, ch := range c.channels {
		keys := h.rooms[ch]
		for i, k := range keys {
			if k == c.key {
				h.rooms[ch] = append(keys[:i], keys[i+1:]...)
				break
			}
		}
		if len(h.rooms[ch]) == 0 {
			delete(h.rooms, ch)
		}
	}
}

// handleMessages 处理接收到的WebSocket消息
func (h *Hub) handleMessages(c *connection) {
	defer h.remove(c)

	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	author := h.participant(c.player)
	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("读取消息失败", zap.String("player", c.player), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))

		switch msg.Type {
		case TypeSay:
			if !c.inChannel(msg.Channel) {
				h.reply(c, "not subscribed to channel "+msg.Channel)
				continue
			}
			h.handler.HandleChannelMessage(author, h.Channel(msg.Channel), msg.Channel, msg.Content)
		case TypeDM:
			h.handler.HandleDirectMessage(author, msg.Content)
		default:
			h.reply(c, "unknown message type "+msg.Type)
		}
	}
}

func (h *Hub) reply(c *connection, text string) {
	if err := c.write(Message{Type: TypeError, Content: text}); err != nil {
		h.logger.Debug("发送错误消息失败", zap.String("player", c.player), zap.Error(err))
	}
}

// pingLoop 心跳检测，连续失败达到上限时断开
func (h *Hub) pingLoop(c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	failures := 0
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				failures++
				h.logger.Debug("心跳检测失败", zap.String("player", c.player), zap.Int("failures", failures), zap.Error(err))
				if failures >= maxPingFailures {
					h.remove(c)
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// wsParticipant websocket 玩家，私聊通过其当前连接发送
type wsParticipant struct {
	hub  *Hub
	key  string
	name string
}

func (p *wsParticipant) ID() string      { return "ws:" + p.key }
func (p *wsParticipant) Name() string    { return p.name }
func (p *wsParticipant) Simulated() bool { return false }

func (p *wsParticipant) OpenPrivateChannel() (models.Channel, error) {
	if !p.hub.Connected(p.name) {
		return nil, ErrNotConnected
	}
	return &privateChannel{hub: p.hub, player: p.name}, nil
}

type privateChannel struct {
	hub    *Hub
	player string
}

func (c *privateChannel) Send(text string) error {
	return c.hub.SendTo(c.player, Message{Type: TypePrivate, Content: text})
}

type roomChannel struct {
	hub  *Hub
	name string
}

func (c *roomChannel) Send(text string) error {
	return c.hub.Broadcast(c.name, Message{Type: TypeChannel, Channel: c.name, Content: text})
}
