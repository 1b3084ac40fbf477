package websocket

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Event 推送给前端的实时事件
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// 事件类型
const (
	EventLabelApplied     = "label.applied"
	EventAccountConnected = "account.connected"
)

// LabelAppliedData label.applied 事件数据体
type LabelAppliedData struct {
	MessageID string `json:"messageId"`
	LabelID   string `json:"labelId"`
	LabelName string `json:"labelName"`
	AccountID string `json:"accountId"`
	Subject   string `json:"subject,omitempty"`
}

// AccountConnectedData account.connected 事件数据体
type AccountConnectedData struct {
	AccountID string `json:"accountId"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	IsPrimary bool   `json:"isPrimary"`
}

// delivery 单次用户定向推送
type delivery struct {
	userID  string
	payload []byte
}

// Hub 管理全部 WebSocket 连接并按用户定向推送事件
type Hub struct {
	clients    map[string]map[*Client]struct{} // userID -> connections
	register   chan *Client
	unregister chan *Client
	deliveries chan delivery
	log        *zap.Logger
}

// NewHub 创建 WebSocket 中心
func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliveries: make(chan delivery, 256),
		log:        log,
	}
}

// Run 运行事件循环直到 ctx 取消
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, conns := range h.clients {
				for client := range conns {
					close(client.send)
				}
			}
			return

		case client := <-h.register:
			if h.clients[client.userID] == nil {
				h.clients[client.userID] = make(map[*Client]struct{})
			}
			h.clients[client.userID][client] = struct{}{}
			h.log.Debug("websocket client connected", zap.String("user_id", client.userID))

		case client := <-h.unregister:
			if conns, ok := h.clients[client.userID]; ok {
				if _, ok := conns[client]; ok {
					delete(conns, client)
					close(client.send)
					if len(conns) == 0 {
						delete(h.clients, client.userID)
					}
				}
			}

		case d := <-h.deliveries:
			for client := range h.clients[d.userID] {
				select {
				case client.send <- d.payload:
				default:
					// 发送队列已满的连接视为掉线
					delete(h.clients[d.userID], client)
					close(client.send)
				}
			}
		}
	}
}

// Publish 向指定用户的全部连接推送事件
func (h *Hub) Publish(userID string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Warn("failed to encode websocket event", zap.Error(err))
		return
	}
	select {
	case h.deliveries <- delivery{userID: userID, payload: payload}:
	default:
		h.log.Warn("websocket delivery queue full, event dropped",
			zap.String("user_id", userID), zap.String("type", event.Type))
	}
}

// PublishLabelApplied 推送打标事件
func (h *Hub) PublishLabelApplied(userID string, data LabelAppliedData) {
	h.Publish(userID, Event{Type: EventLabelApplied, Data: data})
}

// PublishAccountConnected 推送账户连接事件
func (h *Hub) PublishAccountConnected(userID string, data AccountConnectedData) {
	h.Publish(userID, Event{Type: EventAccountConnected, Data: data})
}

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// Client 单个 WebSocket 连接
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

// NewClient 创建连接并启动读写泵
func (h *Hub) NewClient(conn *websocket.Conn, userID string) *Client {
	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 32),
		userID: userID,
	}
	h.register <- client

	go client.writePump()
	go client.readPump()
	return client
}

// readPump 消费入站帧，仅用于保活与感知断连
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump 将事件写入连接并周期性发送 ping
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
