package controllers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Fuuurma/FinanceHub-sub001/internal/analytics"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 512
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// DriftHub streams drift alerts to websocket subscribers. A client may
// subscribe to a single portfolio with ?portfolio_id=.
type DriftHub struct {
	clients    map[*driftClient]bool
	broadcast  chan analytics.DriftStatus
	register   chan *driftClient
	unregister chan *driftClient
	done       chan struct{}
	mu         sync.RWMutex
	metrics    *monitoring.Metrics
	logger     *logrus.Logger
}

type driftClient struct {
	hub         *DriftHub
	conn        *websocket.Conn
	send        chan []byte
	portfolioID string
}

func NewDriftHub(metrics *monitoring.Metrics, logger *logrus.Logger) *DriftHub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &DriftHub{
		clients:    make(map[*driftClient]bool),
		broadcast:  make(chan analytics.DriftStatus, 256),
		register:   make(chan *driftClient),
		unregister: make(chan *driftClient),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger,
	}
}

// Run is the hub event loop. Should be called as a goroutine.
func (h *DriftHub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(0)
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(count)
			h.logger.WithField("clients", count).Debug("Drift stream client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(count)
			h.logger.WithField("clients", count).Debug("Drift stream client disconnected")

		case status := <-h.broadcast:
			data, err := json.Marshal(status)
			if err != nil {
				h.logger.WithError(err).Warn("Failed to marshal drift status")
				continue
			}

			h.mu.RLock()
			var slow []*driftClient
			for client := range h.clients {
				if client.portfolioID != "" && client.portfolioID != status.PortfolioID {
					continue
				}
				select {
				case client.send <- data:
				default:
					slow = append(slow, client)
				}
			}
			h.mu.RUnlock()

			if len(slow) > 0 {
				h.mu.Lock()
				for _, c := range slow {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						close(c.send)
					}
				}
				count := len(h.clients)
				h.mu.Unlock()
				h.metrics.SetWebsocketClients(count)
			}
		}
	}
}

// Stop ends the event loop and disconnects every client
func (h *DriftHub) Stop() {
	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

// Broadcast queues a drift status for every matching subscriber. Events are
// dropped when the queue is full.
func (h *DriftHub) Broadcast(status analytics.DriftStatus) {
	select {
	case h.broadcast <- status:
	default:
		h.logger.WithField("portfolio_id", status.PortfolioID).Warn("Drift stream queue full, dropping alert")
	}
}

func (h *DriftHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// @Summary Drift alert stream
// @Description Websocket that pushes a drift status whenever a portfolio needs rebalancing
// @Tags stream
// @Param portfolio_id query string false "Only alerts for this portfolio"
// @Success 101
// @Router /ws/drift [get]
func (h *DriftHub) ServeWS(ctx *gin.Context) {
	conn, err := upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	client := &driftClient{
		hub:         h,
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		portfolioID: ctx.Query("portfolio_id"),
	}

	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (c *driftClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

// readPump only detects close and keeps the read deadline fresh
func (c *driftClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
