package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/gomantle/model_problems/Convection2D"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 8
)

var ErrHubClosed = errors.New("snapshot hub is closed")

// Frame is the JSON form of a snapshot. Fields are row major with row 0 at
// the surface.
type Frame struct {
	Type       string      `json:"type"`
	Iteration  int         `json:"iteration"`
	Time       float64     `json:"time"`
	TimeMyr    float64     `json:"time_myr"`
	Dt         float64     `json:"dt"`
	Nx         int         `json:"nx"`
	Nz         int         `json:"nz"`
	T          [][]float64 `json:"T"`
	Vx         [][]float64 `json:"vx"`
	Vz         [][]float64 `json:"vz"`
	P          [][]float64 `json:"p"`
	Topography []float64   `json:"topography"`
}

func NewFrame(s *Convection2D.Snapshot) (f *Frame) {
	nz, nx := s.T.Dims()
	f = &Frame{
		Type:       "snapshot",
		Iteration:  s.Iteration,
		Time:       s.Time,
		TimeMyr:    s.TimeMyr,
		Dt:         s.Dt,
		Nx:         nx,
		Nz:         nz,
		T:          rows(s.T),
		Vx:         rows(s.Vx),
		Vz:         rows(s.Vz),
		P:          rows(s.P),
		Topography: append([]float64{}, s.Topography...),
	}
	return
}

func rows(m *mat.Dense) (r [][]float64) {
	if m == nil {
		return
	}
	nr, _ := m.Dims()
	r = make([][]float64, nr)
	for j := range r {
		r[j] = append([]float64{}, m.RawRowView(j)...)
	}
	return
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans snapshot frames out to every connected websocket client. A client
// joining late is sent the latest frame first. Clients that fall behind by
// more than sendBufferSize frames are dropped.
type Hub struct {
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	broadcast  chan []byte
	done       chan struct{}
	last       []byte
	upgrader   websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte),
		done:       make(chan struct{}),
		// A nil CheckOrigin rejects browser pages served from another host
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// Run services the hub until ctx is done, then closes every client
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		close(h.done)
		for c := range h.clients {
			h.drop(c)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.clients[c] = true
			if h.last != nil {
				c.send <- h.last
			}
			log.WithField("remote", c.conn.RemoteAddr().String()).Debug("websocket client connected")
		case c := <-h.unregister:
			if h.clients[c] {
				h.drop(c)
			}
		case msg := <-h.broadcast:
			h.last = msg
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					log.WithField("remote", c.conn.RemoteAddr().String()).Warn("dropping slow websocket client")
					h.drop(c)
				}
			}
		}
	}
}

func (h *Hub) drop(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// Publish hands a snapshot to the connected clients. It blocks until the hub
// accepts the frame and fails once the hub has stopped.
func (h *Hub) Publish(s *Convection2D.Snapshot) (err error) {
	var (
		msg []byte
	)
	if msg, err = json.Marshal(NewFrame(s)); err != nil {
		return
	}
	select {
	case h.broadcast <- msg:
	case <-h.done:
		err = ErrHubClosed
	}
	return
}

// ServeWs upgrades the request to a websocket and registers the client
func (h *Hub) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade")
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBufferSize)}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go h.writePump(c)
	go h.readPump(c)
}

// readPump only watches for the peer going away, clients have nothing to say
func (h *Hub) readPump(c *client) {
	defer func() {
		select {
		case h.unregister <- c:
		case <-h.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Debug("websocket read")
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.WithError(err).Debug("websocket write")
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
