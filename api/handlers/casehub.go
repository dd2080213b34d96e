package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/models"
)

const (
	subscriberBuffer = 16
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = pongWait * 9 / 10
)

// caseEvent is the frame pushed to websocket subscribers of a case
type caseEvent struct {
	Event string         `json:"event"`
	Data  models.Message `json:"data"`
}

type caseSubscriber struct {
	conn *websocket.Conn
	send chan caseEvent
}

// CaseHub fans new case messages out to the websocket clients following
// that case. Slow subscribers are disconnected instead of blocking senders.
type CaseHub struct {
	upgrader websocket.Upgrader

	mutex sync.Mutex
	cases map[string]map[*caseSubscriber]struct{}
}

// NewCaseHub creates a hub accepting upgrades from allowedOrigins ("*" for any)
func NewCaseHub(allowedOrigins []string) *CaseHub {
	allowAll := false
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = true
	}
	return &CaseHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || origins[origin]
			},
		},
		cases: make(map[string]map[*caseSubscriber]struct{}),
	}
}

// Subscribers returns the number of clients following a case
func (h *CaseHub) Subscribers(referenceNumber string) int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.cases[referenceNumber])
}

// Broadcast queues msg for every subscriber of the case
func (h *CaseHub) Broadcast(referenceNumber string, msg models.Message) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	for sub := range h.cases[referenceNumber] {
		select {
		case sub.send <- caseEvent{Event: "new_message", Data: msg}:
		default:
			zap.S().Warnw("dropping slow case subscriber", "referenceNumber", referenceNumber)
			h.removeLocked(referenceNumber, sub)
		}
	}
}

// Serve upgrades the request and streams the case's new messages until the
// client goes away
func (h *CaseHub) Serve(w http.ResponseWriter, r *http.Request, referenceNumber string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Debugw("websocket upgrade error", "error", err)
		return
	}

	sub := &caseSubscriber{conn: conn, send: make(chan caseEvent, subscriberBuffer)}
	h.mutex.Lock()
	if h.cases[referenceNumber] == nil {
		h.cases[referenceNumber] = make(map[*caseSubscriber]struct{})
	}
	h.cases[referenceNumber][sub] = struct{}{}
	h.mutex.Unlock()
	zap.S().Debugw("case subscriber connected", "referenceNumber", referenceNumber)

	go h.writePump(sub)

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.NextReader(); err != nil {
			break
		}
	}

	h.mutex.Lock()
	h.removeLocked(referenceNumber, sub)
	h.mutex.Unlock()
	zap.S().Debugw("case subscriber disconnected", "referenceNumber", referenceNumber)
}

// Close disconnects every subscriber
func (h *CaseHub) Close() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for ref, subs := range h.cases {
		for sub := range subs {
			h.removeLocked(ref, sub)
		}
	}
}

// removeLocked must be called with the mutex held
func (h *CaseHub) removeLocked(referenceNumber string, sub *caseSubscriber) {
	subs, ok := h.cases[referenceNumber]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.cases, referenceNumber)
	}
	close(sub.send)
}

func (h *CaseHub) writePump(sub *caseSubscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
