package hub

import (
	"sync"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

// Conn - транспортное соединение, которым владеет gateway.
// Send не должен блокироваться: медленный получатель не тормозит рассылку.
type Conn interface {
	ID() string
	Send(payload []byte) error
	Close() error
}

type entry struct {
	conn  Conn
	assoc domain.Association
}

// Hub - реестр живых соединений и их привязки к комнате/участнику.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*entry
	rooms map[string]map[string]struct{} // roomID -> set of connection ids
}

type BroadcastResult struct {
	Sent    int
	Dropped []string // connection ids, которым не удалось доставить
}

func New() *Hub {
	return &Hub{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]struct{}),
	}
}

func (h *Hub) Register(c Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = &entry{conn: c, assoc: domain.Association{ConnectionID: c.ID()}}
}

// Unregister удаляет соединение вместе с привязкой.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return
	}
	h.detachLocked(e)
	delete(h.conns, connID)
}

// Associate привязывает соединение к (room, member). Повторный вызов с той же
// парой ничего не меняет; привязка к другой паре сначала полностью снимает
// предыдущую и возвращает её.
func (h *Hub) Associate(connID, roomID, memberID string) (prev domain.Association, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return domain.Association{}, domain.ErrUnknownConnection
	}
	if e.assoc.RoomID == roomID && e.assoc.MemberID == memberID {
		return domain.Association{}, nil
	}

	prev = h.detachLocked(e)

	e.assoc.RoomID = roomID
	e.assoc.MemberID = memberID
	rs, ok := h.rooms[roomID]
	if !ok {
		rs = make(map[string]struct{})
		h.rooms[roomID] = rs
	}
	rs[connID] = struct{}{}

	return prev, nil
}

// Detach снимает привязку и возвращает её; ok == false, если соединение
// не было ни в одной комнате.
func (h *Hub) Detach(connID string) (domain.Association, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	e, ok := h.conns[connID]
	if !ok {
		return domain.Association{}, false
	}
	prev := h.detachLocked(e)
	return prev, prev.Joined()
}

func (h *Hub) Association(connID string) (domain.Association, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	e, ok := h.conns[connID]
	if !ok {
		return domain.Association{}, false
	}
	return e.assoc, true
}

// Broadcast доставляет payload всем соединениям комнаты. best-effort:
// ошибка одного получателя не мешает остальным.
func (h *Hub) Broadcast(roomID string, payload []byte) BroadcastResult {
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.rooms[roomID]))
	for id := range h.rooms[roomID] {
		if e, ok := h.conns[id]; ok {
			targets = append(targets, e.conn)
		}
	}
	h.mu.RUnlock()

	var res BroadcastResult
	for _, c := range targets {
		if err := c.Send(payload); err != nil {
			res.Dropped = append(res.Dropped, c.ID())
			continue
		}
		res.Sent++
	}
	return res
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) detachLocked(e *entry) domain.Association {
	prev := e.assoc
	if !prev.Joined() {
		return prev
	}
	if rs, ok := h.rooms[prev.RoomID]; ok {
		delete(rs, prev.ConnectionID)
		if len(rs) == 0 {
			delete(h.rooms, prev.RoomID)
		}
	}
	e.assoc.RoomID = ""
	e.assoc.MemberID = ""
	return prev
}
