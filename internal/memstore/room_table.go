// Package memstore - in-memory хранилище комнат и участников.
// Ничего не переживает рестарт процесса.
package memstore

import (
	"sync"
	"time"

	"github.com/cwrk-planet/presence-relay/internal/domain"
)

type room struct {
	id        string
	createdAt time.Time
	members   map[string]domain.Member
	order     []string // порядок вставки для снапшотов
}

// RoomTable - room id -> участники. Комната создаётся первым UpsertMember
// и удаляется тем же RemoveMember, который убрал последнего участника.
type RoomTable struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]*room)}
}

// UpsertMember вставляет или заменяет запись участника. created == true,
// если комната была создана этим вызовом.
func (t *RoomTable) UpsertMember(roomID string, m domain.Member) (created bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomID]
	if !ok {
		rm = &room{
			id:        roomID,
			createdAt: time.Now(),
			members:   make(map[string]domain.Member),
		}
		t.rooms[roomID] = rm
		created = true
	}

	if _, exists := rm.members[m.ID]; !exists {
		rm.order = append(rm.order, m.ID)
	}
	rm.members[m.ID] = m

	return created
}

// RemoveMember удаляет запись участника. Если комната опустела, она
// удаляется в этой же операции.
func (t *RoomTable) RemoveMember(roomID, memberID string) (removed, emptied bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm, ok := t.rooms[roomID]
	if !ok {
		return false, false
	}
	if _, exists := rm.members[memberID]; !exists {
		return false, false
	}

	delete(rm.members, memberID)
	for i, id := range rm.order {
		if id == memberID {
			rm.order = append(rm.order[:i], rm.order[i+1:]...)
			break
		}
	}

	if len(rm.members) == 0 {
		delete(t.rooms, roomID)
		return true, true
	}
	return true, false
}

// Snapshot - копия всех участников в порядке вставки. Для неизвестной
// комнаты возвращается пустой (не nil) слайс.
func (t *RoomTable) Snapshot(roomID string) []domain.Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rm, ok := t.rooms[roomID]
	if !ok {
		return []domain.Member{}
	}

	out := make([]domain.Member, 0, len(rm.order))
	for _, id := range rm.order {
		out = append(out, rm.members[id])
	}
	return out
}

func (t *RoomTable) GetMember(roomID, memberID string) (domain.Member, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rm, ok := t.rooms[roomID]
	if !ok {
		return domain.Member{}, false
	}
	m, ok := rm.members[memberID]
	return m, ok
}

func (t *RoomTable) Exists(roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.rooms[roomID]
	return ok
}

func (t *RoomTable) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rooms)
}

// CreatedAt возвращает момент создания комнаты (для логов при закрытии).
func (t *RoomTable) CreatedAt(roomID string) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rm, ok := t.rooms[roomID]
	if !ok {
		return time.Time{}, false
	}
	return rm.createdAt, true
}
