// Package service реализует протокол присутствия: join / update-location /
// leave / disconnect поверх таблицы комнат и реестра соединений.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwrk-planet/presence-relay/internal/domain"
	"github.com/cwrk-planet/presence-relay/internal/eventlog"
	"github.com/cwrk-planet/presence-relay/internal/hub"
	"github.com/cwrk-planet/presence-relay/internal/memstore"
	"github.com/cwrk-planet/presence-relay/internal/metrics"
	"github.com/cwrk-planet/presence-relay/internal/protocol"
)

type PresenceService struct {
	rooms   *memstore.RoomTable
	hub     *hub.Hub
	events  *eventlog.Log
	metrics *metrics.Metrics
	locks   *roomLocks

	now func() time.Time
}

// NewPresenceService: events и m могут быть nil.
func NewPresenceService(rooms *memstore.RoomTable, h *hub.Hub, events *eventlog.Log, m *metrics.Metrics) *PresenceService {
	return &PresenceService{
		rooms:   rooms,
		hub:     h,
		events:  events,
		metrics: m,
		locks:   newRoomLocks(),
		now:     time.Now,
	}
}

// Connect регистрирует новое соединение в состоянии UNJOINED.
func (s *PresenceService) Connect(c hub.Conn) {
	s.hub.Register(c)
	slog.Debug("presence connect", "conn", c.ID())
}

// Join привязывает соединение к комнате и участнику. Если соединение уже
// в другой комнате (или представляет другого участника), сначала
// выполняется полный выход.
func (s *PresenceService) Join(ctx context.Context, connID, roomID string, p domain.MemberPatch) error {
	if err := protocol.ValidateJoin(roomID, p); err != nil {
		s.metrics.Dropped("invalid_payload")
		return err
	}

	assoc, ok := s.hub.Association(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if assoc.Joined() && (assoc.RoomID != roomID || assoc.MemberID != p.ID) {
		if err := s.Leave(ctx, connID); err != nil {
			return fmt.Errorf("leave previous room: %w", err)
		}
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	if _, err := s.hub.Associate(connID, roomID, p.ID); err != nil {
		return err
	}

	// запись переходит к новому соединению; прежний владелец отвязывается,
	// чтобы не получать рассылки комнаты и не пережить её закрытие
	if prev, ok := s.rooms.GetMember(roomID, p.ID); ok && prev.ConnectionID != connID {
		if _, detached := s.hub.Detach(prev.ConnectionID); detached {
			slog.Info("member taken over", "room", roomID, "member", p.ID, "conn", connID, "prev_conn", prev.ConnectionID)
		}
	}

	var m domain.Member
	p.Apply(&m)
	m.LastUpdated = s.now()
	m.ConnectionID = connID

	if s.rooms.UpsertMember(roomID, m) {
		s.logEvent("New room created: %s", roomID)
		s.metrics.RoomCreated()
	}
	s.logEvent("User %s joined session %s", m.ID, roomID)
	s.metrics.Joined()
	slog.Info("member joined", "room", roomID, "member", m.ID, "conn", connID)

	s.broadcastLocked(roomID)
	return nil
}

// UpdateLocation сливает частичное описание с записью участника. Неизвестный
// участник создаётся из патча; несуществующая комната - no-op.
func (s *PresenceService) UpdateLocation(ctx context.Context, connID, roomID string, p domain.MemberPatch) error {
	if err := protocol.ValidateUpdate(roomID, p); err != nil {
		s.metrics.Dropped("invalid_payload")
		return err
	}

	assoc, ok := s.hub.Association(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if assoc.Joined() && (assoc.RoomID != roomID || assoc.MemberID != p.ID) {
		s.metrics.Dropped("member_mismatch")
		return domain.ErrMemberMismatch
	}

	unlock := s.locks.lock(roomID)
	defer unlock()

	if !s.rooms.Exists(roomID) {
		s.metrics.Dropped("room_not_found")
		slog.Debug("update for unknown room", "room", roomID, "member", p.ID, "conn", connID)
		return domain.ErrRoomNotFound
	}

	m, exists := s.rooms.GetMember(roomID, p.ID)
	if !exists {
		// self-heal: join потерялся или обогнан апдейтом
		m = domain.Member{ConnectionID: connID}
		if !assoc.Joined() {
			if _, err := s.hub.Associate(connID, roomID, p.ID); err != nil {
				return err
			}
		}
		slog.Debug("member recreated from update", "room", roomID, "member", p.ID, "conn", connID)
	}
	p.Apply(&m)
	m.LastUpdated = s.now()
	s.rooms.UpsertMember(roomID, m)
	s.metrics.LocationUpdated()

	s.broadcastLocked(roomID)
	return nil
}

// Leave - явный выход. Для UNJOINED соединения ничего не делает.
// Участник удаляется, только если запись принадлежит этому соединению.
func (s *PresenceService) Leave(_ context.Context, connID string) error {
	assoc, ok := s.hub.Association(connID)
	if !ok {
		return domain.ErrUnknownConnection
	}
	if !assoc.Joined() {
		return nil
	}

	unlock := s.locks.lock(assoc.RoomID)
	defer unlock()

	assoc, ok = s.hub.Detach(connID)
	if !ok {
		return nil
	}

	m, exists := s.rooms.GetMember(assoc.RoomID, assoc.MemberID)
	if !exists || m.ConnectionID != connID {
		return nil
	}

	createdAt, _ := s.rooms.CreatedAt(assoc.RoomID)
	removed, emptied := s.rooms.RemoveMember(assoc.RoomID, assoc.MemberID)
	if !removed {
		return nil
	}
	s.logEvent("User %s left session %s", assoc.MemberID, assoc.RoomID)
	s.metrics.Left()
	slog.Info("member left", "room", assoc.RoomID, "member", assoc.MemberID, "conn", connID)

	if emptied {
		s.logEvent("Room %s closed (empty)", assoc.RoomID)
		s.metrics.RoomClosed()
		slog.Info("room closed", "room", assoc.RoomID, "lifetime", s.now().Sub(createdAt))
		return nil
	}

	s.broadcastLocked(assoc.RoomID)
	return nil
}

// Disconnect - закрытие транспорта: выход из комнаты и снятие регистрации.
func (s *PresenceService) Disconnect(ctx context.Context, connID string) {
	if err := s.Leave(ctx, connID); err != nil {
		slog.Debug("presence disconnect leave", "conn", connID, "err", err)
	}
	s.hub.Unregister(connID)
	slog.Debug("presence disconnect", "conn", connID)
}

func (s *PresenceService) Snapshot(roomID string) []domain.Member {
	return s.rooms.Snapshot(roomID)
}

// Stats - число живых соединений и комнат.
func (s *PresenceService) Stats() (connections, rooms int) {
	return s.hub.Count(), s.rooms.RoomCount()
}

// broadcastLocked вызывается под блокировкой комнаты: порядок рассылок
// совпадает с порядком изменений.
func (s *PresenceService) broadcastLocked(roomID string) {
	payload, err := protocol.EncodeSessionUpdate(s.rooms.Snapshot(roomID))
	if err != nil {
		slog.Error("encode session update", "room", roomID, "err", err)
		return
	}

	res := s.hub.Broadcast(roomID, payload)
	s.metrics.Broadcast(len(res.Dropped))
	if len(res.Dropped) > 0 {
		slog.Warn("broadcast dropped", "room", roomID, "sent", res.Sent, "dropped", res.Dropped)
	}
}

func (s *PresenceService) logEvent(format string, args ...any) {
	if s.events != nil {
		s.events.Appendf(format, args...)
	}
}
