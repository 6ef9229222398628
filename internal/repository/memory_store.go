package repository

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/lock"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

// MemoryStore is a single-process IntervalStore.  Exclusion comes from a
// keyed mutex (one key per room, one per reservation) and every unit stages
// its writes, applying them under the store mutex only when fn succeeds.
// Status changes are compare-and-set at apply time, so a unit that loses a
// race with another transition fails with ErrConflict and applies nothing.
//
// The server runs on ReservationRepo; MemoryStore backs the engine and
// handler tests.
type MemoryStore struct {
	locks lock.Keyed
	now   func() time.Time

	mu           sync.RWMutex
	rooms        map[uint64]model.Room
	reservations map[uint64]model.Reservation
	outbox       []model.OutboxEvent
	sent         map[uint64]bool
	nextRoom     uint64
	nextRes      uint64
	nextEvent    uint64
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:          func() time.Time { return time.Now().UTC() },
		rooms:        make(map[uint64]model.Room),
		reservations: make(map[uint64]model.Reservation),
		sent:         make(map[uint64]bool),
	}
}

var (
	_ IntervalStore = (*MemoryStore)(nil)
	_ OutboxSource  = (*MemoryStore)(nil)
)

func (s *MemoryStore) CreateRoom(_ context.Context, room model.Room) (model.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room.Number = strings.TrimSpace(room.Number)
	for _, r := range s.rooms {
		if r.Number == room.Number {
			return model.Room{}, ErrRoomNumberExists
		}
	}
	s.nextRoom++
	room.ID = s.nextRoom
	room.CreatedAt = s.now()
	s.rooms[room.ID] = room
	return room, nil
}

func (s *MemoryStore) GetRoom(_ context.Context, id uint64) (model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return model.Room{}, ErrRoomNotFound
	}
	return r, nil
}

func (s *MemoryStore) ListRooms(_ context.Context) ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRooms(func(model.Room) bool { return true }), nil
}

func (s *MemoryStore) AvailableRooms(_ context.Context, iv model.Interval) ([]model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	busy := make(map[uint64]bool)
	for _, res := range s.reservations {
		if res.Status.Active() && res.Interval.Overlaps(iv) {
			busy[res.RoomID] = true
		}
	}
	return s.sortedRooms(func(r model.Room) bool { return !busy[r.ID] }), nil
}

func (s *MemoryStore) sortedRooms(keep func(model.Room) bool) []model.Room {
	var out []model.Room
	for _, r := range s.rooms {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

func (s *MemoryStore) Get(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, ErrReservationNotFound
	}
	return res, nil
}

func (s *MemoryStore) ListForRoom(_ context.Context, roomID uint64) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.RoomID == roomID }, byCheckIn), nil
}

func (s *MemoryStore) ListActiveForRoom(_ context.Context, roomID uint64, window model.Interval) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool {
		if r.RoomID != roomID || !r.Status.Active() {
			return false
		}
		return !window.Valid() || r.Interval.Overlaps(window)
	}, byCheckIn), nil
}

func (s *MemoryStore) ListForOwner(_ context.Context, ownerID uint64) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.OwnerID == ownerID }, newestFirst), nil
}

func (s *MemoryStore) ListAll(_ context.Context) ([]model.Reservation, error) {
	return s.filter(func(model.Reservation) bool { return true }, newestFirst), nil
}

func (s *MemoryStore) Stats(_ context.Context, day time.Time) (model.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	day = model.Day(day)
	st := model.Stats{Total: len(s.reservations)}
	for _, r := range s.reservations {
		if r.Status.Active() && r.Interval.CheckIn.Equal(day) {
			st.TodayCheckIns++
		}
	}
	return st, nil
}

func byCheckIn(a, b model.Reservation) bool {
	if !a.Interval.CheckIn.Equal(b.Interval.CheckIn) {
		return a.Interval.CheckIn.Before(b.Interval.CheckIn)
	}
	return a.ID < b.ID
}

func newestFirst(a, b model.Reservation) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func (s *MemoryStore) filter(keep func(model.Reservation) bool, less func(a, b model.Reservation) bool) []model.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// InRoom runs fn while holding the room's key.
func (s *MemoryStore) InRoom(ctx context.Context, roomID uint64, fn func(tx IntervalTx) error) error {
	if _, err := s.GetRoom(ctx, roomID); err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, "room:"+strconv.FormatUint(roomID, 10))
	if err != nil {
		return err
	}
	defer release()
	return s.run(ctx, func(tx *memTx) error { return fn(tx) })
}

// InReservation runs fn while holding the reservation's key.
func (s *MemoryStore) InReservation(ctx context.Context, id uint64, fn func(tx IntervalTx, res model.Reservation) error) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	release, err := s.locks.Acquire(ctx, "reservation:"+strconv.FormatUint(id, 10))
	if err != nil {
		return err
	}
	defer release()
	return s.run(ctx, func(tx *memTx) error {
		res, err := tx.Lookup(ctx, id)
		if err != nil {
			return err
		}
		return fn(tx, res)
	})
}

func (s *MemoryStore) run(ctx context.Context, fn func(tx *memTx) error) error {
	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		return err
	}
	// A deadline that passes while fn runs still aborts the unit.
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.apply(tx)
}

type statusChange struct {
	id       uint64
	from, to model.Status
	at       time.Time
}

type stayChange struct {
	id     uint64
	iv     model.Interval
	addons model.Addons
	price  int64
	at     time.Time
}

// memTx stages writes.  Reads see committed state overlaid with the
// unit's own staged inserts.
type memTx struct {
	store    *MemoryStore
	inserts  []model.Reservation
	statuses []statusChange
	stays    []stayChange
	events   []model.Event
}

func (t *memTx) ActiveIntervals(_ context.Context, roomID uint64) ([]model.Span, error) {
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	var out []model.Span
	for _, r := range t.store.reservations {
		if r.RoomID == roomID && r.Status.Active() {
			out = append(out, model.Span{ReservationID: r.ID, Interval: r.Interval})
		}
	}
	for _, r := range t.inserts {
		if r.RoomID == roomID {
			out = append(out, model.Span{ReservationID: r.ID, Interval: r.Interval})
		}
	}
	return out, nil
}

func (t *memTx) Lookup(ctx context.Context, id uint64) (model.Reservation, error) {
	for _, r := range t.inserts {
		if r.ID == id {
			return r, nil
		}
	}
	return t.store.Get(ctx, id)
}

func (t *memTx) Insert(_ context.Context, res model.Reservation) (model.Reservation, error) {
	t.store.mu.Lock()
	t.store.nextRes++
	res.ID = t.store.nextRes
	t.store.mu.Unlock()
	res.Addons = res.Addons.Normalize()
	t.inserts = append(t.inserts, res)
	return res, nil
}

func (t *memTx) UpdateStatus(_ context.Context, id uint64, from, to model.Status, at time.Time) error {
	t.statuses = append(t.statuses, statusChange{id: id, from: from, to: to, at: at})
	return nil
}

func (t *memTx) UpdateStay(_ context.Context, id uint64, iv model.Interval, addons model.Addons, priceCents int64, at time.Time) error {
	t.stays = append(t.stays, stayChange{id: id, iv: iv, addons: addons.Normalize(), price: priceCents, at: at})
	return nil
}

func (t *memTx) Enqueue(_ context.Context, ev model.Event) error {
	t.events = append(t.events, ev)
	return nil
}

// apply validates every conditional write, then applies all of them.
func (s *MemoryStore) apply(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range tx.statuses {
		r, ok := s.reservations[c.id]
		if !ok {
			return ErrReservationNotFound
		}
		if r.Status != c.from {
			return ErrConflict
		}
	}
	for _, c := range tx.stays {
		r, ok := s.reservations[c.id]
		if !ok {
			return ErrReservationNotFound
		}
		if r.Status != model.StatusConfirmed {
			return ErrConflict
		}
	}

	for _, r := range tx.inserts {
		s.reservations[r.ID] = r
	}
	for _, c := range tx.stays {
		r := s.reservations[c.id]
		r.Interval, r.Addons, r.TotalPriceCents, r.UpdatedAt = c.iv, c.addons, c.price, c.at
		s.reservations[c.id] = r
	}
	for _, c := range tx.statuses {
		r := s.reservations[c.id]
		r.Status, r.UpdatedAt = c.to, c.at
		s.reservations[c.id] = r
	}
	for _, ev := range tx.events {
		s.nextEvent++
		s.outbox = append(s.outbox, model.OutboxEvent{RowID: s.nextEvent, Event: ev})
	}
	return nil
}

// PendingEvents returns up to limit unsent events, oldest first.
func (s *MemoryStore) PendingEvents(_ context.Context, limit int) ([]model.OutboxEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.OutboxEvent
	for _, e := range s.outbox {
		if s.sent[e.RowID] {
			continue
		}
		out = append(out, e)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkSent flags an outbox row as delivered.
func (s *MemoryStore) MarkSent(_ context.Context, rowID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[rowID] = true
	return nil
}
