package services

import (
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/ledger"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// memStore is an in-memory stand-in for the schedules and bookings tables.
// Each schedule and booking row has its own mutex that a transaction holds
// from the first FOR UPDATE read until commit or rollback.
type memStore struct {
	mu        sync.Mutex
	rowLocks  map[string]*sync.Mutex
	schedules map[int64]*models.Schedule
	valid     map[int64]models.SeatSet
	bookings  map[int64]*models.Booking
	nextID    int64

	// refCollisions makes the next CreateTx calls fail with a duplicate reference
	refCollisions int
}

func newMemStore() *memStore {
	return &memStore{
		rowLocks:  map[string]*sync.Mutex{},
		schedules: map[int64]*models.Schedule{},
		valid:     map[int64]models.SeatSet{},
		bookings:  map[int64]*models.Booking{},
		nextID:    100,
	}
}

func (m *memStore) addSchedule(id int64, total int, price float64, date models.Date) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[id] = &models.Schedule{
		ID:             id,
		BusID:          1,
		RouteID:        1,
		DepartureTime:  "08:30",
		ScheduleDate:   date,
		Price:          price,
		TotalSeats:     total,
		AvailableSeats: total,
		BookedSeats:    models.SeatSet{},
		ReservedSeats:  models.SeatSet{},
		Status:         models.ScheduleStatusActive,
	}
}

func (m *memStore) schedule(id int64) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *memStore) booking(id int64) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *memStore) rowLock(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.rowLocks[key]
	if !ok {
		l = &sync.Mutex{}
		m.rowLocks[key] = l
	}
	return l
}

// memTx satisfies database.Querier through the embedded nil interface; the
// fake stores only use it to find their pending writes.
type memTx struct {
	database.Querier
	store    *memStore
	held     map[string]*sync.Mutex
	order    []string
	states   map[int64]*ledger.State
	bookings map[int64]*models.Booking
}

func (tx *memTx) lock(key string) {
	if _, ok := tx.held[key]; ok {
		return
	}
	l := tx.store.rowLock(key)
	l.Lock()
	tx.held[key] = l
	tx.order = append(tx.order, key)
}

func (tx *memTx) unlockAll() {
	for i := len(tx.order) - 1; i >= 0; i-- {
		tx.held[tx.order[i]].Unlock()
	}
}

func (tx *memTx) commit() {
	m := tx.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, st := range tx.states {
		s := m.schedules[id]
		s.BookedSeats = st.Booked
		s.ReservedSeats = st.Reserved
		s.AvailableSeats = st.Available
	}
	for id, b := range tx.bookings {
		cp := *b
		m.bookings[id] = &cp
	}
}

type memTransactor struct {
	store *memStore
}

func (t memTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, q database.Querier) error) error {
	tx := &memTx{
		store:    t.store,
		held:     map[string]*sync.Mutex{},
		states:   map[int64]*ledger.State{},
		bookings: map[int64]*models.Booking{},
	}
	defer tx.unlockAll()

	if err := fn(ctx, tx); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type memLedger struct {
	store *memStore
}

func (l memLedger) GetSeatStateForUpdate(ctx context.Context, q database.Querier, id int64) (*ledger.State, *models.Schedule, error) {
	tx := q.(*memTx)
	tx.lock("schedule:" + itoa(id))

	m := l.store
	m.mu.Lock()
	s, ok := m.schedules[id]
	if !ok {
		m.mu.Unlock()
		return nil, nil, database.ErrNotFound
	}
	row := *s
	valid := m.valid[id]
	m.mu.Unlock()

	state := &ledger.State{
		ScheduleID: id,
		Total:      row.TotalSeats,
		Booked:     append(models.SeatSet{}, row.BookedSeats...),
		Reserved:   append(models.SeatSet{}, row.ReservedSeats...),
		Available:  row.AvailableSeats,
		Valid:      valid,
	}
	if pending, ok := tx.states[id]; ok {
		state.Booked = append(models.SeatSet{}, pending.Booked...)
		state.Reserved = append(models.SeatSet{}, pending.Reserved...)
		state.Available = pending.Available
	}
	if err := state.Check(); err != nil {
		return nil, nil, err
	}
	return state, &row, nil
}

func (l memLedger) SaveSeatState(ctx context.Context, q database.Querier, state *ledger.State) error {
	state.Recompute()
	if err := state.Check(); err != nil {
		return err
	}
	cp := *state
	q.(*memTx).states[state.ScheduleID] = &cp
	return nil
}

type memBookings struct {
	store *memStore
}

func (b memBookings) CreateTx(ctx context.Context, q database.Querier, bk *models.Booking) error {
	m := b.store
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refCollisions > 0 {
		m.refCollisions--
		return database.Translate(&pq.Error{Code: "23505", Constraint: referenceConstraint})
	}
	m.nextID++
	bk.ID = m.nextID
	bk.CreatedAt = time.Now()
	bk.UpdatedAt = bk.CreatedAt

	cp := *bk
	q.(*memTx).bookings[bk.ID] = &cp
	return nil
}

func (b memBookings) GetForUpdateTx(ctx context.Context, q database.Querier, id int64) (*models.Booking, error) {
	tx := q.(*memTx)
	tx.lock("booking:" + itoa(id))

	m := b.store
	m.mu.Lock()
	defer m.mu.Unlock()
	bk, ok := m.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	cp := *bk
	cp.SeatNumbers = append(models.SeatSet{}, bk.SeatNumbers...)
	return &cp, nil
}

func (b memBookings) UpdateTx(ctx context.Context, q database.Querier, bk *models.Booking) error {
	cp := *bk
	q.(*memTx).bookings[bk.ID] = &cp
	return nil
}

func (b memBookings) GetDetail(ctx context.Context, id int64) (*models.BookingDetail, error) {
	m := b.store
	m.mu.Lock()
	defer m.mu.Unlock()
	bk, ok := m.bookings[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	s := m.schedules[bk.ScheduleID]
	return &models.BookingDetail{
		Booking:       *bk,
		DepartureTime: s.DepartureTime,
		ScheduleDate:  s.ScheduleDate,
		Price:         s.Price,
		Source:        "Colombo",
		Destination:   "Kandy",
		BusNumber:     "NB-1234",
		UserName:      "Traveler",
	}, nil
}

func (b memBookings) List(ctx context.Context, f models.BookingFilter) ([]models.BookingDetail, error) {
	m := b.store
	m.mu.Lock()
	ids := make([]int64, 0, len(m.bookings))
	for id, bk := range m.bookings {
		if f.UserID != nil && bk.UserID != *f.UserID {
			continue
		}
		if f.Status != "" && bk.BookingStatus != f.Status {
			continue
		}
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]models.BookingDetail, 0, len(ids))
	for _, id := range ids {
		d, err := b.GetDetail(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	changed []int64
}

func (n *recordingNotifier) ScheduleChanged(ctx context.Context, id int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, id)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.changed)
}

type recordingAuditor struct {
	mu     sync.Mutex
	events []AuditEvent
}

func (a *recordingAuditor) Record(ctx context.Context, ev AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, ev)
	return nil
}

func (a *recordingAuditor) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, ev := range a.events {
		out[i] = ev.Action
	}
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
