package services

import (
	"context"

	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/ledger"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	UserID    int64
	Email     string
	Role      string
	IPAddress string
	UserAgent string
}

// IsStaff reports whether the actor holds the staff role
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleStaff
}

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, q database.Querier) error) error
}

// SeatLedgerStore loads and persists the seat ledger of a schedule. The load
// takes the schedule's row lock for the rest of the transaction.
type SeatLedgerStore interface {
	GetSeatStateForUpdate(ctx context.Context, q database.Querier, scheduleID int64) (*ledger.State, *models.Schedule, error)
	SaveSeatState(ctx context.Context, q database.Querier, state *ledger.State) error
}

// BookingStore persists bookings
type BookingStore interface {
	CreateTx(ctx context.Context, q database.Querier, b *models.Booking) error
	GetForUpdateTx(ctx context.Context, q database.Querier, id int64) (*models.Booking, error)
	UpdateTx(ctx context.Context, q database.Querier, b *models.Booking) error
	GetDetail(ctx context.Context, id int64) (*models.BookingDetail, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.BookingDetail, error)
}

// ScheduleNotifier is told after a schedule's seat ledger changed
type ScheduleNotifier interface {
	ScheduleChanged(ctx context.Context, scheduleID int64)
}

// Auditor records security and booking events
type Auditor interface {
	Record(ctx context.Context, event AuditEvent) error
}

type noopNotifier struct{}

func (noopNotifier) ScheduleChanged(context.Context, int64) {}

type noopAuditor struct{}

func (noopAuditor) Record(context.Context, AuditEvent) error { return nil }

// afterCommit collects hooks that must only run once the transaction committed
type afterCommit struct {
	hooks []func(ctx context.Context)
}

func (a *afterCommit) add(h func(ctx context.Context)) {
	a.hooks = append(a.hooks, h)
}

func (a *afterCommit) run(ctx context.Context) {
	for _, h := range a.hooks {
		h(ctx)
	}
}
