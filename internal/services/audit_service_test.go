package services

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_Record(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	svc := NewAuditService(sqlx.NewDb(mockDB, "sqlmock"), quietLogger())
	actor := Actor{UserID: 5, IPAddress: "203.0.113.9", UserAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) Mobile/15E148"}

	mock.ExpectExec(`INSERT INTO audit_logs`).
		WithArgs(sqlmock.AnyArg(), int64(5), AuditBookingCreated, "booking", int64(21), "203.0.113.9", actor.UserAgent, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = svc.Record(context.Background(), EventFor(actor, AuditBookingCreated, "booking", 21, map[string]interface{}{"seats": []int{3, 4}}))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuditService_RecordFailure(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	svc := NewAuditService(sqlx.NewDb(mockDB, "sqlmock"), quietLogger())
	mock.ExpectExec(`INSERT INTO audit_logs`).WillReturnError(errors.New("connection reset"))

	err = svc.Record(context.Background(), EventFor(Actor{}, AuditLoginFailed, "user", 0, nil))
	assert.Error(t, err)
}

func TestEventFor(t *testing.T) {
	ev := EventFor(Actor{}, AuditLoginFailed, "user", 0, nil)
	assert.Nil(t, ev.UserID)
	assert.Nil(t, ev.EntityID)

	ev = EventFor(Actor{UserID: 3}, AuditLogin, "user", 3, nil)
	require.NotNil(t, ev.UserID)
	assert.Equal(t, int64(3), *ev.UserID)
	assert.Equal(t, int64(3), *ev.EntityID)
}
