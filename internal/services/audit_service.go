package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

// Audit actions
const (
	AuditRegister          = "register"
	AuditLogin             = "login"
	AuditLoginFailed       = "login_failed"
	AuditProfileUpdated    = "profile_updated"
	AuditBookingCreated    = "booking_created"
	AuditBookingCancelled  = "booking_cancelled"
	AuditBookingReduced    = "booking_partially_cancelled"
	AuditSeatsReserved     = "seats_reserved"
	AuditSchedulesCreated  = "schedules_created"
	AuditScheduleDeleted   = "schedule_deleted"
	AuditRateLimitExceeded = "rate_limit_violation"
)

// AuditService writes security and booking events to audit_logs
type AuditService struct {
	db     database.DB
	logger logrus.FieldLogger
}

// NewAuditService creates a new audit service
func NewAuditService(db database.DB, logger logrus.FieldLogger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// AuditEvent represents a security event to be logged
type AuditEvent struct {
	UserID     *int64 // nil before authentication
	Action     string
	EntityType string // user, booking, schedule
	EntityID   *int64
	IPAddress  string
	UserAgent  string
	Details    map[string]interface{}
}

// EventFor fills the actor fields of an event
func EventFor(actor Actor, action, entityType string, entityID int64, details map[string]interface{}) AuditEvent {
	ev := AuditEvent{
		Action:     action,
		EntityType: entityType,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
		Details:    details,
	}
	if actor.UserID > 0 {
		id := actor.UserID
		ev.UserID = &id
	}
	if entityID > 0 {
		ev.EntityID = &entityID
	}
	return ev
}

// Record writes one event. The device parsed from the user agent is added to the details.
func (s *AuditService) Record(ctx context.Context, event AuditEvent) error {
	details := make(map[string]interface{}, len(event.Details)+1)
	for k, v := range event.Details {
		details[k] = v
	}
	details["device_info"] = utils.ParseUserAgent(event.UserAgent)

	payload, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode audit details: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, user_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())`,
		uuid.New(),
		event.UserID,
		event.Action,
		event.EntityType,
		event.EntityID,
		event.IPAddress,
		event.UserAgent,
		string(payload),
	)
	if err != nil {
		s.logger.WithError(err).WithField("action", event.Action).Warn("Failed to write audit event")
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// AuditEntry is one row of a user's audit trail
type AuditEntry struct {
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   *int64          `json:"entity_id,omitempty" db:"entity_id"`
	IPAddress  string          `json:"ip_address" db:"ip_address"`
	Details    json.RawMessage `json:"details" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

// GetRecentEvents returns the latest events of a user
func (s *AuditService) GetRecentEvents(ctx context.Context, userID int64, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	events := []AuditEntry{}
	err := s.db.SelectContext(ctx, &events, `
		SELECT action, entity_type, entity_id, COALESCE(ip_address, '') AS ip_address, details, created_at
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}
	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}
