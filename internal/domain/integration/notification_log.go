package integration

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// NotificationLogStatus is the processing state of a received notification
type NotificationLogStatus string

const (
	NotificationLogReceived  NotificationLogStatus = "RECEIVED"
	NotificationLogProcessed NotificationLogStatus = "PROCESSED"
	NotificationLogError     NotificationLogStatus = "ERROR"
)

// IsTerminal reports whether processing has finished
func (s NotificationLogStatus) IsTerminal() bool {
	return s == NotificationLogProcessed || s == NotificationLogError
}

var ErrNotificationLogNotFound = errors.New("integration: notification log not found")

// NotificationLog is the append-only audit record of one received notification.
// MessageID is unique; rows are never deleted.
type NotificationLog struct {
	ID           uuid.UUID
	MessageID    string
	Type         NotificationType
	Payload      string
	Status       NotificationLogStatus
	Result       string
	ErrorMessage string
	LatencyMs    int64
	ReceivedAt   time.Time
	ProcessedAt  *time.Time
}

// NewNotificationLog records a freshly received notification
func NewNotificationLog(n *Notification, rawBody []byte) *NotificationLog {
	return &NotificationLog{
		ID:         uuid.New(),
		MessageID:  n.MessageID,
		Type:       n.Type,
		Payload:    string(rawBody),
		Status:     NotificationLogReceived,
		ReceivedAt: time.Now(),
	}
}

// MarkProcessed records a successful outcome
func (l *NotificationLog) MarkProcessed(result string, latency time.Duration) {
	l.finish(NotificationLogProcessed, result, "", latency)
}

// MarkFailed records a failed outcome
func (l *NotificationLog) MarkFailed(errMsg string, latency time.Duration) {
	l.finish(NotificationLogError, "", errMsg, latency)
}

func (l *NotificationLog) finish(status NotificationLogStatus, result, errMsg string, latency time.Duration) {
	now := time.Now()
	l.Status = status
	l.Result = result
	l.ErrorMessage = errMsg
	l.LatencyMs = latency.Milliseconds()
	l.ProcessedAt = &now
}
