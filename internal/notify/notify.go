// Package notify delivers short messages to staff members.
package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"task-tracker/internal/model"
)

// StaffDirectory resolves recipients.
type StaffDirectory interface {
	FindByIDs(ctx context.Context, ids []uint) ([]model.Staff, error)
}

// Log writes notifications to the log. Used when no delivery channel is
// configured.
type Log struct {
	log logrus.FieldLogger
}

func NewLog(log logrus.FieldLogger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, staffIDs []uint, text string) error {
	l.log.WithField("staff_ids", staffIDs).Info(text)
	return nil
}
