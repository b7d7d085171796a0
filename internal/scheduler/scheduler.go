package scheduler

import (
	"context"
	"time"
)

// Task types understood by the external job runner.
const (
	TaskReminder         = "reminder"
	TaskUsageCleanup     = "usage_cleanup"
	TaskReportExpiration = "report_expiration"
)

// Scheduler is the "schedule work, run later" collaborator. The production
// implementation lives in the Mongo-backed job runner outside this core;
// the core only enqueues.
type Scheduler interface {
	Schedule(ctx context.Context, taskType string, payload map[string]any, runAt time.Time) (string, error)
}

// EmailSender delivers one outbound message. Templates live outside the core.
type EmailSender interface {
	Send(ctx context.Context, to, subject, html string) error
}
