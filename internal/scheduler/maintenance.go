package scheduler

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/blissito/formmy-agent-core/internal/usage"
	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

const (
	// usageRetention is how long audit rows are kept before the cleanup
	// job removes them.
	usageRetention = 90 * 24 * time.Hour

	claimTTL = 24 * time.Hour
)

// Maintenance hosts the cron-style background work that runs outside the
// request path: usage retention cleanup and due-reminder dispatch. Jobs are
// idempotent per item; a reminder fired twice must not double-send.
type Maintenance struct {
	cron   *cron.Cron
	client *redis.Client
	usage  usage.Store
	email  EmailSender

	// ListChatbots enumerates chatbot ids with audit data, supplied by the
	// persistence layer owning chatbot records.
	ListChatbots func(ctx context.Context) ([]string, error)
}

func NewMaintenance(client *redis.Client, usageStore usage.Store, email EmailSender) *Maintenance {
	return &Maintenance{
		cron:   cron.New(),
		client: client,
		usage:  usageStore,
		email:  email,
	}
}

// Start registers the schedules and launches the cron loop.
func (m *Maintenance) Start() error {
	if _, err := m.cron.AddFunc("15 3 * * *", m.runUsageCleanup); err != nil {
		return err
	}
	if _, err := m.cron.AddFunc("* * * * *", m.runDueReminders); err != nil {
		return err
	}
	m.cron.Start()
	logx.Info().Msg("Maintenance scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (m *Maintenance) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
}

func (m *Maintenance) runUsageCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if m.ListChatbots == nil {
		return
	}
	ids, err := m.ListChatbots(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Usage cleanup: listing chatbots failed")
		return
	}

	cutoff := time.Now().Add(-usageRetention)
	total := 0
	for _, id := range ids {
		n, err := m.usage.DeleteOlderThan(ctx, id, cutoff)
		if err != nil {
			logx.Error().Err(err).Str("chatbot_id", id).Msg("Usage cleanup failed for chatbot")
			continue
		}
		total += n
	}
	if total > 0 {
		logx.Info().Int("removed", total).Msg("Usage retention cleanup done")
	}
}

// runDueReminders drains reminders whose runAt has passed. Each reminder is
// dispatched at most once: the claim key is set NX before sending, so a
// second sweep (or a second instance) skips items already claimed.
func (m *Maintenance) runDueReminders() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	due, err := m.dueReminders(ctx)
	if err != nil {
		logx.Error().Err(err).Msg("Reminder sweep failed")
		return
	}

	for _, rem := range due {
		claimed, err := m.client.SetNX(ctx, "reminder:claim:"+rem.ID, 1, claimTTL).Result()
		if err != nil {
			logx.Error().Err(err).Str("reminder_id", rem.ID).Msg("Reminder claim failed")
			continue
		}
		if !claimed {
			continue
		}
		if err := m.email.Send(ctx, rem.Email, rem.Subject, rem.Body); err != nil {
			logx.Error().Err(err).Str("reminder_id", rem.ID).Msg("Reminder send failed")
			// Claim stays in place; a failed send is not retried within the
			// claim window to avoid duplicate delivery on partial failures.
			continue
		}
		m.client.ZRem(ctx, reminderQueueKey, rem.raw)
	}
}
