package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/mailer"
	"github.com/moyijulius/crime-report-platform/models"
)

// digestLimit caps the number of reports listed in one digest
const digestLimit = 50

// Scheduler handles periodic background jobs
type Scheduler struct {
	cron       *cron.Cron
	RDB        databases.ReportDatabase
	UDB        databases.UserDatabase
	Mailer     mailer.Mailer
	schedule   string
	staleAfter time.Duration
	now        func() time.Time
}

// NewScheduler creates a new scheduler instance. schedule is a standard five
// field cron expression evaluated in UTC.
func NewScheduler(rDB databases.ReportDatabase, uDB databases.UserDatabase, m mailer.Mailer, schedule string, staleAfter time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		RDB:        rDB,
		UDB:        uDB,
		Mailer:     m,
		schedule:   schedule,
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// DisabledSchedule turns the stale digest off
const DisabledSchedule = "off"

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() error {
	if s.schedule == DisabledSchedule {
		zap.S().Info("stale report digest disabled")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, s.runStaleDigest); err != nil {
		return err
	}
	s.cron.Start()
	zap.S().Infow("scheduler started", "staleDigest", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("scheduler stopped")
}

func (s *Scheduler) runStaleDigest() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	sent, err := s.SendStaleDigest(ctx)
	if err != nil {
		zap.S().Errorw("stale report digest failed", "error", err)
		return
	}
	zap.S().Infow("stale report digest finished", "emailsSent", sent)
}

// SendStaleDigest emails every officer the reports that have been waiting
// for review longer than the configured age. It returns the number of emails
// sent.
func (s *Scheduler) SendStaleDigest(ctx context.Context) (int, error) {
	now := s.now()
	reports, err := s.RDB.Find(ctx, bson.M{
		"status":    models.StatusUnderReview,
		"createdAt": bson.M{"$lt": now.Add(-s.staleAfter)},
	}, databases.NewestFirst(digestLimit, 1))
	if err != nil {
		return 0, err
	}
	if len(reports) == 0 {
		return 0, nil
	}

	officers, err := s.UDB.Find(ctx, bson.M{"role": models.RoleOfficer})
	if err != nil {
		return 0, err
	}

	subject, body := mailer.StaleDigest(reports, s.staleAfter, now)
	sent := 0
	for _, officer := range officers {
		to := mailer.Recipient{Name: officer.Username, Email: officer.Email}
		if err := s.Mailer.Send(ctx, to, subject, body); err != nil {
			zap.S().Warnw("failed to send stale digest", "to", officer.Email, "error", err)
			continue
		}
		sent++
	}
	return sent, nil
}
