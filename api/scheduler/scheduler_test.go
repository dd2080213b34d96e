package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/databases/mocks"
	"github.com/moyijulius/crime-report-platform/mailer"
	"github.com/moyijulius/crime-report-platform/models"
)

type sentMail struct {
	to      mailer.Recipient
	subject string
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	fail map[string]bool
}

func (f *fakeMailer) Send(_ context.Context, to mailer.Recipient, subject, _ string) error {
	if f.fail[to.Email] {
		return errors.New("mailbox unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMail{to: to, subject: subject})
	return nil
}

func newTestScheduler(t *testing.T, reports []models.Report, officers []models.User, m mailer.Mailer) *Scheduler {
	t.Helper()
	now := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)

	dbHelper := &mocks.DatabaseHelper{}
	reportsColl := &mocks.CollectionHelper{}
	usersColl := &mocks.CollectionHelper{}
	reportCursor := &mocks.CursorHelper{}
	userCursor := &mocks.CursorHelper{}

	reportCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		*args.Get(0).(*[]models.Report) = reports
	})
	userCursor.On("Decode", mock.Anything).Return(nil).Run(func(args mock.Arguments) {
		*args.Get(0).(*[]models.User) = officers
	})

	reportsColl.On("Find", mock.Anything, bson.M{
		"status":    models.StatusUnderReview,
		"createdAt": bson.M{"$lt": now.Add(-48 * time.Hour)},
	}).Return(reportCursor, nil)
	usersColl.On("Find", mock.Anything, bson.M{"role": models.RoleOfficer}).Return(userCursor, nil)

	dbHelper.On("Collection", "reports").Return(reportsColl)
	dbHelper.On("Collection", "users").Return(usersColl)

	s := NewScheduler(databases.NewReportDatabase(dbHelper), databases.NewUserDatabase(dbHelper), m, "0 8 * * *", 48*time.Hour)
	s.now = func() time.Time { return now }
	return s
}

func TestSendStaleDigest(t *testing.T) {
	m := &fakeMailer{fail: map[string]bool{"down@example.com": true}}
	s := newTestScheduler(t,
		[]models.Report{{ReferenceNumber: "REF-000000001", CrimeType: "Theft"}},
		[]models.User{
			{Username: "officer", Email: "officer@example.com", Role: models.RoleOfficer},
			{Username: "down", Email: "down@example.com", Role: models.RoleOfficer},
		}, m)

	sent, err := s.SendStaleDigest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, sent)
	require.Len(t, m.sent, 1)
	assert.Equal(t, "officer@example.com", m.sent[0].to.Email)
	assert.Equal(t, "1 report(s) awaiting review", m.sent[0].subject)
}

func TestSendStaleDigestNothingPending(t *testing.T) {
	m := &fakeMailer{}
	s := newTestScheduler(t, nil, []models.User{{Email: "officer@example.com"}}, m)

	sent, err := s.SendStaleDigest(context.Background())

	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Empty(t, m.sent)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	s := NewScheduler(nil, nil, mailer.Log{}, "not a cron line", time.Hour)

	assert.Error(t, s.Start())
}

func TestStartAndStop(t *testing.T) {
	s := NewScheduler(nil, nil, mailer.Log{}, "0 8 * * *", time.Hour)

	require.NoError(t, s.Start())
	s.Stop()
}

func TestStartDisabled(t *testing.T) {
	s := NewScheduler(nil, nil, mailer.Log{}, DisabledSchedule, time.Hour)

	require.NoError(t, s.Start())
	assert.Empty(t, s.cron.Entries())
	s.Stop()
}
