package mailer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/models"
)

func TestNewFallsBackToLog(t *testing.T) {
	m := New(&config.Config{})

	assert.IsType(t, Log{}, m)
	assert.NoError(t, m.Send(context.Background(), Recipient{Email: "jane@example.com"}, "hi", "body"))
}

func TestNewSendGrid(t *testing.T) {
	m := New(&config.Config{SendGridAPIKey: "SG.test", MailFrom: "no-reply@example.com", MailFromName: "Reports"})

	sg, ok := m.(*SendGrid)
	assert.True(t, ok)
	assert.Equal(t, "no-reply@example.com", sg.from.Address)
}

func TestStatusChanged(t *testing.T) {
	subject, body := StatusChanged(models.Report{
		CrimeType:       "Burglary",
		ReferenceNumber: "REF-ABC123XYZ",
		Status:          models.StatusInvestigation,
	})

	assert.Equal(t, "Case REF-ABC123XYZ is now Investigation", subject)
	assert.Contains(t, body, "burglary report (reference REF-ABC123XYZ)")
}

func TestStaleDigest(t *testing.T) {
	now := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	subject, body := StaleDigest([]models.Report{
		{ReferenceNumber: "REF-000000001", CrimeType: "Theft", Location: "Main St", CreatedAt: now.Add(-50 * time.Hour)},
		{ReferenceNumber: "REF-000000002", CrimeType: "Vandalism", Location: "Park", CreatedAt: now.Add(-72*time.Hour - time.Minute)},
	}, 48*time.Hour, now)

	assert.Equal(t, "2 report(s) awaiting review", subject)
	assert.Contains(t, body, "Under Review for more than 48h0m0s")
	assert.Contains(t, body, "- REF-000000001  Theft at Main St (waiting 50h0m0s)")
	assert.Contains(t, body, "- REF-000000002  Vandalism at Park (waiting 72h0m0s)")
}
