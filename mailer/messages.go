package mailer

import (
	"fmt"
	"strings"
	"time"

	"github.com/moyijulius/crime-report-platform/models"
)

// StatusChanged builds the email telling a reporter their case moved on
func StatusChanged(report models.Report) (subject, body string) {
	subject = fmt.Sprintf("Case %s is now %s", report.ReferenceNumber, report.Status)
	body = fmt.Sprintf("The status of your %s report (reference %s) has changed to \"%s\".\n\n"+
		"You can follow the case and message the officers handling it with your reference number.",
		strings.ToLower(report.CrimeType), report.ReferenceNumber, report.Status)
	return subject, body
}

// StaleDigest builds the digest of reports nobody has picked up yet
func StaleDigest(reports []models.Report, olderThan time.Duration, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("%d report(s) awaiting review", len(reports))

	var b strings.Builder
	fmt.Fprintf(&b, "The following reports have been %s for more than %s:\n\n", models.StatusUnderReview, olderThan)
	for _, r := range reports {
		age := now.Sub(r.CreatedAt).Truncate(time.Hour)
		fmt.Fprintf(&b, "- %s  %s at %s (waiting %s)\n", r.ReferenceNumber, r.CrimeType, r.Location, age)
	}
	return subject, b.String()
}
