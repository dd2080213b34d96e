package templates

import (
	"fmt"
	"html"
	"strings"
)

// RenderGenericEmail generates branded HTML for a platform email.
// bodyContent is plain text: it is HTML-escaped and newlines become <br> tags.
// siteURL may be empty, in which case the footer link is left out.
func RenderGenericEmail(subject, bodyContent, siteURL string) string {
	htmlBody := strings.ReplaceAll(html.EscapeString(bodyContent), "\n", "<br>")
	safeSubject := html.EscapeString(subject)

	footer := "<p>&copy; Crime Report Platform</p>"
	if siteURL != "" {
		safeURL := html.EscapeString(siteURL)
		footer = fmt.Sprintf(`<p>&copy; Crime Report Platform | <a href="%s">%s</a></p>
      <p><a href="%s/track">Track a case</a></p>`, safeURL, safeURL, safeURL)
	}

	return fmt.Sprintf(`<!DOCTYPE html PUBLIC "-//W3C//DTD XHTML 1.0 Strict//EN" "http://www.w3.org/TR/xhtml1/DTD/xhtml1-strict.dtd">
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="Content-Type" content="text/html; charset=utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1, minimum-scale=1, maximum-scale=1">
  <title>%s</title>
  <style type="text/css">
    body { font-family: 'Segoe UI', Tahoma, Geneva, Verdana, sans-serif; margin: 0; padding: 0; background-color: #f3f4f6; }
    .container { max-width: 600px; margin: 0 auto; background-color: #ffffff; }
    .header { background-color: #1e3a8a; padding: 32px 30px; text-align: center; }
    .header h1 { color: #fff; margin: 0; font-size: 22px; font-weight: 700; }
    .content { padding: 32px 30px; color: #1f2937; line-height: 1.6; font-size: 15px; }
    .footer { padding: 24px; text-align: center; color: #6b7280; font-size: 12px; border-top: 1px solid #e5e7eb; }
    .footer a { color: #1e3a8a; text-decoration: none; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header">
      <h1>%s</h1>
    </div>
    <div class="content">
      %s
    </div>
    <div class="footer">
      %s
    </div>
  </div>
</body>
</html>`, safeSubject, safeSubject, htmlBody, footer)
}
