package channel

import (
	"strings"
	"unicode/utf8"

	"github.com/abbank/notification-gateway/internal/model"
)

const smsMaxLen = 160

// buildHTMLBody renders the shared branded email template: a severity-colored
// banner, the greeting, and the event body.
func buildHTMLBody(event *model.NotificationEvent, profile *model.CustomerProfile) string {
	var b strings.Builder
	b.WriteString(`<html><body style="font-family:Arial,sans-serif;max-width:600px;margin:0 auto;">`)
	b.WriteString(`<div style="background:` + severityColor(event.Severity) + `;color:white;padding:16px;border-radius:4px 4px 0 0;">`)
	b.WriteString(`<h2 style="margin:0;">` + escapeHTML(event.Subject) + `</h2></div>`)
	b.WriteString(`<div style="padding:24px;background:#f9f9f9;">`)
	b.WriteString(`<p>Dear ` + escapeHTML(profile.FirstName) + `,</p>`)
	b.WriteString(`<p style="white-space:pre-line;">` + escapeHTML(event.Body) + `</p></div>`)
	b.WriteString(`<div style="padding:12px 24px;font-size:12px;color:#666;">`)
	b.WriteString(`<p>This is an automated message from AB Bank. Please do not reply to this email.</p>`)
	b.WriteString(`<p>If you did not initiate this activity, contact us immediately at <a href="tel:+2341234567890">+234 123 456 7890</a>.</p>`)
	b.WriteString(`</div></body></html>`)
	return b.String()
}

func severityColor(s model.Severity) string {
	switch s {
	case model.SeverityCritical:
		return "#922b21"
	case model.SeverityHigh:
		return "#c0392b"
	case model.SeverityMedium:
		return "#d97706"
	default:
		return "#1a5276"
	}
}

func escapeHTML(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}

// buildSMSText flattens the event into a single SMS, truncated to one segment.
// The cut never splits a multi-byte rune.
func buildSMSText(event *model.NotificationEvent) string {
	sms := "AB Bank: " + event.Subject + ". " + event.Body
	if len(sms) <= smsMaxLen {
		return sms
	}
	cut := smsMaxLen - 3
	for cut > 0 && !utf8.RuneStart(sms[cut]) {
		cut--
	}
	return sms[:cut] + "..."
}
