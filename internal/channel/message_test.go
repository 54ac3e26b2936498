package channel

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/abbank/notification-gateway/internal/model"
)

func TestBuildSMSText_ShortMessageIsUntruncated(t *testing.T) {
	ev := &model.NotificationEvent{Subject: "Balance update", Body: "Your balance is NGN 50,000."}
	got := buildSMSText(ev)
	want := "AB Bank: Balance update. Your balance is NGN 50,000."
	if got != want {
		t.Errorf("buildSMSText = %q, want %q", got, want)
	}
}

func TestBuildSMSText_TruncatesToOneSegment(t *testing.T) {
	ev := &model.NotificationEvent{
		Subject: "Daily spend summary",
		Body:    strings.Repeat("Lots of transactions today. ", 20),
	}
	got := buildSMSText(ev)
	if len(got) != smsMaxLen {
		t.Errorf("len = %d, want %d", len(got), smsMaxLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated SMS should end with ellipsis, got %q", got[len(got)-10:])
	}
}

func TestBuildSMSText_TruncationKeepsRunesWhole(t *testing.T) {
	ev := &model.NotificationEvent{
		Subject: "Daily spend summary",
		Body:    strings.Repeat("₦", 100), // 3 bytes per naira sign
	}
	got := buildSMSText(ev)
	if !utf8.ValidString(got) {
		t.Errorf("truncation split a rune: %q", got)
	}
	if len(got) > smsMaxLen {
		t.Errorf("len = %d, want <= %d", len(got), smsMaxLen)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("truncated SMS should end with ellipsis, got %q", got[len(got)-10:])
	}
}

func TestBuildHTMLBody_EscapesAndBrands(t *testing.T) {
	ev := &model.NotificationEvent{
		Severity: model.SeverityCritical,
		Subject:  "Alert <script>",
		Body:     "Amount > 1000 & rising",
	}
	p := &model.CustomerProfile{FirstName: "Adaeze"}
	html := buildHTMLBody(ev, p)

	if strings.Contains(html, "<script>") {
		t.Error("subject was not HTML-escaped")
	}
	if !strings.Contains(html, "&gt; 1000 &amp; rising") {
		t.Errorf("body escaping wrong: %q", html)
	}
	if !strings.Contains(html, "Dear Adaeze,") {
		t.Error("greeting missing")
	}
	if !strings.Contains(html, "#922b21") {
		t.Error("CRITICAL banner color missing")
	}
	if !strings.Contains(html, "AB Bank") {
		t.Error("brand footer missing")
	}
}

func TestSeverityColor_DefaultsForUnknown(t *testing.T) {
	if got := severityColor(""); got != "#1a5276" {
		t.Errorf("severityColor(\"\") = %q", got)
	}
	if got := severityColor(model.SeverityHigh); got != "#c0392b" {
		t.Errorf("severityColor(HIGH) = %q", got)
	}
}
