package types

import (
	"strings"
	"time"
)

// Severity ranks how urgent an unapproved composition is for review.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

const alertExcerptLen = 100

// Alert is raised whenever a scan produces an unapproved result. Alerts are
// append-only and user-dismissible.
type Alert struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Excerpt   string    `json:"excerpt"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	Resolved  bool      `json:"resolved"`
}

// ClassifySeverity derives severity from keywords in the first violation
// reason. Personal data leaks outrank boundary issues.
func ClassifySeverity(reason string) Severity {
	lower := strings.ToLower(reason)
	switch {
	case strings.Contains(lower, "personal identifying"),
		strings.Contains(lower, "blocked for review"):
		return SeverityHigh
	case strings.Contains(lower, "relationship"),
		strings.Contains(lower, "disciplinary"),
		strings.Contains(lower, "confidential"):
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// NewAlert builds an alert from unapproved scan output. The excerpt is capped
// at the first 100 characters of the offending text.
func NewAlert(id, text string, reasons []string, now time.Time) Alert {
	reason := ""
	if len(reasons) > 0 {
		reason = reasons[0]
	}
	excerpt := text
	if runes := []rune(excerpt); len(runes) > alertExcerptLen {
		excerpt = string(runes[:alertExcerptLen])
	}
	return Alert{
		ID:        id,
		Severity:  ClassifySeverity(reason),
		Excerpt:   excerpt,
		Reason:    reason,
		CreatedAt: now,
	}
}
