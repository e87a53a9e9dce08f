// Package notifier delivers threat alerts to the user outside the browser.
package notifier

import (
	"context"
	"fmt"
	"strings"
)

// Alert describes a detected threat.
type Alert struct {
	Category   string
	Label      string
	Severity   string
	Confidence float64
	URL        string
}

// Notifier sends threat alerts.
type Notifier interface {
	NotifyThreat(ctx context.Context, alert Alert) error
}

// Nop discards every alert. It is used when no notifier is configured.
type Nop struct{}

func (Nop) NotifyThreat(context.Context, Alert) error { return nil }

// FormatAlert renders an alert as plain text.
func FormatAlert(alert Alert) string {
	label := alert.Label
	if label == "" {
		label = alert.Category
	}
	if label == "" {
		label = "Unknown"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Harmful content detected: %s", label)
	if alert.Severity != "" {
		fmt.Fprintf(&b, "\nSeverity: %s", alert.Severity)
	}
	if alert.Confidence > 0 {
		fmt.Fprintf(&b, "\nConfidence: %.0f%%", alert.Confidence*100)
	}
	if alert.URL != "" {
		fmt.Fprintf(&b, "\nPage: %s", alert.URL)
	}
	return b.String()
}
