// Package extension implements the message contract of the SafeSpace browser
// extension on the server.
package extension

import (
	"errors"
	"time"

	"safespace/internal/classifier"
	"safespace/internal/models"
)

// Message types understood by the bridge.
const (
	TypeGetSettings    = "GET_SETTINGS"
	TypeUpdateSettings = "UPDATE_SETTINGS"
	TypeSaveEvidence   = "SAVE_EVIDENCE"
	TypeGetEvidence    = "GET_EVIDENCE"
	TypeViewEvidence   = "VIEW_EVIDENCE"
	TypeDeleteEvidence = "DELETE_EVIDENCE"
	TypeClearEvidence  = "CLEAR_EVIDENCE"
	TypeGetStats       = "GET_STATS"
	TypeIncrementStat  = "INCREMENT_STAT"
	TypeThreatDetected = "THREAT_DETECTED"
	TypeScanText       = "SCAN_TEXT"
	TypeOpenSupportHub = "OPEN_SUPPORT_HUB"
)

// MinScanLength is the shortest text, in runes, that a scan will classify.
const MinScanLength = 10

// Scan skip reasons.
const (
	SkipDisabled = "disabled"
	SkipTooShort = "too_short"
)

var (
	ErrUnknownMessage = errors.New("unknown message type")
	ErrInvalidMessage = errors.New("invalid message")
)

// Message is a single request from the extension. Type selects which of the
// other fields are read.
type Message struct {
	Type     string                `json:"type" binding:"required"`
	Settings *models.SettingsPatch `json:"settings,omitempty"`
	Evidence *EvidencePayload      `json:"evidence,omitempty"`
	ID       int64                 `json:"id,omitempty"`
	Stat     string                `json:"stat,omitempty"`
	Data     *ThreatData           `json:"data,omitempty"`
	Text     string                `json:"text,omitempty"`
	URL      string                `json:"url,omitempty"`
}

// EvidencePayload is evidence captured by the extension. Content is plain text
// and is encoded server-side; EncryptedContent is stored as given.
type EvidencePayload struct {
	Type             string `json:"type,omitempty"`
	Content          string `json:"content,omitempty"`
	EncryptedContent string `json:"encryptedContent,omitempty"`
	OriginalName     string `json:"originalName,omitempty"`
}

// EvidenceView is a stored evidence record with its content decoded.
type EvidenceView struct {
	ID        int64                   `json:"id"`
	Type      string                  `json:"type"`
	Content   string                  `json:"content"`
	Metadata  models.EvidenceMetadata `json:"metadata"`
	CreatedAt time.Time               `json:"createdAt"`
}

// ThreatData describes a threat the extension found on a page.
type ThreatData struct {
	Category   string  `json:"category,omitempty"`
	Severity   string  `json:"severity,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// Success is the acknowledgement returned by messages without a payload.
type Success struct {
	Success bool  `json:"success"`
	Deleted int64 `json:"deleted,omitempty"`
}

// SupportHub tells the extension which page to open.
type SupportHub struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// ScanOutcome is the result of a SCAN_TEXT message.
type ScanOutcome struct {
	Scanned bool               `json:"scanned"`
	Flagged bool               `json:"flagged"`
	Reason  string             `json:"reason,omitempty"`
	Result  *classifier.Result `json:"result,omitempty"`
}

// MinSeverity returns the lowest severity a scan reports at the given sensitivity.
func MinSeverity(sensitivity string) classifier.Severity {
	switch sensitivity {
	case models.SensitivityHigh:
		return classifier.SeverityLow
	case models.SensitivityLow:
		return classifier.SeverityHigh
	default:
		return classifier.SeverityMedium
	}
}
