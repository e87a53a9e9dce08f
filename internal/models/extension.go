package models

import (
	"fmt"
	"time"
)

// Sensitivity levels for extension scans.
const (
	SensitivityLow    = "low"
	SensitivityMedium = "medium"
	SensitivityHigh   = "high"
)

// MinScanInterval is the shortest scan interval the extension accepts, in milliseconds.
const MinScanInterval = 500

// ExtensionSettings is the persisted configuration of the browser extension.
type ExtensionSettings struct {
	Enabled      bool   `json:"enabled" db:"enabled"`
	Sensitivity  string `json:"sensitivity" db:"sensitivity"`
	ShowPopups   bool   `json:"showPopups" db:"show_popups"`
	AutoHide     bool   `json:"autoHide" db:"auto_hide"`
	ScanInterval int    `json:"scanInterval" db:"scan_interval"`
}

// DefaultExtensionSettings returns the settings a fresh install starts with.
func DefaultExtensionSettings() ExtensionSettings {
	return ExtensionSettings{
		Enabled:      true,
		Sensitivity:  SensitivityMedium,
		ShowPopups:   true,
		AutoHide:     false,
		ScanInterval: 3000,
	}
}

// Apply returns a copy of s with every non-nil field of patch applied.
func (s ExtensionSettings) Apply(patch *SettingsPatch) ExtensionSettings {
	if patch == nil {
		return s
	}
	if patch.Enabled != nil {
		s.Enabled = *patch.Enabled
	}
	if patch.Sensitivity != nil {
		s.Sensitivity = *patch.Sensitivity
	}
	if patch.ShowPopups != nil {
		s.ShowPopups = *patch.ShowPopups
	}
	if patch.AutoHide != nil {
		s.AutoHide = *patch.AutoHide
	}
	if patch.ScanInterval != nil {
		s.ScanInterval = *patch.ScanInterval
	}
	return s
}

// SettingsPatch is a partial settings update. Nil fields are left unchanged.
type SettingsPatch struct {
	Enabled      *bool   `json:"enabled,omitempty"`
	Sensitivity  *string `json:"sensitivity,omitempty" binding:"omitempty,oneof=low medium high"`
	ShowPopups   *bool   `json:"showPopups,omitempty"`
	AutoHide     *bool   `json:"autoHide,omitempty"`
	ScanInterval *int    `json:"scanInterval,omitempty" binding:"omitempty,min=500"`
}

// ExtensionStats counts extension activity.
type ExtensionStats struct {
	ThreatsBlocked int64      `json:"threatsBlocked" db:"threats_blocked"`
	ScansCompleted int64      `json:"scansCompleted" db:"scans_completed"`
	LastScan       *time.Time `json:"lastScan" db:"last_scan"`
}

// Validate reports whether the patch only carries acceptable values.
func (p *SettingsPatch) Validate() error {
	if p == nil {
		return nil
	}
	if p.Sensitivity != nil {
		switch *p.Sensitivity {
		case SensitivityLow, SensitivityMedium, SensitivityHigh:
		default:
			return fmt.Errorf("invalid sensitivity %q", *p.Sensitivity)
		}
	}
	if p.ScanInterval != nil && *p.ScanInterval < MinScanInterval {
		return fmt.Errorf("scanInterval must be at least %d ms", MinScanInterval)
	}
	return nil
}
