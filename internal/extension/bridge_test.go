package extension_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"safespace/internal/classifier"
	"safespace/internal/crypto"
	"safespace/internal/extension"
	"safespace/internal/models"
	"safespace/internal/notifier"
	"safespace/internal/repository"
	"safespace/internal/service"
	"safespace/internal/testhelpers"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []notifier.Alert
	err    error
}

func (n *recordingNotifier) NotifyThreat(_ context.Context, alert notifier.Alert) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, alert)
	return n.err
}

type fixture struct {
	bridge     *extension.Bridge
	classifier *classifier.Classifier
	evidence   repository.EvidenceRepository
	state      repository.ExtensionStateRepository
	analytics  service.AnalyticsService
	notifier   *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testhelpers.NewSQLiteDB(t)
	logger := zap.NewNop()

	lex, err := classifier.DefaultLexicon()
	require.NoError(t, err)

	f := &fixture{
		classifier: classifier.New(lex),
		evidence:   repository.NewEvidenceRepository(db, logger),
		state:      repository.NewExtensionStateRepository(db, logger),
		analytics:  service.NewAnalyticsService(repository.NewAnalyticsRepository(db, logger), time.UTC, nil, logger),
		notifier:   &recordingNotifier{},
	}
	f.bridge = extension.NewBridge(extension.Dependencies{
		Classifier: f.classifier,
		Evidence:   f.evidence,
		State:      f.state,
		Analytics:  f.analytics,
		Codec:      crypto.MarkerCodec{},
		Notifier:   f.notifier,
		SupportURL: "https://safespace.example/resources",
		Logger:     logger,
	})
	return f
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestDispatch_Settings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeGetSettings})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultExtensionSettings(), resp)

	resp, err = f.bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeUpdateSettings,
		Settings: &models.SettingsPatch{Enabled: boolPtr(false)},
	})
	require.NoError(t, err)
	settings := resp.(models.ExtensionSettings)
	assert.False(t, settings.Enabled)
	assert.Equal(t, models.SensitivityMedium, settings.Sensitivity)

	_, err = f.bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeUpdateSettings,
		Settings: &models.SettingsPatch{Sensitivity: strPtr("paranoid")},
	})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)
}

func TestDispatch_EvidenceLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeSaveEvidence,
		Evidence: &extension.EvidencePayload{Content: "watch your back"},
	})
	require.NoError(t, err)
	saved := resp.(*models.Evidence)
	assert.Equal(t, models.EvidenceTypeText, saved.Type)

	decoded, err := crypto.MarkerCodec{}.Decode(saved.EncryptedContent)
	require.NoError(t, err)
	assert.Equal(t, "watch your back", decoded)
	assert.True(t, strings.HasSuffix(saved.Metadata.Size, " bytes"))

	resp, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeGetEvidence})
	require.NoError(t, err)
	assert.Len(t, resp, 1)

	resp, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeDeleteEvidence, ID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, extension.Success{Success: true}, resp)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeDeleteEvidence, ID: saved.ID})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeDeleteEvidence})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)
}

func TestDispatch_SaveEvidenceValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		payload *extension.EvidencePayload
	}{
		{name: "missing payload"},
		{name: "empty content", payload: &extension.EvidencePayload{}},
		{name: "bad type", payload: &extension.EvidencePayload{Type: "video", Content: "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeSaveEvidence, Evidence: tt.payload})
			assert.ErrorIs(t, err, extension.ErrInvalidMessage)
		})
	}
}

func TestDispatch_ClearEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.bridge.Dispatch(ctx, extension.Message{
			Type:     extension.TypeSaveEvidence,
			Evidence: &extension.EvidencePayload{EncryptedContent: "RU5DUllQVEVEOng="},
		})
		require.NoError(t, err)
	}

	resp, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeClearEvidence})
	require.NoError(t, err)
	assert.Equal(t, extension.Success{Success: true, Deleted: 3}, resp)
}

func TestDispatch_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeIncrementStat, Stat: "scan"})
	require.NoError(t, err)

	resp, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeGetStats})
	require.NoError(t, err)
	stats := resp.(*models.ExtensionStats)
	assert.Equal(t, int64(1), stats.ScansCompleted)
	assert.NotNil(t, stats.LastScan)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeIncrementStat, Stat: "likes"})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)
}

func TestDispatch_ThreatDetected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.bridge.Dispatch(ctx, extension.Message{
		Type: extension.TypeThreatDetected,
		Data: &extension.ThreatData{Category: "threats", Severity: "high"},
	})
	require.NoError(t, err)

	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "Threat", f.notifier.alerts[0].Label)

	stats, err := f.state.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ThreatsBlocked)

	_, err = f.state.UpdateSettings(ctx, &models.SettingsPatch{ShowPopups: boolPtr(false)})
	require.NoError(t, err)
	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeThreatDetected})
	require.NoError(t, err)
	assert.Len(t, f.notifier.alerts, 1)
}

func TestDispatch_NotifierFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = assert.AnError

	resp, err := f.bridge.Dispatch(context.Background(), extension.Message{
		Type: extension.TypeThreatDetected,
		Data: &extension.ThreatData{Category: "harassment"},
	})
	require.NoError(t, err)
	assert.Equal(t, &extension.Success{Success: true}, resp)
}

func TestDispatch_OpenSupportHub(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeOpenSupportHub})
	require.NoError(t, err)
	assert.Equal(t, extension.SupportHub{Success: true, URL: "https://safespace.example/resources"}, resp)

	resp, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeOpenSupportHub, URL: "https://help.example"})
	require.NoError(t, err)
	assert.Equal(t, "https://help.example", resp.(extension.SupportHub).URL)
}

func TestDispatch_UnknownType(t *testing.T) {
	f := newFixture(t)

	_, err := f.bridge.Dispatch(context.Background(), extension.Message{Type: "SELF_DESTRUCT"})
	assert.ErrorIs(t, err, extension.ErrUnknownMessage)
}

func TestScan_RecordsStatsAndAnalytics(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bridge.Dispatch(ctx, extension.Message{
		Type: extension.TypeScanText,
		Text: "You're so stupid, nobody likes you",
		URL:  "https://forum.example/t/1",
	})
	require.NoError(t, err)
	outcome := resp.(*extension.ScanOutcome)
	assert.True(t, outcome.Scanned)
	assert.True(t, outcome.Flagged)
	assert.Equal(t, "harassment", outcome.Result.PrimaryCategory)

	_, err = f.bridge.Dispatch(ctx, extension.Message{
		Type: extension.TypeScanText,
		Text: "Hey, how was your day? Hope you're doing well!",
	})
	require.NoError(t, err)

	stats, err := f.state.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ScansCompleted)
	assert.Equal(t, int64(1), stats.ThreatsBlocked)

	today, err := f.analytics.Today(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, today.ToxicCount)
	assert.Equal(t, 1, today.SafeCount)
	assert.Equal(t, map[string]int{"harassment": 1}, today.Categories)

	require.Len(t, f.notifier.alerts, 1)
	assert.Equal(t, "https://forum.example/t/1", f.notifier.alerts[0].URL)
}

func TestScan_Skips(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	disabled := models.DefaultExtensionSettings()
	disabled.Enabled = false
	outcome, err := f.bridge.Scan(ctx, disabled, "You're so stupid, nobody likes you", "")
	require.NoError(t, err)
	assert.Equal(t, extension.SkipDisabled, outcome.Reason)
	assert.False(t, outcome.Scanned)

	outcome, err = f.bridge.Scan(ctx, models.DefaultExtensionSettings(), "stupid", "")
	require.NoError(t, err)
	assert.Equal(t, extension.SkipTooShort, outcome.Reason)

	stats, err := f.state.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ScansCompleted)
}

func TestScan_SensitivityThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// A single unamplified phrase scores low severity (confidence 0.45).
	text := "you are stupid, right?"

	tests := []struct {
		sensitivity string
		flagged     bool
	}{
		{models.SensitivityHigh, true},
		{models.SensitivityMedium, false},
		{models.SensitivityLow, false},
	}

	for _, tt := range tests {
		t.Run(tt.sensitivity, func(t *testing.T) {
			settings := models.DefaultExtensionSettings()
			settings.Sensitivity = tt.sensitivity
			settings.ShowPopups = false

			outcome, err := f.bridge.Scan(ctx, settings, text, "")
			require.NoError(t, err)
			assert.True(t, outcome.Result.IsToxic)
			assert.Equal(t, classifier.SeverityLow, outcome.Result.Severity)
			assert.Equal(t, tt.flagged, outcome.Flagged)
		})
	}
}

func TestScan_MessageSettingsOverrideStored(t *testing.T) {
	f := newFixture(t)

	resp, err := f.bridge.Dispatch(context.Background(), extension.Message{
		Type:     extension.TypeScanText,
		Text:     "You're so stupid, nobody likes you",
		Settings: &models.SettingsPatch{Enabled: boolPtr(false)},
	})
	require.NoError(t, err)
	assert.Equal(t, extension.SkipDisabled, resp.(*extension.ScanOutcome).Reason)
}

func TestMinSeverity(t *testing.T) {
	assert.Equal(t, classifier.SeverityLow, extension.MinSeverity(models.SensitivityHigh))
	assert.Equal(t, classifier.SeverityMedium, extension.MinSeverity(models.SensitivityMedium))
	assert.Equal(t, classifier.SeverityHigh, extension.MinSeverity(models.SensitivityLow))
	assert.Equal(t, classifier.SeverityMedium, extension.MinSeverity(""))
}

// brokenState fails every storage call the way a closed database does.
type brokenState struct{}

var errDatabaseClosed = errors.New("sql: database is closed")

func (brokenState) GetSettings(context.Context) (models.ExtensionSettings, error) {
	return models.ExtensionSettings{}, errDatabaseClosed
}

func (brokenState) UpdateSettings(context.Context, *models.SettingsPatch) (models.ExtensionSettings, error) {
	return models.ExtensionSettings{}, errDatabaseClosed
}

func (brokenState) GetStats(context.Context) (*models.ExtensionStats, error) {
	return nil, errDatabaseClosed
}

func (brokenState) IncrementStat(context.Context, string) (*models.ExtensionStats, error) {
	return nil, errDatabaseClosed
}

func TestDispatch_IncrementStatStorageError(t *testing.T) {
	f := newFixture(t)
	bridge := extension.NewBridge(extension.Dependencies{
		Classifier: f.classifier,
		Evidence:   f.evidence,
		State:      brokenState{},
		Analytics:  f.analytics,
	})

	_, err := bridge.Dispatch(context.Background(), extension.Message{Type: extension.TypeIncrementStat, Stat: repository.StatScan})

	require.Error(t, err)
	assert.ErrorIs(t, err, errDatabaseClosed)
	assert.NotErrorIs(t, err, extension.ErrInvalidMessage)
}

type failingAnalytics struct {
	service.AnalyticsService
}

func (failingAnalytics) RecordResult(context.Context, time.Time, classifier.Result) (*models.DailyAnalytics, error) {
	return nil, errDatabaseClosed
}

func TestScan_AnalyticsFailureLeavesStatsUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bridge := extension.NewBridge(extension.Dependencies{
		Classifier: f.classifier,
		Evidence:   f.evidence,
		State:      f.state,
		Analytics:  failingAnalytics{f.analytics},
	})

	_, err := bridge.Scan(ctx, models.DefaultExtensionSettings(), "You're so stupid, nobody likes you", "")
	require.ErrorIs(t, err, errDatabaseClosed)

	stats, err := f.state.GetStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ScansCompleted)
	assert.Zero(t, stats.ThreatsBlocked)
	assert.Nil(t, stats.LastScan)
}

func TestDispatch_ViewEvidence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	resp, err := f.bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeSaveEvidence,
		Evidence: &extension.EvidencePayload{Content: "meet me after school or else"},
	})
	require.NoError(t, err)
	saved := resp.(*models.Evidence)

	resp, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence, ID: saved.ID})
	require.NoError(t, err)
	view := resp.(*extension.EvidenceView)
	assert.Equal(t, saved.ID, view.ID)
	assert.Equal(t, "meet me after school or else", view.Content)
	assert.Equal(t, saved.Metadata, view.Metadata)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence, ID: saved.ID + 100})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)
}

func TestDispatch_ViewEvidenceWithOtherCodec(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	raw, err := f.bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeSaveEvidence,
		Evidence: &extension.EvidencePayload{EncryptedContent: "opaque client blob"},
	})
	require.NoError(t, err)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence, ID: raw.(*models.Evidence).ID})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)

	sealed, err := crypto.NewSealedCodec("correct horse battery staple")
	require.NoError(t, err)
	bridge := extension.NewBridge(extension.Dependencies{
		Classifier: f.classifier,
		Evidence:   f.evidence,
		State:      f.state,
		Analytics:  f.analytics,
		Codec:      sealed,
	})

	resp, err := bridge.Dispatch(ctx, extension.Message{
		Type:     extension.TypeSaveEvidence,
		Evidence: &extension.EvidencePayload{Content: "send pics or else"},
	})
	require.NoError(t, err)
	saved := resp.(*models.Evidence)
	assert.NotContains(t, saved.EncryptedContent, "send pics")

	resp, err = bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence, ID: saved.ID})
	require.NoError(t, err)
	assert.Equal(t, "send pics or else", resp.(*extension.EvidenceView).Content)

	_, err = f.bridge.Dispatch(ctx, extension.Message{Type: extension.TypeViewEvidence, ID: saved.ID})
	assert.ErrorIs(t, err, extension.ErrInvalidMessage)
}
