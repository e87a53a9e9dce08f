package extension

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"safespace/internal/classifier"
	"safespace/internal/crypto"
	"safespace/internal/models"
	"safespace/internal/notifier"
	"safespace/internal/repository"
	"safespace/internal/service"
	"safespace/internal/telemetry"
)

// DefaultSupportURL is opened by OPEN_SUPPORT_HUB when nothing else is configured.
const DefaultSupportURL = "/resources"

// Dependencies wires the bridge to storage and services.
type Dependencies struct {
	Classifier *classifier.Classifier
	Evidence   repository.EvidenceRepository
	State      repository.ExtensionStateRepository
	Analytics  service.AnalyticsService
	Codec      crypto.Codec
	Notifier   notifier.Notifier
	Metrics    *telemetry.Metrics
	SupportURL string
	Logger     *zap.Logger
}

// Bridge dispatches extension messages.
type Bridge struct {
	classifier *classifier.Classifier
	evidence   repository.EvidenceRepository
	state      repository.ExtensionStateRepository
	analytics  service.AnalyticsService
	codec      crypto.Codec
	notifier   notifier.Notifier
	metrics    *telemetry.Metrics
	supportURL string
	logger     *zap.Logger
	now        func() time.Time
}

// NewBridge creates a bridge. A nil Codec uses the marker codec and a nil
// Notifier discards alerts.
func NewBridge(deps Dependencies) *Bridge {
	b := &Bridge{
		classifier: deps.Classifier,
		evidence:   deps.Evidence,
		state:      deps.State,
		analytics:  deps.Analytics,
		codec:      deps.Codec,
		notifier:   deps.Notifier,
		metrics:    deps.Metrics,
		supportURL: deps.SupportURL,
		logger:     deps.Logger,
		now:        time.Now,
	}
	if b.codec == nil {
		b.codec = crypto.MarkerCodec{}
	}
	if b.notifier == nil {
		b.notifier = notifier.Nop{}
	}
	if b.supportURL == "" {
		b.supportURL = DefaultSupportURL
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	return b
}

// Dispatch handles msg and returns the value to send back to the extension.
func (b *Bridge) Dispatch(ctx context.Context, msg Message) (any, error) {
	resp, err := b.dispatch(ctx, msg)
	b.metrics.RecordExtensionMessage(msg.Type, err)
	return resp, err
}

func (b *Bridge) dispatch(ctx context.Context, msg Message) (any, error) {
	switch msg.Type {
	case TypeGetSettings:
		return b.state.GetSettings(ctx)

	case TypeUpdateSettings:
		if err := msg.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return b.state.UpdateSettings(ctx, msg.Settings)

	case TypeSaveEvidence:
		return b.saveEvidence(ctx, msg.Evidence)

	case TypeGetEvidence:
		return b.evidence.List(ctx)

	case TypeViewEvidence:
		if msg.ID <= 0 {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
		}
		return b.viewEvidence(ctx, msg.ID)

	case TypeDeleteEvidence:
		if msg.ID <= 0 {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidMessage)
		}
		if err := b.evidence.Delete(ctx, msg.ID); err != nil {
			return nil, err
		}
		b.metrics.RecordEvidence("delete")
		return Success{Success: true}, nil

	case TypeClearEvidence:
		deleted, err := b.evidence.Clear(ctx)
		if err != nil {
			return nil, err
		}
		b.metrics.RecordEvidence("clear")
		return Success{Success: true, Deleted: deleted}, nil

	case TypeGetStats:
		return b.state.GetStats(ctx)

	case TypeIncrementStat:
		stats, err := b.state.IncrementStat(ctx, msg.Stat)
		if err != nil {
			if errors.Is(err, repository.ErrUnknownStat) {
				return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
			}
			return nil, err
		}
		return stats, nil

	case TypeThreatDetected:
		return b.threatDetected(ctx, msg.Data)

	case TypeScanText:
		settings, err := b.state.GetSettings(ctx)
		if err != nil {
			return nil, err
		}
		if err := msg.Settings.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
		}
		return b.Scan(ctx, settings.Apply(msg.Settings), msg.Text, msg.URL)

	case TypeOpenSupportHub:
		url := msg.URL
		if url == "" {
			url = b.supportURL
		}
		return SupportHub{Success: true, URL: url}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
}

// Scan classifies text under settings and records the scan. Settings are taken
// as given; nothing is read from storage. The analytics event is written before
// the scan counter, so a failed scan leaves the counters untouched.
func (b *Bridge) Scan(ctx context.Context, settings models.ExtensionSettings, text, url string) (*ScanOutcome, error) {
	if !settings.Enabled {
		return &ScanOutcome{Reason: SkipDisabled}, nil
	}
	if utf8.RuneCountInString(text) < MinScanLength {
		return &ScanOutcome{Reason: SkipTooShort}, nil
	}

	start := time.Now()
	result := b.classifier.Classify(text)
	b.metrics.RecordClassification(string(result.Severity), time.Since(start))

	if _, err := b.analytics.RecordResult(ctx, b.now(), result); err != nil {
		return nil, err
	}
	if _, err := b.state.IncrementStat(ctx, repository.StatScan); err != nil {
		return nil, err
	}

	outcome := &ScanOutcome{
		Scanned: true,
		Flagged: result.IsToxic && result.Severity.Rank() >= MinSeverity(settings.Sensitivity).Rank(),
		Result:  &result,
	}
	if !outcome.Flagged {
		return outcome, nil
	}

	if _, err := b.state.IncrementStat(ctx, repository.StatThreat); err != nil {
		return nil, err
	}
	if settings.ShowPopups {
		b.notify(ctx, notifier.Alert{
			Category:   result.PrimaryCategory,
			Label:      b.classifier.Lexicon().Label(result.PrimaryCategory),
			Severity:   string(result.Severity),
			Confidence: result.Confidence,
			URL:        url,
		})
	}

	return outcome, nil
}

func (b *Bridge) saveEvidence(ctx context.Context, payload *EvidencePayload) (*models.Evidence, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: evidence is required", ErrInvalidMessage)
	}

	evidenceType := payload.Type
	if evidenceType == "" {
		evidenceType = models.EvidenceTypeText
	}
	if evidenceType != models.EvidenceTypeText && evidenceType != models.EvidenceTypeScreenshot {
		return nil, fmt.Errorf("%w: unsupported evidence type %q", ErrInvalidMessage, evidenceType)
	}

	encoded := payload.EncryptedContent
	if payload.Content != "" {
		var err error
		encoded, err = b.codec.Encode(payload.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to encode evidence: %w", err)
		}
	}
	if encoded == "" {
		return nil, fmt.Errorf("%w: evidence content is required", ErrInvalidMessage)
	}

	evidence, err := b.evidence.Create(ctx, &models.CreateEvidenceInput{
		Type:             evidenceType,
		EncryptedContent: encoded,
		Metadata: models.EvidenceMetadata{
			Size:         fmt.Sprintf("%d bytes", len(encoded)),
			OriginalName: payload.OriginalName,
		},
	})
	if err != nil {
		return nil, err
	}

	b.metrics.RecordEvidence("create")
	return evidence, nil
}

func (b *Bridge) viewEvidence(ctx context.Context, id int64) (*EvidenceView, error) {
	evidence, err := b.evidence.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	content, err := b.codec.Decode(evidence.EncryptedContent)
	if err != nil {
		if errors.Is(err, crypto.ErrNotEncoded) || errors.Is(err, crypto.ErrDecryptionFailed) || errors.Is(err, crypto.ErrInvalidCiphertext) {
			return nil, fmt.Errorf("%w: evidence %d cannot be read with the %s codec", ErrInvalidMessage, id, b.codec.Name())
		}
		return nil, fmt.Errorf("failed to decode evidence: %w", err)
	}

	return &EvidenceView{
		ID:        evidence.ID,
		Type:      evidence.Type,
		Content:   content,
		Metadata:  evidence.Metadata,
		CreatedAt: evidence.CreatedAt,
	}, nil
}

func (b *Bridge) threatDetected(ctx context.Context, data *ThreatData) (*Success, error) {
	if data == nil {
		data = &ThreatData{}
	}

	if _, err := b.state.IncrementStat(ctx, repository.StatThreat); err != nil {
		return nil, err
	}

	settings, err := b.state.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if settings.ShowPopups {
		b.notify(ctx, notifier.Alert{
			Category:   data.Category,
			Label:      b.classifier.Lexicon().Label(data.Category),
			Severity:   data.Severity,
			Confidence: data.Confidence,
			URL:        data.URL,
		})
	}

	return &Success{Success: true}, nil
}

// notify delivers an alert. Delivery failures are logged and do not fail the message.
func (b *Bridge) notify(ctx context.Context, alert notifier.Alert) {
	err := b.notifier.NotifyThreat(ctx, alert)
	b.metrics.RecordNotification(err)
	if err != nil {
		b.logger.Warn("Failed to deliver threat notification", zap.String("category", alert.Category), zap.Error(err))
	}
}
