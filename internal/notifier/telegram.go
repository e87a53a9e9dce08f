package notifier

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"safespace/internal/models"
)

// TodayReporter supplies the counters answered by the /today command.
type TodayReporter interface {
	Today(ctx context.Context) (*models.DailyAnalytics, error)
}

// TelegramConfig configures the Telegram notifier.
type TelegramConfig struct {
	BotToken string
	ChatID   int64
	// APIEndpoint overrides the Bot API endpoint format, e.g. for a self-hosted
	// Bot API server. Empty uses api.telegram.org.
	APIEndpoint string
}

// TelegramNotifier sends alerts to a Telegram chat and answers bot commands.
type TelegramNotifier struct {
	api      *tgbotapi.BotAPI
	chatID   int64
	reporter TodayReporter
	logger   *zap.Logger
}

// NewTelegramNotifier authorizes the bot and returns a notifier for cfg.ChatID.
func NewTelegramNotifier(cfg TelegramConfig, reporter TodayReporter, logger *zap.Logger) (*TelegramNotifier, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if cfg.ChatID == 0 {
		return nil, fmt.Errorf("telegram chat id is not set")
	}

	var botAPI *tgbotapi.BotAPI
	var err error
	if cfg.APIEndpoint != "" {
		botAPI, err = tgbotapi.NewBotAPIWithClient(cfg.BotToken, cfg.APIEndpoint, &http.Client{})
	} else {
		botAPI, err = tgbotapi.NewBotAPI(cfg.BotToken)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))

	return &TelegramNotifier{
		api:      botAPI,
		chatID:   cfg.ChatID,
		reporter: reporter,
		logger:   logger,
	}, nil
}

// NotifyThreat sends the alert to the configured chat.
func (n *TelegramNotifier) NotifyThreat(ctx context.Context, alert Alert) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if _, err := n.api.Send(tgbotapi.NewMessage(n.chatID, FormatAlert(alert))); err != nil {
		n.logger.Error("Failed to send threat notification", zap.Int64("chat_id", n.chatID), zap.Error(err))
		return fmt.Errorf("failed to send notification: %w", err)
	}

	n.logger.Info("Threat notification sent", zap.String("category", alert.Category))
	return nil
}

// Start listens for bot commands until ctx is cancelled.
func (n *TelegramNotifier) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := n.api.GetUpdatesChan(u)

	n.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			n.logger.Info("Telegram bot shutting down...")
			n.api.StopReceivingUpdates()
			return nil
		case update := <-updates:
			if update.Message != nil {
				n.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (n *TelegramNotifier) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if !message.IsCommand() {
		return
	}

	switch message.Command() {
	case "start", "help":
		n.sendMessage(message.Chat.ID, "SafeSpace alerts you when harmful content is detected.\n\n/today - today's scan counters")
	case "today":
		n.sendMessage(message.Chat.ID, n.todayText(ctx))
	default:
		n.sendMessage(message.Chat.ID, "Unknown command. Use /help.")
	}
}

func (n *TelegramNotifier) todayText(ctx context.Context) string {
	if n.reporter == nil {
		return "Analytics are not available."
	}
	today, err := n.reporter.Today(ctx)
	if err != nil {
		n.logger.Error("Failed to load today's analytics", zap.Error(err))
		return "Failed to load today's analytics."
	}
	return FormatToday(today)
}

// FormatToday renders a day's counters.
func FormatToday(day *models.DailyAnalytics) string {
	return fmt.Sprintf("%s\nHarmful: %d\nSafe: %d", day.Date, day.ToxicCount, day.SafeCount)
}

func (n *TelegramNotifier) sendMessage(chatID int64, text string) {
	if _, err := n.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		n.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}
