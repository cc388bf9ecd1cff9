package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/config"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/formatter"
	"github.com/josephsmithvaz777-svg/app-netcodigo-monitor/internal/store"
	appmodels "github.com/josephsmithvaz777-svg/app-netcodigo-monitor/pkg/models"
)

const sendTimeout = 10 * time.Second

// Notifier posts extraction results to a Telegram chat and answers a few
// read-only commands there
type Notifier struct {
	bot       *bot.Bot
	chatID    int64
	topicID   int
	store     store.Store
	formatter *formatter.TelegramFormatter
	logger    *slog.Logger
}

// NotifierDeps dependencies for creating a notifier
type NotifierDeps struct {
	Config    *config.Config
	Store     store.Store
	Formatter *formatter.TelegramFormatter
	Logger    *slog.Logger
}

// NewNotifier creates a new Telegram notifier
func NewNotifier(deps NotifierDeps) (*Notifier, error) {
	n := &Notifier{
		chatID:    deps.Config.TelegramChatID,
		topicID:   deps.Config.TelegramTopicID,
		store:     deps.Store,
		formatter: deps.Formatter,
		logger:    deps.Logger.With("component", "telegram"),
	}

	opts := []bot.Option{
		bot.WithDefaultHandler(n.defaultHandler),
	}

	tgBot, err := bot.New(deps.Config.TelegramToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	n.bot = tgBot
	n.registerHandlers()

	return n, nil
}

// registerHandlers registers command handlers
func (n *Notifier) registerHandlers() {
	n.bot.RegisterHandler(bot.HandlerTypeMessageText, "/codigos", bot.MatchTypePrefix, n.handleCodes)
	n.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypePrefix, n.handleHelp)
	n.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypePrefix, n.handleHelp)
}

// Start starts receiving updates, blocks until ctx is done
func (n *Notifier) Start(ctx context.Context) {
	n.logger.Info("starting telegram bot", "chat_id", n.chatID, "topic_id", n.topicID)
	n.bot.Start(ctx)
}

// Publish sends a result to the configured chat. Failures are logged.
func (n *Notifier) Publish(ctx context.Context, r *appmodels.ExtractionResult) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	text := n.formatter.FormatResult(r)
	keyboard := formatter.BuildResultKeyboard(r)

	if _, err := n.sendMessageWithKeyboard(ctx, n.chatID, n.topicID, text, keyboard); err != nil {
		n.logger.Error("failed to send to telegram", "recipient", r.Recipient, "error", err)
		return
	}

	n.logger.Debug("result sent to telegram", "recipient", r.Recipient, "kind", r.Kind)
}

// defaultHandler ignores everything that is not a known command
func (n *Notifier) defaultHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}

	if update.Message.Text != "" && update.Message.Text[0] == '/' {
		n.logger.Debug("unknown command", "text", update.Message.Text)
	}
}

// handleHelp handles /start and /help
func (n *Notifier) handleHelp(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if !n.allowed(update) {
		return
	}
	msg := update.Message

	text := `<b>Monitor de códigos Netflix</b>

Los códigos y enlaces de verificación se publican aquí en cuanto llegan.

<b>Comandos:</b>
/codigos - último código de cada cuenta`

	if _, err := n.sendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, text); err != nil {
		n.logger.Error("failed to send help", "error", err)
	}
}

// handleCodes handles /codigos
func (n *Notifier) handleCodes(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if !n.allowed(update) {
		return
	}
	msg := update.Message

	results, err := n.store.List(ctx)
	if err != nil {
		n.logger.Error("failed to list results", "error", err)
		n.sendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, "Error al leer los códigos")
		return
	}

	if _, err := n.sendMessage(ctx, msg.Chat.ID, msg.MessageThreadID, n.formatter.FormatList(results)); err != nil {
		n.logger.Error("failed to send codes", "error", err)
	}
}
