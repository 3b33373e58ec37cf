// Package telegram exposes the portfolio assistant as a Telegram bot.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"portfolio-assistant/internal/assistant"
	"portfolio-assistant/internal/auth"
	"portfolio-assistant/internal/history"
	"portfolio-assistant/internal/logger"
)

const (
	askPrefix   = "ask:"
	reactPrefix = "react:"

	// Telegram rejects callback data longer than this.
	maxCallbackData = 64
)

// ReportFunc builds the admin usage report.
type ReportFunc func(ctx context.Context) (string, error)

type Bot struct {
	api       *tgbotapi.BotAPI
	s         sender
	assistant *assistant.Service
	admins    *auth.Service
	parseMode string
	report    ReportFunc
	wait      func(ctx context.Context, d time.Duration) error

	// replies waiting out their typing delay; the last one per chat is kept
	// so a chat's replies go out in order
	deliveries sync.WaitGroup
	mu         sync.Mutex
	lastReply  map[int64]chan struct{}
}

func New(botToken string, svc *assistant.Service, admins *auth.Service, parseMode string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:       api,
		s:         botAPISender{api: api},
		assistant: svc,
		admins:    admins,
		parseMode: parseMode,
		wait:      assistant.Wait,
	}, nil
}

// SetReportFunction sets how /report and the scheduled report are built.
func (b *Bot) SetReportFunction(f ReportFunc) {
	b.report = f
}

// Start long-polls for updates until ctx is cancelled. It returns once the
// replies still waiting out their typing delay have been dropped or sent.
func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)
	logger.L().Info("telegram_started", zap.String("bot", b.api.Self.UserName))

	if b.run(ctx, updates) {
		b.api.StopReceivingUpdates()
	}
	logger.L().Info("telegram_stopped")
}

// run handles updates until ctx is cancelled or updates is closed, then
// waits for pending deliveries. It reports whether ctx ended the loop.
func (b *Bot) run(ctx context.Context, updates <-chan tgbotapi.Update) bool {
	defer b.waitDeliveries()
	for {
		select {
		case <-ctx.Done():
			return true
		case update, ok := <-updates:
			if !ok {
				return false
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	ctx = assistant.WithTransport(ctx, assistant.TransportTelegram)
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.handleIncomingMessage(ctx, update.Message)
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	}
}

// sessionID maps a chat to a conversation.
func sessionID(chatID int64) string {
	return "tg:" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start", "help":
		exs := b.assistant.History(ctx, sessionID(chatID))
		if len(exs) > 0 && exs[0].Sender == history.SenderAgent {
			b.sendExchange(chatID, exs[0])
			return
		}
		b.sendMessage(chatID, "Ask me anything about Saitej's skills, experience or projects.")
	case "reset":
		exs := b.assistant.Reset(ctx, sessionID(chatID))
		b.sendMessage(chatID, "Conversation cleared.")
		if len(exs) > 0 {
			b.sendExchange(chatID, exs[0])
		}
	case "stats":
		st := b.assistant.Stats(ctx, sessionID(chatID))
		b.sendMessage(chatID, fmt.Sprintf("Conversation stats:\n- Messages: %d\n- Yours: %d\n- Assistant: %d\n- Started: %s",
			st.TotalMessages, st.UserMessages, st.AgentMessages, st.SessionStart.UTC().Format("2006-01-02 15:04 UTC")))
	default:
		b.handleAdminCommand(ctx, msg)
	}
}

func (b *Bot) handleAdminCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.From == nil || b.admins == nil || !b.admins.IsAdmin(msg.From.ID) {
		b.sendMessage(chatID, "❌ This command is available to admins only.")
		return
	}
	switch msg.Command() {
	case "report":
		if err := b.sendReport(ctx, chatID); err != nil {
			logger.L().Error("report_failed", zap.Error(err))
			b.sendMessage(chatID, fmt.Sprintf("❌ Report failed: %v", err))
		}
	case "admins":
		var bld strings.Builder
		bld.WriteString("Admins:\n")
		for _, a := range b.admins.List() {
			bld.WriteString(fmt.Sprintf("- id=%d @%s %s\n", a.ID, a.Username, a.FirstName))
		}
		b.sendMessage(chatID, bld.String())
	case "grant", "revoke":
		args := strings.Fields(msg.CommandArguments())
		if len(args) != 1 {
			b.sendMessage(chatID, fmt.Sprintf("Usage: /%s <user_id>", msg.Command()))
			return
		}
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			b.sendMessage(chatID, "Invalid user_id")
			return
		}
		if msg.Command() == "grant" {
			err = b.admins.Grant(auth.Admin{ID: id})
		} else {
			err = b.admins.Revoke(id)
		}
		if err != nil {
			b.sendMessage(chatID, fmt.Sprintf("❌ %v", err))
			return
		}
		b.sendMessage(chatID, fmt.Sprintf("Done: /%s %d", msg.Command(), id))
	default:
		b.sendMessage(chatID, "Unknown command.")
	}
}

func (b *Bot) handleIncomingMessage(ctx context.Context, msg *tgbotapi.Message) {
	if strings.TrimSpace(msg.Text) == "" {
		return
	}
	b.ask(ctx, msg.Chat.ID, msg.Text)
}

// ask runs one turn and delivers the reply after the typing delay.
func (b *Bot) ask(ctx context.Context, chatID int64, text string) {
	if _, err := b.s.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		logger.L().Debug("chat_action_failed", zap.Error(err))
	}

	turn, err := b.assistant.Ask(ctx, sessionID(chatID), text)
	if err != nil {
		logger.L().Warn("ask_failed", zap.Int64("chat", chatID), zap.Error(err))
		b.sendMessage(chatID, "Sorry, something went wrong.")
		return
	}
	b.deliverLater(ctx, chatID, turn.TypingDelay, turn.Reply)
}

// deliverLater sends ex after delay without holding up other chats. Replies
// to the same chat keep their order. A cancelled ctx drops the reply; the
// exchange is already in the conversation log.
func (b *Bot) deliverLater(ctx context.Context, chatID int64, delay time.Duration, ex history.Exchange) {
	done := make(chan struct{})
	b.mu.Lock()
	if b.lastReply == nil {
		b.lastReply = make(map[int64]chan struct{})
	}
	prev := b.lastReply[chatID]
	b.lastReply[chatID] = done
	b.mu.Unlock()

	b.deliveries.Add(1)
	go func() {
		defer b.deliveries.Done()
		defer func() {
			close(done)
			b.mu.Lock()
			if b.lastReply[chatID] == done {
				delete(b.lastReply, chatID)
			}
			b.mu.Unlock()
		}()

		if prev != nil {
			select {
			case <-prev:
			case <-ctx.Done():
				return
			}
		}
		if err := b.wait(ctx, delay); err != nil {
			return
		}
		b.sendExchange(chatID, ex)
	}()
}

func (b *Bot) waitDeliveries() {
	b.deliveries.Wait()
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if _, err := b.s.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
		logger.L().Debug("callback_answer_failed", zap.Error(err))
	}
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	switch {
	case strings.HasPrefix(cb.Data, askPrefix):
		b.ask(ctx, chatID, strings.TrimPrefix(cb.Data, askPrefix))
	case strings.HasPrefix(cb.Data, reactPrefix):
		rest := strings.TrimPrefix(cb.Data, reactPrefix)
		reaction, exchangeID, ok := strings.Cut(rest, ":")
		if !ok {
			return
		}
		ex, err := b.assistant.React(ctx, sessionID(chatID), exchangeID, history.Reaction(reaction))
		if err != nil {
			logger.L().Warn("reaction_failed", zap.String("exchange", exchangeID), zap.Error(err))
			return
		}
		edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cb.Message.MessageID, b.keyboard(ex))
		if _, err := b.s.Send(edit); err != nil {
			logger.L().Debug("edit_markup_failed", zap.Error(err))
		}
	}
}

// keyboard lays out follow-ups two per row, then the reaction buttons.
func (b *Bot) keyboard(ex history.Exchange) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, label := range ex.FollowUps {
		data := askPrefix + label
		if len(data) > maxCallbackData {
			continue
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	like, dislike := "👍", "👎"
	if ex.Reactions.Liked {
		like = "👍 ✓"
	}
	if ex.Reactions.Disliked {
		dislike = "👎 ✓"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(like, reactPrefix+string(history.ReactionLiked)+":"+ex.ID),
		tgbotapi.NewInlineKeyboardButtonData(dislike, reactPrefix+string(history.ReactionDisliked)+":"+ex.ID),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func (b *Bot) sendExchange(chatID int64, ex history.Exchange) {
	out := tgbotapi.NewMessage(chatID, formatBody(ex.Body, b.parseMode))
	out.ParseMode = b.parseMode
	out.ReplyMarkup = b.keyboard(ex)
	if _, err := b.s.Send(out); err != nil {
		logger.L().Warn("send_failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, escapeIfNeeded(text, b.parseMode))
	msg.ParseMode = b.parseMode
	if _, err := b.s.Send(msg); err != nil {
		logger.L().Warn("send_failed", zap.Int64("chat", chatID), zap.Error(err))
	}
}

// NotifyAdmins sends text to every admin and reports the failures together.
func (b *Bot) NotifyAdmins(_ context.Context, text string) error {
	if b.admins == nil {
		return nil
	}
	var errs *multierror.Error
	for _, id := range b.admins.IDs() {
		msg := tgbotapi.NewMessage(id, escapeIfNeeded(text, b.parseMode))
		msg.ParseMode = b.parseMode
		if _, err := b.s.Send(msg); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("notify %d: %w", id, err))
		}
	}
	return errs.ErrorOrNil()
}

// SendDailyReport delivers the report to every admin.
func (b *Bot) SendDailyReport(ctx context.Context) error {
	text, err := b.buildReport(ctx)
	if err != nil {
		return err
	}
	return b.NotifyAdmins(ctx, text)
}

func (b *Bot) sendReport(ctx context.Context, chatID int64) error {
	text, err := b.buildReport(ctx)
	if err != nil {
		return err
	}
	b.sendMessage(chatID, text)
	return nil
}

func (b *Bot) buildReport(ctx context.Context) (string, error) {
	if b.report == nil {
		return "", fmt.Errorf("report function not set")
	}
	return b.report(ctx)
}
