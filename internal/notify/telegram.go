package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"task-tracker/internal/model"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Linker binds a Telegram chat to a staff member.
type Linker interface {
	LinkTelegram(ctx context.Context, authID string, chatID int64) (*model.Staff, error)
}

// Telegram sends notifications to staff that linked a chat with /link.
type Telegram struct {
	api    *tgbotapi.BotAPI
	send   sender
	staff  StaffDirectory
	linker Linker
	log    logrus.FieldLogger
}

func NewTelegram(token string, staff StaffDirectory, linker Linker, log logrus.FieldLogger) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "create bot api")
	}
	log.WithField("account", api.Self.UserName).Info("telegram bot authorized")
	return &Telegram{api: api, send: api, staff: staff, linker: linker, log: log}, nil
}

// Notify messages every recipient with a linked chat. Staff without a chat
// are skipped; the first delivery error is returned after trying everyone.
func (t *Telegram) Notify(ctx context.Context, staffIDs []uint, text string) error {
	staff, err := t.staff.FindByIDs(ctx, staffIDs)
	if err != nil {
		return err
	}
	var firstErr error
	for _, member := range staff {
		if member.TelegramChatID == 0 {
			continue
		}
		if err := t.sendText(member.TelegramChatID, html.EscapeString(text)); err != nil {
			t.log.WithField("staff_id", member.ID).WithError(err).Warn("telegram send")
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "notify staff %d", member.ID)
			}
		}
	}
	return firstErr
}

// Start polls updates until ctx is cancelled, answering /link and /help.
func (t *Telegram) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := t.api.GetUpdatesChan(updateConfig)

	go func() {
		<-ctx.Done()
		t.api.StopReceivingUpdates()
	}()

	for update := range updates {
		msg := update.Message
		if msg == nil || msg.Chat == nil || !msg.Chat.IsPrivate() || !msg.IsCommand() {
			continue
		}
		if err := t.handleCommand(ctx, msg.Chat.ID, msg.Command(), msg.CommandArguments()); err != nil {
			t.log.WithError(err).Warn("handle telegram command")
		}
	}
	return ctx.Err()
}

func (t *Telegram) handleCommand(ctx context.Context, chatID int64, command, args string) error {
	switch command {
	case "link", "start":
		authID := strings.TrimSpace(args)
		if authID == "" {
			return t.sendText(chatID, "Send <code>/link your-auth-id</code> to receive task notifications here.")
		}
		staff, err := t.linker.LinkTelegram(ctx, authID, chatID)
		if err != nil {
			t.log.WithError(err).Info("telegram link rejected")
			return t.sendText(chatID, "Unknown account.")
		}
		return t.sendText(chatID, fmt.Sprintf("Linked to <b>%s</b>. Task notifications will arrive here.", html.EscapeString(staff.Name)))
	default:
		return t.sendText(chatID, "Commands: <code>/link your-auth-id</code>")
	}
}

func (t *Telegram) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := t.send.Send(msg)
	return err
}
