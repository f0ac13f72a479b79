package bot

import (
	"context"
	"fmt"
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/ledgerline/internal/bot/handlers"
	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
)

// Bot serves a single chat: the owner of the ledger.
type Bot struct {
	api      *tgbotapi.BotAPI
	handlers *handlers.Handlers
	chatID   int64
}

func New(token string, chatID int64, ledger handlers.Ledger, runner handlers.Runner) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Bot{
		api:      api,
		handlers: handlers.New(api, ledger, runner),
		chatID:   chatID,
	}, nil
}

func (b *Bot) Start(ctx context.Context) error {
	log.Printf("Authorized on account %s", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update := <-updates:
			go b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if chat := update.FromChat(); chat == nil || chat.ID != b.chatID {
		if chat != nil {
			log.Printf("Ignoring update from chat %d", chat.ID)
		}
		return
	}

	if update.CallbackQuery != nil {
		b.handlers.HandleCallbackQuery(ctx, update.CallbackQuery)
		return
	}

	if update.Message != nil && update.Message.IsCommand() {
		b.handlers.HandleCommand(ctx, update.Message)
	}
}

// NotifyDetection forwards a scheduler report to the owner's chat.
func (b *Bot) NotifyDetection(_ context.Context, report finance.DetectionReport, pending []*models.PendingPayment) {
	b.handlers.NotifyDetection(b.chatID, report, pending)
}
