package handlers

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/format"
	"github.com/hray3182/ledgerline/internal/models"
)

const (
	actionApprove = "approve"
	actionReject  = "reject"

	defaultUpcomingDays = 7
)

func pendingText(p *models.PendingPayment) string {
	kind := "Pago recurrente"
	if p.Kind == models.PendingKindDailyBudget {
		kind = "Presupuesto diario"
	}
	return fmt.Sprintf("🔔 **%s**\n%s: %s\nCategoría: %s\nFecha: %s",
		p.Name, kind, format.Money(p.Amount), p.Category, format.Date(p.ScheduledDate))
}

func pendingKeyboard(pendingID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Aprobar", actionApprove+":"+pendingID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Rechazar", actionReject+":"+pendingID),
		),
	)
}

func (h *Handlers) sendPending(chatID int64, p *models.PendingPayment) {
	keyboard := pendingKeyboard(p.PendingID)
	h.send(chatID, pendingText(p), &keyboard)
}

func (h *Handlers) handlePending(ctx context.Context, msg *tgbotapi.Message) {
	pending, err := h.ledger.ListPendingPayments(ctx, models.PendingStatusPending)
	if err != nil {
		log.Printf("Failed to list pending payments: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	if len(pending) == 0 {
		h.sendMessage(msg.Chat.ID, "✅ No hay pagos por aprobar")
		return
	}
	for _, p := range pending {
		h.sendPending(msg.Chat.ID, p)
	}
}

func reportText(report finance.DetectionReport) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📅 **Revisión del %s**\n", report.Date))
	if report.Recurring.Executed > 0 {
		sb.WriteString(fmt.Sprintf("\n✅ %d pagos automáticos registrados", report.Recurring.Executed))
	}
	if report.Recurring.Pending > 0 {
		sb.WriteString(fmt.Sprintf("\n🔔 %d pagos recurrentes por aprobar", report.Recurring.Pending))
	}
	if report.DailyBudgets.Pending > 0 {
		sb.WriteString(fmt.Sprintf("\n🛒 %d gastos de presupuesto diario por aprobar", report.DailyBudgets.Pending))
	}
	if report.Expired > 0 {
		sb.WriteString(fmt.Sprintf("\n🗑 %d pagos antiguos rechazados automáticamente", report.Expired))
	}
	if report.Total() == 0 && report.Expired == 0 {
		sb.WriteString("\nNo hay pagos nuevos para hoy")
	}
	return sb.String()
}

// NotifyDetection sends the pass summary followed by one approval message
// per queued payment.
func (h *Handlers) NotifyDetection(chatID int64, report finance.DetectionReport, pending []*models.PendingPayment) {
	h.sendMessage(chatID, reportText(report))
	for _, p := range pending {
		h.sendPending(chatID, p)
	}
}

func (h *Handlers) handleRun(ctx context.Context, msg *tgbotapi.Message) {
	report, err := h.runner.Run(ctx)
	if err != nil {
		log.Printf("Failed to run obligation pass: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	// passes that produced something are announced by NotifyDetection
	if report.Total() == 0 {
		h.sendMessage(msg.Chat.ID, reportText(report))
	}
}

func (h *Handlers) HandleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	// Answer callback to remove loading state
	answer := tgbotapi.NewCallback(callback.ID, "")
	if _, err := h.api.Request(answer); err != nil {
		log.Printf("Failed to answer callback: %v", err)
	}
	if callback.Message == nil {
		return
	}

	action, pendingID, ok := strings.Cut(callback.Data, ":")
	if !ok || pendingID == "" {
		return
	}

	chatID := callback.Message.Chat.ID
	messageID := callback.Message.MessageID
	original := callback.Message.Text

	switch action {
	case actionApprove:
		tx, err := h.ledger.ApprovePendingPayment(ctx, pendingID)
		if err != nil {
			log.Printf("Failed to approve pending payment %s: %v", pendingID, err)
			h.editMessageText(chatID, messageID, original+"\n\n"+errorText(err))
			return
		}
		h.editMessageText(chatID, messageID, fmt.Sprintf("%s\n\n✅ **Aprobado**, gasto de %s registrado", original, format.Money(tx.Amount)))
	case actionReject:
		if err := h.ledger.RejectPendingPayment(ctx, pendingID); err != nil {
			log.Printf("Failed to reject pending payment %s: %v", pendingID, err)
			h.editMessageText(chatID, messageID, original+"\n\n"+errorText(err))
			return
		}
		h.editMessageText(chatID, messageID, original+"\n\n❌ **Rechazado**")
	}
}

func (h *Handlers) handleUpcoming(ctx context.Context, msg *tgbotapi.Message) {
	days := defaultUpcomingDays
	if arg := strings.TrimSpace(msg.CommandArguments()); arg != "" {
		n, err := strconv.Atoi(arg)
		if err != nil {
			h.sendMessage(msg.Chat.ID, "Uso: /upcoming [días]")
			return
		}
		days = n
	}

	upcoming, err := h.ledger.Upcoming(ctx, days)
	if err != nil {
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	h.sendMessage(msg.Chat.ID, upcomingText(upcoming, days))
}

func upcomingText(upcoming []finance.UpcomingPayment, days int) string {
	if len(upcoming) == 0 {
		return fmt.Sprintf("No hay pagos en los próximos %d días", days)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🗓 **Próximos %d días**\n", days))
	for _, u := range upcoming {
		marker := ""
		if !u.RequiresApproval {
			marker = " (automático)"
		}
		sb.WriteString(fmt.Sprintf("\n• %s · %s · %s%s", format.Date(u.Date), u.Name, format.Money(u.Amount), marker))
	}
	return sb.String()
}

func (h *Handlers) handleTips(ctx context.Context, msg *tgbotapi.Message) {
	goals := strings.TrimSpace(msg.CommandArguments())
	if goals == "" {
		goals = "Ahorrar más cada mes"
	}

	tips, err := h.ledger.SavingsTips(ctx, goals)
	if err != nil {
		log.Printf("Failed to get savings tips: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}

	var sb strings.Builder
	sb.WriteString("💡 **Consejos de ahorro**\n")
	for i, tip := range tips {
		sb.WriteString(fmt.Sprintf("\n%d. %s", i+1, tip))
	}
	h.sendMessage(msg.Chat.ID, sb.String())
}
