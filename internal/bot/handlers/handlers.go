package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/format"
	"github.com/hray3182/ledgerline/internal/models"
)

// Sender is the part of the Telegram API the handlers use.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Ledger is the finance service as seen from the chat.
type Ledger interface {
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	DefaultAccount(ctx context.Context) (*models.Account, error)
	PostTransaction(ctx context.Context, in finance.TransactionInput) (*models.Transaction, error)
	Snapshot(ctx context.Context) (*models.FinancialData, error)
	ListPendingPayments(ctx context.Context, status models.PendingStatus) ([]*models.PendingPayment, error)
	ApprovePendingPayment(ctx context.Context, pendingID string) (*models.Transaction, error)
	RejectPendingPayment(ctx context.Context, pendingID string) error
	Upcoming(ctx context.Context, days int) ([]finance.UpcomingPayment, error)
	SavingsTips(ctx context.Context, goals string) ([]string, error)
	Location() *time.Location
}

// Runner starts an obligation pass on demand.
type Runner interface {
	Run(ctx context.Context) (finance.DetectionReport, error)
}

type Handlers struct {
	api    Sender
	ledger Ledger
	runner Runner
	now    func() time.Time
}

func New(api Sender, ledger Ledger, runner Runner) *Handlers {
	return &Handlers{
		api:    api,
		ledger: ledger,
		runner: runner,
		now:    time.Now,
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(msg)
	case "help":
		h.handleHelp(msg)
	case "balance":
		h.handleBalance(ctx, msg)
	case "accounts":
		h.handleAccounts(ctx, msg)
	case "expense":
		h.handleTransaction(ctx, msg, models.TransactionTypeExpense)
	case "income":
		h.handleTransaction(ctx, msg, models.TransactionTypeIncome)
	case "pending":
		h.handlePending(ctx, msg)
	case "run":
		h.handleRun(ctx, msg)
	case "upcoming":
		h.handleUpcoming(ctx, msg)
	case "tips":
		h.handleTips(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Comando desconocido, usa /help para ver los comandos disponibles")
	}
}

// errorText turns a service error into a message for the user.
func errorText(err error) string {
	switch {
	case errors.Is(err, finance.ErrInvalidAmount):
		return "❌ El monto debe ser un número positivo"
	case errors.Is(err, finance.ErrInvalidInput):
		return "❌ Datos inválidos: " + err.Error()
	case errors.Is(err, finance.ErrNotFound):
		return "❌ No encontrado"
	case errors.Is(err, finance.ErrAlreadyResolved):
		return "ℹ️ Este pago ya fue resuelto"
	case errors.Is(err, finance.ErrIncompleteData):
		return "❌ Al pago le faltan datos (monto, categoría o descripción)"
	case errors.Is(err, finance.ErrNoDefaultAccount):
		return "❌ No hay una cuenta predeterminada configurada"
	case errors.Is(err, finance.ErrAdvisorUnavailable):
		return "🤖 El asesor IA no está disponible en este momento"
	case finance.IsRetryable(err):
		return "⚠️ Error temporal, intenta de nuevo en unos segundos"
	default:
		return "❌ Ocurrió un error inesperado"
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	h.send(chatID, text, nil)
}

func (h *Handlers) send(chatID int64, text string, markup *tgbotapi.InlineKeyboardMarkup) {
	parsed := format.ParseMarkdown(text)
	msg := tgbotapi.NewMessage(chatID, parsed.Text)
	msg.Entities = parsed.Entities
	if markup != nil {
		msg.ReplyMarkup = *markup
	}
	if _, err := h.api.Send(msg); err != nil {
		log.Printf("Failed to send message: %v", err)
	}
}

func (h *Handlers) editMessageText(chatID int64, messageID int, text string) {
	parsed := format.ParseMarkdown(text)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, parsed.Text)
	edit.Entities = parsed.Entities
	if _, err := h.api.Send(edit); err != nil {
		log.Printf("Failed to edit message: %v", err)
	}
}

func (h *Handlers) handleStart(msg *tgbotapi.Message) {
	name := ""
	if msg.From != nil {
		name = " " + msg.From.FirstName
	}
	text := fmt.Sprintf(`👋 ¡Hola%s!

Soy ledgerline, llevo tus cuentas, pagos recurrentes y presupuestos diarios.

Cada día reviso qué pagos vencen: los automáticos se registran solos y los demás te los envío para que los apruebes o rechaces.

Usa /help para ver los comandos`, name)
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	text := `📖 **Comandos**

**Saldos**
/balance - saldo total y movimientos del mes
/accounts - saldo por cuenta

**Movimientos**
/expense <monto> <categoría> [descripción] [@cuenta] - registrar gasto
/income <monto> <categoría> [descripción] [@cuenta] - registrar ingreso

**Pagos programados**
/pending - pagos por aprobar
/run - revisar ahora los pagos de hoy
/upcoming [días] - próximos pagos

**Asesor**
/tips [meta] - consejos de ahorro`
	h.sendMessage(msg.Chat.ID, text)
}

func (h *Handlers) handleBalance(ctx context.Context, msg *tgbotapi.Message) {
	data, err := h.ledger.Snapshot(ctx)
	if err != nil {
		log.Printf("Failed to build snapshot: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	h.sendMessage(msg.Chat.ID, balanceText(data, h.now().In(h.ledger.Location())))
}

func balanceText(data *models.FinancialData, now time.Time) string {
	income, expense := decimal.Zero, decimal.Zero
	for _, tx := range data.Transactions {
		local := tx.Date.In(now.Location())
		if local.Year() != now.Year() || local.Month() != now.Month() {
			continue
		}
		if tx.Type == models.TransactionTypeIncome {
			income = income.Add(tx.Amount)
		} else {
			expense = expense.Add(tx.Amount)
		}
	}

	pending := 0
	for _, p := range data.PendingPayments {
		if p.Status == models.PendingStatusPending {
			pending++
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📊 **Saldo total: %s**\n\n", format.Money(data.CurrentBalance)))
	sb.WriteString(fmt.Sprintf("Este mes (%02d/%d)\n", int(now.Month()), now.Year()))
	sb.WriteString(fmt.Sprintf("💰 Ingresos: %s\n", format.Money(income)))
	sb.WriteString(fmt.Sprintf("💸 Gastos: %s\n", format.Money(expense)))

	flow := income.Sub(expense)
	emoji := "📈"
	if flow.IsNegative() {
		emoji = "📉"
	}
	sb.WriteString(fmt.Sprintf("%s Flujo: %s", emoji, format.Money(flow)))
	if pending > 0 {
		sb.WriteString(fmt.Sprintf("\n\n🔔 %d pagos por aprobar, usa /pending", pending))
	}
	return sb.String()
}

func (h *Handlers) handleAccounts(ctx context.Context, msg *tgbotapi.Message) {
	accounts, err := h.ledger.ListAccounts(ctx)
	if err != nil {
		log.Printf("Failed to list accounts: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}
	if len(accounts) == 0 {
		h.sendMessage(msg.Chat.ID, "No tienes cuentas registradas")
		return
	}

	var sb strings.Builder
	sb.WriteString("🏦 **Cuentas**\n\n")
	total := decimal.Zero
	for _, a := range accounts {
		sb.WriteString(fmt.Sprintf("• %s (%s): %s\n", a.Name, a.Type, format.Money(a.Balance)))
		total = total.Add(a.Balance)
	}
	sb.WriteString(fmt.Sprintf("\n**Total: %s**", format.Money(total)))
	h.sendMessage(msg.Chat.ID, sb.String())
}
