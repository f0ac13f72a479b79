package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/agnivade/levenshtein"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shopspring/decimal"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/format"
	"github.com/hray3182/ledgerline/internal/models"
)

// minAccountSimilarity is the lowest name similarity accepted for "@cuenta".
const minAccountSimilarity = 0.5

type transactionArgs struct {
	Amount      decimal.Decimal
	Category    string
	Description string
	Account     string
}

var errUsage = errors.New("usage")

// parseTransactionArgs reads "<monto> <categoría> [descripción] [@cuenta]".
// A decimal comma is accepted.
func parseTransactionArgs(args string) (transactionArgs, error) {
	fields := strings.Fields(args)
	var out transactionArgs

	if n := len(fields); n > 0 && strings.HasPrefix(fields[n-1], "@") {
		out.Account = strings.TrimPrefix(fields[n-1], "@")
		fields = fields[:n-1]
	}
	if len(fields) < 2 {
		return out, errUsage
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(fields[0], ",", "."))
	if err != nil {
		return out, finance.ErrInvalidAmount
	}
	out.Amount = amount
	out.Category = fields[1]
	out.Description = strings.Join(fields[2:], " ")
	if out.Description == "" {
		out.Description = out.Category
	}
	return out, nil
}

// matchAccount picks the account whose name or type is closest to name.
// It returns nil when nothing is similar enough.
func matchAccount(accounts []*models.Account, name string) *models.Account {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil
	}

	var best *models.Account
	bestScore := 0.0
	for _, a := range accounts {
		for _, candidate := range []string{strings.ToLower(a.Name), string(a.Type)} {
			if candidate == name {
				return a
			}
			score := similarity(name, candidate)
			if score > bestScore {
				best, bestScore = a, score
			}
		}
	}
	if bestScore < minAccountSimilarity {
		return nil
	}
	return best
}

func similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 0
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func (h *Handlers) handleTransaction(ctx context.Context, msg *tgbotapi.Message, txType models.TransactionType) {
	args, err := parseTransactionArgs(msg.CommandArguments())
	if errors.Is(err, errUsage) {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Uso: /%s <monto> <categoría> [descripción] [@cuenta]", msg.Command()))
		return
	}
	if err != nil {
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}

	account, err := h.resolveAccount(ctx, args.Account)
	if err != nil {
		h.sendMessage(msg.Chat.ID, err.Error())
		return
	}

	in := finance.TransactionInput{
		Type:        txType,
		Amount:      args.Amount,
		Date:        h.now(),
		Category:    args.Category,
		Description: args.Description,
	}
	if account != nil {
		in.AccountID = &account.AccountID
	}

	tx, err := h.ledger.PostTransaction(ctx, in)
	if err != nil {
		log.Printf("Failed to post transaction: %v", err)
		h.sendMessage(msg.Chat.ID, errorText(err))
		return
	}

	emoji, label := "💸", "Gasto"
	if txType == models.TransactionTypeIncome {
		emoji, label = "💰", "Ingreso"
	}
	text := fmt.Sprintf("%s **%s registrado**\nMonto: %s\nCategoría: %s\nDescripción: %s",
		emoji, label, format.Money(tx.Amount), tx.Category, tx.Description)
	if account != nil {
		text += "\nCuenta: " + account.Name
	}
	h.sendMessage(msg.Chat.ID, text)
}

// resolveAccount finds the "@cuenta" account, or the default account when
// none was named. No default account means the movement is not attributed.
func (h *Handlers) resolveAccount(ctx context.Context, name string) (*models.Account, error) {
	if name == "" {
		account, err := h.ledger.DefaultAccount(ctx)
		if errors.Is(err, finance.ErrNoDefaultAccount) {
			return nil, nil
		}
		if err != nil {
			log.Printf("Failed to resolve default account: %v", err)
			return nil, errors.New(errorText(err))
		}
		return account, nil
	}

	accounts, err := h.ledger.ListAccounts(ctx)
	if err != nil {
		log.Printf("Failed to list accounts: %v", err)
		return nil, errors.New(errorText(err))
	}
	account := matchAccount(accounts, name)
	if account == nil {
		return nil, fmt.Errorf("❌ No encontré la cuenta %q, usa /accounts para ver tus cuentas", name)
	}
	return account, nil
}
