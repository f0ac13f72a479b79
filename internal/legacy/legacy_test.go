package legacy

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/hray3182/ledgerline/internal/finance"
	"github.com/hray3182/ledgerline/internal/models"
	"github.com/hray3182/ledgerline/internal/repository/memory"
)

var lima = time.FixedZone("PET", -5*60*60)

var importedAt = time.Date(2024, 3, 5, 8, 0, 0, 0, lima)

const export = `{
  "accounts": {
    "-Nacc1": {"name": "BCP Sueldo", "type": "bcp", "balance": 1500.5, "color": "#0033a0"},
    "-Nacc2": {"name": "Billetera", "type": "Banco Nacion", "balance": "80"}
  },
  "transactions": [
    null,
    {"id": "t1", "type": "income", "amount": 3000, "date": "2024-03-01T14:00:00.000Z", "category": "Sueldo", "description": "Marzo", "accountId": "-Nacc1"},
    {"id": "t2", "type": "expense", "amount": 0, "date": "2024-03-02", "category": "Otros"},
    {"id": "t3", "type": "expense", "amount": "45.90", "date": 1709409600000, "category": "Comida", "description": "Mercado"}
  ],
  "recurringPayments": {
    "rp1": {"name": "Internet", "amount": 90, "dayOfMonth": 5, "category": "Servicios"},
    "rp2": {"name": "Gimnasio", "amount": 120, "dayOfMonth": 40, "category": "Salud"},
    "rp3": {"name": "Netflix", "amount": 45, "dayOfMonth": 20, "category": "Suscripciones", "daysOfWeek": [], "requiresApproval": false}
  },
  "dailyBudgets": {
    "db1": {"name": "Menú", "category": "Comida", "limit": 999, "daysOfWeek": [1, 3, 5], "autoCreate": true,
      "items": [{"id": "i1", "name": "Almuerzo", "amount": 12}, {"name": "Pasaje", "amount": 3.5, "category": "Transporte"}]}
  },
  "budgets": {
    "b1": {"category": "Comida", "limit": 600}
  },
  "pendingAutomaticPayments": {
    "-Npend1": {"paymentData": {"name": "Internet", "amount": 90, "category": "Servicios", "description": "Pago automático: Internet",
      "recurringPaymentId": "rp1", "accountId": "-Nacc1", "scheduledDate": "2024-03-05"}, "status": "pending", "createdAt": "2024-03-05T06:00:00-05:00"},
    "-Npend2": {"type": "daily-budget", "name": "Almuerzo", "amount": 12, "category": "Comida", "description": "Menú",
      "dailyBudgetId": "db1", "itemId": "i1", "accountId": "-Nacc1", "scheduledDate": "2024-03-04", "status": "approved", "createdAt": 1709550000000},
    "-Npend3": {"name": "Raro", "amount": 5, "category": "Otros", "type": "weekly"}
  },
  "settings": {"initialBalance": 250, "defaultAccountId": "-Nacc1"}
}`

func decodeExport(t *testing.T) *Export {
	t.Helper()
	exp, err := Decode(strings.NewReader(export), Options{
		Location: lima,
		Now:      func() time.Time { return importedAt },
	})
	require.NoError(t, err)
	return exp
}

func TestDecodeCollections(t *testing.T) {
	exp := decodeExport(t)

	require.Len(t, exp.Accounts, 2)
	require.Equal(t, "-Nacc1", exp.Accounts[0].AccountID)
	require.Equal(t, models.AccountTypeBancoNacion, exp.Accounts[1].Type)
	require.True(t, decimal.NewFromInt(80).Equal(exp.Accounts[1].Balance))

	require.Len(t, exp.Transactions, 2)
	require.Equal(t, "t1", exp.Transactions[0].TransactionID)
	require.Equal(t, "-Nacc1", *exp.Transactions[0].AccountID)
	require.Nil(t, exp.Transactions[1].AccountID)
	require.Equal(t, time.UnixMilli(1709409600000).Unix(), exp.Transactions[1].Date.Unix())

	require.Len(t, exp.RecurringPayments, 2)
	require.True(t, exp.RecurringPayments[0].IsLegacy())
	require.Nil(t, exp.RecurringPayments[1].DaysOfWeek)
	require.False(t, exp.RecurringPayments[1].NeedsApproval())

	require.Len(t, exp.DailyBudgets, 1)
	budget := exp.DailyBudgets[0]
	require.True(t, decimal.RequireFromString("15.5").Equal(budget.Limit))
	require.Equal(t, "db1-1", budget.Items[1].ItemID)
	require.Equal(t, "Comida", budget.Items[0].Category)

	require.Len(t, exp.Budgets, 1)
	require.True(t, exp.Budgets[0].Recurring)

	require.True(t, decimal.NewFromInt(250).Equal(*exp.InitialBalance))
	require.Equal(t, "-Nacc1", exp.DefaultAccountID)

	require.Len(t, exp.Skipped, 3)
	require.Contains(t, exp.Skipped[0], "transactions/2")
	require.Contains(t, exp.Skipped[1], "recurringPayments/rp2")
	require.Contains(t, exp.Skipped[2], "pendingAutomaticPayments/-Npend3")
}

func TestDecodeFlattensNestedPendingPayments(t *testing.T) {
	exp := decodeExport(t)
	require.Len(t, exp.PendingPayments, 2)

	nested := exp.PendingPayments[0]
	require.Equal(t, "-Npend1", nested.PendingID)
	require.Equal(t, models.PendingKindRecurring, nested.Kind)
	require.Equal(t, "Internet", nested.Name)
	require.True(t, decimal.NewFromInt(90).Equal(nested.Amount))
	require.Equal(t, models.PendingStatusPending, nested.Status)
	require.Equal(t, "recurring:rp1:2024-03-05", nested.IdempotencyKey)
	require.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, lima), nested.ScheduledDate)
	require.Nil(t, nested.ResolvedAt)

	flat := exp.PendingPayments[1]
	require.Equal(t, models.PendingKindDailyBudget, flat.Kind)
	require.Equal(t, "db1", flat.SourceID)
	require.Equal(t, "daily-budget:db1:2024-03-04:i1", flat.IdempotencyKey)
	require.NotNil(t, flat.ResolvedAt)
}

func TestFlattenPendingUnderPushID(t *testing.T) {
	raw := []byte(`{"-Nx": {"amount": 10, "name": "Agua", "status": "pending"}, "status": "rejected"}`)
	flat, err := flattenPending(raw)
	require.NoError(t, err)
	require.JSONEq(t, `{"amount": 10, "name": "Agua", "status": "rejected"}`, string(flat))

	untouched := []byte(`{"amount": 3, "paymentData": {"amount": 4}}`)
	flat, err = flattenPending(untouched)
	require.NoError(t, err)
	require.Equal(t, string(untouched), string(flat))
}

func TestDecodeRejectsMalformedCollections(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"accounts": "nope"}`), Options{})
	require.Error(t, err)

	_, err = Decode(strings.NewReader(`{`), Options{})
	require.Error(t, err)
}

func TestImportIntoStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	exp := decodeExport(t)

	res, err := Import(ctx, store, exp)
	require.NoError(t, err)
	require.Equal(t, Result{
		Accounts:          2,
		Transactions:      2,
		RecurringPayments: 2,
		DailyBudgets:      1,
		Budgets:           1,
		PendingPayments:   2,
	}, res)

	svc := finance.NewService(store, finance.Options{
		Location: lima,
		Now:      func() time.Time { return importedAt },
	})

	account, err := svc.GetAccount(ctx, "-Nacc1")
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("1500.5").Equal(account.Balance))

	def, err := svc.DefaultAccount(ctx)
	require.NoError(t, err)
	require.Equal(t, "-Nacc1", def.AccountID)

	// the imported pending payment already covers today's Internet bill
	report, err := svc.RunDetection(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, report.Migrated)
	require.Equal(t, 0, report.Recurring.Pending)

	pending, err := svc.ListPendingPayments(ctx, models.PendingStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = Import(ctx, store, exp)
	require.ErrorIs(t, err, ErrStoreNotEmpty)
}
