package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	AccountTypeCash        AccountType = "cash"
	AccountTypeBCP         AccountType = "bcp"
	AccountTypeInterbank   AccountType = "interbank"
	AccountTypeBancoNacion AccountType = "banconacion"
	AccountTypeOther       AccountType = "other"
)

// AccountTypes lists every supported account type in display order.
var AccountTypes = []AccountType{
	AccountTypeCash,
	AccountTypeBCP,
	AccountTypeInterbank,
	AccountTypeBancoNacion,
	AccountTypeOther,
}

func (t AccountType) IsValid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

type Account struct {
	AccountID   string          `json:"account_id"`
	Name        string          `json:"name"`
	Type        AccountType     `json:"type"`
	Balance     decimal.Decimal `json:"balance"`
	Color       string          `json:"color"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
}
