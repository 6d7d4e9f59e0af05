package finance

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money movement
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is a known type
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

// Transaction is one recorded money movement
type Transaction struct {
	ID              string          `json:"id"`
	Type            TransactionType `json:"type"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	CategoryID      string          `json:"categoryId,omitempty"`
	CategoryName    string          `json:"categoryName,omitempty"`
	AccountSourceID string          `json:"accountSourceId,omitempty"`
	Date            time.Time       `json:"date"`
	CreatedAt       time.Time       `json:"createdAt,omitempty"`
}

// TransactionInput creates or updates a transaction
type TransactionInput struct {
	Type            TransactionType `json:"type,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Description     string          `json:"description,omitempty"`
	CategoryID      string          `json:"categoryId,omitempty"`
	AccountSourceID string          `json:"accountSourceId,omitempty"`
	Date            *time.Time      `json:"date,omitempty"`
}

// AccountSourceType distinguishes wallets from bank accounts
type AccountSourceType string

const (
	AccountWallet AccountSourceType = "wallet"
	AccountBank   AccountSourceType = "bank"
)

// AccountSource is a wallet or bank account holding money
type AccountSource struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Type     AccountSourceType `json:"type"`
	Balance  decimal.Decimal   `json:"balance"`
	Currency string            `json:"currency,omitempty"`
	BankName string            `json:"bankName,omitempty"`
}

// AccountSourceInput creates or updates an account source
type AccountSourceInput struct {
	Name     string            `json:"name,omitempty"`
	Type     AccountSourceType `json:"type,omitempty"`
	Balance  *decimal.Decimal  `json:"balance,omitempty"`
	Currency string            `json:"currency,omitempty"`
	BankName string            `json:"bankName,omitempty"`
}

// TransferInput moves money between two account sources
type TransferInput struct {
	FromID string          `json:"fromAccountSourceId"`
	ToID   string          `json:"toAccountSourceId"`
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note,omitempty"`
}

// Budget is a spending plan for a category over a period
type Budget struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CategoryID string          `json:"categoryId,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	StartDate  string          `json:"startDate,omitempty"`
	EndDate    string          `json:"endDate,omitempty"`
}

// Remaining returns how much of the plan is left; negative when overspent
func (b Budget) Remaining() decimal.Decimal {
	return b.Amount.Sub(b.Spent)
}

// BudgetInput creates or updates a budget
type BudgetInput struct {
	Name       string           `json:"name,omitempty"`
	CategoryID string           `json:"categoryId,omitempty"`
	Amount     *decimal.Decimal `json:"amount,omitempty"`
	StartDate  string           `json:"startDate,omitempty"`
	EndDate    string           `json:"endDate,omitempty"`
}

// Target is a savings goal
type Target struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      *time.Time      `json:"deadline,omitempty"`
	Status        string          `json:"status,omitempty"`
}

// Progress returns the saved fraction in [0, 1]
func (t Target) Progress() decimal.Decimal {
	if !t.TargetAmount.IsPositive() {
		return decimal.Zero
	}
	p := t.CurrentAmount.Div(t.TargetAmount)
	if p.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// TargetInput creates or updates a target
type TargetInput struct {
	Name         string           `json:"name,omitempty"`
	TargetAmount *decimal.Decimal `json:"targetAmount,omitempty"`
	Deadline     *time.Time       `json:"deadline,omitempty"`
}

// ContributionInput adds money to a target from an account source
type ContributionInput struct {
	Amount          decimal.Decimal `json:"amount"`
	AccountSourceID string          `json:"accountSourceId,omitempty"`
}

// User is an application user as seen by admins
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name,omitempty"`
	Role        string    `json:"role,omitempty"`
	Status      string    `json:"status,omitempty"`
	Permissions []string  `json:"permissions,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// UserUpdate changes a user's role or status
type UserUpdate struct {
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	Status string `json:"status,omitempty"`
}

// AdminInput creates an admin account
type AdminInput struct {
	Email       string   `json:"email"`
	Name        string   `json:"name,omitempty"`
	Password    string   `json:"password"`
	Permissions []string `json:"permissions,omitempty"`
}

// Permission is a grantable admin capability
type Permission struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}
