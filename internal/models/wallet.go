package models

import "time"

// Wallet is the per-livreur running balance, in centimes. The balance is
// never written independently of a WalletTransaction insert: at any time it
// equals the sum of all transaction amounts for the wallet.
type Wallet struct {
	ID        string    `json:"id"`
	LivreurID string    `json:"livreur_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxOrderPayout     TransactionType = "ORDER_PAYOUT"
	TxOrderReversal   TransactionType = "ORDER_REVERSAL"
	TxOrderPenalty    TransactionType = "ORDER_PENALTY"
	TxWithdrawal      TransactionType = "WITHDRAWAL"
	TxAdminAdjustment TransactionType = "ADMIN_ADJUSTMENT"
	TxTopUp           TransactionType = "TOP_UP"
)

// ReferenceKind tags what a ledger entry points at.
type ReferenceKind string

const (
	RefOrder      ReferenceKind = "order"
	RefWithdrawal ReferenceKind = "withdrawal"
	RefAdmin      ReferenceKind = "admin"
)

// LedgerReference is the tagged link from a transaction to the entity that
// caused it. Exactly one of the constructors below is used; consumers switch
// on Kind.
type LedgerReference struct {
	Kind ReferenceKind `json:"kind"`
	ID   string        `json:"id"`
}

func OrderRef(orderID string) LedgerReference {
	return LedgerReference{Kind: RefOrder, ID: orderID}
}

func WithdrawalRef(withdrawalID string) LedgerReference {
	return LedgerReference{Kind: RefWithdrawal, ID: withdrawalID}
}

func AdminRef(adminID string) LedgerReference {
	return LedgerReference{Kind: RefAdmin, ID: adminID}
}

// WalletTransaction is one immutable, append-only ledger record.
// Amount is signed: credits positive, debits negative.
type WalletTransaction struct {
	ID          string          `json:"id"`
	WalletID    string          `json:"wallet_id"`
	Type        TransactionType `json:"type"`
	Amount      int64           `json:"amount"`
	Reference   LedgerReference `json:"reference"`
	Description string          `json:"description,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// WithdrawRequest asks to move funds out of the wallet.
type WithdrawRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// TopUpRequest adds funds to the wallet.
type TopUpRequest struct {
	Amount      int64  `json:"amount" validate:"required,gt=0"`
	Description string `json:"description,omitempty"`
}

// AdjustBalanceRequest is the admin-only manual ledger correction.
type AdjustBalanceRequest struct {
	Amount      int64  `json:"amount" validate:"required,ne=0"`
	Description string `json:"description" validate:"required,min=3"`
}
