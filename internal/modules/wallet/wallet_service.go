package wallet

import (
	"context"
	"errors"
	"fmt"

	"livraison-backend/internal/metrics"
	"livraison-backend/internal/models"
	"livraison-backend/internal/storage"
	"livraison-backend/pkg/logger"
	"livraison-backend/pkg/notify"

	"github.com/google/uuid"
)

// PayoutPolicy is the slice of platform settings the wallet needs.
type PayoutPolicy interface {
	MinimumPayout() int64
}

// AccountReader resolves a livreur account, used for withdrawal receipts.
type AccountReader interface {
	FindByID(ctx context.Context, userID string) (*models.User, error)
}

// ServiceInterface is the wallet service contract. Every operation couples
// the balance mutation with its ledger insert inside one transaction: a
// concurrent reader observes either both or neither.
type ServiceInterface interface {
	GetOrCreateWallet(ctx context.Context, livreurID string) (*models.Wallet, error)
	ListTransactions(ctx context.Context, livreurID string, page, limit int) ([]models.WalletTransaction, int, error)

	// CreditForOrderTx and DebitPenaltyTx join a transaction owned by the
	// order lifecycle engine, so terminal order transitions and their wallet
	// effects commit or roll back together.
	CreditForOrderTx(ctx context.Context, tx storage.Tx, order *models.Order) (*models.WalletTransaction, error)
	DebitPenaltyTx(ctx context.Context, tx storage.Tx, orderID, livreurID string, amount int64) (*models.WalletTransaction, error)

	ReversePayout(ctx context.Context, orderID string) (*models.WalletTransaction, error)
	RequestWithdrawal(ctx context.Context, livreurID string, amount int64) (*models.WalletTransaction, error)
	TopUp(ctx context.Context, livreurID string, amount int64, description string) (*models.WalletTransaction, error)
	AdjustBalance(ctx context.Context, livreurID string, amount int64, description, adminID string) (*models.WalletTransaction, error)

	// VerifyBalance replays the ledger and reports whether the balance
	// projection matches the transaction sum.
	VerifyBalance(ctx context.Context, livreurID string) (bool, error)
}

type Service struct {
	repo     RepositoryInterface
	policy   PayoutPolicy
	accounts AccountReader
	notifier notify.Sender
	mailTmpl *notify.TemplateManager
	log      logger.ILogger
}

func NewService(repo RepositoryInterface, policy PayoutPolicy, accounts AccountReader, notifier notify.Sender, mailTmpl *notify.TemplateManager, log logger.ILogger) *Service {
	return &Service{
		repo:     repo,
		policy:   policy,
		accounts: accounts,
		notifier: notifier,
		mailTmpl: mailTmpl,
		log:      log,
	}
}

func (s *Service) GetOrCreateWallet(ctx context.Context, livreurID string) (*models.Wallet, error) {
	w, err := s.repo.FindByLivreur(ctx, livreurID)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("wallet.GetOrCreateWallet: %w", err)
	}

	// Creation shares the lazy-insert path used by every mutation.
	err = storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		w, err = s.repo.WithTx(tx).LockByLivreur(ctx, livreurID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("wallet.GetOrCreateWallet: %w", err)
	}
	return w, nil
}

func (s *Service) ListTransactions(ctx context.Context, livreurID string, page, limit int) ([]models.WalletTransaction, int, error) {
	w, err := s.GetOrCreateWallet(ctx, livreurID)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.ListTransactions(ctx, w.ID, page, limit)
}

// CreditForOrderTx credits the livreur's net payout for a delivered order.
// At most one ORDER_PAYOUT may ever exist per order.
func (s *Service) CreditForOrderTx(ctx context.Context, tx storage.Tx, order *models.Order) (*models.WalletTransaction, error) {
	if order.LivreurID == nil {
		return nil, fmt.Errorf("%w: order has no assigned livreur", models.ErrInvalidState)
	}
	txRepo := s.repo.WithTx(tx)

	if _, err := txRepo.FindByOrderRef(ctx, order.ID, models.TxOrderPayout); err == nil {
		return nil, models.ErrAlreadyProcessed
	} else if !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("wallet.CreditForOrderTx: %w", err)
	}

	return s.apply(ctx, txRepo, *order.LivreurID, &models.WalletTransaction{
		Type:        models.TxOrderPayout,
		Amount:      order.Pricing.LivreurNet,
		Reference:   models.OrderRef(order.ID),
		Description: "Payout for delivered order",
	})
}

// DebitPenaltyTx debits a cancellation penalty. The balance may go negative;
// no floor is enforced at this layer.
func (s *Service) DebitPenaltyTx(ctx context.Context, tx storage.Tx, orderID, livreurID string, amount int64) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: penalty must be positive", models.ErrValidation)
	}
	return s.apply(ctx, s.repo.WithTx(tx), livreurID, &models.WalletTransaction{
		Type:        models.TxOrderPenalty,
		Amount:      -amount,
		Reference:   models.OrderRef(orderID),
		Description: "Penalty for cancellation after pickup",
	})
}

// ReversePayout negates a prior order payout. Requires that a payout exists
// and that no reversal was recorded before.
func (s *Service) ReversePayout(ctx context.Context, orderID string) (*models.WalletTransaction, error) {
	var reversal *models.WalletTransaction
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)

		payout, err := txRepo.FindByOrderRef(ctx, orderID, models.TxOrderPayout)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return fmt.Errorf("%w: no payout recorded for this order", models.ErrInvalidState)
			}
			return err
		}
		if _, err := txRepo.FindByOrderRef(ctx, orderID, models.TxOrderReversal); err == nil {
			return models.ErrAlreadyProcessed
		} else if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		reversal = &models.WalletTransaction{
			ID:          uuid.New().String(),
			WalletID:    payout.WalletID,
			Type:        models.TxOrderReversal,
			Amount:      -payout.Amount,
			Reference:   models.OrderRef(orderID),
			Description: "Reversal of order payout",
		}
		w, err := txRepo.LockWalletByID(ctx, payout.WalletID)
		if err != nil {
			return err
		}
		if err := txRepo.UpdateBalance(ctx, w.ID, w.Balance+reversal.Amount); err != nil {
			return err
		}
		return txRepo.InsertTransaction(ctx, reversal)
	})
	if err != nil {
		return nil, fmt.Errorf("wallet.ReversePayout: %w", err)
	}
	metrics.WalletTransactions.WithLabelValues(string(models.TxOrderReversal)).Inc()
	return reversal, nil
}

// RequestWithdrawal moves funds out of the wallet, subject to the balance and
// the configured minimum payout.
func (s *Service) RequestWithdrawal(ctx context.Context, livreurID string, amount int64) (*models.WalletTransaction, error) {
	if amount < s.policy.MinimumPayout() {
		return nil, models.ErrBelowMinimum
	}

	var (
		withdrawal *models.WalletTransaction
		remaining  int64
	)
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		txRepo := s.repo.WithTx(tx)
		w, err := txRepo.LockByLivreur(ctx, livreurID)
		if err != nil {
			return err
		}
		if w.Balance < amount {
			return models.ErrInsufficientFunds
		}
		withdrawal = &models.WalletTransaction{
			ID:          uuid.New().String(),
			WalletID:    w.ID,
			Type:        models.TxWithdrawal,
			Amount:      -amount,
			Reference:   models.WithdrawalRef(uuid.New().String()),
			Description: "Withdrawal request",
		}
		remaining = w.Balance - amount
		if err := txRepo.UpdateBalance(ctx, w.ID, remaining); err != nil {
			return err
		}
		return txRepo.InsertTransaction(ctx, withdrawal)
	})
	if err != nil {
		if errors.Is(err, models.ErrInsufficientFunds) || errors.Is(err, models.ErrBelowMinimum) {
			return nil, err
		}
		return nil, fmt.Errorf("wallet.RequestWithdrawal: %w", err)
	}

	metrics.WalletTransactions.WithLabelValues(string(models.TxWithdrawal)).Inc()
	s.sendWithdrawalReceipt(ctx, livreurID, amount, remaining)
	return withdrawal, nil
}

func (s *Service) TopUp(ctx context.Context, livreurID string, amount int64, description string) (*models.WalletTransaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: top-up must be positive", models.ErrValidation)
	}
	if description == "" {
		description = "Wallet top-up"
	}
	var t *models.WalletTransaction
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		t, err = s.apply(ctx, s.repo.WithTx(tx), livreurID, &models.WalletTransaction{
			Type:        models.TxTopUp,
			Amount:      amount,
			Reference:   models.AdminRef(livreurID),
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("wallet.TopUp: %w", err)
	}
	return t, nil
}

// AdjustBalance is the admin-only manual correction; the signed amount may
// push the balance in either direction.
func (s *Service) AdjustBalance(ctx context.Context, livreurID string, amount int64, description, adminID string) (*models.WalletTransaction, error) {
	if amount == 0 {
		return nil, fmt.Errorf("%w: adjustment cannot be zero", models.ErrValidation)
	}
	var t *models.WalletTransaction
	err := storage.RunInTx(ctx, s.repo, func(tx storage.Tx) error {
		var err error
		t, err = s.apply(ctx, s.repo.WithTx(tx), livreurID, &models.WalletTransaction{
			Type:        models.TxAdminAdjustment,
			Amount:      amount,
			Reference:   models.AdminRef(adminID),
			Description: description,
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("wallet.AdjustBalance: %w", err)
	}
	s.log.Info("admin balance adjustment",
		logger.String("livreur_id", livreurID),
		logger.String("admin_id", adminID),
		logger.Int64("amount", amount),
	)
	return t, nil
}

func (s *Service) VerifyBalance(ctx context.Context, livreurID string) (bool, error) {
	w, err := s.repo.FindByLivreur(ctx, livreurID)
	if err != nil {
		return false, err
	}
	sum, err := s.repo.SumTransactions(ctx, w.ID)
	if err != nil {
		return false, err
	}
	return sum == w.Balance, nil
}

// apply locks the wallet, shifts the balance by the transaction amount and
// appends the ledger record. Must run on a transaction-scoped repository.
func (s *Service) apply(ctx context.Context, txRepo RepositoryInterface, livreurID string, t *models.WalletTransaction) (*models.WalletTransaction, error) {
	w, err := txRepo.LockByLivreur(ctx, livreurID)
	if err != nil {
		return nil, err
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.WalletID = w.ID
	if err := txRepo.UpdateBalance(ctx, w.ID, w.Balance+t.Amount); err != nil {
		return nil, err
	}
	if err := txRepo.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}
	metrics.WalletTransactions.WithLabelValues(string(t.Type)).Inc()
	return t, nil
}

func (s *Service) sendWithdrawalReceipt(ctx context.Context, livreurID string, amount, remaining int64) {
	if s.accounts == nil || s.notifier == nil || s.mailTmpl == nil {
		return
	}
	account, err := s.accounts.FindByID(ctx, livreurID)
	if err != nil || account.Email == "" {
		return
	}
	data := notify.WithdrawalData{
		Name:    account.FullName,
		Amount:  FormatCentimes(amount),
		Balance: FormatCentimes(remaining),
	}
	html, err := s.mailTmpl.GenerateWithdrawalReceiptHTML(data)
	if err != nil {
		s.log.Error("withdrawal receipt template", logger.Error(err))
		return
	}
	text := fmt.Sprintf("Your withdrawal of %s has been recorded. Remaining balance: %s.", data.Amount, data.Balance)
	s.notifier.Email(ctx, account.Email, "Withdrawal confirmed", text, html)
}

// FormatCentimes renders a centime amount as a currency string.
func FormatCentimes(c int64) string {
	return fmt.Sprintf("%.2f MAD", float64(c)/100)
}
