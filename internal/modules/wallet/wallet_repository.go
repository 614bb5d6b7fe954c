package wallet

import (
	"context"
	"errors"
	"fmt"

	"livraison-backend/internal/models"
	"livraison-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the wallet and ledger storage operations.
// Mutating methods are meant to run on a transaction-scoped repository
// obtained through WithTx.
type RepositoryInterface interface {
	BeginTx(ctx context.Context) (storage.Tx, error)
	WithTx(tx storage.Tx) RepositoryInterface

	FindByLivreur(ctx context.Context, livreurID string) (*models.Wallet, error)
	// LockByLivreur loads the wallet row for update, creating it with a zero
	// balance if the livreur has no wallet yet.
	LockByLivreur(ctx context.Context, livreurID string) (*models.Wallet, error)
	LockWalletByID(ctx context.Context, walletID string) (*models.Wallet, error)
	UpdateBalance(ctx context.Context, walletID string, balance int64) error
	InsertTransaction(ctx context.Context, tx *models.WalletTransaction) error

	FindByOrderRef(ctx context.Context, orderID string, txType models.TransactionType) (*models.WalletTransaction, error)
	ListTransactions(ctx context.Context, walletID string, page, limit int) ([]models.WalletTransaction, int, error)
	// SumTransactions replays the ledger: the sum of all transaction amounts
	// for the wallet, which must equal the balance projection.
	SumTransactions(ctx context.Context, walletID string) (int64, error)
}

// dbtx is satisfied by both *pgxpool.Pool and pgx.Tx, so the same queries run
// inside and outside a transaction.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewRepository(pool *pgxpool.Pool) RepositoryInterface {
	return &Repository{pool: pool, db: pool}
}

func (r *Repository) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("repository.BeginTx: %w", err)
	}
	return tx, nil
}

func (r *Repository) WithTx(tx storage.Tx) RepositoryInterface {
	pgTx, ok := tx.(pgx.Tx)
	if !ok {
		// Only transactions produced by BeginTx are accepted here.
		panic("wallet: WithTx called with a foreign transaction type")
	}
	return &Repository{pool: r.pool, db: pgTx}
}

const walletColumns = `id, livreur_id, balance, created_at, updated_at`

func scanWallet(row pgx.Row) (*models.Wallet, error) {
	w := &models.Wallet{}
	err := row.Scan(&w.ID, &w.LivreurID, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet: %w", err)
	}
	return w, nil
}

func (r *Repository) FindByLivreur(ctx context.Context, livreurID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE livreur_id = $1`
	w, err := scanWallet(r.db.QueryRow(ctx, query, livreurID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByLivreur: %w", err)
	}
	return w, nil
}

func (r *Repository) LockByLivreur(ctx context.Context, livreurID string) (*models.Wallet, error) {
	// Lazy creation keeps wallet existence an implementation detail: the
	// first financial event materializes the row.
	insert := `
		INSERT INTO wallets (id, livreur_id, balance)
		VALUES ($1, $2, 0)
		ON CONFLICT (livreur_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, insert, uuid.New().String(), livreurID); err != nil {
		return nil, fmt.Errorf("repository.LockByLivreur: insert: %w", err)
	}

	query := `SELECT ` + walletColumns + ` FROM wallets WHERE livreur_id = $1 FOR UPDATE`
	w, err := scanWallet(r.db.QueryRow(ctx, query, livreurID))
	if err != nil {
		return nil, fmt.Errorf("repository.LockByLivreur: %w", err)
	}
	return w, nil
}

func (r *Repository) LockWalletByID(ctx context.Context, walletID string) (*models.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE id = $1 FOR UPDATE`
	w, err := scanWallet(r.db.QueryRow(ctx, query, walletID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.LockWalletByID: %w", err)
	}
	return w, nil
}

func (r *Repository) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	query := `UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`
	cmd, err := r.db.Exec(ctx, query, balance, walletID)
	if err != nil {
		return fmt.Errorf("repository.UpdateBalance: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) InsertTransaction(ctx context.Context, t *models.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, type, amount, reference_kind, reference_id, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`
	err := r.db.QueryRow(ctx, query,
		t.ID, t.WalletID, t.Type, t.Amount, t.Reference.Kind, t.Reference.ID, t.Description,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.InsertTransaction: %w", err)
	}
	return nil
}

const transactionColumns = `id, wallet_id, type, amount, reference_kind, reference_id, description, created_at`

func scanTransaction(row pgx.Row) (*models.WalletTransaction, error) {
	t := &models.WalletTransaction{}
	err := row.Scan(&t.ID, &t.WalletID, &t.Type, &t.Amount, &t.Reference.Kind, &t.Reference.ID, &t.Description, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan wallet transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) FindByOrderRef(ctx context.Context, orderID string, txType models.TransactionType) (*models.WalletTransaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE reference_kind = $1 AND reference_id = $2 AND type = $3`
	t, err := scanTransaction(r.db.QueryRow(ctx, query, models.RefOrder, orderID, txType))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByOrderRef: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, walletID string, page, limit int) ([]models.WalletTransaction, int, error) {
	offset := (page - 1) * limit
	query := `
		SELECT ` + transactionColumns + `
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, walletID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListTransactions.Query: %w", err)
	}
	defer rows.Close()

	var txs []models.WalletTransaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListTransactions.Scan: %w", err)
		}
		txs = append(txs, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListTransactions: %w", err)
	}

	var total int
	err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM wallet_transactions WHERE wallet_id = $1`, walletID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListTransactions.Count: %w", err)
	}
	return txs, total, nil
}

func (r *Repository) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	query := `SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_id = $1`
	if err := r.db.QueryRow(ctx, query, walletID).Scan(&sum); err != nil {
		return 0, fmt.Errorf("repository.SumTransactions: %w", err)
	}
	return sum, nil
}
