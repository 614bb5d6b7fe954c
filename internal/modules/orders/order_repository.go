package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"livraison-backend/internal/models"
	"livraison-backend/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines the order storage contract. Lifecycle mutations
// carry their own status guards in SQL so a lost race surfaces as ErrConflict
// instead of silently overwriting a concurrent transition.
type RepositoryInterface interface {
	BeginTx(ctx context.Context) (storage.Tx, error)
	WithTx(tx storage.Tx) RepositoryInterface

	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, orderID string) (*models.Order, error)
	// LockByID loads the order row FOR UPDATE, serializing concurrent
	// lifecycle mutations of the same order.
	LockByID(ctx context.Context, orderID string) (*models.Order, error)

	// Claim atomically assigns the order to a livreur; exactly one of any
	// number of concurrent claims succeeds.
	Claim(ctx context.Context, orderID, livreurID string) error
	UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error
	SetDelivered(ctx context.Context, orderID string, pod *models.ProofOfDelivery) error
	SetCancelled(ctx context.Context, orderID string, status models.OrderStatus, c *models.Cancellation, clearLivreur bool) error

	AppendTimeline(ctx context.Context, e *models.TimelineEntry) error
	ListTimeline(ctx context.Context, orderID string) ([]models.TimelineEntry, error)

	AppendChatMessage(ctx context.Context, m *models.ChatMessage) error
	ListChatMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error)

	ListByClient(ctx context.Context, clientID string, page, limit int) ([]*models.Order, int, error)
	ListByLivreur(ctx context.Context, livreurID string, page, limit int) ([]*models.Order, int, error)
	ListAll(ctx context.Context, page, limit int) ([]*models.Order, int, error)
	ListAvailableFor(ctx context.Context, livreurID string, limit int) ([]*models.Order, error)

	// Expansion job support.
	ListAwaitingExpansion(ctx context.Context, stage int, olderThan time.Time) ([]*models.Order, error)
	SetExpansion(ctx context.Context, orderID string, stage int, eligible []string) error
	ListBusyLivreurs(ctx context.Context) ([]string, error)
}

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
		panic("orders: WithTx called with a foreign transaction type")
	}
	return &Repository{pool: r.pool, db: pgTx}
}

const orderColumns = `
	id, client_id, livreur_id, status, vehicle_class, items, pricing,
	pickup_address, pickup_lat, pickup_lng, dropoff_address, dropoff_lat, dropoff_lng,
	proof_of_delivery, cancellation, expansion_stage, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	o := &models.Order{}
	var items, pricing []byte
	var pod, cancellation []byte
	err := row.Scan(
		&o.ID, &o.ClientID, &o.LivreurID, &o.Status, &o.VehicleClass, &items, &pricing,
		&o.PickupLocation.Address, &o.PickupLocation.Latitude, &o.PickupLocation.Longitude,
		&o.DropoffLocation.Address, &o.DropoffLocation.Latitude, &o.DropoffLocation.Longitude,
		&pod, &cancellation, &o.ExpansionStage, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan order: %w", err)
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("failed to decode order items: %w", err)
	}
	if err := json.Unmarshal(pricing, &o.Pricing); err != nil {
		return nil, fmt.Errorf("failed to decode order pricing: %w", err)
	}
	if len(pod) > 0 {
		if err := json.Unmarshal(pod, &o.ProofOfDelivery); err != nil {
			return nil, fmt.Errorf("failed to decode proof of delivery: %w", err)
		}
	}
	if len(cancellation) > 0 {
		if err := json.Unmarshal(cancellation, &o.Cancellation); err != nil {
			return nil, fmt.Errorf("failed to decode cancellation: %w", err)
		}
	}
	return o, nil
}

func (r *Repository) Create(ctx context.Context, o *models.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("repository.Create: items: %w", err)
	}
	pricing, err := json.Marshal(o.Pricing)
	if err != nil {
		return fmt.Errorf("repository.Create: pricing: %w", err)
	}
	query := `
		INSERT INTO orders
			(id, client_id, status, vehicle_class, items, pricing,
			 pickup_address, pickup_lat, pickup_lng, dropoff_address, dropoff_lat, dropoff_lng,
			 expansion_stage)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`
	err = r.db.QueryRow(ctx, query,
		o.ID, o.ClientID, o.Status, o.VehicleClass, items, pricing,
		o.PickupLocation.Address, o.PickupLocation.Latitude, o.PickupLocation.Longitude,
		o.DropoffLocation.Address, o.DropoffLocation.Latitude, o.DropoffLocation.Longitude,
		o.ExpansionStage,
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.Create: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindByID: %w", err)
	}
	return o, nil
}

func (r *Repository) LockByID(ctx context.Context, orderID string) (*models.Order, error) {
	query := `SELECT` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`
	o, err := scanOrder(r.db.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.LockByID: %w", err)
	}
	return o, nil
}

func (r *Repository) Claim(ctx context.Context, orderID, livreurID string) error {
	query := `
		UPDATE orders
		SET livreur_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4 AND livreur_id IS NULL`
	cmd, err := r.db.Exec(ctx, query, orderID, livreurID, models.OrderAssigned, models.OrderSearching)
	if err != nil {
		return fmt.Errorf("repository.Claim: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2`
	cmd, err := r.db.Exec(ctx, query, orderID, from, to)
	if err != nil {
		return fmt.Errorf("repository.UpdateStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

func (r *Repository) SetDelivered(ctx context.Context, orderID string, pod *models.ProofOfDelivery) error {
	encoded, err := json.Marshal(pod)
	if err != nil {
		return fmt.Errorf("repository.SetDelivered: %w", err)
	}
	query := `
		UPDATE orders
		SET status = $2, proof_of_delivery = $3, updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)`
	cmd, err := r.db.Exec(ctx, query, orderID, models.OrderDelivered, encoded,
		models.OrderPickedUp, models.OrderInTransit)
	if err != nil {
		return fmt.Errorf("repository.SetDelivered: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}
	return nil
}

func (r *Repository) SetCancelled(ctx context.Context, orderID string, status models.OrderStatus, c *models.Cancellation, clearLivreur bool) error {
	encoded, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("repository.SetCancelled: %w", err)
	}
	query := `
		UPDATE orders
		SET status = $2, cancellation = $3,
		    livreur_id = CASE WHEN $4 THEN NULL ELSE livreur_id END,
		    updated_at = NOW()
		WHERE id = $1`
	cmd, err := r.db.Exec(ctx, query, orderID, status, encoded, clearLivreur)
	if err != nil {
		return fmt.Errorf("repository.SetCancelled: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) AppendTimeline(ctx context.Context, e *models.TimelineEntry) error {
	query := `
		INSERT INTO order_timeline (order_id, status, actor_id, actor_role, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, e.OrderID, e.Status, e.ActorID, e.ActorRole, e.Note).
		Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.AppendTimeline: %w", err)
	}
	return nil
}

func (r *Repository) ListTimeline(ctx context.Context, orderID string) ([]models.TimelineEntry, error) {
	query := `
		SELECT id, order_id, status, actor_id, actor_role, note, created_at
		FROM order_timeline
		WHERE order_id = $1
		ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListTimeline: %w", err)
	}
	defer rows.Close()

	var entries []models.TimelineEntry
	for rows.Next() {
		var e models.TimelineEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.ActorID, &e.ActorRole, &e.Note, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListTimeline.Scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListTimeline: %w", err)
	}
	return entries, nil
}

func (r *Repository) AppendChatMessage(ctx context.Context, m *models.ChatMessage) error {
	query := `
		INSERT INTO order_chat_messages (order_id, sender_id, sender_role, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	err := r.db.QueryRow(ctx, query, m.OrderID, m.SenderID, m.Sender, m.Text).
		Scan(&m.ID, &m.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.AppendChatMessage: %w", err)
	}
	return nil
}

func (r *Repository) ListChatMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error) {
	query := `
		SELECT id, order_id, sender_id, sender_role, text, created_at
		FROM order_chat_messages
		WHERE order_id = $1
		ORDER BY id ASC`
	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListChatMessages: %w", err)
	}
	defer rows.Close()

	var messages []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.OrderID, &m.SenderID, &m.Sender, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListChatMessages.Scan: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListChatMessages: %w", err)
	}
	return messages, nil
}

func (r *Repository) listWhere(ctx context.Context, where string, countWhere string, args []any, page, limit int) ([]*models.Order, int, error) {
	offset := (page - 1) * limit
	query := fmt.Sprintf(`SELECT%s FROM orders %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		orderColumns, where, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.List.Query: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.List.Scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.List: %w", err)
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM orders "+countWhere, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.List.Count: %w", err)
	}
	return orders, total, nil
}

func (r *Repository) ListByClient(ctx context.Context, clientID string, page, limit int) ([]*models.Order, int, error) {
	return r.listWhere(ctx, "WHERE client_id = $1", "WHERE client_id = $1", []any{clientID}, page, limit)
}

func (r *Repository) ListByLivreur(ctx context.Context, livreurID string, page, limit int) ([]*models.Order, int, error) {
	return r.listWhere(ctx, "WHERE livreur_id = $1", "WHERE livreur_id = $1", []any{livreurID}, page, limit)
}

func (r *Repository) ListAll(ctx context.Context, page, limit int) ([]*models.Order, int, error) {
	return r.listWhere(ctx, "", "", nil, page, limit)
}

// ListAvailableFor returns unclaimed orders visible to the livreur: every
// public-stage order, plus nearest-stage orders the livreur is eligible for.
func (r *Repository) ListAvailableFor(ctx context.Context, livreurID string, limit int) ([]*models.Order, error) {
	query := `
		SELECT` + orderColumns + `
		FROM orders o
		WHERE o.status = $1
		  AND (o.expansion_stage = $2
		       OR (o.expansion_stage = $3 AND EXISTS (
		            SELECT 1 FROM order_eligible_livreurs e
		            WHERE e.order_id = o.id AND e.livreur_id = $4)))
		ORDER BY o.created_at ASC
		LIMIT $5`
	rows, err := r.db.Query(ctx, query,
		models.OrderSearching, models.ExpansionPublic, models.ExpansionNearest, livreurID, limit)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAvailableFor: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListAvailableFor.Scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListAvailableFor: %w", err)
	}
	return orders, nil
}

func (r *Repository) ListAwaitingExpansion(ctx context.Context, stage int, olderThan time.Time) ([]*models.Order, error) {
	query := `
		SELECT` + orderColumns + `
		FROM orders
		WHERE status = $1 AND expansion_stage = $2 AND created_at <= $3
		ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, models.OrderSearching, stage, olderThan)
	if err != nil {
		return nil, fmt.Errorf("repository.ListAwaitingExpansion: %w", err)
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository.ListAwaitingExpansion.Scan: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListAwaitingExpansion: %w", err)
	}
	return orders, nil
}

// SetExpansion advances the visibility stage. The stage guard makes the
/// expansion job idempotent per boundary: an order is never re-processed for
// a stage it has already left.
func (r *Repository) SetExpansion(ctx context.Context, orderID string, stage int, eligible []string) error {
	query := `
		UPDATE orders
		SET expansion_stage = $2, updated_at = NOW()
		WHERE id = $1 AND expansion_stage = $2 - 1`
	cmd, err := r.db.Exec(ctx, query, orderID, stage)
	if err != nil {
		return fmt.Errorf("repository.SetExpansion: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrConflict
	}

	if _, err := r.db.Exec(ctx, `DELETE FROM order_eligible_livreurs WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("repository.SetExpansion: clear eligibility: %w", err)
	}
	for _, livreurID := range eligible {
		if _, err := r.db.Exec(ctx,
			`INSERT INTO order_eligible_livreurs (order_id, livreur_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			orderID, livreurID); err != nil {
			return fmt.Errorf("repository.SetExpansion: eligibility: %w", err)
		}
	}
	return nil
}

func (r *Repository) ListBusyLivreurs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT livreur_id
		FROM orders
		WHERE livreur_id IS NOT NULL AND status IN ($1, $2, $3, $4)`
	rows, err := r.db.Query(ctx, query,
		models.OrderAssigned, models.OrderShopping, models.OrderPickedUp, models.OrderInTransit)
	if err != nil {
		return nil, fmt.Errorf("repository.ListBusyLivreurs: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("repository.ListBusyLivreurs.Scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListBusyLivreurs: %w", err)
	}
	return ids, nil
}
