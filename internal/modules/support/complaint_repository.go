package support

import (
	"context"
	"errors"
	"fmt"

	"livraison-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryInterface defines data access for support tickets.
type RepositoryInterface interface {
	Create(ctx context.Context, complaint *models.Complaint, firstMessage *models.ComplaintMessage) error
	FindByID(ctx context.Context, id string) (*models.Complaint, error)
	UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error
	ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Complaint, int, error)
	ListAll(ctx context.Context, status models.ComplaintStatus, page, limit int) ([]*models.Complaint, int, error)
	AppendMessage(ctx context.Context, msg *models.ComplaintMessage) error
	ListMessages(ctx context.Context, complaintID string) ([]models.ComplaintMessage, error)
}

type Repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const complaintColumns = ` id, owner_id, owner_role, order_id, subject, status, created_at, updated_at`

// Create inserts the ticket and its opening message in one transaction: a
// complaint never exists without at least one message.
func (r *Repository) Create(ctx context.Context, complaint *models.Complaint, firstMessage *models.ComplaintMessage) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("repository.CreateComplaint: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO complaints (id, owner_id, owner_role, order_id, subject, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		complaint.ID, complaint.OwnerID, complaint.OwnerRole, complaint.OrderID,
		complaint.Subject, complaint.Status,
	).Scan(&complaint.CreatedAt, &complaint.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateComplaint: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO complaint_messages (complaint_id, sender_id, sender_role, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		complaint.ID, firstMessage.SenderID, firstMessage.SenderRole, firstMessage.Text,
	).Scan(&firstMessage.ID, &firstMessage.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.CreateComplaint: first message: %w", err)
	}
	firstMessage.ComplaintID = complaint.ID

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository.CreateComplaint: commit: %w", err)
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	row := r.db.QueryRow(ctx, `SELECT`+complaintColumns+` FROM complaints WHERE id = $1`, id)
	c, err := scanComplaint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("repository.FindComplaint: %w", err)
	}
	return c, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE complaints SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("repository.UpdateComplaintStatus: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *Repository) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Complaint, int, error) {
	return r.list(ctx, `WHERE owner_id = $1`, []any{ownerID}, page, limit)
}

// ListAll is the admin queue view; an empty status means every ticket.
func (r *Repository) ListAll(ctx context.Context, status models.ComplaintStatus, page, limit int) ([]*models.Complaint, int, error) {
	if status == "" {
		return r.list(ctx, ``, nil, page, limit)
	}
	return r.list(ctx, `WHERE status = $1`, []any{status}, page, limit)
}

func (r *Repository) list(ctx context.Context, where string, args []any, page, limit int) ([]*models.Complaint, int, error) {
	var total int
	countQuery := `SELECT COUNT(*) FROM complaints ` + where
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository.ListComplaints: count: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT`+complaintColumns+`
		FROM complaints %s
		ORDER BY updated_at DESC
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	rows, err := r.db.Query(ctx, query, append(args, limit, (page-1)*limit)...)
	if err != nil {
		return nil, 0, fmt.Errorf("repository.ListComplaints: %w", err)
	}
	defer rows.Close()

	var complaints []*models.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository.ListComplaints.Scan: %w", err)
		}
		complaints = append(complaints, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository.ListComplaints: %w", err)
	}
	return complaints, total, nil
}

func (r *Repository) AppendMessage(ctx context.Context, msg *models.ComplaintMessage) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO complaint_messages (complaint_id, sender_id, sender_role, text)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		msg.ComplaintID, msg.SenderID, msg.SenderRole, msg.Text,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository.AppendComplaintMessage: %w", err)
	}
	if _, err := r.db.Exec(ctx,
		`UPDATE complaints SET updated_at = NOW() WHERE id = $1`, msg.ComplaintID); err != nil {
		return fmt.Errorf("repository.AppendComplaintMessage: touch: %w", err)
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, complaintID string) ([]models.ComplaintMessage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, complaint_id, sender_id, sender_role, text, created_at
		FROM complaint_messages
		WHERE complaint_id = $1
		ORDER BY id ASC`, complaintID)
	if err != nil {
		return nil, fmt.Errorf("repository.ListComplaintMessages: %w", err)
	}
	defer rows.Close()

	var msgs []models.ComplaintMessage
	for rows.Next() {
		var m models.ComplaintMessage
		if err := rows.Scan(&m.ID, &m.ComplaintID, &m.SenderID, &m.SenderRole, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository.ListComplaintMessages.Scan: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository.ListComplaintMessages: %w", err)
	}
	return msgs, nil
}

func scanComplaint(row pgx.Row) (*models.Complaint, error) {
	var c models.Complaint
	if err := row.Scan(&c.ID, &c.OwnerID, &c.OwnerRole, &c.OrderID, &c.Subject,
		&c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
