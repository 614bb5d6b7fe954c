package support

import (
	"context"
	"fmt"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
	"livraison-backend/pkg/notify"

	"github.com/google/uuid"
)

// statusTransitions is the ticket state machine. Resolved is terminal except
// for admin reopening.
var statusTransitions = map[models.ComplaintStatus][]models.ComplaintStatus{
	models.ComplaintOpen:       {models.ComplaintInProgress, models.ComplaintResolved},
	models.ComplaintInProgress: {models.ComplaintResolved},
	models.ComplaintResolved:   {models.ComplaintOpen},
}

func canTransition(from, to models.ComplaintStatus) bool {
	for _, s := range statusTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// ServiceInterface defines support ticket business logic.
type ServiceInterface interface {
	Create(ctx context.Context, p models.Principal, req models.CreateComplaintRequest) (*models.Complaint, error)
	GetDetails(ctx context.Context, complaintID string, p models.Principal) (*models.Complaint, []models.ComplaintMessage, error)
	ListMine(ctx context.Context, ownerID string, page, limit int) ([]*models.Complaint, int, error)
	ListAll(ctx context.Context, status models.ComplaintStatus, page, limit int) ([]*models.Complaint, int, error)
	UpdateStatus(ctx context.Context, complaintID string, status models.ComplaintStatus) (*models.Complaint, error)
	AppendMessage(ctx context.Context, complaintID string, p models.Principal, text string) (*models.ComplaintMessage, error)
}

type Service struct {
	repo     RepositoryInterface
	notifier notify.Sender
	log      logger.ILogger
}

func NewService(repo RepositoryInterface, notifier notify.Sender, log logger.ILogger) *Service {
	return &Service{repo: repo, notifier: notifier, log: log}
}

func (s *Service) Create(ctx context.Context, p models.Principal, req models.CreateComplaintRequest) (*models.Complaint, error) {
	complaint := &models.Complaint{
		ID:        uuid.New().String(),
		OwnerID:   p.ID,
		OwnerRole: p.Role,
		OrderID:   req.OrderID,
		Subject:   req.Subject,
		Status:    models.ComplaintOpen,
	}
	first := &models.ComplaintMessage{
		SenderID:   p.ID,
		SenderRole: p.Role,
		Text:       req.Text,
	}
	if err := s.repo.Create(ctx, complaint, first); err != nil {
		return nil, fmt.Errorf("support.Create: %w", err)
	}
	return complaint, nil
}

func (s *Service) GetDetails(ctx context.Context, complaintID string, p models.Principal) (*models.Complaint, []models.ComplaintMessage, error) {
	complaint, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	if err := authorize(complaint, p); err != nil {
		return nil, nil, err
	}
	msgs, err := s.repo.ListMessages(ctx, complaintID)
	if err != nil {
		return nil, nil, err
	}
	return complaint, msgs, nil
}

func (s *Service) ListMine(ctx context.Context, ownerID string, page, limit int) ([]*models.Complaint, int, error) {
	return s.repo.ListByOwner(ctx, ownerID, page, limit)
}

func (s *Service) ListAll(ctx context.Context, status models.ComplaintStatus, page, limit int) ([]*models.Complaint, int, error) {
	return s.repo.ListAll(ctx, status, page, limit)
}

// UpdateStatus moves the ticket through its state machine, admin only.
func (s *Service) UpdateStatus(ctx context.Context, complaintID string, status models.ComplaintStatus) (*models.Complaint, error) {
	complaint, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if complaint.Status == status {
		return complaint, nil
	}
	if !canTransition(complaint.Status, status) {
		return nil, models.ErrInvalidState
	}
	if err := s.repo.UpdateStatus(ctx, complaintID, status); err != nil {
		return nil, err
	}
	complaint.Status = status

	if status == models.ComplaintResolved {
		s.notifier.PushToUser(ctx, complaint.OwnerID, "Complaint resolved",
			"Your complaint has been resolved: "+complaint.Subject)
	}
	return complaint, nil
}

// AppendMessage adds to the thread. Only the owner and admins may write.
func (s *Service) AppendMessage(ctx context.Context, complaintID string, p models.Principal, text string) (*models.ComplaintMessage, error) {
	complaint, err := s.repo.FindByID(ctx, complaintID)
	if err != nil {
		return nil, err
	}
	if err := authorize(complaint, p); err != nil {
		return nil, err
	}
	msg := &models.ComplaintMessage{
		ComplaintID: complaintID,
		SenderID:    p.ID,
		SenderRole:  p.Role,
		Text:        text,
	}
	if err := s.repo.AppendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func authorize(complaint *models.Complaint, p models.Principal) error {
	if p.Role == models.RoleAdmin || complaint.OwnerID == p.ID {
		return nil
	}
	return models.ErrForbidden
}
