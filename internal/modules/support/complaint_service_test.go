package support

import (
	"context"
	"errors"
	"testing"

	"livraison-backend/internal/models"
	"livraison-backend/pkg/logger"
)

type memComplaintRepo struct {
	complaints map[string]*models.Complaint
	messages   map[string][]models.ComplaintMessage
	nextMsgID  int64
}

func newMemComplaintRepo() *memComplaintRepo {
	return &memComplaintRepo{
		complaints: make(map[string]*models.Complaint),
		messages:   make(map[string][]models.ComplaintMessage),
	}
}

func (r *memComplaintRepo) Create(ctx context.Context, complaint *models.Complaint, firstMessage *models.ComplaintMessage) error {
	cp := *complaint
	r.complaints[complaint.ID] = &cp
	r.nextMsgID++
	msg := *firstMessage
	msg.ID = r.nextMsgID
	msg.ComplaintID = complaint.ID
	r.messages[complaint.ID] = append(r.messages[complaint.ID], msg)
	return nil
}

func (r *memComplaintRepo) FindByID(ctx context.Context, id string) (*models.Complaint, error) {
	c, ok := r.complaints[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memComplaintRepo) UpdateStatus(ctx context.Context, id string, status models.ComplaintStatus) error {
	c, ok := r.complaints[id]
	if !ok {
		return models.ErrNotFound
	}
	c.Status = status
	return nil
}

func (r *memComplaintRepo) ListByOwner(ctx context.Context, ownerID string, page, limit int) ([]*models.Complaint, int, error) {
	var out []*models.Complaint
	for _, c := range r.complaints {
		if c.OwnerID == ownerID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memComplaintRepo) ListAll(ctx context.Context, status models.ComplaintStatus, page, limit int) ([]*models.Complaint, int, error) {
	var out []*models.Complaint
	for _, c := range r.complaints {
		if status == "" || c.Status == status {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (r *memComplaintRepo) AppendMessage(ctx context.Context, msg *models.ComplaintMessage) error {
	if _, ok := r.complaints[msg.ComplaintID]; !ok {
		return models.ErrNotFound
	}
	r.nextMsgID++
	msg.ID = r.nextMsgID
	r.messages[msg.ComplaintID] = append(r.messages[msg.ComplaintID], *msg)
	return nil
}

func (r *memComplaintRepo) ListMessages(ctx context.Context, complaintID string) ([]models.ComplaintMessage, error) {
	return append([]models.ComplaintMessage(nil), r.messages[complaintID]...), nil
}

type pushRecorder struct {
	pushes []string
}

func (s *pushRecorder) PushToUser(ctx context.Context, userID, title, body string) {
	s.pushes = append(s.pushes, userID)
}
func (s *pushRecorder) SMS(ctx context.Context, phone, message string)            {}
func (s *pushRecorder) Email(ctx context.Context, to, subject, text, html string) {}

var (
	clientPrincipal   = models.Principal{ID: "client-1", Role: models.RoleClient}
	adminPrincipal    = models.Principal{ID: "admin-1", Role: models.RoleAdmin}
	strangerPrincipal = models.Principal{ID: "client-2", Role: models.RoleClient}
)

func newTestSupport() (*Service, *memComplaintRepo, *pushRecorder) {
	repo := newMemComplaintRepo()
	sender := &pushRecorder{}
	return NewService(repo, sender, logger.NewNop()), repo, sender
}

func openComplaint(t *testing.T, svc *Service) *models.Complaint {
	t.Helper()
	c, err := svc.Create(context.Background(), clientPrincipal, models.CreateComplaintRequest{
		Subject: "Missing item",
		Text:    "The olive oil was not in the bag.",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return c
}

func TestCreate_OpensTicketWithFirstMessage(t *testing.T) {
	svc, repo, _ := newTestSupport()
	c := openComplaint(t, svc)

	if c.Status != models.ComplaintOpen {
		t.Errorf("status = %s, want open", c.Status)
	}
	msgs := repo.messages[c.ID]
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, a ticket must never exist without its first message", len(msgs))
	}
	if msgs[0].SenderID != clientPrincipal.ID || msgs[0].Text == "" {
		t.Errorf("first message = %+v, want the opener's text", msgs[0])
	}
}

func TestGetDetails_AuthorizesOwnerAndAdminOnly(t *testing.T) {
	svc, _, _ := newTestSupport()
	c := openComplaint(t, svc)
	ctx := context.Background()

	if _, _, err := svc.GetDetails(ctx, c.ID, clientPrincipal); err != nil {
		t.Errorf("owner read: %v", err)
	}
	if _, _, err := svc.GetDetails(ctx, c.ID, adminPrincipal); err != nil {
		t.Errorf("admin read: %v", err)
	}
	if _, _, err := svc.GetDetails(ctx, c.ID, strangerPrincipal); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("stranger read error = %v, want ErrForbidden", err)
	}
}

func TestUpdateStatus_FollowsTicketStateMachine(t *testing.T) {
	svc, _, sender := newTestSupport()
	c := openComplaint(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, c.ID, models.ComplaintInProgress); err != nil {
		t.Fatalf("open -> in_progress: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, c.ID, models.ComplaintResolved); err != nil {
		t.Fatalf("in_progress -> resolved: %v", err)
	}
	if len(sender.pushes) != 1 || sender.pushes[0] != clientPrincipal.ID {
		t.Errorf("pushes = %v, want one resolution notice to the owner", sender.pushes)
	}

	// Reopening a resolved ticket is allowed.
	if _, err := svc.UpdateStatus(ctx, c.ID, models.ComplaintOpen); err != nil {
		t.Fatalf("resolved -> open: %v", err)
	}
	// Jumping open -> open is a no-op, not an error.
	got, err := svc.UpdateStatus(ctx, c.ID, models.ComplaintOpen)
	if err != nil {
		t.Fatalf("same-status update: %v", err)
	}
	if got.Status != models.ComplaintOpen {
		t.Errorf("status = %s, want open", got.Status)
	}
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	svc, repo, _ := newTestSupport()
	c := openComplaint(t, svc)
	ctx := context.Background()

	if _, err := svc.UpdateStatus(ctx, c.ID, models.ComplaintInProgress); err != nil {
		t.Fatalf("open -> in_progress: %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, c.ID, "closed"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("unknown status error = %v, want ErrInvalidState", err)
	}
	if repo.complaints[c.ID].Status != models.ComplaintInProgress {
		t.Error("rejected transition must leave the ticket untouched")
	}
}

func TestAppendMessage_RestrictedToOwnerAndAdmin(t *testing.T) {
	svc, repo, _ := newTestSupport()
	c := openComplaint(t, svc)
	ctx := context.Background()

	if _, err := svc.AppendMessage(ctx, c.ID, adminPrincipal, "We are looking into it."); err != nil {
		t.Fatalf("admin reply: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, c.ID, clientPrincipal, "Thank you."); err != nil {
		t.Fatalf("owner reply: %v", err)
	}
	if _, err := svc.AppendMessage(ctx, c.ID, strangerPrincipal, "Me too."); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("stranger reply error = %v, want ErrForbidden", err)
	}

	msgs := repo.messages[c.ID]
	if len(msgs) != 3 {
		t.Fatalf("messages = %d, want the opener plus two replies", len(msgs))
	}
	if msgs[1].SenderRole != models.RoleAdmin || msgs[2].SenderRole != models.RoleClient {
		t.Errorf("thread roles = [%s %s], want admin then client", msgs[1].SenderRole, msgs[2].SenderRole)
	}
}

func TestListMine_ScopedToOwner(t *testing.T) {
	svc, _, _ := newTestSupport()
	openComplaint(t, svc)
	if _, err := svc.Create(context.Background(), strangerPrincipal, models.CreateComplaintRequest{
		Subject: "Late delivery", Text: "Took two hours.",
	}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	mine, total, err := svc.ListMine(context.Background(), clientPrincipal.ID, 1, 20)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if total != 1 || len(mine) != 1 || mine[0].OwnerID != clientPrincipal.ID {
		t.Fatalf("ListMine = %d tickets (total %d), want only the caller's", len(mine), total)
	}
}
