package orders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"livraison-backend/internal/models"
	"livraison-backend/internal/storage"
	"livraison-backend/pkg/logger"

	"github.com/google/uuid"
)

// memOrderRepo is an in-memory RepositoryInterface with snapshot-based
// transaction semantics.
type memOrderRepo struct {
	mu       sync.Mutex
	orders   map[string]*models.Order
	timeline []models.TimelineEntry
	chat     []models.ChatMessage
	nextID   int64
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[string]*models.Order)}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	if o.LivreurID != nil {
		id := *o.LivreurID
		cp.LivreurID = &id
	}
	if o.ProofOfDelivery != nil {
		pod := *o.ProofOfDelivery
		cp.ProofOfDelivery = &pod
	}
	if o.Cancellation != nil {
		c := *o.Cancellation
		cp.Cancellation = &c
	}
	return &cp
}

type memOrderTx struct {
	repo     *memOrderRepo
	orders   map[string]*models.Order
	timeline []models.TimelineEntry
	chat     []models.ChatMessage
	finished bool
}

func (t *memOrderTx) Commit(ctx context.Context) error {
	t.finished = true
	return nil
}

func (t *memOrderTx) Rollback(ctx context.Context) error {
	if t.finished {
		return nil
	}
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.orders = t.orders
	t.repo.timeline = t.timeline
	t.repo.chat = t.chat
	t.finished = true
	return nil
}

func (r *memOrderRepo) BeginTx(ctx context.Context) (storage.Tx, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot := make(map[string]*models.Order, len(r.orders))
	for k, v := range r.orders {
		snapshot[k] = cloneOrder(v)
	}
	return &memOrderTx{
		repo:     r,
		orders:   snapshot,
		timeline: append([]models.TimelineEntry(nil), r.timeline...),
		chat:     append([]models.ChatMessage(nil), r.chat...),
	}, nil
}

func (r *memOrderRepo) WithTx(tx storage.Tx) RepositoryInterface { return r }

func (r *memOrderRepo) Create(ctx context.Context, o *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = cloneOrder(o)
	return nil
}

func (r *memOrderRepo) FindByID(ctx context.Context, orderID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return nil, models.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *memOrderRepo) LockByID(ctx context.Context, orderID string) (*models.Order, error) {
	return r.FindByID(ctx, orderID)
}

func (r *memOrderRepo) Claim(ctx context.Context, orderID, livreurID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != models.OrderSearching || o.LivreurID != nil {
		return models.ErrConflict
	}
	o.Status = models.OrderAssigned
	o.LivreurID = &livreurID
	return nil
}

func (r *memOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	if o.Status != from {
		return models.ErrConflict
	}
	o.Status = to
	return nil
}

func (r *memOrderRepo) SetDelivered(ctx context.Context, orderID string, pod *models.ProofOfDelivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	if o.Status != models.OrderPickedUp && o.Status != models.OrderInTransit {
		return models.ErrConflict
	}
	o.Status = models.OrderDelivered
	o.ProofOfDelivery = pod
	return nil
}

func (r *memOrderRepo) SetCancelled(ctx context.Context, orderID string, status models.OrderStatus, c *models.Cancellation, clearLivreur bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return models.ErrNotFound
	}
	o.Status = status
	o.Cancellation = c
	if clearLivreur {
		o.LivreurID = nil
	}
	return nil
}

func (r *memOrderRepo) AppendTimeline(ctx context.Context, e *models.TimelineEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	e.ID = r.nextID
	e.CreatedAt = time.Now().UTC()
	r.timeline = append(r.timeline, *e)
	return nil
}

func (r *memOrderRepo) ListTimeline(ctx context.Context, orderID string) ([]models.TimelineEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.TimelineEntry
	for _, e := range r.timeline {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memOrderRepo) AppendChatMessage(ctx context.Context, m *models.ChatMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	m.ID = r.nextID
	m.CreatedAt = time.Now().UTC()
	r.chat = append(r.chat, *m)
	return nil
}

func (r *memOrderRepo) ListChatMessages(ctx context.Context, orderID string) ([]models.ChatMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ChatMessage
	for _, m := range r.chat {
		if m.OrderID == orderID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListByClient(ctx context.Context, clientID string, page, limit int) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		if o.ClientID == clientID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, len(out), nil
}

func (r *memOrderRepo) ListByLivreur(ctx context.Context, livreurID string, page, limit int) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		if o.LivreurID != nil && *o.LivreurID == livreurID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, len(out), nil
}

func (r *memOrderRepo) ListAll(ctx context.Context, page, limit int) ([]*models.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Order
	for _, o := range r.orders {
		out = append(out, cloneOrder(o))
	}
	return out, len(out), nil
}

func (r *memOrderRepo) ListAvailableFor(ctx context.Context, livreurID string, limit int) ([]*models.Order, error) {
	return nil, nil
}

func (r *memOrderRepo) ListAwaitingExpansion(ctx context.Context, stage int, olderThan time.Time) ([]*models.Order, error) {
	return nil, nil
}

func (r *memOrderRepo) SetExpansion(ctx context.Context, orderID string, stage int, eligible []string) error {
	return nil
}

func (r *memOrderRepo) ListBusyLivreurs(ctx context.Context) ([]string, error) {
	return nil, nil
}

// fakeWallet records in-transaction wallet calls.
type fakeWallet struct {
	mu         sync.Mutex
	credits    []string // order IDs
	penalties  []int64
	failCredit error
}

func (w *fakeWallet) CreditForOrderTx(ctx context.Context, tx storage.Tx, order *models.Order) (*models.WalletTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failCredit != nil {
		return nil, w.failCredit
	}
	w.credits = append(w.credits, order.ID)
	return &models.WalletTransaction{Type: models.TxOrderPayout, Amount: order.Pricing.LivreurNet}, nil
}

func (w *fakeWallet) DebitPenaltyTx(ctx context.Context, tx storage.Tx, orderID, livreurID string, amount int64) (*models.WalletTransaction, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.penalties = append(w.penalties, amount)
	return &models.WalletTransaction{Type: models.TxOrderPenalty, Amount: -amount}, nil
}

type nopSender struct{}

func (nopSender) PushToUser(ctx context.Context, userID, title, body string) {}
func (nopSender) SMS(ctx context.Context, phone, message string)            {}
func (nopSender) Email(ctx context.Context, to, subject, text, html string) {}

func newTestOrderService(repo *memOrderRepo, wallet *fakeWallet) *Service {
	return NewService(repo, wallet, defaultTestPolicy(), nopSender{}, logger.NewNop())
}

func createRequest() models.CreateOrderRequest {
	return models.CreateOrderRequest{
		Items: []models.OrderItem{
			{Name: "Flour", Quantity: 2, UnitWeight: 1.0, UnitPrice: 5000},
			{Name: "Olive oil", Quantity: 1, UnitWeight: 0.5, UnitPrice: 15000},
		},
		PickupLocation:  models.Location{Address: "12 Rue du Marché", Latitude: 33.59, Longitude: -7.61},
		DropoffLocation: models.Location{Address: "4 Avenue Hassan II", Latitude: 33.57, Longitude: -7.59},
		VehicleClass:    models.VehicleMoto,
	}
}

func mustCreate(t *testing.T, svc *Service, clientID string) *models.Order {
	t.Helper()
	o, err := svc.CreateOrder(context.Background(), clientID, createRequest())
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return o
}

func mustAccept(t *testing.T, svc *Service, orderID, livreurID string) *models.Order {
	t.Helper()
	o, err := svc.Accept(context.Background(), orderID, livreurID)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	return o
}

func TestCreateOrder_PricesAndEntersPool(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	clientID := uuid.New().String()

	o := mustCreate(t, svc, clientID)

	if o.Status != models.OrderSearching {
		t.Errorf("status = %s, want %s", o.Status, models.OrderSearching)
	}
	if o.Pricing.Total != 35200 {
		t.Errorf("pricing total = %d, want 35200", o.Pricing.Total)
	}
	if o.ExpansionStage != models.ExpansionRestricted {
		t.Errorf("expansion stage = %d, want restricted", o.ExpansionStage)
	}

	entries, err := svc.Timeline(context.Background(), o.ID, models.Principal{ID: clientID, Role: models.RoleClient})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("timeline entries = %d, want CREATED + SEARCHING", len(entries))
	}
	if entries[0].Status != models.OrderCreated || entries[1].Status != models.OrderSearching {
		t.Errorf("timeline = [%s, %s], want [CREATED, SEARCHING_FOR_LIVREUR]", entries[0].Status, entries[1].Status)
	}
}

func TestAccept_SecondClaimConflicts(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())

	first := uuid.New().String()
	mustAccept(t, svc, o.ID, first)

	if _, err := svc.Accept(context.Background(), o.ID, uuid.New().String()); !errors.Is(err, models.ErrConflict) {
		t.Fatalf("second accept error = %v, want ErrConflict", err)
	}

	got, _ := repo.FindByID(context.Background(), o.ID)
	if got.LivreurID == nil || *got.LivreurID != first {
		t.Fatal("order must stay with the first claimer")
	}
}

func TestClaim_ExactlyOneWinnerUnderContention(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())

	const contenders = 16
	var wins int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			if err := repo.Claim(context.Background(), o.ID, fmt.Sprintf("livreur-%d", n)); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("claim winners = %d, want exactly 1", wins)
	}
}

func TestAdvance_OwnershipCheckedBeforeState(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())
	owner := uuid.New().String()
	mustAccept(t, svc, o.ID, owner)

	// A stranger is rejected even though the transition itself would be legal.
	if _, err := svc.MarkShopping(context.Background(), o.ID, uuid.New().String()); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("stranger error = %v, want ErrForbidden", err)
	}

	// The owner cannot skip ahead.
	if _, err := svc.MarkInTransit(context.Background(), o.ID, owner); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("skip-ahead error = %v, want ErrInvalidState", err)
	}

	if _, err := svc.MarkShopping(context.Background(), o.ID, owner); err != nil {
		t.Fatalf("MarkShopping: %v", err)
	}
	if _, err := svc.MarkPickedUp(context.Background(), o.ID, owner); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}
}

func TestDeliver_CreditsWalletAtomically(t *testing.T) {
	repo := newMemOrderRepo()
	wallet := &fakeWallet{}
	svc := newTestOrderService(repo, wallet)
	o := mustCreate(t, svc, uuid.New().String())
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)
	if _, err := svc.MarkPickedUp(context.Background(), o.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}

	delivered, err := svc.Deliver(context.Background(), o.ID, livreurID, models.DeliverOrderRequest{
		PhotoURLs: []string{"https://cdn.example/pod/1.jpg"},
	})
	if err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if delivered.Status != models.OrderDelivered {
		t.Errorf("status = %s, want DELIVERED", delivered.Status)
	}
	if delivered.ProofOfDelivery == nil || len(delivered.ProofOfDelivery.PhotoURLs) != 1 {
		t.Error("proof of delivery not recorded")
	}
	if len(wallet.credits) != 1 || wallet.credits[0] != o.ID {
		t.Fatalf("wallet credits = %v, want exactly one for the order", wallet.credits)
	}
}

func TestDeliver_RequiresPhoto(t *testing.T) {
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)
	if _, err := svc.MarkPickedUp(context.Background(), o.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}

	if _, err := svc.Deliver(context.Background(), o.ID, livreurID, models.DeliverOrderRequest{}); !errors.Is(err, models.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestDeliver_RollsBackWhenCreditFails(t *testing.T) {
	repo := newMemOrderRepo()
	wallet := &fakeWallet{failCredit: fmt.Errorf("ledger unavailable")}
	svc := newTestOrderService(repo, wallet)
	o := mustCreate(t, svc, uuid.New().String())
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)
	if _, err := svc.MarkPickedUp(context.Background(), o.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}

	_, err := svc.Deliver(context.Background(), o.ID, livreurID, models.DeliverOrderRequest{
		PhotoURLs: []string{"https://cdn.example/pod/1.jpg"},
	})
	if err == nil {
		t.Fatal("expected delivery to fail when the credit fails")
	}

	got, _ := repo.FindByID(context.Background(), o.ID)
	if got.Status != models.OrderPickedUp {
		t.Fatalf("status = %s, want PICKED_UP preserved after rollback", got.Status)
	}
	if got.ProofOfDelivery != nil {
		t.Fatal("proof of delivery must not survive the rollback")
	}
}

func TestCancelByLivreur_PenaltyOnlyAfterPickup(t *testing.T) {
	ctx := context.Background()

	t.Run("before pickup, no penalty", func(t *testing.T) {
		repo := newMemOrderRepo()
		wallet := &fakeWallet{}
		svc := newTestOrderService(repo, wallet)
		o := mustCreate(t, svc, uuid.New().String())
		livreurID := uuid.New().String()
		mustAccept(t, svc, o.ID, livreurID)

		cancelled, err := svc.CancelByLivreur(ctx, o.ID, livreurID, models.CancelOrderRequest{Reason: "vehicle broke down"})
		if err != nil {
			t.Fatalf("CancelByLivreur: %v", err)
		}
		if cancelled.Status != models.OrderCancelledByLivreur {
			t.Errorf("status = %s, want CANCELLED_LIVREUR", cancelled.Status)
		}
		if cancelled.Cancellation.Penalty != 0 {
			t.Errorf("penalty = %d, want 0 before pickup", cancelled.Cancellation.Penalty)
		}
		if len(wallet.penalties) != 0 {
			t.Errorf("wallet penalties = %v, want none", wallet.penalties)
		}
		if cancelled.LivreurID != nil {
			t.Error("livreur must be unassigned after cancel")
		}
	})

	t.Run("after pickup, fixed penalty debited", func(t *testing.T) {
		repo := newMemOrderRepo()
		wallet := &fakeWallet{}
		svc := newTestOrderService(repo, wallet)
		o := mustCreate(t, svc, uuid.New().String())
		livreurID := uuid.New().String()
		mustAccept(t, svc, o.ID, livreurID)
		if _, err := svc.MarkPickedUp(ctx, o.ID, livreurID); err != nil {
			t.Fatalf("MarkPickedUp: %v", err)
		}

		cancelled, err := svc.CancelByLivreur(ctx, o.ID, livreurID, models.CancelOrderRequest{Reason: "accident"})
		if err != nil {
			t.Fatalf("CancelByLivreur: %v", err)
		}
		if cancelled.Cancellation.Penalty != 1000 {
			t.Errorf("penalty = %d, want 1000", cancelled.Cancellation.Penalty)
		}
		if len(wallet.penalties) != 1 || wallet.penalties[0] != 1000 {
			t.Fatalf("wallet penalties = %v, want [1000]", wallet.penalties)
		}
	})
}

func TestCancelByClient_WindowClosesAtPickup(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	clientID := uuid.New().String()
	o := mustCreate(t, svc, clientID)
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)

	// Another client cannot touch it.
	if _, err := svc.CancelByClient(ctx, o.ID, uuid.New().String(), models.CancelOrderRequest{Reason: "changed my mind"}); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("stranger cancel error = %v, want ErrForbidden", err)
	}

	if _, err := svc.MarkPickedUp(ctx, o.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}
	if _, err := svc.CancelByClient(ctx, o.ID, clientID, models.CancelOrderRequest{Reason: "changed my mind"}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("post-pickup cancel error = %v, want ErrInvalidState", err)
	}
}

func TestCancelByAdmin_AnyPreDeliveryState(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)
	if _, err := svc.MarkPickedUp(ctx, o.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}

	cancelled, err := svc.CancelByAdmin(ctx, o.ID, uuid.New().String(), models.CancelOrderRequest{Reason: "fraud suspicion"})
	if err != nil {
		t.Fatalf("CancelByAdmin: %v", err)
	}
	if cancelled.Status != models.OrderCancelledByAdmin {
		t.Errorf("status = %s, want CANCELLED_ADMIN", cancelled.Status)
	}

	// Delivered orders are out of reach.
	o2 := mustCreate(t, svc, uuid.New().String())
	mustAccept(t, svc, o2.ID, livreurID)
	if _, err := svc.MarkPickedUp(ctx, o2.ID, livreurID); err != nil {
		t.Fatalf("MarkPickedUp: %v", err)
	}
	if _, err := svc.Deliver(ctx, o2.ID, livreurID, models.DeliverOrderRequest{PhotoURLs: []string{"https://cdn.example/pod/2.jpg"}}); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if _, err := svc.CancelByAdmin(ctx, o2.ID, uuid.New().String(), models.CancelOrderRequest{Reason: "late"}); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("cancel of delivered order error = %v, want ErrInvalidState", err)
	}
}

func TestReject_AnnotatesWithoutClaiming(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	o := mustCreate(t, svc, uuid.New().String())
	livreurID := uuid.New().String()

	if err := svc.Reject(ctx, o.ID, livreurID, "too far"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	got, _ := repo.FindByID(ctx, o.ID)
	if got.Status != models.OrderSearching {
		t.Errorf("status = %s, want SEARCHING after reject", got.Status)
	}
	entries, _ := repo.ListTimeline(ctx, o.ID)
	last := entries[len(entries)-1]
	if last.Status != models.TimelineRejected || last.ActorID != livreurID {
		t.Errorf("last timeline entry = %+v, want rejection by the livreur", last)
	}

	mustAccept(t, svc, o.ID, livreurID)
	if err := svc.Reject(ctx, o.ID, uuid.New().String(), "late"); !errors.Is(err, models.ErrInvalidState) {
		t.Fatalf("reject of assigned order error = %v, want ErrInvalidState", err)
	}
}

func TestChat_RestrictedToParticipants(t *testing.T) {
	ctx := context.Background()
	repo := newMemOrderRepo()
	svc := newTestOrderService(repo, &fakeWallet{})
	clientID := uuid.New().String()
	o := mustCreate(t, svc, clientID)
	livreurID := uuid.New().String()
	mustAccept(t, svc, o.ID, livreurID)

	if _, err := svc.PostChatMessage(ctx, o.ID, models.Principal{ID: clientID, Role: models.RoleClient}, "where are you?"); err != nil {
		t.Fatalf("client message: %v", err)
	}
	if _, err := svc.PostChatMessage(ctx, o.ID, models.Principal{ID: livreurID, Role: models.RoleLivreur}, "two minutes away"); err != nil {
		t.Fatalf("livreur message: %v", err)
	}
	if _, err := svc.PostChatMessage(ctx, o.ID, models.Principal{ID: uuid.New().String(), Role: models.RoleClient}, "hello"); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("stranger message error = %v, want ErrForbidden", err)
	}

	msgs, err := svc.ListChat(ctx, o.ID, models.Principal{ID: clientID, Role: models.RoleClient})
	if err != nil {
		t.Fatalf("ListChat: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("messages = %d, want 2", len(msgs))
	}
}
