package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stagedoor-labs/kiosk-payments/app/entity"
	"github.com/stagedoor-labs/kiosk-payments/app/notify"
	"github.com/stagedoor-labs/kiosk-payments/app/provider"
	"github.com/stagedoor-labs/kiosk-payments/app/types"
	"github.com/stagedoor-labs/kiosk-payments/config"
)

func callbackFor(transactionID, payState string) *types.GatewayCallbackRequest {
	return &types.GatewayCallbackRequest{
		TransactionID: transactionID,
		State:         "1",
		PayState:      payState,
		Raw: map[string]string{
			"mul_no":    transactionID,
			"pay_state": payState,
		},
	}
}

type servicePaymentRepo struct {
	mu       sync.Mutex
	payments map[string]*entity.PaymentAttempt
	nextID   uint64

	upsertErr error
}

func newServicePaymentRepo() *servicePaymentRepo {
	return &servicePaymentRepo{
		payments: map[string]*entity.PaymentAttempt{},
		nextID:   1,
	}
}

// Upsert mirrors the conflict guard of the SQL repository: a terminal
// status and its source never change once stored.
func (r *servicePaymentRepo) Upsert(_ context.Context, payment *entity.PaymentAttempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.upsertErr != nil {
		return r.upsertErr
	}

	existing, ok := r.payments[payment.TransactionID]
	if !ok {
		copyItem := *payment
		copyItem.ID = r.nextID
		r.nextID++
		r.payments[payment.TransactionID] = &copyItem
		payment.ID = copyItem.ID
		return nil
	}

	if existing.Terminal() {
		existing.UpdatedAt = payment.UpdatedAt
		if payment.RawResponse != "" {
			existing.RawResponse = payment.RawResponse
		}
		return nil
	}

	copyItem := *payment
	copyItem.ID = existing.ID
	copyItem.ProcessedAt = existing.ProcessedAt
	copyItem.CreatedAt = existing.CreatedAt
	r.payments[payment.TransactionID] = &copyItem
	return nil
}

func (r *servicePaymentRepo) FindByTransactionID(_ context.Context, transactionID string) (*entity.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.payments[transactionID]
	if !ok {
		return nil, nil
	}
	copyItem := *item
	return &copyItem, nil
}

func (r *servicePaymentRepo) MarkProcessed(_ context.Context, transactionID string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	item, ok := r.payments[transactionID]
	if !ok || item.ProcessedAt != nil {
		return false, nil
	}
	processedAt := now
	item.ProcessedAt = &processedAt
	return true, nil
}

func (r *servicePaymentRepo) ListPending(_ context.Context, limit int32) ([]*entity.PaymentAttempt, error) {
	return r.listByStatus(entity.PaymentStatusPending, limit, false), nil
}

func (r *servicePaymentRepo) ListUnprocessedCompleted(_ context.Context, limit int32) ([]*entity.PaymentAttempt, error) {
	return r.listByStatus(entity.PaymentStatusCompleted, limit, true), nil
}

func (r *servicePaymentRepo) listByStatus(status string, limit int32, unprocessedOnly bool) []*entity.PaymentAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentAttempt, 0)
	for _, item := range r.payments {
		if item.Status != status {
			continue
		}
		if unprocessedOnly && item.ProcessedAt != nil {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items
}

func (r *servicePaymentRepo) List(_ context.Context, status string, limit, offset int32) ([]*entity.PaymentAttempt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := make([]*entity.PaymentAttempt, 0)
	for _, item := range r.payments {
		if status != "" && item.Status != status {
			continue
		}
		copyItem := *item
		items = append(items, &copyItem)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	start := int(offset)
	if start > len(items) {
		return []*entity.PaymentAttempt{}, nil
	}
	end := start + int(limit)
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end], nil
}

func (r *servicePaymentRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = map[string]*entity.PaymentAttempt{}
	return nil
}

type serviceBookingRepo struct {
	mu       sync.Mutex
	bookings []*entity.Booking
	resets   int

	createErr error
}

func (r *serviceBookingRepo) CreateWithAudience(_ context.Context, audience *entity.Audience, booking *entity.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	audience.ID = uint64(len(r.bookings) + 1)
	copyItem := *booking
	copyItem.ID = uint64(len(r.bookings) + 1)
	copyItem.AudienceID = audience.ID
	r.bookings = append(r.bookings, &copyItem)
	booking.ID = copyItem.ID
	return nil
}

func (r *serviceBookingRepo) FindByTransactionID(_ context.Context, transactionID string) (*entity.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range r.bookings {
		if item.TransactionID != nil && *item.TransactionID == transactionID {
			copyItem := *item
			return &copyItem, nil
		}
	}
	return nil, nil
}

func (r *serviceBookingRepo) Reset(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings = nil
	r.resets++
	return nil
}

func (r *serviceBookingRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bookings)
}

type serviceEventRepo struct {
	mu     sync.Mutex
	events []*entity.PaymentEvent
}

func (r *serviceEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copyItem := *event
	r.events = append(r.events, &copyItem)
	return nil
}

func (r *serviceEventRepo) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
	return nil
}

func (r *serviceEventRepo) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make([]string, 0, len(r.events))
	for _, event := range r.events {
		result = append(result, event.EventType)
	}
	return result
}

type serviceGateway struct {
	mu         sync.Mutex
	lastCreate *provider.CreateInput
	counter    int

	createErr error
	cancelErr error
	cancelled []string
}

func (g *serviceGateway) CreatePayment(_ context.Context, input *provider.CreateInput) (*provider.CreateOutput, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.createErr != nil {
		return nil, g.createErr
	}
	g.counter++
	copyInput := *input
	g.lastCreate = &copyInput
	return &provider.CreateOutput{
		TransactionID: fmt.Sprintf("txn-%04d", g.counter),
		PayURL:        "https://pay.example/checkout",
	}, nil
}

func (g *serviceGateway) CancelPayment(_ context.Context, transactionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.cancelErr != nil {
		return g.cancelErr
	}
	g.cancelled = append(g.cancelled, transactionID)
	return nil
}

type servicePublisher struct {
	mu      sync.Mutex
	notices []notify.PaymentNotice
}

func (p *servicePublisher) Publish(notice notify.PaymentNotice) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notices = append(p.notices, notice)
}

func (p *servicePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.notices)
}

type serviceEmail struct {
	mu      sync.Mutex
	enabled bool
	sent    []notify.BookingConfirmation
	sendErr error
}

func (e *serviceEmail) Enabled() bool {
	return e.enabled
}

func (e *serviceEmail) SendBookingConfirmation(_ context.Context, c notify.BookingConfirmation) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.sendErr != nil {
		return e.sendErr
	}
	e.sent = append(e.sent, c)
	return nil
}

type serviceFixture struct {
	svc         *PaymentService
	paymentRepo *servicePaymentRepo
	bookingRepo *serviceBookingRepo
	eventRepo   *serviceEventRepo
	gateway     *serviceGateway
	publisher   *servicePublisher
	email       *serviceEmail
}

func newServiceFixture() *serviceFixture {
	f := &serviceFixture{
		paymentRepo: newServicePaymentRepo(),
		bookingRepo: &serviceBookingRepo{},
		eventRepo:   &serviceEventRepo{},
		gateway:     &serviceGateway{},
		publisher:   &servicePublisher{},
		email:       &serviceEmail{enabled: true},
	}
	f.svc = NewPaymentService(
		f.paymentRepo,
		f.bookingRepo,
		f.eventRepo,
		f.gateway,
		f.publisher,
		f.email,
		config.AppConfig{
			ServiceName:   "kiosk-payments",
			ShopName:      "Moving Theater",
			PublicBaseURL: "https://kiosk.example",
		},
	)
	return f
}

func (f *serviceFixture) createPending(t *testing.T) *entity.PaymentAttempt {
	t.Helper()

	payment, payURL, err := f.svc.CreatePayment(context.Background(), &types.CreatePaymentRequest{
		ItemName:   "Phantom Mask",
		Amount:     20000,
		PayerPhone: "01012345678",
		Metadata: map[string]string{
			"name":              "Hong Gildong",
			"prop_id":           "1",
			"prop_name":         "Phantom Mask",
			"privacy_agreement": "true",
		},
	})
	if err != nil {
		t.Fatalf("create payment failed: %v", err)
	}
	if payURL == "" {
		t.Fatal("expected pay url")
	}
	return payment
}

func TestCreatePaymentPersistsPendingAttempt(t *testing.T) {
	f := newServiceFixture()

	payment := f.createPending(t)

	stored, err := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if stored == nil {
		t.Fatal("expected stored payment")
	}
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("expected pending, got %q", stored.Status)
	}
	if stored.Source != entity.PaymentSourceAPICall {
		t.Fatalf("expected api_call source, got %q", stored.Source)
	}

	if f.gateway.lastCreate.FeedbackURL != "https://kiosk.example/payments/callback" {
		t.Fatalf("unexpected feedback url %q", f.gateway.lastCreate.FeedbackURL)
	}
	if f.gateway.lastCreate.RedirectURL != "https://kiosk.example/payments/return" {
		t.Fatalf("unexpected redirect url %q", f.gateway.lastCreate.RedirectURL)
	}
}

func TestCreatePaymentRejectsInvalidInput(t *testing.T) {
	f := newServiceFixture()

	_, _, err := f.svc.CreatePayment(context.Background(), &types.CreatePaymentRequest{
		ItemName: "Phantom Mask",
		Amount:   0,
	})
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestCreatePaymentGatewayRejectionPersistsNothing(t *testing.T) {
	f := newServiceFixture()
	f.gateway.createErr = &provider.RejectionError{Code: "1001", Message: "invalid linkkey"}

	_, _, err := f.svc.CreatePayment(context.Background(), &types.CreatePaymentRequest{
		ItemName:   "Phantom Mask",
		Amount:     20000,
		PayerPhone: "01012345678",
	})

	var rejection *provider.RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RejectionError, got %v", err)
	}
	items, _ := f.paymentRepo.List(context.Background(), "", 0, 0)
	if len(items) != 0 {
		t.Fatalf("expected empty store, got %d payments", len(items))
	}
}

func TestCallbackCompletesPendingPayment(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4"))
	if err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusCompleted {
		t.Fatalf("expected completed, got %q", stored.Status)
	}
	if stored.Source != entity.PaymentSourceWebhook {
		t.Fatalf("expected webhook source, got %q", stored.Source)
	}
	if stored.Amount != payment.Amount || stored.ItemName != payment.ItemName {
		t.Fatal("expected original fields preserved across callback")
	}
	if f.bookingRepo.count() != 0 {
		t.Fatal("callback must not dispatch side effects")
	}
}

func TestCallbackNonCompletedStateMarksFailed(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "9")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusFailed {
		t.Fatalf("expected failed, got %q", stored.Status)
	}
}

func TestCallbackForUnknownTransactionStoresRecord(t *testing.T) {
	f := newServiceFixture()

	req := callbackFor("txn-after-restart", "4")
	req.Price = "40000"
	req.ItemName = "Phantom Chandelier"
	if err := f.svc.HandleGatewayCallback(context.Background(), req); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), "txn-after-restart")
	if stored == nil {
		t.Fatal("expected record for unknown transaction")
	}
	if stored.Status != entity.PaymentStatusCompleted || stored.Amount != 40000 {
		t.Fatalf("unexpected record %+v", stored)
	}
}

func TestCallbackMissingTransactionIDIsInvalid(t *testing.T) {
	f := newServiceFixture()

	err := f.svc.HandleGatewayCallback(context.Background(), callbackFor("", "4"))
	if !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestTerminalStatusIsFrozen(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("first callback failed: %v", err)
	}
	// A contradictory retry must not flip the stored status.
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "9")); err != nil {
		t.Fatalf("second callback failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusCompleted {
		t.Fatalf("expected completed to stay, got %q", stored.Status)
	}
}

func TestDispatchSideEffectsRunsOnce(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)

	won, err := f.svc.DispatchSideEffects(context.Background(), stored)
	if err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}
	if !won {
		t.Fatal("expected first dispatch to win")
	}

	stored, _ = f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	won, err = f.svc.DispatchSideEffects(context.Background(), stored)
	if err != nil {
		t.Fatalf("second dispatch failed: %v", err)
	}
	if won {
		t.Fatal("expected second dispatch to lose")
	}

	if f.bookingRepo.count() != 1 {
		t.Fatalf("expected one booking, got %d", f.bookingRepo.count())
	}
	if f.publisher.count() != 1 {
		t.Fatalf("expected one notice, got %d", f.publisher.count())
	}
	if len(f.email.sent) != 1 {
		t.Fatalf("expected one confirmation mail, got %d", len(f.email.sent))
	}
}

func TestDispatchSideEffectsConcurrentSingleWinner(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)

	const racers = 8
	var wg sync.WaitGroup
	wins := make(chan bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, err := f.svc.DispatchSideEffects(context.Background(), stored)
			if err != nil {
				t.Errorf("dispatch failed: %v", err)
				return
			}
			wins <- won
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for won := range wins {
		if won {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
	if f.bookingRepo.count() != 1 {
		t.Fatalf("expected one booking, got %d", f.bookingRepo.count())
	}
}

func TestDispatchSideEffectsRejectsNonCompleted(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	if _, err := f.svc.DispatchSideEffects(context.Background(), payment); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestDispatchBookingFailureKeepsClaim(t *testing.T) {
	f := newServiceFixture()
	f.bookingRepo.createErr = errors.New("disk full")
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)

	won, err := f.svc.DispatchSideEffects(context.Background(), stored)
	if err != nil || !won {
		t.Fatalf("expected winning dispatch, got won=%v err=%v", won, err)
	}

	// The claim stands even though the booking write failed: no retry
	// may double-book.
	stored, _ = f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.ProcessedAt == nil {
		t.Fatal("expected payment to stay claimed")
	}
	if f.publisher.count() != 1 {
		t.Fatalf("expected notice despite booking failure, got %d", f.publisher.count())
	}
}

func TestWaitForResultReturnsCompleted(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	result, err := f.svc.WaitForResult(context.Background(), payment.TransactionID, 10*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if result.Outcome != PollOutcomeCompleted {
		t.Fatalf("expected completed, got %q", result.Outcome)
	}
	if f.bookingRepo.count() != 1 {
		t.Fatalf("expected poller to dispatch side effects, got %d bookings", f.bookingRepo.count())
	}
}

func TestWaitForResultTimeoutLeavesPending(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	result, err := f.svc.WaitForResult(context.Background(), payment.TransactionID, 5*time.Millisecond, 30*time.Millisecond)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if result.Outcome != PollOutcomeTimeout {
		t.Fatalf("expected timeout, got %q", result.Outcome)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("timeout must not change status, got %q", stored.Status)
	}
}

func TestWaitForResultContextCancelKeepsStatus(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := f.svc.WaitForResult(ctx, payment.TransactionID, 5*time.Millisecond, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("cancel must not change status, got %q", stored.Status)
	}
}

func TestWaitForResultSeesLateWebhook(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	go func() {
		time.Sleep(30 * time.Millisecond)
		_ = f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4"))
	}()

	result, err := f.svc.WaitForResult(context.Background(), payment.TransactionID, 5*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("wait failed: %v", err)
	}
	if result.Outcome != PollOutcomeCompleted {
		t.Fatalf("expected completed, got %q", result.Outcome)
	}
}

func TestCancelPendingMarksFailed(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)

	if err := f.svc.CancelPayment(context.Background(), payment.TransactionID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusFailed {
		t.Fatalf("expected failed, got %q", stored.Status)
	}
	if len(f.gateway.cancelled) != 1 {
		t.Fatalf("expected one gateway cancel, got %d", len(f.gateway.cancelled))
	}
}

func TestCancelCompletedIsInvalidStatus(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	if err := f.svc.CancelPayment(context.Background(), payment.TransactionID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestCancelRejectedByGatewayKeepsPending(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	f.gateway.cancelErr = &provider.RejectionError{Code: "2002", Message: "cannot cancel"}

	err := f.svc.CancelPayment(context.Background(), payment.TransactionID)
	var rejection *provider.RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("expected RejectionError, got %v", err)
	}

	stored, _ := f.paymentRepo.FindByTransactionID(context.Background(), payment.TransactionID)
	if stored.Status != entity.PaymentStatusPending {
		t.Fatalf("rejected cancel must keep pending, got %q", stored.Status)
	}
}

func TestCancelUnknownTransactionIsNotFound(t *testing.T) {
	f := newServiceFixture()

	if err := f.svc.CancelPayment(context.Background(), "txn-missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestGetPaymentUnknownIsNotFound(t *testing.T) {
	f := newServiceFixture()

	if _, err := f.svc.GetPayment(context.Background(), "txn-missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestCheckStatusDispatchesMissedCompletion(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	// Webhook landed while nobody was polling, e.g. the user closed the
	// payment page and the poll context was cancelled.
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}

	result, dispatched, err := f.svc.CheckStatus(context.Background(), payment.TransactionID)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if result.Outcome != PollOutcomeCompleted || !dispatched {
		t.Fatalf("expected completed+dispatched, got %q dispatched=%v", result.Outcome, dispatched)
	}

	_, dispatched, err = f.svc.CheckStatus(context.Background(), payment.TransactionID)
	if err != nil {
		t.Fatalf("second check failed: %v", err)
	}
	if dispatched {
		t.Fatal("expected no dispatch on already-processed payment")
	}
	if f.bookingRepo.count() != 1 {
		t.Fatalf("expected one booking, got %d", f.bookingRepo.count())
	}
}

func TestRunDispatchBatchSweepsUnprocessed(t *testing.T) {
	f := newServiceFixture()

	first := f.createPending(t)
	second := f.createPending(t)
	for _, txn := range []string{first.TransactionID, second.TransactionID} {
		if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(txn, "4")); err != nil {
			t.Fatalf("callback failed: %v", err)
		}
	}

	if err := f.svc.RunDispatchBatch(context.Background(), 10); err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if f.bookingRepo.count() != 2 {
		t.Fatalf("expected two bookings, got %d", f.bookingRepo.count())
	}

	// A second sweep has nothing left to claim.
	if err := f.svc.RunDispatchBatch(context.Background(), 10); err != nil {
		t.Fatalf("second batch failed: %v", err)
	}
	if f.bookingRepo.count() != 2 {
		t.Fatalf("expected two bookings after resweep, got %d", f.bookingRepo.count())
	}
}

func TestResetAllClearsStores(t *testing.T) {
	f := newServiceFixture()
	payment := f.createPending(t)
	if err := f.svc.HandleGatewayCallback(context.Background(), callbackFor(payment.TransactionID, "4")); err != nil {
		t.Fatalf("callback failed: %v", err)
	}
	if _, _, err := f.svc.CheckStatus(context.Background(), payment.TransactionID); err != nil {
		t.Fatalf("check failed: %v", err)
	}

	if err := f.svc.ResetAll(context.Background()); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	items, _ := f.paymentRepo.List(context.Background(), "", 0, 0)
	if len(items) != 0 {
		t.Fatalf("expected empty payments, got %d", len(items))
	}
	if f.bookingRepo.resets != 1 {
		t.Fatalf("expected booking reset, got %d", f.bookingRepo.resets)
	}
	if len(f.eventRepo.events) != 0 {
		t.Fatal("expected events cleared")
	}
}

func TestCreatePaymentRecordsEvent(t *testing.T) {
	f := newServiceFixture()
	f.createPending(t)

	eventTypes := f.eventRepo.types()
	if len(eventTypes) != 1 || eventTypes[0] != "payment_created" {
		t.Fatalf("unexpected events %v", eventTypes)
	}
}
