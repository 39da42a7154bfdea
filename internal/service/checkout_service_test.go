package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"storebot/internal/domain"
	"storebot/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"go.uber.org/zap"
)

const testDeliveryFee = 200.0

type checkoutFixture struct {
	users    *mockUserRepository
	products *mockProductRepository
	carts    *mockCartRepository
	orders   *mockOrderRepository
	store    *StepStore
	svc      *CheckoutService
}

func newCheckoutFixture() *checkoutFixture {
	users := newMockUserRepository()
	products := newMockProductRepository()
	carts := newMockCartRepository()
	orders := newMockOrderRepository(users, carts)
	store := NewStepStore()
	logger := zap.NewNop()

	cart := NewCartService(carts, products, logger)
	svc := NewCheckoutService(users, products, carts, orders, cart, store, testDeliveryFee, logger)

	return &checkoutFixture{
		users:    users,
		products: products,
		carts:    carts,
		orders:   orders,
		store:    store,
		svc:      svc,
	}
}

func (f *checkoutFixture) seedProduct(id int64, price float64) *domain.Product {
	return f.products.addProduct(&domain.Product{
		ID:          id,
		Name:        "Test Product",
		Description: "A product used in tests",
		Price:       price,
		CategoryID:  1,
		Active:      true,
	})
}

func TestStartCheckout_EmptyCartCreatesNoState(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	_, err := f.svc.Start(ctx, 42)
	if !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}

	if f.store.Active(42) {
		t.Error("empty-cart start must not leave a dialogue behind")
	}
}

func TestStartCheckout_NewUserAskedForName(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 1)

	prompt, err := f.svc.Start(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prompt.Step != StepName {
		t.Errorf("expected step %q, got %q", StepName, prompt.Step)
	}
}

func TestStartCheckout_ReturningUserSkipsKnownSteps(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 1)
	f.users.Upsert(ctx, &domain.User{
		ID:        42,
		FirstName: "Ann",
		Phone:     "+71234567890",
		Address:   "10 Green Street, ap 5",
	})

	prompt, err := f.svc.Start(ctx, 42)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if prompt.Step != StepDeliveryMethod {
		t.Errorf("expected profile data to skip to %q, got %q", StepDeliveryMethod, prompt.Step)
	}
	if got := f.store.Field(42, fieldName); got != "Ann" {
		t.Errorf("expected prefilled name, got %q", got)
	}
	if got := f.store.Field(42, fieldPhone); got != "+71234567890" {
		t.Errorf("expected prefilled phone, got %q", got)
	}
}

// drive walks the dialogue with a sequence of events, failing the test on
// any rejection along the way
func drive(t *testing.T, f *checkoutFixture, userID int64, events []Event) *Reply {
	t.Helper()

	var reply *Reply
	for _, ev := range events {
		var err error
		reply, err = f.svc.Advance(context.Background(), userID, ev)
		if err != nil {
			t.Fatalf("advance failed on %+v: %v", ev, err)
		}
		if reply.Invalid != "" {
			t.Fatalf("unexpected rejection on %+v: %s", ev, reply.Invalid)
		}
	}
	return reply
}

func TestCheckout_PickupHappyPath(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 2)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	reply := drive(t, f, 42, []Event{
		TextEvent("Ann Lee"),
		TextEvent("+71234567890"),
		TextEvent("10 Green Street, ap 5"),
		ChoiceEvent(domain.DeliveryPickup),
		ChoiceEvent("morning"),
		ChoiceEvent("cash"),
		ChoiceEvent(OptionSkip),
		ChoiceEvent(OptionConfirm),
	})

	if reply.Receipt == nil {
		t.Fatalf("expected a receipt, got %+v", reply)
	}
	if reply.Receipt.Total != 200 {
		t.Errorf("pickup total should be 2*100 with no fee, got %v", reply.Receipt.Total)
	}
	if len(reply.Receipt.SkippedProducts) != 0 {
		t.Errorf("no products should be skipped, got %v", reply.Receipt.SkippedProducts)
	}

	order := f.orders.orders[reply.Receipt.OrderID]
	if order == nil {
		t.Fatal("order was not persisted")
	}
	if order.Status != domain.StatusPending {
		t.Errorf("new order must be pending, got %q", order.Status)
	}
	if order.DeliveryTime != "9:00-12:00" {
		t.Errorf("time slot must be stored as its display string, got %q", order.DeliveryTime)
	}
	if order.PaymentMethod != "Cash" {
		t.Errorf("payment method must be stored as its display string, got %q", order.PaymentMethod)
	}

	items, _ := f.carts.Items(ctx, 42)
	if len(items) != 0 {
		t.Error("cart must be cleared after commit")
	}
	if f.store.Active(42) {
		t.Error("dialogue state must be dropped after commit")
	}

	user, err := f.users.Get(ctx, 42)
	if err != nil {
		t.Fatalf("user was not saved: %v", err)
	}
	if user.FirstName != "Ann Lee" || user.Phone != "+71234567890" {
		t.Errorf("profile not updated from dialogue: %+v", user)
	}
}

func TestCheckout_CourierAddsDeliveryFee(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 2)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	reply := drive(t, f, 42, []Event{
		TextEvent("Ann Lee"),
		TextEvent("+71234567890"),
		TextEvent("10 Green Street, ap 5"),
		ChoiceEvent(domain.DeliveryCourier),
		ChoiceEvent("evening"),
		ChoiceEvent("card"),
		TextEvent("leave at the door"),
	})

	if reply.Prompt == nil || reply.Prompt.Step != StepConfirm {
		t.Fatalf("expected confirm prompt, got %+v", reply)
	}
	review := reply.Prompt.Review
	if review == nil {
		t.Fatal("confirm prompt must carry an order review")
	}
	if review.DeliveryFee != testDeliveryFee {
		t.Errorf("expected delivery fee %v, got %v", testDeliveryFee, review.DeliveryFee)
	}
	if review.Total != 200+testDeliveryFee {
		t.Errorf("expected total %v, got %v", 200+testDeliveryFee, review.Total)
	}
	if review.Comment != "leave at the door" {
		t.Errorf("comment not carried into review: %q", review.Comment)
	}

	final := drive(t, f, 42, []Event{ChoiceEvent(OptionConfirm)})
	if final.Receipt == nil {
		t.Fatalf("expected a receipt, got %+v", final)
	}
	if final.Receipt.Total != review.Total {
		t.Errorf("committed total %v differs from reviewed total %v", final.Receipt.Total, review.Total)
	}
}

func TestCheckout_CancelAbortsWithoutWrites(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 1)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	drive(t, f, 42, []Event{TextEvent("Ann Lee"), TextEvent("+71234567890")})

	reply, err := f.svc.Advance(ctx, 42, ChoiceEvent(OptionCancel))
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if !reply.Cancelled {
		t.Fatalf("expected a cancellation, got %+v", reply)
	}

	if f.store.Active(42) {
		t.Error("cancel must drop the dialogue")
	}
	if len(f.orders.orders) != 0 {
		t.Error("cancel must not create orders")
	}
	items, _ := f.carts.Items(ctx, 42)
	if len(items) != 1 {
		t.Error("cancel must leave the cart untouched")
	}
	if _, err := f.users.Get(ctx, 42); !errors.Is(err, repository.ErrUserNotFound) {
		t.Error("cancel must not write the user profile")
	}
}

func TestCheckout_VanishedProductSkippedAtCommit(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.seedProduct(2, 50)
	f.carts.Add(ctx, 42, 1, 1)
	f.carts.Add(ctx, 42, 2, 1)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	drive(t, f, 42, []Event{
		TextEvent("Ann Lee"),
		TextEvent("+71234567890"),
		TextEvent("10 Green Street, ap 5"),
		ChoiceEvent(domain.DeliveryPickup),
		ChoiceEvent("morning"),
		ChoiceEvent("cash"),
		ChoiceEvent(OptionSkip),
	})

	// Product 2 disappears between review and commit
	delete(f.products.products, 2)

	reply := drive(t, f, 42, []Event{ChoiceEvent(OptionConfirm)})
	if reply.Receipt == nil {
		t.Fatalf("expected a receipt, got %+v", reply)
	}
	if len(reply.Receipt.SkippedProducts) != 1 || reply.Receipt.SkippedProducts[0] != 2 {
		t.Errorf("expected product 2 to be reported skipped, got %v", reply.Receipt.SkippedProducts)
	}
	if reply.Receipt.Total != 100 {
		t.Errorf("skipped product must not count toward the total, got %v", reply.Receipt.Total)
	}

	items := f.orders.orderItems[reply.Receipt.OrderID]
	if len(items) != 1 || items[0].ProductID != 1 {
		t.Errorf("order must contain only the surviving product, got %+v", items)
	}
}

func TestCheckout_PersistenceErrorKeepsState(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 1)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	drive(t, f, 42, []Event{
		TextEvent("Ann Lee"),
		TextEvent("+71234567890"),
		TextEvent("10 Green Street, ap 5"),
		ChoiceEvent(domain.DeliveryPickup),
		ChoiceEvent("morning"),
		ChoiceEvent("cash"),
		ChoiceEvent(OptionSkip),
	})

	f.orders.checkoutErr = errors.New("connection reset")

	_, err := f.svc.Advance(ctx, 42, ChoiceEvent(OptionConfirm))
	if err == nil {
		t.Fatal("expected the commit to fail")
	}

	step, ok := f.store.Step(42)
	if !ok || step != StepConfirm {
		t.Errorf("failed commit must leave the dialogue at confirm, got %q (active=%v)", step, ok)
	}

	// A retry after the outage succeeds
	f.orders.checkoutErr = nil
	reply := drive(t, f, 42, []Event{ChoiceEvent(OptionConfirm)})
	if reply.Receipt == nil {
		t.Fatalf("expected retry to succeed, got %+v", reply)
	}
}

func TestCheckout_TypedConfirmCommits(t *testing.T) {
	f := newCheckoutFixture()
	ctx := context.Background()

	f.seedProduct(1, 100)
	f.carts.Add(ctx, 42, 1, 1)

	if _, err := f.svc.Start(ctx, 42); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	reply := drive(t, f, 42, []Event{
		TextEvent("Ann Lee"),
		TextEvent("+71234567890"),
		TextEvent("10 Green Street, ap 5"),
		ChoiceEvent(domain.DeliveryPickup),
		ChoiceEvent("morning"),
		ChoiceEvent("cash"),
		ChoiceEvent(OptionSkip),
		TextEvent("confirm"),
	})

	if reply.Receipt == nil {
		t.Fatalf("typed confirm must commit like the quick reply, got %+v", reply)
	}
}

func TestAdvance_WithoutDialogFails(t *testing.T) {
	f := newCheckoutFixture()

	_, err := f.svc.Advance(context.Background(), 42, TextEvent("hello"))
	if !errors.Is(err, ErrNoActiveDialog) {
		t.Fatalf("expected ErrNoActiveDialog, got %v", err)
	}
}

func TestProperty_InvalidInputNeverAdvancesStep(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("garbage phone input leaves the dialogue at the phone step", prop.ForAll(
		func(input string) bool {
			if validPhone(strings.TrimSpace(input)) {
				return true
			}

			f := newCheckoutFixture()
			ctx := context.Background()
			f.seedProduct(1, 100)
			f.carts.Add(ctx, 42, 1, 1)

			if _, err := f.svc.Start(ctx, 42); err != nil {
				return false
			}
			if _, err := f.svc.Advance(ctx, 42, TextEvent("Ann Lee")); err != nil {
				return false
			}

			reply, err := f.svc.Advance(ctx, 42, TextEvent(input))
			if err != nil {
				return false
			}
			if reply.Invalid == "" {
				return false
			}

			step, ok := f.store.Step(42)
			return ok && step == StepPhone
		},
		gen.AnyString(),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
