package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storebot/internal/domain"
	"storebot/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrEmptyCart      = errors.New("cart is empty")
	ErrNoActiveDialog = errors.New("no dialogue in progress")
)

// Checkout dialogue steps, in order. Steps whose answer is already known
// from the persisted user profile are skipped on entry.
const (
	StepName           Step = "awaiting_name"
	StepPhone          Step = "awaiting_phone"
	StepAddress        Step = "awaiting_address"
	StepDeliveryMethod Step = "awaiting_delivery_method"
	StepDeliveryTime   Step = "awaiting_delivery_time"
	StepPaymentMethod  Step = "awaiting_payment_method"
	StepComment        Step = "awaiting_comment"
	StepConfirm        Step = "confirming"
)

// Collected field keys
const (
	fieldName           = "name"
	fieldPhone          = "phone"
	fieldAddress        = "address"
	fieldDeliveryMethod = "delivery_method"
	fieldDeliveryTime   = "delivery_time"
	fieldPaymentMethod  = "payment_method"
	fieldComment        = "comment"
)

var deliveryMethodOptions = []Option{
	{Value: domain.DeliveryCourier, Label: "Courier delivery"},
	{Value: domain.DeliveryPickup, Label: "Pickup"},
}

// Time bands are stored as their display string
var deliveryTimeOptions = []Option{
	{Value: "morning", Label: "9:00-12:00"},
	{Value: "afternoon", Label: "12:00-15:00"},
	{Value: "evening", Label: "15:00-18:00"},
	{Value: "night", Label: "18:00-21:00"},
}

// Payment methods are stored as their display string
var paymentMethodOptions = []Option{
	{Value: "card", Label: "Card online"},
	{Value: "cash", Label: "Cash"},
	{Value: "qr", Label: "QR code"},
}

var (
	cancelOption  = Option{Value: OptionCancel, Label: "Cancel"}
	confirmOption = Option{Value: OptionConfirm, Label: "Confirm order"}
)

// CheckoutService drives the per-user checkout dialogue: an ordered step
// sequence with profile-based skips, per-step validation and an atomic
// terminal commit that persists the order and clears the cart.
type CheckoutService struct {
	users       repository.UserRepository
	products    repository.ProductRepository
	carts       repository.CartRepository
	orders      repository.OrderRepository
	cart        *CartService
	store       *StepStore
	deliveryFee float64
	logger      *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(
	users repository.UserRepository,
	products repository.ProductRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	cart *CartService,
	store *StepStore,
	deliveryFee float64,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		users:       users,
		products:    products,
		carts:       carts,
		orders:      orders,
		cart:        cart,
		store:       store,
		deliveryFee: deliveryFee,
		logger:      logger,
	}
}

// Start begins the checkout dialogue. It fails with ErrEmptyCart before any
// conversation state is created when the cart has no rows.
func (s *CheckoutService) Start(ctx context.Context, userID int64) (*Prompt, error) {
	empty, err := s.cart.IsEmpty(ctx, userID)
	if err != nil {
		return nil, err
	}
	if empty {
		return nil, ErrEmptyCart
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.askName(ctx, userID, user)
}

// Advance feeds one input event into the dialogue. Invalid input re-prompts
// the same step and never changes it; a cancel choice aborts from any step.
func (s *CheckoutService) Advance(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	step, ok := s.store.Step(userID)
	if !ok {
		return nil, ErrNoActiveDialog
	}

	if ev.Kind == EventChoice && ev.Value == OptionCancel {
		s.store.Clear(userID)
		s.logger.Info("Checkout cancelled", zap.Int64("user_id", userID))
		return &Reply{Cancelled: true}, nil
	}

	switch step {
	case StepName:
		return s.handleName(ctx, userID, ev)
	case StepPhone:
		return s.handlePhone(ctx, userID, ev)
	case StepAddress:
		return s.handleAddress(ctx, userID, ev)
	case StepDeliveryMethod:
		return s.handleDeliveryMethod(ctx, userID, ev)
	case StepDeliveryTime:
		return s.handleDeliveryTime(ctx, userID, ev)
	case StepPaymentMethod:
		return s.handlePaymentMethod(ctx, userID, ev)
	case StepComment:
		return s.handleComment(ctx, userID, ev)
	case StepConfirm:
		return s.handleConfirm(ctx, userID, ev)
	default:
		return nil, fmt.Errorf("unknown checkout step %q", step)
	}
}

// Orders lists the user's past orders, newest first
func (s *CheckoutService) Orders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.orders.List(ctx, &userID)
}

// askName enters the name step, skipping ahead when the profile already
// carries a name (same pattern for phone and address below).
func (s *CheckoutService) askName(ctx context.Context, userID int64, user *domain.User) (*Prompt, error) {
	if user != nil && user.FirstName != "" {
		s.store.Set(userID, fieldName, user.FirstName)
		return s.askPhone(ctx, userID, user)
	}

	s.store.SetStep(userID, StepName)
	return s.promptFor(ctx, userID, StepName)
}

func (s *CheckoutService) askPhone(ctx context.Context, userID int64, user *domain.User) (*Prompt, error) {
	if user != nil && user.Phone != "" {
		s.store.Set(userID, fieldPhone, user.Phone)
		return s.askAddress(ctx, userID, user)
	}

	s.store.SetStep(userID, StepPhone)
	return s.promptFor(ctx, userID, StepPhone)
}

func (s *CheckoutService) askAddress(ctx context.Context, userID int64, user *domain.User) (*Prompt, error) {
	if user != nil && user.Address != "" {
		s.store.Set(userID, fieldAddress, user.Address)
		return s.askDeliveryMethod(ctx, userID)
	}

	s.store.SetStep(userID, StepAddress)
	return s.promptFor(ctx, userID, StepAddress)
}

func (s *CheckoutService) askDeliveryMethod(ctx context.Context, userID int64) (*Prompt, error) {
	s.store.SetStep(userID, StepDeliveryMethod)
	return s.promptFor(ctx, userID, StepDeliveryMethod)
}

func (s *CheckoutService) handleName(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	name := strings.TrimSpace(ev.Value)
	if len([]rune(name)) < 2 {
		return s.reject(ctx, userID, StepName, "Name must be at least 2 characters")
	}

	s.store.Set(userID, fieldName, name)

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.promptReply(s.askPhone(ctx, userID, user))
}

func (s *CheckoutService) handlePhone(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	phone := strings.TrimSpace(ev.Value)
	if !validPhone(phone) {
		return s.reject(ctx, userID, StepPhone, "Enter a valid phone number")
	}

	s.store.Set(userID, fieldPhone, phone)

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.promptReply(s.askAddress(ctx, userID, user))
}

func (s *CheckoutService) handleAddress(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	address := strings.TrimSpace(ev.Value)
	if len([]rune(address)) < 10 {
		return s.reject(ctx, userID, StepAddress, "Address must be at least 10 characters")
	}

	s.store.Set(userID, fieldAddress, address)
	return s.promptReply(s.askDeliveryMethod(ctx, userID))
}

func (s *CheckoutService) handleDeliveryMethod(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	opt, ok := matchOption(deliveryMethodOptions, ev.Value)
	if !ok {
		return s.reject(ctx, userID, StepDeliveryMethod, "Choose one of the delivery methods")
	}

	s.store.Set(userID, fieldDeliveryMethod, opt.Value)
	s.store.SetStep(userID, StepDeliveryTime)
	return s.promptReply(s.promptFor(ctx, userID, StepDeliveryTime))
}

func (s *CheckoutService) handleDeliveryTime(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	opt, ok := matchOption(deliveryTimeOptions, ev.Value)
	if !ok {
		return s.reject(ctx, userID, StepDeliveryTime, "Choose one of the time slots")
	}

	s.store.Set(userID, fieldDeliveryTime, opt.Label)
	s.store.SetStep(userID, StepPaymentMethod)
	return s.promptReply(s.promptFor(ctx, userID, StepPaymentMethod))
}

func (s *CheckoutService) handlePaymentMethod(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	opt, ok := matchOption(paymentMethodOptions, ev.Value)
	if !ok {
		return s.reject(ctx, userID, StepPaymentMethod, "Choose one of the payment methods")
	}

	s.store.Set(userID, fieldPaymentMethod, opt.Label)
	s.store.SetStep(userID, StepComment)
	return s.promptReply(s.promptFor(ctx, userID, StepComment))
}

func (s *CheckoutService) handleComment(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	comment := strings.TrimSpace(ev.Value)
	if ev.Kind == EventChoice && ev.Value == OptionSkip {
		comment = ""
	}

	s.store.Set(userID, fieldComment, comment)
	s.store.SetStep(userID, StepConfirm)
	return s.promptReply(s.promptFor(ctx, userID, StepConfirm))
}

func (s *CheckoutService) handleConfirm(ctx context.Context, userID int64, ev Event) (*Reply, error) {
	if _, ok := matchOption([]Option{confirmOption}, ev.Value); !ok {
		return s.reject(ctx, userID, StepConfirm, "Confirm or cancel the order")
	}

	return s.commit(ctx, userID)
}

// commit is the terminal transition: re-read the cart, freeze current
// prices into order items, then persist order + items, the user profile
// update and the cart clear as one transaction. On persistence failure the
// conversation state is left untouched so the user can retry.
func (s *CheckoutService) commit(ctx context.Context, userID int64) (*Reply, error) {
	items, err := s.carts.Items(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(items) == 0 {
		s.store.Clear(userID)
		return nil, ErrEmptyCart
	}

	var (
		orderItems []*domain.OrderItem
		total      float64
		skipped    []int64
	)
	for _, item := range items {
		product, err := s.products.FindByID(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			s.logger.Warn("Skipping vanished product at commit",
				zap.Int64("user_id", userID),
				zap.Int64("product_id", item.ProductID),
			)
			skipped = append(skipped, item.ProductID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load product %d: %w", item.ProductID, err)
		}
		if !product.Active {
			skipped = append(skipped, item.ProductID)
			continue
		}

		total += product.Price * float64(item.Quantity)
		orderItems = append(orderItems, &domain.OrderItem{
			ProductID: product.ID,
			Quantity:  item.Quantity,
			Price:     product.Price,
		})
	}

	if len(orderItems) == 0 {
		s.store.Clear(userID)
		return nil, ErrEmptyCart
	}

	fields := s.store.Fields(userID)
	if fields[fieldDeliveryMethod] == domain.DeliveryCourier {
		total += s.deliveryFee
	}

	now := time.Now()
	order := &domain.Order{
		UserID:          userID,
		Status:          domain.StatusPending,
		TotalAmount:     total,
		DeliveryMethod:  fields[fieldDeliveryMethod],
		DeliveryTime:    fields[fieldDeliveryTime],
		PaymentMethod:   fields[fieldPaymentMethod],
		Comment:         fields[fieldComment],
		DeliveryAddress: fields[fieldAddress],
		Phone:           fields[fieldPhone],
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &domain.User{ID: userID, CreatedAt: now}
	}
	user.FirstName = fields[fieldName]
	user.Phone = fields[fieldPhone]
	user.Address = fields[fieldAddress]

	created, err := s.orders.Checkout(ctx, order, orderItems, user)
	if err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	s.store.Clear(userID)
	s.logger.Info("Order committed",
		zap.Int64("user_id", userID),
		zap.Int64("order_id", created.ID),
		zap.Float64("total", total),
		zap.Int("items", len(orderItems)),
	)

	return &Reply{Receipt: &Receipt{
		OrderID:         created.ID,
		Total:           total,
		SkippedProducts: skipped,
	}}, nil
}

// promptFor builds the prompt of a step. The confirm prompt recomputes the
// cart summary fresh; it never reuses a cached total.
func (s *CheckoutService) promptFor(ctx context.Context, userID int64, step Step) (*Prompt, error) {
	switch step {
	case StepName:
		return &Prompt{Step: step, Text: "Enter your name", Options: []Option{cancelOption}}, nil
	case StepPhone:
		return &Prompt{Step: step, Text: "Enter your phone number", Options: []Option{cancelOption}}, nil
	case StepAddress:
		return &Prompt{Step: step, Text: "Enter the delivery address", Options: []Option{cancelOption}}, nil
	case StepDeliveryMethod:
		return &Prompt{Step: step, Text: "Choose a delivery method",
			Options: withCancel(deliveryMethodOptions)}, nil
	case StepDeliveryTime:
		return &Prompt{Step: step, Text: "Choose a convenient time slot",
			Options: withCancel(deliveryTimeOptions)}, nil
	case StepPaymentMethod:
		return &Prompt{Step: step, Text: "Choose a payment method",
			Options: withCancel(paymentMethodOptions)}, nil
	case StepComment:
		return &Prompt{Step: step, Text: "Add a comment to your order or skip this step",
			Options: []Option{{Value: OptionSkip, Label: "Skip"}, cancelOption}}, nil
	case StepConfirm:
		review, err := s.buildReview(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &Prompt{
			Step: step,
			Text: "Please confirm your order",
			Options: []Option{confirmOption, cancelOption},
			Review: review,
		}, nil
	default:
		return nil, fmt.Errorf("no prompt for step %q", step)
	}
}

func (s *CheckoutService) buildReview(ctx context.Context, userID int64) (*OrderReview, error) {
	summary, err := s.cart.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}

	fields := s.store.Fields(userID)
	review := &OrderReview{
		Name:           fields[fieldName],
		Phone:          fields[fieldPhone],
		Address:        fields[fieldAddress],
		DeliveryMethod: fields[fieldDeliveryMethod],
		DeliveryTime:   fields[fieldDeliveryTime],
		PaymentMethod:  fields[fieldPaymentMethod],
		Comment:        fields[fieldComment],
		Lines:          summary.Lines,
		Total:          summary.Total,
	}
	if review.DeliveryMethod == domain.DeliveryCourier {
		review.DeliveryFee = s.deliveryFee
		review.Total += s.deliveryFee
	}

	return review, nil
}

// reject re-prompts the current step without changing it
func (s *CheckoutService) reject(ctx context.Context, userID int64, step Step, reason string) (*Reply, error) {
	prompt, err := s.promptFor(ctx, userID, step)
	if err != nil {
		return nil, err
	}
	return &Reply{Invalid: reason, Prompt: prompt}, nil
}

func (s *CheckoutService) promptReply(prompt *Prompt, err error) (*Reply, error) {
	if err != nil {
		return nil, err
	}
	return &Reply{Prompt: prompt}, nil
}

// getUser tolerates an unknown user: first-time buyers have no row yet
func (s *CheckoutService) getUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.Get(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return user, nil
}

// matchOption accepts either the option value (choice events) or its exact
// display label (text events)
func matchOption(options []Option, input string) (Option, bool) {
	input = strings.TrimSpace(input)
	for _, opt := range options {
		if input == opt.Value || input == opt.Label {
			return opt, true
		}
	}
	return Option{}, false
}

func withCancel(options []Option) []Option {
	out := make([]Option, 0, len(options)+1)
	out = append(out, options...)
	return append(out, cancelOption)
}

// validPhone checks the raw length, then that nothing but digits remains
// once the usual separators are stripped
func validPhone(phone string) bool {
	if len(phone) < 10 {
		return false
	}

	stripped := strings.Map(func(r rune) rune {
		switch r {
		case '+', '-', '(', ')', ' ':
			return -1
		}
		return r
	}, phone)

	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
