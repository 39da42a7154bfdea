package service

import "storebot/internal/domain"

// EventKind distinguishes free text from a quick-reply choice. The state
// machines take both through the same Advance contract regardless of how
// the transport framed the input.
type EventKind string

const (
	EventText   EventKind = "text"
	EventChoice EventKind = "choice"
)

// Event is one unit of user input
type Event struct {
	Kind  EventKind `json:"type"`
	Value string    `json:"value"`
}

// TextEvent wraps free-form text input
func TextEvent(value string) Event {
	return Event{Kind: EventText, Value: value}
}

// ChoiceEvent wraps a quick-reply selection
func ChoiceEvent(value string) Event {
	return Event{Kind: EventChoice, Value: value}
}

// Option values shared across dialogues
const (
	OptionCancel  = "cancel"
	OptionSkip    = "skip"
	OptionConfirm = "confirm"
)

// Option is one quick-reply choice. Value is what comes back in a choice
// event; Label is the display string the UI layer renders.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Prompt describes the next question of a dialogue. The core never formats
// presentation markup; the transport owns rendering.
type Prompt struct {
	Step    Step         `json:"step"`
	Text    string       `json:"text"`
	Options []Option     `json:"options,omitempty"`
	Review  *OrderReview `json:"review,omitempty"`
}

// OrderReview is the structured order summary shown on the confirm step,
// recomputed fresh from current cart contents and product prices.
type OrderReview struct {
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	Address        string     `json:"address"`
	DeliveryMethod string     `json:"delivery_method"`
	DeliveryTime   string     `json:"delivery_time"`
	PaymentMethod  string     `json:"payment_method"`
	Comment        string     `json:"comment,omitempty"`
	Lines          []CartLine `json:"lines"`
	DeliveryFee    float64    `json:"delivery_fee"`
	Total          float64    `json:"total"`
}

// Receipt is the terminal result of a committed checkout. SkippedProducts
// lists cart items dropped because their product vanished before commit,
// so the transport can warn about a partial order.
type Receipt struct {
	OrderID         int64   `json:"order_id"`
	Total           float64 `json:"total"`
	SkippedProducts []int64 `json:"skipped_products,omitempty"`
}

// Reply is the outcome of one Advance call. Exactly one of the fields is
// meaningful: a next prompt, a validation rejection (step unchanged, the
// same prompt attached), a terminal receipt or saved product, or a
// cancellation.
type Reply struct {
	Prompt    *Prompt         `json:"prompt,omitempty"`
	Invalid   string          `json:"invalid,omitempty"`
	Receipt   *Receipt        `json:"receipt,omitempty"`
	Saved     *domain.Product `json:"saved,omitempty"`
	Cancelled bool            `json:"cancelled,omitempty"`
}
