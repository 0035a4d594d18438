package payhip

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
)

// Adapter normalizes PayHip webhook payloads. PayHip is known to deliver the
// same semantic event under more than one spelling ("sale_completed",
// "sale.completed"), and nests sale fields differently per event type, so
// every field resolves through a fallback chain.
type Adapter struct{}

func NewAdapter() *Adapter {
	return &Adapter{}
}

func (a *Adapter) Provider() string {
	return "payhip"
}

// Parse classifies the payload and extracts the canonical sale fields.
// Non-sale events return ErrEventIgnored so the receiver can acknowledge
// them without persisting.
func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.SaleEvent, error) {
	var raw payhipPayload
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}

	event := strings.TrimSpace(raw.Event)
	if event == "" {
		return nil, paymentdomain.ErrEventIgnored
	}
	if !isSaleCompleted(event) {
		return nil, paymentdomain.ErrEventIgnored
	}

	currency := firstString(raw.Sale["currency"])
	if currency == "" {
		currency = "USD"
	}

	return &paymentdomain.SaleEvent{
		Event:         event,
		ProductID:     firstString(raw.Product["id"], raw.Sale["product_id"]),
		ProductName:   firstString(raw.Product["name"], raw.Sale["product_name"]),
		Amount:        firstAmount(raw.Sale["amount"], raw.Amount),
		Currency:      currency,
		CustomerEmail: firstString(raw.Customer["email"], raw.Sale["customer_email"]),
		CustomerName:  firstString(raw.Customer["name"], raw.Sale["customer_name"]),
		TransactionID: firstString(raw.Sale["transaction_id"], raw.TransactionID),
		RawPayload:    json.RawMessage(payload),
	}, nil
}

type payhipPayload struct {
	Event         string         `json:"event"`
	Amount        any            `json:"amount"`
	TransactionID string         `json:"transaction_id"`
	Sale          map[string]any `json:"sale"`
	Product       map[string]any `json:"product"`
	Customer      map[string]any `json:"customer"`
}

// isSaleCompleted accepts the capitalization and separator variants PayHip
// sends for a completed sale.
func isSaleCompleted(event string) bool {
	normalized := strings.ToLower(strings.TrimSpace(event))
	normalized = strings.ReplaceAll(normalized, ".", "_")
	return normalized == "sale_completed"
}

func firstString(values ...any) string {
	for _, value := range values {
		if s := asString(value); s != "" {
			return s
		}
	}
	return ""
}

func firstAmount(values ...any) float64 {
	for _, value := range values {
		if value == nil {
			continue
		}
		return asAmount(value)
	}
	return 0
}

func asString(value any) string {
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case json.Number:
		return cast.String()
	case float64:
		if cast == float64(int64(cast)) {
			return strconv.FormatInt(int64(cast), 10)
		}
		return strconv.FormatFloat(cast, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}

// asAmount coerces provider amounts, which arrive as numbers or numeric
// strings. Anything unparseable counts as zero rather than poisoning sums.
func asAmount(value any) float64 {
	switch cast := value.(type) {
	case float64:
		return cast
	case json.Number:
		parsed, err := cast.Float64()
		if err != nil {
			return 0
		}
		return parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(cast), 64)
		if err != nil {
			return 0
		}
		return parsed
	case int64:
		return float64(cast)
	case int:
		return float64(cast)
	}
	return 0
}
