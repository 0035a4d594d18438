package payhip

import (
	"context"
	"errors"
	"testing"

	paymentdomain "github.com/blessingsjourney/payhook/internal/payment/domain"
)

func TestParseSaleCompleted(t *testing.T) {
	adapter := NewAdapter()
	payload := []byte(`{
		"event": "sale_completed",
		"product": {"id": "prod_42", "name": "Guided Meditation"},
		"sale": {"amount": 19.99, "currency": "EUR", "transaction_id": "txn_1"},
		"customer": {"email": "alice@example.com", "name": "Alice"}
	}`)

	sale, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if sale.ProductID != "prod_42" {
		t.Errorf("product id = %q, want prod_42", sale.ProductID)
	}
	if sale.ProductName != "Guided Meditation" {
		t.Errorf("product name = %q, want Guided Meditation", sale.ProductName)
	}
	if sale.Amount != 19.99 {
		t.Errorf("amount = %v, want 19.99", sale.Amount)
	}
	if sale.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", sale.Currency)
	}
	if sale.CustomerEmail != "alice@example.com" {
		t.Errorf("customer email = %q", sale.CustomerEmail)
	}
	if sale.TransactionID != "txn_1" {
		t.Errorf("transaction id = %q, want txn_1", sale.TransactionID)
	}
}

func TestParseEventVariants(t *testing.T) {
	adapter := NewAdapter()

	tests := []struct {
		name    string
		payload string
		wantErr error
	}{{
		name:    "underscore variant",
		payload: `{"event": "sale_completed", "sale": {"transaction_id": "t1"}}`,
	}, {
		name:    "dot variant",
		payload: `{"event": "sale.completed", "sale": {"transaction_id": "t2"}}`,
	}, {
		name:    "mixed case",
		payload: `{"event": "Sale.Completed", "sale": {"transaction_id": "t3"}}`,
	}, {
		name:    "refund event ignored",
		payload: `{"event": "sale_refunded", "sale": {"transaction_id": "t4"}}`,
		wantErr: paymentdomain.ErrEventIgnored,
	}, {
		name:    "missing event ignored",
		payload: `{"sale": {"transaction_id": "t5"}}`,
		wantErr: paymentdomain.ErrEventIgnored,
	}, {
		name:    "malformed json",
		payload: `{"event": "sale_completed"`,
		wantErr: paymentdomain.ErrInvalidPayload,
	}}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := adapter.Parse(context.Background(), []byte(tt.payload))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseFieldFallbacks(t *testing.T) {
	adapter := NewAdapter()

	// Flat payloads carry amount and transaction_id at the top level only.
	flat := []byte(`{
		"event": "sale.completed",
		"amount": "25",
		"transaction_id": "txn_flat",
		"sale": {"product_id": "p9", "product_name": "Journal", "customer_email": "bob@example.com", "customer_name": "Bob"}
	}`)

	sale, err := adapter.Parse(context.Background(), flat)
	if err != nil {
		t.Fatalf("parse flat: %v", err)
	}
	if sale.Amount != 25 {
		t.Errorf("amount = %v, want 25", sale.Amount)
	}
	if sale.TransactionID != "txn_flat" {
		t.Errorf("transaction id = %q, want txn_flat", sale.TransactionID)
	}
	if sale.ProductID != "p9" || sale.ProductName != "Journal" {
		t.Errorf("product fallback = %q/%q", sale.ProductID, sale.ProductName)
	}
	if sale.CustomerEmail != "bob@example.com" || sale.CustomerName != "Bob" {
		t.Errorf("customer fallback = %q/%q", sale.CustomerEmail, sale.CustomerName)
	}

	// Nested fields win over top-level ones when both are present.
	both := []byte(`{
		"event": "sale_completed",
		"amount": 10,
		"transaction_id": "txn_outer",
		"product": {"id": "nested", "name": "Nested"},
		"sale": {"amount": 20, "product_id": "flat", "transaction_id": "txn_inner"}
	}`)

	sale, err = adapter.Parse(context.Background(), both)
	if err != nil {
		t.Fatalf("parse both: %v", err)
	}
	if sale.Amount != 20 {
		t.Errorf("amount = %v, want nested 20", sale.Amount)
	}
	if sale.TransactionID != "txn_inner" {
		t.Errorf("transaction id = %q, want txn_inner", sale.TransactionID)
	}
	if sale.ProductID != "nested" {
		t.Errorf("product id = %q, want nested", sale.ProductID)
	}
}

func TestParseAmountCoercion(t *testing.T) {
	adapter := NewAdapter()

	tests := []struct {
		name   string
		amount string
		want   float64
	}{
		{"integer string", `"25"`, 25},
		{"decimal string", `"19.99"`, 19.99},
		{"number", `12.5`, 12.5},
		{"garbage string", `"free"`, 0},
		{"null", `null`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := []byte(`{"event": "sale_completed", "sale": {"amount": ` + tt.amount + `}}`)
			sale, err := adapter.Parse(context.Background(), payload)
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if sale.Amount != tt.want {
				t.Fatalf("amount = %v, want %v", sale.Amount, tt.want)
			}
		})
	}
}

func TestParseCurrencyDefault(t *testing.T) {
	adapter := NewAdapter()
	payload := []byte(`{"event": "sale_completed", "sale": {"amount": 5}}`)

	sale, err := adapter.Parse(context.Background(), payload)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if sale.Currency != "USD" {
		t.Fatalf("currency = %q, want USD", sale.Currency)
	}
}
