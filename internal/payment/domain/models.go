package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
)

// PaymentRecord is a single normalized, persisted payment confirmation.
// Optional fields stay absent in the serialized record when the provider
// payload omitted them; currency always defaults to USD.
type PaymentRecord struct {
	ID            snowflake.ID    `json:"id"`
	Timestamp     time.Time       `json:"timestamp"`
	Event         string          `json:"event"`
	ProductID     string          `json:"productId,omitempty"`
	ProductName   string          `json:"productName,omitempty"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	CustomerEmail string          `json:"customerEmail,omitempty"`
	CustomerName  string          `json:"customerName,omitempty"`
	TransactionID string          `json:"transactionId,omitempty"`
	Status        string          `json:"status"`
	RawData       json.RawMessage `json:"rawData"`
}

const StatusCompleted = "completed"

// SaleEvent is the canonical sale parsed out of a provider webhook payload.
// The log store assigns ID, Timestamp and Status at append time.
type SaleEvent struct {
	Event         string
	ProductID     string
	ProductName   string
	Amount        float64
	Currency      string
	CustomerEmail string
	CustomerName  string
	TransactionID string
	RawPayload    json.RawMessage
}

// Record converts the sale into its persisted form, minus store-assigned fields.
func (e SaleEvent) Record() PaymentRecord {
	return PaymentRecord{
		Event:         e.Event,
		ProductID:     e.ProductID,
		ProductName:   e.ProductName,
		Amount:        e.Amount,
		Currency:      e.Currency,
		CustomerEmail: e.CustomerEmail,
		CustomerName:  e.CustomerName,
		TransactionID: e.TransactionID,
		Status:        StatusCompleted,
		RawData:       e.RawPayload,
	}
}
