package domain

import (
	"context"
	"errors"
)

type IngestResponse struct {
	Record    PaymentRecord
	Duplicate bool
}

type ListResponse struct {
	Total    int             `json:"total"`
	Payments []PaymentRecord `json:"payments"`
}

// ProductStat aggregates count and revenue for one product name.
type ProductStat struct {
	Count   int     `json:"count"`
	Revenue float64 `json:"revenue"`
}

type StatsResponse struct {
	TotalRevenue      string                 `json:"totalRevenue"`
	TotalTransactions int                    `json:"totalTransactions"`
	ByProduct         map[string]ProductStat `json:"byProduct"`
	LastPayment       *PaymentRecord         `json:"lastPayment"`
}

// Service ingests provider webhooks and answers read queries over the log.
type Service interface {
	// Ingest classifies and persists one webhook payload. Non-sale events
	// return ErrEventIgnored; redelivered sales return the stored record
	// with Duplicate set.
	Ingest(ctx context.Context, payload []byte) (IngestResponse, error)
	FindByTransactionID(ctx context.Context, transactionID string) (PaymentRecord, error)
	List(ctx context.Context) (ListResponse, error)
	Stats(ctx context.Context) (StatsResponse, error)
}

var (
	ErrInvalidPayload = errors.New("invalid_payload")
	ErrEventIgnored   = errors.New("event_ignored")
	ErrNotFound       = errors.New("not_found")
)
