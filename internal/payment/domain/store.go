package domain

import "context"

// Store owns the on-disk payment log. Appends are serialized per store so
// concurrent webhook deliveries never lose records; scans tolerate individual
// unreadable files by skipping them.
type Store interface {
	Append(ctx context.Context, record *PaymentRecord) error
	ScanAll(ctx context.Context) ([]PaymentRecord, error)
}
