package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/blessingsjourney/payhook/internal/payment/domain"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileStore(dir, zap.NewNop())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, dir
}

func testRecord(txID string, ts time.Time) *domain.PaymentRecord {
	return &domain.PaymentRecord{
		Timestamp:     ts,
		Event:         "sale_completed",
		ProductName:   "Guided Meditation",
		Amount:        19.99,
		Currency:      "USD",
		TransactionID: txID,
		Status:        domain.StatusCompleted,
	}
}

func TestAppendPartitionsByDay(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	day1 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC)

	for i, ts := range []time.Time{day1, day1.Add(time.Hour), day2} {
		if err := store.Append(ctx, testRecord(fmt.Sprintf("txn_%d", i), ts)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	for _, name := range []string{"payments-2026-03-01.ndjson", "payments-2026-03-02.ndjson"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected day file %s: %v", name, err)
		}
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("scan returned %d records, want 3", len(records))
	}
}

func TestScanSkipsCorruptLines(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 4, 5, 12, 0, 0, 0, time.UTC)
	if err := store.Append(ctx, testRecord("txn_good_1", ts)); err != nil {
		t.Fatalf("append: %v", err)
	}

	path := filepath.Join(dir, "payments-2026-04-05.ndjson")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := f.WriteString("{not json\n"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	if err := store.Append(ctx, testRecord("txn_good_2", ts)); err != nil {
		t.Fatalf("append after garbage: %v", err)
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("scan returned %d records, want 2 around the corrupt line", len(records))
	}
}

func TestScanReadsLegacyArrayFiles(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	legacy := `[
		{"timestamp": "2023-12-25T08:00:00.000Z", "event": "sale_completed", "amount": 9.99, "currency": "USD", "transactionId": "txn_legacy", "status": "completed"}
	]`
	if err := os.WriteFile(filepath.Join(dir, "payments-2023-12-25.json"), []byte(legacy), 0o644); err != nil {
		t.Fatalf("write legacy: %v", err)
	}

	if err := store.Append(ctx, testRecord("txn_new", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("scan returned %d records, want 2", len(records))
	}

	var foundLegacy bool
	for _, record := range records {
		if record.TransactionID == "txn_legacy" {
			foundLegacy = true
		}
	}
	if !foundLegacy {
		t.Fatal("legacy record missing from scan")
	}
}

func TestScanDegradesOnUnreadableFile(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "payments-2099-01-01.json"), []byte("not an array"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	if err := store.Append(ctx, testRecord("txn_ok", time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))); err != nil {
		t.Fatalf("append: %v", err)
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan should degrade, not fail: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("scan returned %d records, want 1", len(records))
	}
}

func TestScanIgnoresUnrelatedFiles(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "backup.json"), []byte("[]"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("scan returned %d records, want 0", len(records))
	}
}

func TestConcurrentAppendsLoseNothing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)

	const n = 25
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, testRecord(fmt.Sprintf("txn_%02d", i), ts))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	records, err := store.ScanAll(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(records) != n {
		t.Fatalf("scan returned %d records, want %d", len(records), n)
	}

	seen := make(map[string]bool, n)
	for _, record := range records {
		seen[record.TransactionID] = true
	}
	if len(seen) != n {
		t.Fatalf("got %d distinct transaction ids, want %d", len(seen), n)
	}
}
