package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/blessingsjourney/payhook/internal/config"
	obsmetrics "github.com/blessingsjourney/payhook/internal/observability/metrics"
	"github.com/blessingsjourney/payhook/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	filePrefix   = "payments-"
	fileExt      = ".ndjson"
	legacyExt    = ".json"
	dayFormat    = "2006-01-02"
	maxLineBytes = 1 << 20
)

type Params struct {
	fx.In

	Cfg        config.Config
	Log        *zap.Logger
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

// FileStore persists payment records as day-partitioned newline-delimited
// JSON files. Each record is one line written through O_APPEND behind a
// store mutex, so a crash or a concurrent delivery can never truncate or
// interleave previously committed records. Day files written by the old
// JSON-array format are still readable by scans.
type FileStore struct {
	dir        string
	log        *zap.Logger
	obsMetrics *obsmetrics.Metrics

	mu sync.Mutex
}

// Provide builds the store and creates the log directory. An uncreatable
// log directory aborts startup.
func Provide(p Params) (domain.Store, error) {
	dir := strings.TrimSpace(p.Cfg.PaymentLogDir)
	if dir == "" {
		dir = "./payment-logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create payment log dir %s: %w", dir, err)
	}

	return &FileStore{
		dir:        dir,
		log:        p.Log.Named("payment.store"),
		obsMetrics: p.ObsMetrics,
	}, nil
}

// NewFileStore builds a store rooted at dir, for tests.
func NewFileStore(dir string, log *zap.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create payment log dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Append writes one record to the day file matching its timestamp.
func (s *FileStore) Append(ctx context.Context, record *domain.PaymentRecord) error {
	if record == nil {
		return domain.ErrInvalidPayload
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal payment record: %w", err)
	}

	path := filepath.Join(s.dir, filePrefix+record.Timestamp.UTC().Format(dayFormat)+fileExt)

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		s.recordAppendFailure(ctx)
		return fmt.Errorf("open payment log %s: %w", path, err)
	}
	if _, err := f.Write(append(payload, '\n')); err != nil {
		_ = f.Close()
		s.recordAppendFailure(ctx)
		return fmt.Errorf("append payment log %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		s.recordAppendFailure(ctx)
		return fmt.Errorf("close payment log %s: %w", path, err)
	}

	return nil
}

// ScanAll reads every record from every day file, in file-enumeration order.
// Unreadable or corrupt files degrade to empty rather than failing the scan,
// so one bad day cannot blind queries to every other day.
func (s *FileStore) ScanAll(ctx context.Context) ([]domain.PaymentRecord, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read payment log dir %s: %w", s.dir, err)
	}

	var records []domain.PaymentRecord
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), filePrefix) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		switch {
		case strings.HasSuffix(entry.Name(), fileExt):
			records = append(records, s.readLines(ctx, path)...)
		case strings.HasSuffix(entry.Name(), legacyExt):
			records = append(records, s.readLegacyArray(ctx, path)...)
		}
	}

	return records, nil
}

func (s *FileStore) readLines(ctx context.Context, path string) []domain.PaymentRecord {
	f, err := os.Open(path)
	if err != nil {
		s.skipFile(ctx, path, "open", err)
		return nil
	}
	defer f.Close()

	var records []domain.PaymentRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var record domain.PaymentRecord
		if err := json.Unmarshal([]byte(text), &record); err != nil {
			s.log.Warn("skipping corrupt payment log line",
				zap.String("file", path),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		s.skipFile(ctx, path, "read", err)
	}
	return records
}

func (s *FileStore) readLegacyArray(ctx context.Context, path string) []domain.PaymentRecord {
	content, err := os.ReadFile(path)
	if err != nil {
		s.skipFile(ctx, path, "open", err)
		return nil
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return nil
	}

	var records []domain.PaymentRecord
	if err := json.Unmarshal(content, &records); err != nil {
		s.skipFile(ctx, path, "parse", err)
		return nil
	}
	return records
}

func (s *FileStore) skipFile(ctx context.Context, path, reason string, err error) {
	s.log.Warn("skipping unreadable payment log file",
		zap.String("file", path),
		zap.String("reason", reason),
		zap.Error(err),
	)
	if s.obsMetrics != nil {
		s.obsMetrics.RecordSkippedScanFile(ctx, reason)
	}
}

func (s *FileStore) recordAppendFailure(ctx context.Context) {
	if s.obsMetrics != nil {
		s.obsMetrics.RecordAppendFailure(ctx)
	}
}

