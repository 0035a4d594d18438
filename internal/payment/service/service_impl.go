package service

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/blessingsjourney/payhook/internal/clock"
	obsmetrics "github.com/blessingsjourney/payhook/internal/observability/metrics"
	"github.com/blessingsjourney/payhook/internal/payment/adapters/payhip"
	"github.com/blessingsjourney/payhook/internal/payment/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Store      domain.Store
	Clock      clock.Clock
	GenID      *snowflake.Node
	Adapter    *payhip.Adapter
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	store      domain.Store
	clock      clock.Clock
	genID      *snowflake.Node
	adapter    *payhip.Adapter
	obsMetrics *obsmetrics.Metrics

	// mu serializes ingestion so the dedupe check and the append are atomic
	// with respect to concurrent webhook deliveries.
	mu         sync.Mutex
	indexReady bool
	byTxID     map[string]domain.PaymentRecord
}

func NewService(p Params) domain.Service {
	return &Service{
		log:        p.Log.Named("payment.service"),
		store:      p.Store,
		clock:      p.Clock,
		genID:      p.GenID,
		adapter:    p.Adapter,
		obsMetrics: p.ObsMetrics,
		byTxID:     make(map[string]domain.PaymentRecord),
	}
}

// Ingest classifies one webhook payload and appends qualifying sales to the
// log. Transaction ids act as the idempotency key: a redelivered sale
// returns the record stored for the first delivery instead of appending a
// second one.
func (s *Service) Ingest(ctx context.Context, payload []byte) (domain.IngestResponse, error) {
	sale, err := s.adapter.Parse(ctx, payload)
	if err != nil {
		if err == domain.ErrEventIgnored {
			eventType := probeEvent(payload)
			s.log.Info("non-sale event acknowledged", zap.String("event", eventType))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordIgnoredEvent(ctx, eventType)
			}
		}
		return domain.IngestResponse{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.hydrateIndex(ctx); err != nil {
		return domain.IngestResponse{}, err
	}

	txID := strings.TrimSpace(sale.TransactionID)
	if txID != "" {
		if existing, ok := s.byTxID[txID]; ok {
			s.log.Info("duplicate webhook delivery ignored", zap.String("transaction_id", txID))
			if s.obsMetrics != nil {
				s.obsMetrics.RecordDuplicateEvent(ctx)
			}
			return domain.IngestResponse{Record: existing, Duplicate: true}, nil
		}
	}

	record := sale.Record()
	record.ID = s.genID.Generate()
	record.Timestamp = s.clock.Now().UTC()

	if err := s.store.Append(ctx, &record); err != nil {
		s.log.Error("payment append failed",
			zap.String("transaction_id", txID),
			zap.Error(err),
		)
		return domain.IngestResponse{}, err
	}

	if txID != "" {
		s.byTxID[txID] = record
	}
	if s.obsMetrics != nil {
		s.obsMetrics.RecordPayment(ctx, sale.Event)
	}
	s.log.Info("payment logged",
		zap.String("transaction_id", txID),
		zap.String("product", record.ProductName),
		zap.Float64("amount", record.Amount),
		zap.String("currency", record.Currency),
	)

	return domain.IngestResponse{Record: record}, nil
}

func (s *Service) FindByTransactionID(ctx context.Context, transactionID string) (domain.PaymentRecord, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return domain.PaymentRecord{}, domain.ErrNotFound
	}

	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return domain.PaymentRecord{}, err
	}

	// first match wins when a transaction id occurs more than once
	for _, record := range records {
		if record.TransactionID == transactionID {
			return record, nil
		}
	}
	return domain.PaymentRecord{}, domain.ErrNotFound
}

func (s *Service) List(ctx context.Context) (domain.ListResponse, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return domain.ListResponse{}, err
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if records == nil {
		records = []domain.PaymentRecord{}
	}
	return domain.ListResponse{Total: len(records), Payments: records}, nil
}

func (s *Service) Stats(ctx context.Context) (domain.StatsResponse, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return domain.StatsResponse{}, err
	}

	var totalRevenue float64
	byProduct := make(map[string]domain.ProductStat)
	var last *domain.PaymentRecord

	for i := range records {
		record := records[i]
		totalRevenue += record.Amount

		name := record.ProductName
		if strings.TrimSpace(name) == "" {
			name = "Unknown"
		}
		stat := byProduct[name]
		stat.Count++
		stat.Revenue += record.Amount
		byProduct[name] = stat

		if last == nil || record.Timestamp.After(last.Timestamp) {
			last = &records[i]
		}
	}

	return domain.StatsResponse{
		TotalRevenue:      strconv.FormatFloat(totalRevenue, 'f', 2, 64),
		TotalTransactions: len(records),
		ByProduct:         byProduct,
		LastPayment:       last,
	}, nil
}

// hydrateIndex loads the transaction-id index from the log on first use.
// Callers must hold mu.
func (s *Service) hydrateIndex(ctx context.Context) error {
	if s.indexReady {
		return nil
	}

	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return err
	}
	for _, record := range records {
		txID := strings.TrimSpace(record.TransactionID)
		if txID == "" {
			continue
		}
		if _, ok := s.byTxID[txID]; ok {
			continue
		}
		s.byTxID[txID] = record
	}

	s.indexReady = true
	s.log.Info("transaction index hydrated", zap.Int("transactions", len(s.byTxID)))
	return nil
}

func probeEvent(payload []byte) string {
	var probe struct {
		Event string `json:"event"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return strings.TrimSpace(probe.Event)
}
