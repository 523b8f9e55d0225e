package learning

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
)

// Repository is the durable store for learning records.
type Repository interface {
	// RecordOutcome applies one accept/reject outcome atomically.
	RecordOutcome(ctx context.Context, sourceField, targetField, manufacturer string, accepted bool) error

	// ListByManufacturer returns all records for a manufacturer, used as a
	// scoring snapshot for one mapping run.
	ListByManufacturer(ctx context.Context, manufacturer string) ([]LearningRecord, error)
}

const schema = `
CREATE TABLE IF NOT EXISTS learning_records (
	source_field  TEXT        NOT NULL,
	target_field  TEXT        NOT NULL,
	manufacturer  TEXT        NOT NULL,
	usage_count   INTEGER     NOT NULL DEFAULT 0,
	success_count INTEGER     NOT NULL DEFAULT 0,
	confidence    DOUBLE PRECISION NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (source_field, target_field, manufacturer)
)`

// The whole outcome update is a single upsert so concurrent recordings for
// the same pair cannot lose increments to a read-modify-write race.
const recordOutcomeQuery = `
INSERT INTO learning_records
	(source_field, target_field, manufacturer, usage_count, success_count, confidence, updated_at)
VALUES
	($1, $2, $3, 1, CASE WHEN $4 THEN 1 ELSE 0 END, $5, now())
ON CONFLICT (source_field, target_field, manufacturer) DO UPDATE SET
	usage_count   = learning_records.usage_count + 1,
	success_count = learning_records.success_count + CASE WHEN $4 THEN 1 ELSE 0 END,
	confidence    = CASE WHEN $4
		THEN LEAST(learning_records.confidence * $6, $7)
		ELSE GREATEST(learning_records.confidence * $8, $9)
	END,
	updated_at    = now()`

// SQLRepository stores learning records in Postgres via sqlx.
type SQLRepository struct {
	db  *sqlx.DB
	cfg Config
	log zerolog.Logger
}

// NewSQLRepository creates the Postgres-backed repository and ensures the
// schema exists.
func NewSQLRepository(db *sqlx.DB, cfg Config, log zerolog.Logger) (*SQLRepository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to ensure learning schema: %w", err)
	}
	return &SQLRepository{
		db:  db,
		cfg: cfg,
		log: log.With().Str("component", "learning_repository").Logger(),
	}, nil
}

func (r *SQLRepository) RecordOutcome(ctx context.Context, sourceField, targetField, manufacturer string, accepted bool) error {
	initial := r.cfg.InitialConfidence
	if accepted {
		initial = min(initial*r.cfg.BoostFactor, r.cfg.MaxConfidence)
	} else {
		initial = max(initial*r.cfg.DecayFactor, r.cfg.DecayFloor)
	}

	_, err := r.db.ExecContext(ctx, recordOutcomeQuery,
		sourceField, targetField, manufacturer, accepted,
		initial,
		r.cfg.BoostFactor, r.cfg.MaxConfidence,
		r.cfg.DecayFactor, r.cfg.DecayFloor,
	)
	if err != nil {
		return fmt.Errorf("failed to record mapping outcome: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListByManufacturer(ctx context.Context, manufacturer string) ([]LearningRecord, error) {
	var records []LearningRecord
	err := r.db.SelectContext(ctx, &records,
		`SELECT source_field, target_field, manufacturer, usage_count, success_count, confidence, updated_at
		 FROM learning_records WHERE manufacturer = $1`, manufacturer)
	if err != nil {
		return nil, fmt.Errorf("failed to load learning records: %w", err)
	}
	return records, nil
}

// MemoryRepository keeps learning records in process memory. Used in tests
// and in deployments without a database; semantics match SQLRepository.
type MemoryRepository struct {
	cfg     Config
	mu      sync.Mutex
	records map[string]*LearningRecord
}

// NewMemoryRepository creates the in-memory repository.
func NewMemoryRepository(cfg Config) *MemoryRepository {
	return &MemoryRepository{
		cfg:     cfg,
		records: make(map[string]*LearningRecord),
	}
}

func recordKey(sourceField, targetField, manufacturer string) string {
	return sourceField + "\x00" + targetField + "\x00" + manufacturer
}

func (r *MemoryRepository) RecordOutcome(_ context.Context, sourceField, targetField, manufacturer string, accepted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := recordKey(sourceField, targetField, manufacturer)
	record, exists := r.records[key]
	if !exists {
		record = &LearningRecord{
			SourceField:  sourceField,
			TargetField:  targetField,
			Manufacturer: manufacturer,
			Confidence:   r.cfg.InitialConfidence,
		}
		r.records[key] = record
	}

	record.UsageCount++
	if accepted {
		record.SuccessCount++
		record.Confidence = min(record.Confidence*r.cfg.BoostFactor, r.cfg.MaxConfidence)
	} else {
		record.Confidence = max(record.Confidence*r.cfg.DecayFactor, r.cfg.DecayFloor)
	}
	record.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) ListByManufacturer(_ context.Context, manufacturer string) ([]LearningRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]LearningRecord, 0)
	for _, record := range r.records {
		if record.Manufacturer == manufacturer {
			records = append(records, *record)
		}
	}
	return records, nil
}
