// Package services contains the server-side business logic of the mailroom
// service: the custody state machine and the append-only activity audit log.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dputra/mailroom/internal/server/models"
	"github.com/dputra/mailroom/internal/server/repositories/kv"
)

const auditKeyPrefix = "audit:"

// AuditFilter narrows List output. All filtering happens in memory over the
// full projection; the store only provides the prefix scan.
type AuditFilter struct {
	Actor  string
	Action string
	Query  string
}

// AuditService is the only writer of audit records. Records are immutable
// once written; no update or delete operation exists.
type AuditService struct {
	kv  kv.Repository
	now func() time.Time
}

// NewAuditService builds an audit log over the given key-value store.
func NewAuditService(repo kv.Repository) *AuditService {
	return &AuditService{kv: repo, now: time.Now}
}

// Append persists a new audit record under a sortable timestamp key.
// It fails only on underlying store failure, which is propagated.
func (s *AuditService) Append(ctx context.Context, actor, action, subjectSummary string) error {
	ts := s.now().UTC()

	record := models.AuditRecord{
		Timestamp:      ts.Format(time.RFC3339Nano),
		Actor:          actor,
		Action:         action,
		SubjectSummary: subjectSummary,
	}

	// Zero-padded nanoseconds keep keys sortable by creation time; the
	// uuid suffix keeps keys unique when two appends land on one tick.
	key := fmt.Sprintf("%s%020d-%s", auditKeyPrefix, ts.UnixNano(), uuid.New().String()[:8])

	if err := s.kv.Set(ctx, key, record); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	return nil
}

// List returns all audit records sorted descending by timestamp, optionally
// narrowed by filter.
func (s *AuditService) List(ctx context.Context, filter AuditFilter) ([]models.AuditRecord, error) {
	raw, err := s.kv.GetByPrefix(ctx, auditKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}

	records := make([]models.AuditRecord, 0, len(raw))
	for _, data := range raw {
		var rec models.AuditRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, fmt.Errorf("decode audit record: %w", err)
		}
		if matchesFilter(rec, filter) {
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		ti, errI := time.Parse(time.RFC3339Nano, records[i].Timestamp)
		tj, errJ := time.Parse(time.RFC3339Nano, records[j].Timestamp)
		if errI != nil || errJ != nil {
			return records[i].Timestamp > records[j].Timestamp
		}
		return ti.After(tj)
	})

	return records, nil
}

func matchesFilter(rec models.AuditRecord, f AuditFilter) bool {
	if f.Actor != "" && rec.Actor != f.Actor {
		return false
	}
	if f.Action != "" && rec.Action != f.Action {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(rec.SubjectSummary), strings.ToLower(f.Query)) {
		return false
	}
	return true
}
