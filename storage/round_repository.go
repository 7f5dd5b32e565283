package storage

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agora-sim/agora/core"
)

// RoundRepository persists round records and run summaries keyed by run.
type RoundRepository struct {
	db Store
}

func NewRoundRepository(db Store) *RoundRepository {
	return &RoundRepository{db: db}
}

func roundKey(runID, recordID string) string {
	return fmt.Sprintf("round:%s:%s", runID, recordID)
}

// SaveRecord persists one settled round record.
func (r *RoundRepository) SaveRecord(rec *core.RoundRecord) error {
	if rec.ID == "" || rec.RunID == "" {
		return fmt.Errorf("round record missing id or run id")
	}
	return r.db.PutObject(roundKey(rec.RunID, rec.ID), rec)
}

// GetRecord retrieves a single round record.
func (r *RoundRepository) GetRecord(runID, recordID string) (*core.RoundRecord, error) {
	var rec core.RoundRecord
	if err := r.db.GetObject(roundKey(runID, recordID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetRecords retrieves every record of a run, ordered by settlement time.
func (r *RoundRepository) GetRecords(runID string) ([]*core.RoundRecord, error) {
	data, err := r.db.GetByPrefix(fmt.Sprintf("round:%s:", runID))
	if err != nil {
		return nil, err
	}

	records := make([]*core.RoundRecord, 0, len(data))
	for _, v := range data {
		var rec core.RoundRecord
		if err := json.Unmarshal(v, &rec); err != nil {
			continue // Skip invalid entries
		}
		records = append(records, &rec)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	return records, nil
}

// SaveSummary persists the run-level summary object.
func (r *RoundRepository) SaveSummary(runID string, summary interface{}) error {
	return r.db.PutObject("run:"+runID, summary)
}

// GetSummary loads the run-level summary into the given object.
func (r *RoundRepository) GetSummary(runID string, summary interface{}) error {
	return r.db.GetObject("run:"+runID, summary)
}

// RunIDs lists every run that has a stored summary.
func (r *RoundRepository) RunIDs() ([]string, error) {
	data, err := r.db.GetByPrefix("run:")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(data))
	for k := range data {
		ids = append(ids, k[len("run:"):])
	}
	sort.Strings(ids)
	return ids, nil
}

// DeleteRun removes a run's summary and all of its round records.
func (r *RoundRepository) DeleteRun(runID string) error {
	if err := r.db.Delete("run:" + runID); err != nil {
		return err
	}
	return r.db.DeleteByPrefix(fmt.Sprintf("round:%s:", runID))
}
