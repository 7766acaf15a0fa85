package store

import (
	"context"
	"encoding/json"
	"sort"
	"time"
)

// Store persists answered queries so repeated requests can be served from
// the journal instead of being recomputed.
type Store interface {
	Close() error

	// SaveResult records an answered query. IDs are ULIDs, so sorting by ID
	// sorts by creation time.
	SaveResult(ctx context.Context, r Record) error

	// GetResult returns the record with the given ID.
	GetResult(ctx context.Context, id string) (Record, bool, error)

	// FindResult returns the newest record stored under key.
	FindResult(ctx context.Context, key string) (Record, bool, error)

	// ListResults returns up to limit records for a network, newest first.
	// An empty network lists every record.
	ListResults(ctx context.Context, network string, limit int) ([]Record, error)
}

// Record is one answered query
type Record struct {
	ID          string
	Key         string
	Network     string
	Fingerprint string
	Query       string
	Evidence    map[string]string
	Order       []string
	Outcomes    []Outcome
	CreatedAt   time.Time
}

// Outcome is one row of a recorded posterior
type Outcome struct {
	Value string
	Prob  float64
}

// ResultKey identifies a posterior. The elimination order is not part of
// the key: every valid order yields the same distribution. Names and values
// are JSON-encoded, so separators inside domain values cannot make two
// different queries collide.
func ResultKey(fingerprint, query string, evidence map[string]string) string {
	names := make([]string, 0, len(evidence))
	for name := range evidence {
		names = append(names, name)
	}
	sort.Strings(names)

	pairs := make([][2]string, len(names))
	for i, name := range names {
		pairs[i] = [2]string{name, evidence[name]}
	}

	key, _ := json.Marshal(struct {
		Network  string      `json:"n"`
		Query    string      `json:"q"`
		Evidence [][2]string `json:"e"`
	}{fingerprint, query, pairs})
	return string(key)
}

// Copy returns a deep copy of r.
func (r Record) Copy() Record {
	out := r
	if r.Evidence != nil {
		out.Evidence = make(map[string]string, len(r.Evidence))
		for k, v := range r.Evidence {
			out.Evidence[k] = v
		}
	}
	out.Order = append([]string(nil), r.Order...)
	out.Outcomes = append([]Outcome(nil), r.Outcomes...)
	return out
}
