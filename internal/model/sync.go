package model

import (
	"context"
	"time"
)

// DefaultSyncInterval is the minimum age of a successful sync before a
// non-forced sync hits the directory again.
const DefaultSyncInterval = 300 * time.Second

// DefaultChunkSize is the number of identifiers fetched per directory call.
const DefaultChunkSize = 100

// FieldChange is the old and new value of one field. A missing field is nil.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// ChangeSet lists changed fields in a deterministic order.
type ChangeSet []FieldChange

// IsEmpty reports whether no field changed.
func (c ChangeSet) IsEmpty() bool {
	return len(c) == 0
}

// Fields returns the names of the changed fields.
func (c ChangeSet) Fields() []string {
	names := make([]string, 0, len(c))
	for _, change := range c {
		names = append(names, change.Field)
	}
	return names
}

// Get returns the change for a field.
func (c ChangeSet) Get(field string) (FieldChange, bool) {
	for _, change := range c {
		if change.Field == field {
			return change, true
		}
	}
	return FieldChange{}, false
}

// ChangeSummary describes a diff for logging and events.
type ChangeSummary struct {
	HasChanges      bool     `json:"has_changes"`
	ChangedFields   []string `json:"changed_fields"`
	CriticalChanges []string `json:"critical_changes"`
}

// BatchResult partitions the identifiers of one batch call.
type BatchResult struct {
	Success map[string]*UserRecord `json:"success"`
	Failed  []string               `json:"failed"`
	Skipped []string               `json:"skipped"`
	// Errors holds a failure reason per failed identifier.
	Errors map[string]string `json:"errors,omitempty"`
}

// BatchSummary is aggregate statistics of a BatchResult.
type BatchSummary struct {
	Total       int     `json:"total"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"success_rate"`
}

// FilterResult splits candidates by staleness.
type FilterResult struct {
	ToSync  []string
	Skipped []string
}

// MemberPage is one page of a department member listing.
type MemberPage struct {
	Items         []*UserRecord
	HasMore       bool
	NextPageToken string
}

// UserSource is the remote directory.
type UserSource interface {
	FetchOne(ctx context.Context, id string, idType IDType) (*UserRecord, error)
	// FetchMany returns the records the directory knows. Identifiers absent
	// from the result are unknown upstream.
	FetchMany(ctx context.Context, ids []string, idType IDType) (map[string]*UserRecord, error)
	FetchDepartmentMembers(ctx context.Context, departmentID string, idType IDType, pageToken string) (MemberPage, error)
}

// DepartmentResolver resolves a department identifier to its details.
type DepartmentResolver interface {
	ResolveDepartment(ctx context.Context, departmentID string) (Department, error)
}

// KVStore is the persistent cache tier. Get reports a miss with found=false.
type KVStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
