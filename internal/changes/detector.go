// Package changes computes field-level differences between user records.
package changes

import (
	"reflect"

	"github.com/dtroode/dirsync/internal/model"
)

// KeyFields are the fields whose change is organizationally significant.
var KeyFields = []string{
	model.FieldName,
	model.FieldEnName,
	model.FieldEmail,
	model.FieldMobile,
	model.FieldStatus,
	model.FieldDepartmentIDs,
	model.FieldLeaderUserID,
	model.FieldIsTenantManager,
}

var keyFieldSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(KeyFields))
	for _, f := range KeyFields {
		set[f] = struct{}{}
	}
	return set
}()

// IsKeyField reports whether field belongs to KeyFields.
func IsKeyField(field string) bool {
	_, ok := keyFieldSet[field]
	return ok
}

// Detector compares user records. It is stateless.
type Detector struct{}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// DetectChanges returns every field whose value differs between old and new.
// A field present on one side only is compared against nil. Fields of old come
// first in their order, followed by fields only new has.
func (d *Detector) DetectChanges(oldRecord, newRecord *model.UserRecord) model.ChangeSet {
	oldFields := oldRecord.Fields()
	newFields := newRecord.Fields()

	newValues := make(map[string]any, len(newFields))
	for _, f := range newFields {
		newValues[f.Name] = f.Value
	}

	var changes model.ChangeSet
	seen := make(map[string]struct{}, len(oldFields))
	for _, f := range oldFields {
		seen[f.Name] = struct{}{}
		newValue := newValues[f.Name]
		if !reflect.DeepEqual(f.Value, newValue) {
			changes = append(changes, model.FieldChange{Field: f.Name, Old: f.Value, New: newValue})
		}
	}
	for _, f := range newFields {
		if _, ok := seen[f.Name]; ok {
			continue
		}
		if f.Value != nil {
			changes = append(changes, model.FieldChange{Field: f.Name, Old: nil, New: f.Value})
		}
	}

	return changes
}

// HasChanges reports whether any key field differs. A nil old record means
// there is nothing to compare against and yields false.
func (d *Detector) HasChanges(oldRecord, newRecord *model.UserRecord) bool {
	if oldRecord == nil {
		return false
	}

	for _, change := range d.DetectChanges(oldRecord, newRecord) {
		if IsKeyField(change.Field) {
			return true
		}
	}
	return false
}

// ShouldDispatchUpdateEvent reports whether an update event is warranted:
// any field difference counts, not only key fields.
func (d *Detector) ShouldDispatchUpdateEvent(oldRecord, newRecord *model.UserRecord) bool {
	if oldRecord == nil {
		return false
	}
	return !d.DetectChanges(oldRecord, newRecord).IsEmpty()
}

// GetChangeSummary lists changed fields and the key fields among them.
func (d *Detector) GetChangeSummary(oldRecord, newRecord *model.UserRecord) model.ChangeSummary {
	changes := d.DetectChanges(oldRecord, newRecord)

	summary := model.ChangeSummary{
		HasChanges:      !changes.IsEmpty(),
		ChangedFields:   changes.Fields(),
		CriticalChanges: make([]string, 0),
	}
	for _, field := range summary.ChangedFields {
		if IsKeyField(field) {
			summary.CriticalChanges = append(summary.CriticalChanges, field)
		}
	}
	return summary
}
