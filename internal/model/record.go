package model

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"time"
)

// Record field names as they appear on the wire and in change sets.
const (
	FieldUserID          = "user_id"
	FieldOpenID          = "open_id"
	FieldUnionID         = "union_id"
	FieldName            = "name"
	FieldEnName          = "en_name"
	FieldNickname        = "nickname"
	FieldEmail           = "email"
	FieldEnterpriseEmail = "enterprise_email"
	FieldMobile          = "mobile"
	FieldAvatar          = "avatar"
	FieldJobTitle        = "job_title"
	FieldEmployeeNo      = "employee_no"
	FieldDepartmentIDs   = "department_ids"
	FieldLeaderUserID    = "leader_user_id"
	FieldStatus          = "status"
	FieldIsTenantManager = "is_tenant_manager"
	FieldDepartments     = "departments"
	FieldMetadata        = "metadata"
)

var knownFields = map[string]struct{}{
	FieldUserID: {}, FieldOpenID: {}, FieldUnionID: {}, FieldName: {}, FieldEnName: {},
	FieldNickname: {}, FieldEmail: {}, FieldEnterpriseEmail: {}, FieldMobile: {},
	FieldAvatar: {}, FieldJobTitle: {}, FieldEmployeeNo: {}, FieldDepartmentIDs: {},
	FieldLeaderUserID: {}, FieldStatus: {}, FieldIsTenantManager: {}, FieldDepartments: {},
	FieldMetadata: {},
}

// UserStatus is the account state reported by the directory.
type UserStatus struct {
	IsFrozen    bool `json:"is_frozen"`
	IsResigned  bool `json:"is_resigned"`
	IsActivated bool `json:"is_activated"`
	IsExited    bool `json:"is_exited"`
	IsUnjoin    bool `json:"is_unjoin"`
}

// Department is a resolved department reference attached during processing.
type Department struct {
	ID   string `json:"department_id"`
	Name string `json:"name,omitempty"`
}

// RecordMetadata holds cache bookkeeping timestamps in unix seconds.
type RecordMetadata struct {
	LastSync   int64 `json:"last_sync,omitempty"`
	LastAccess int64 `json:"last_access,omitempty"`
}

// UserRecord is one directory entry. Empty strings and nil slices mean the
// field is absent. Keys the directory sends that have no named field are kept
// in Extra.
type UserRecord struct {
	UserID          string          `json:"user_id,omitempty"`
	OpenID          string          `json:"open_id,omitempty"`
	UnionID         string          `json:"union_id,omitempty"`
	Name            string          `json:"name,omitempty"`
	EnName          string          `json:"en_name,omitempty"`
	Nickname        string          `json:"nickname,omitempty"`
	Email           string          `json:"email,omitempty"`
	EnterpriseEmail string          `json:"enterprise_email,omitempty"`
	Mobile          string          `json:"mobile,omitempty"`
	Avatar          string          `json:"avatar,omitempty"`
	JobTitle        string          `json:"job_title,omitempty"`
	EmployeeNo      string          `json:"employee_no,omitempty"`
	DepartmentIDs   []string        `json:"department_ids,omitempty"`
	LeaderUserID    string          `json:"leader_user_id,omitempty"`
	Status          *UserStatus     `json:"status,omitempty"`
	IsTenantManager *bool           `json:"is_tenant_manager,omitempty"`
	Departments     []Department    `json:"departments,omitempty"`
	Metadata        *RecordMetadata `json:"metadata,omitempty"`

	Extra map[string]any `json:"-"`
}

// Field is one named value of a record.
type Field struct {
	Name  string
	Value any
}

type userRecordJSON UserRecord

// MarshalJSON encodes named fields and extras into one object.
func (r UserRecord) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(userRecordJSON(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return data, nil
	}

	merged := make(map[string]json.RawMessage, len(r.Extra)+len(knownFields))
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for name, value := range r.Extra {
		if _, known := knownFields[name]; known {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal extra field %q: %w", name, err)
		}
		merged[name] = raw
	}
	return json.Marshal(merged)
}

// UnmarshalJSON decodes named fields and keeps unknown keys in Extra.
func (r *UserRecord) UnmarshalJSON(data []byte) error {
	var decoded userRecordJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for name, value := range raw {
		if _, known := knownFields[name]; known {
			continue
		}
		var v any
		if err := json.Unmarshal(value, &v); err != nil {
			return fmt.Errorf("failed to unmarshal extra field %q: %w", name, err)
		}
		if decoded.Extra == nil {
			decoded.Extra = make(map[string]any)
		}
		decoded.Extra[name] = v
	}

	*r = UserRecord(decoded)
	return nil
}

// Fields returns the present content fields in a stable order: named fields in
// declaration order, then extras sorted by name. Metadata is bookkeeping and
// is not part of the content.
func (r *UserRecord) Fields() []Field {
	if r == nil {
		return nil
	}

	fields := make([]Field, 0, 16+len(r.Extra))
	addString := func(name, value string) {
		if value != "" {
			fields = append(fields, Field{Name: name, Value: value})
		}
	}

	addString(FieldUserID, r.UserID)
	addString(FieldOpenID, r.OpenID)
	addString(FieldUnionID, r.UnionID)
	addString(FieldName, r.Name)
	addString(FieldEnName, r.EnName)
	addString(FieldNickname, r.Nickname)
	addString(FieldEmail, r.Email)
	addString(FieldEnterpriseEmail, r.EnterpriseEmail)
	addString(FieldMobile, r.Mobile)
	addString(FieldAvatar, r.Avatar)
	addString(FieldJobTitle, r.JobTitle)
	addString(FieldEmployeeNo, r.EmployeeNo)
	if len(r.DepartmentIDs) > 0 {
		fields = append(fields, Field{Name: FieldDepartmentIDs, Value: slices.Clone(r.DepartmentIDs)})
	}
	addString(FieldLeaderUserID, r.LeaderUserID)
	if r.Status != nil {
		fields = append(fields, Field{Name: FieldStatus, Value: *r.Status})
	}
	if r.IsTenantManager != nil {
		fields = append(fields, Field{Name: FieldIsTenantManager, Value: *r.IsTenantManager})
	}
	if len(r.Departments) > 0 {
		fields = append(fields, Field{Name: FieldDepartments, Value: slices.Clone(r.Departments)})
	}

	for _, name := range slices.Sorted(maps.Keys(r.Extra)) {
		if _, known := knownFields[name]; known {
			continue
		}
		fields = append(fields, Field{Name: name, Value: r.Extra[name]})
	}

	return fields
}

// IdentifierFor returns the record's identifier in the given namespace.
func (r *UserRecord) IdentifierFor(idType IDType) string {
	switch idType {
	case IDTypeOpen:
		return r.OpenID
	case IDTypeUnion:
		return r.UnionID
	case IDTypeUser:
		return r.UserID
	case IDTypeEmail:
		return r.Email
	case IDTypeMobile:
		return r.Mobile
	default:
		return ""
	}
}

// LastActivity returns metadata.last_access, falling back to last_sync, or 0.
func (r *UserRecord) LastActivity() int64 {
	if r == nil || r.Metadata == nil {
		return 0
	}
	if r.Metadata.LastAccess != 0 {
		return r.Metadata.LastAccess
	}
	return r.Metadata.LastSync
}

// HasLastAccess reports whether the record carries metadata.last_access.
func (r *UserRecord) HasLastAccess() bool {
	return r != nil && r.Metadata != nil && r.Metadata.LastAccess != 0
}

// Touch stamps metadata.last_access.
func (r *UserRecord) Touch(now time.Time) {
	if r.Metadata == nil {
		r.Metadata = &RecordMetadata{}
	}
	r.Metadata.LastAccess = now.Unix()
}

// MarkSynced stamps metadata.last_sync and metadata.last_access.
func (r *UserRecord) MarkSynced(now time.Time) {
	if r.Metadata == nil {
		r.Metadata = &RecordMetadata{}
	}
	r.Metadata.LastSync = now.Unix()
	r.Metadata.LastAccess = now.Unix()
}

// Clone returns a deep copy of the record.
func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return nil
	}

	c := *r
	c.DepartmentIDs = slices.Clone(r.DepartmentIDs)
	c.Departments = slices.Clone(r.Departments)
	if r.Status != nil {
		status := *r.Status
		c.Status = &status
	}
	if r.IsTenantManager != nil {
		v := *r.IsTenantManager
		c.IsTenantManager = &v
	}
	if r.Metadata != nil {
		md := *r.Metadata
		c.Metadata = &md
	}
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = cloneValue(v)
		}
	}
	return &c
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = cloneValue(inner)
		}
		return m
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}
