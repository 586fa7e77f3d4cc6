package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRecord_JSONKeepsExtraFields(t *testing.T) {
	payload := []byte(`{
		"open_id": "ou_1",
		"name": "Alice",
		"department_ids": ["d1", "d2"],
		"status": {"is_activated": true},
		"is_tenant_manager": false,
		"custom_attrs": [{"id": "C-1", "value": "x"}],
		"city": "Berlin"
	}`)

	var record UserRecord
	require.NoError(t, json.Unmarshal(payload, &record))

	assert.Equal(t, "ou_1", record.OpenID)
	assert.Equal(t, "Alice", record.Name)
	assert.Equal(t, []string{"d1", "d2"}, record.DepartmentIDs)
	require.NotNil(t, record.Status)
	assert.True(t, record.Status.IsActivated)
	require.NotNil(t, record.IsTenantManager)
	assert.False(t, *record.IsTenantManager)
	assert.Equal(t, "Berlin", record.Extra["city"])
	assert.Len(t, record.Extra, 2)

	encoded, err := json.Marshal(record)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	assert.Equal(t, "Berlin", decoded["city"])
	assert.Equal(t, "ou_1", decoded["open_id"])
	assert.NotContains(t, decoded, "Extra")
}

func TestUserRecord_MarshalWithoutExtra(t *testing.T) {
	record := UserRecord{Name: "Bob"}

	encoded, err := json.Marshal(&record)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Bob"}`, string(encoded))
}

func TestUserRecord_Fields(t *testing.T) {
	record := &UserRecord{
		OpenID:          "ou_1",
		Name:            "Alice",
		Email:           "alice@example.com",
		IsTenantManager: Bool(true),
		Metadata:        &RecordMetadata{LastSync: 100},
		Extra:           map[string]any{"zeta": 1.0, "alpha": "a"},
	}

	fields := record.Fields()
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}

	assert.Equal(t, []string{"open_id", "name", "email", "is_tenant_manager", "alpha", "zeta"}, names)
	assert.Nil(t, (*UserRecord)(nil).Fields())
}

func TestUserRecord_Clone(t *testing.T) {
	original := &UserRecord{
		Name:          "Alice",
		DepartmentIDs: []string{"d1"},
		Status:        &UserStatus{IsActivated: true},
		Metadata:      &RecordMetadata{LastAccess: 5},
		Extra:         map[string]any{"nested": map[string]any{"k": "v"}},
	}

	clone := original.Clone()
	clone.DepartmentIDs[0] = "changed"
	clone.Status.IsActivated = false
	clone.Metadata.LastAccess = 6
	clone.Extra["nested"].(map[string]any)["k"] = "changed"

	assert.Equal(t, "d1", original.DepartmentIDs[0])
	assert.True(t, original.Status.IsActivated)
	assert.Equal(t, int64(5), original.Metadata.LastAccess)
	assert.Equal(t, "v", original.Extra["nested"].(map[string]any)["k"])
	assert.Nil(t, (*UserRecord)(nil).Clone())
}

func TestUserRecord_LastActivity(t *testing.T) {
	assert.Equal(t, int64(0), (&UserRecord{}).LastActivity())
	assert.Equal(t, int64(10), (&UserRecord{Metadata: &RecordMetadata{LastSync: 10}}).LastActivity())
	assert.Equal(t, int64(20), (&UserRecord{Metadata: &RecordMetadata{LastSync: 10, LastAccess: 20}}).LastActivity())

	record := &UserRecord{}
	now := time.Unix(1700000000, 0)
	record.MarkSynced(now)
	assert.Equal(t, now.Unix(), record.Metadata.LastSync)
	assert.True(t, record.HasLastAccess())
}

func TestUserRecord_IdentifierFor(t *testing.T) {
	record := &UserRecord{UserID: "u", OpenID: "o", UnionID: "n", Email: "e@x", Mobile: "+1"}

	assert.Equal(t, "u", record.IdentifierFor(IDTypeUser))
	assert.Equal(t, "o", record.IdentifierFor(IDTypeOpen))
	assert.Equal(t, "n", record.IdentifierFor(IDTypeUnion))
	assert.Equal(t, "e@x", record.IdentifierFor(IDTypeEmail))
	assert.Equal(t, "+1", record.IdentifierFor(IDTypeMobile))
	assert.Empty(t, record.IdentifierFor(IDType("bogus")))
}

func TestKey(t *testing.T) {
	assert.NoError(t, NewKey("ou_1", IDTypeOpen).Validate())
	assert.ErrorIs(t, NewKey("ou_1", IDType("nope")).Validate(), ErrInvalidIDType)
	assert.ErrorIs(t, NewKey("  ", IDTypeOpen).Validate(), ErrEmptyID)

	// Same literal identifier in different namespaces must not collide.
	assert.NotEqual(t, NewKey("x", IDTypeOpen), NewKey("x", IDTypeUnion))
	assert.NotEqual(t,
		NewKey("a:b", IDTypeEmail).StorageKey("p:"),
		NewKey("a", IDTypeEmail).StorageKey("p:")+":b",
	)
	assert.Equal(t, "p:email:a%40b.com", NewKey("a@b.com", IDTypeEmail).StorageKey("p:"))
}

func TestSyncError(t *testing.T) {
	cause := ErrUserNotFoundUpstream
	err := NewSyncError("sync user", NewKey("ou_1", IDTypeOpen), cause)

	assert.ErrorIs(t, err, ErrUserNotFoundUpstream)
	assert.Equal(t, "sync user open_id ou_1: user not found upstream", err.Error())
}
