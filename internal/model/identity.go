package model

import (
	"net/url"
	"strings"
)

// IDType selects the namespace a user identifier belongs to.
type IDType string

const (
	// IDTypeOpen is an application-scoped identifier.
	IDTypeOpen IDType = "open_id"
	// IDTypeUnion is a developer-scoped identifier shared across applications.
	IDTypeUnion IDType = "union_id"
	// IDTypeUser is the tenant-internal identifier.
	IDTypeUser IDType = "user_id"
	// IDTypeEmail identifies a user by email address.
	IDTypeEmail IDType = "email"
	// IDTypeMobile identifies a user by mobile number.
	IDTypeMobile IDType = "mobile"
)

// IDTypes lists every supported identifier type.
var IDTypes = []IDType{IDTypeOpen, IDTypeUnion, IDTypeUser, IDTypeEmail, IDTypeMobile}

// Validate returns ErrInvalidIDType when t is not a supported identifier type.
func (t IDType) Validate() error {
	switch t {
	case IDTypeOpen, IDTypeUnion, IDTypeUser, IDTypeEmail, IDTypeMobile:
		return nil
	default:
		return ErrInvalidIDType
	}
}

func (t IDType) String() string {
	return string(t)
}

// Key identifies a user record by identifier and identifier type.
type Key struct {
	ID   string
	Type IDType
}

// NewKey creates a Key.
func NewKey(id string, idType IDType) Key {
	return Key{ID: id, Type: idType}
}

// Validate checks that the key can be used for any I/O.
func (k Key) Validate() error {
	if err := k.Type.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(k.ID) == "" {
		return ErrEmptyID
	}
	return nil
}

// StorageKey renders the key for an external key/value store.
// The identifier is query-escaped so it never contains the ':' separator.
func (k Key) StorageKey(prefix string) string {
	return prefix + string(k.Type) + ":" + url.QueryEscape(k.ID)
}

func (k Key) String() string {
	return string(k.Type) + ":" + k.ID
}
