package handler

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dtroode/dirsync/internal/model"
)

// request reads typed fields out of a Struct document.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(in *structpb.Struct) request {
	return request{fields: in.GetFields()}
}

func (r request) string(name string) (string, error) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", errBadRequest, name)
	}
	return s.StringValue, nil
}

func (r request) bool(name string) (bool, error) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return false, nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return false, fmt.Errorf("%w: %s must be a bool", errBadRequest, name)
	}
	return b.BoolValue, nil
}

func (r request) strings(name string) ([]string, error) {
	v, ok := r.fields[name]
	if !ok || v == nil {
		return nil, nil
	}
	list, ok := v.GetKind().(*structpb.Value_ListValue)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a list", errBadRequest, name)
	}

	values := make([]string, 0, len(list.ListValue.GetValues()))
	for i, item := range list.ListValue.GetValues() {
		s, ok := item.GetKind().(*structpb.Value_StringValue)
		if !ok {
			return nil, fmt.Errorf("%w: %s[%d] must be a string", errBadRequest, name, i)
		}
		values = append(values, s.StringValue)
	}
	return values, nil
}

// idType reads id_type; an absent value means user_id.
func (r request) idType() (model.IDType, error) {
	raw, err := r.string("id_type")
	if err != nil {
		return "", err
	}
	if raw == "" {
		return model.IDTypeUser, nil
	}
	idType := model.IDType(raw)
	if err := idType.Validate(); err != nil {
		return "", err
	}
	return idType, nil
}

// toStruct renders v through its JSON form so response documents use the same
// field names as the cache and the events.
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build response: %w", err)
	}
	return out, nil
}
