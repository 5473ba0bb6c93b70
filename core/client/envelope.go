package client

import (
	"bytes"
	"encoding/json"
	"reflect"
)

// collectionKeys are the hypermedia envelope keys under which collection
// members arrive, checked in order.
var collectionKeys = []string{"hydra:member", "member"}

// decodeEnvelope flattens any of the accepted response body shapes into
// out: a hypermedia collection envelope (its member list is extracted),
// a single hypermedia entity envelope (extra @-keys are ignored by the
// target struct), or a bare JSON array/object (decoded as-is). Callers
// never see a shape-specific wrapper.
func decodeEnvelope(data []byte, out any) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	// Bare arrays and scalars decode directly.
	if trimmed[0] != '{' {
		return json.Unmarshal(trimmed, out)
	}

	if wantsList(out) {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return err
		}
		for _, key := range collectionKeys {
			if member, ok := envelope[key]; ok {
				return json.Unmarshal(member, out)
			}
		}
	}

	// Entity envelopes and bare objects pass through.
	return json.Unmarshal(trimmed, out)
}

// wantsList reports whether out decodes into a slice, i.e. the caller
// expects collection members rather than a single entity.
func wantsList(out any) bool {
	v := reflect.ValueOf(out)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return false
	}
	kind := v.Elem().Kind()
	return kind == reflect.Slice || kind == reflect.Array
}
