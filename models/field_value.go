// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The tallyvault Authors

package models

import "encoding/json"

// FieldValue is the plaintext of one entity field: the raw domain value plus
// the write metadata that last-writer-wins resolution needs. It is embedded
// at write time by the editing device and travels inside the field's sealed
// envelope, so the metadata is covered by the same authentication tag as the
// value itself.
type FieldValue struct {
	// Raw is the domain value, opaque to the sync core. For a transaction's
	// "lines" field it is a JSON object of line-item id to [LineItem].
	Raw json.RawMessage `json:"raw"`

	// WriteTS is the device-local write time in Unix microseconds. Used only
	// to break concurrent-edit ties; causal ordering comes from the vector.
	WriteTS int64 `json:"write_ts"`

	// DeviceID is the device that wrote this value. Exact WriteTS ties break
	// by lexical order of DeviceID — arbitrary but stable on every replica.
	DeviceID string `json:"device_id"`
}

// LineItem is one row of a transaction's line-item list. Items merge by
// union over ID; concurrent edits to the same item recurse the scalar
// last-writer-wins rule onto the item's own field map.
type LineItem struct {
	ID     string                `json:"id"`
	Fields map[string]FieldValue `json:"fields"`
}

// LineItemMap is the decoded form of a transaction's "lines" field.
type LineItemMap map[string]LineItem

// DecodeLineItems parses a "lines" field value into a [LineItemMap].
func DecodeLineItems(v FieldValue) (LineItemMap, error) {
	lines := make(LineItemMap)
	if len(v.Raw) == 0 {
		return lines, nil
	}
	if err := json.Unmarshal(v.Raw, &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// EncodeLineItems serialises a line-item map back into a field value,
// carrying over the write metadata of the winning side.
func EncodeLineItems(lines LineItemMap, meta FieldValue) (FieldValue, error) {
	raw, err := json.Marshal(lines)
	if err != nil {
		return FieldValue{}, err
	}
	meta.Raw = raw
	return meta, nil
}
