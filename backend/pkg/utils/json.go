package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ExtraDataAfterJSONError is returned when a payload contains trailing data
// after the first JSON value.
type ExtraDataAfterJSONError struct{}

func (e *ExtraDataAfterJSONError) Error() string {
	return "unexpected data after JSON value"
}

// ToJSON serializes v to compact JSON bytes without HTML escaping.
func ToJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToJSONStream(&buf, v); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONIndent serializes v to indented JSON bytes without HTML escaping.
func ToJSONIndent(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := ToJSONStreamIndent(&buf, v); err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// ToJSONStream writes v as JSON to w.
func ToJSONStream(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	return enc.Encode(v)
}

// ToJSONStreamIndent writes v as indented JSON to w.
func ToJSONStreamIndent(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(v)
}

// FromJSON decodes strict JSON from data. Unknown fields and trailing data
// are rejected. Empty input yields the zero value.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSON[T any](data []byte) (T, error) {
	var zero T

	if len(data) == 0 {
		return zero, nil
	}

	res, err := FromJSONStream[T](bytes.NewReader(data))
	if err != nil && errors.Is(err, io.EOF) {
		return zero, nil
	}

	return res, err
}

// FromJSONStream decodes strict JSON from r. Unknown fields and trailing
// data are rejected.
//
//nolint:ireturn // Generic functions must return type parameter T
func FromJSONStream[T any](r io.Reader) (T, error) {
	var res T

	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	if err := dec.Decode(&res); err != nil {
		return res, err
	}

	// A second decode must hit EOF, otherwise the body held more than one value.
	if err := dec.Decode(new(json.RawMessage)); !errors.Is(err, io.EOF) {
		var zero T

		return zero, &ExtraDataAfterJSONError{}
	}

	return res, nil
}
