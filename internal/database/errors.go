package database

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// ErrNotFound is returned by the lookup helpers when no row matches
var ErrNotFound = errors.New("not found")

// ErrDatabaseExists is returned by Create when the target file is already present
var ErrDatabaseExists = errors.New("database file already exists")

// StoreError reports a failed query or statement against the catalog,
// including constraint violations such as duplicate titles or references
// to rows that do not exist.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ValidationError reports a form field that is missing or cannot be
// converted to the column type it is stored in
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Message)
}

// Fields is a submitted form flattened to the first value of each key
type Fields map[string]string

// FieldsFromForm keeps the first value of every key in values
func FieldsFromForm(values url.Values) Fields {
	fields := make(Fields, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[0]
		}
	}
	return fields
}

func (f Fields) required(key string) (string, error) {
	value, ok := f[key]
	if !ok {
		return "", &ValidationError{Field: key, Message: "missing"}
	}
	if strings.TrimSpace(value) == "" {
		return "", &ValidationError{Field: key, Message: "empty"}
	}
	return value, nil
}

func (f Fields) requiredInt(key string) (int, error) {
	value, err := f.required(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, &ValidationError{Field: key, Message: fmt.Sprintf("%q is not an integer", value)}
	}
	return n, nil
}

func (f Fields) requiredFloat(key string) (float64, error) {
	value, err := f.required(key)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, &ValidationError{Field: key, Message: fmt.Sprintf("%q is not a number", value)}
	}
	return n, nil
}

// optional returns nil for an absent or empty value so the column is stored as NULL
func (f Fields) optional(key string) any {
	value := f[key]
	if value == "" {
		return nil
	}
	return value
}
