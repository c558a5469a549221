package model

import (
	"errors"
	"fmt"
)

// Sentinel kinds for pipeline errors. Typed errors below match them with errors.Is.
var (
	ErrDataQuality   = errors.New("data quality error")
	ErrConfiguration = errors.New("configuration error")
)

// DataQualityError reports an unparseable or structurally invalid input field.
type DataQualityError struct {
	Field    string
	RecordID string
	Value    string
	Err      error
}

// NewDataQualityError builds a DataQualityError for field on record id.
func NewDataQualityError(field, recordID, value string, err error) *DataQualityError {
	return &DataQualityError{Field: field, RecordID: recordID, Value: value, Err: err}
}

func (e *DataQualityError) Error() string {
	msg := fmt.Sprintf("data quality: field %q of record %q", e.Field, e.RecordID)
	if e.Value != "" {
		msg += fmt.Sprintf(" (value %q)", e.Value)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataQualityError) Unwrap() error { return e.Err }

// Is reports ErrDataQuality as a match.
func (e *DataQualityError) Is(target error) bool { return target == ErrDataQuality }

// ConfigurationError reports an out-of-range configuration value.
type ConfigurationError struct {
	Field  string
	Reason string
}

// NewConfigurationError builds a ConfigurationError.
func NewConfigurationError(field, format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Is reports ErrConfiguration as a match.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }
