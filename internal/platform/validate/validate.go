// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package validate provides a chainable Validator that collects field-level
// errors before returning a single [apperr.AppError].
//
// # Architecture
//
// It is used at startup to reject a malformed configuration before any
// connection is opened. Handshake input (phone numbers, codes, passwords) is
// deliberately not validated here; the account provider rejects bad values itself.
package validate

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/taibuivan/newswizard/internal/platform/apperr"
)

// Validator collects field-level validation errors via a fluent, chainable API.
//
// # Concurrency
//
// Validator is not safe for concurrent use. A new instance must be created
// for every operation.
type Validator struct {
	errs []apperr.FieldError
}

// Required fails if the trimmed value is empty.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.add(field, "This field is required")
	}
	return v
}

// Positive fails if the value is zero or negative.
func (v *Validator) Positive(field string, value int) *Validator {
	if value <= 0 {
		v.add(field, "Must be a positive number")
	}
	return v
}

// Range fails if the value is outside the [min, max] range (inclusive).
func (v *Validator) Range(field string, value, min, max int) *Validator {
	if value < min || value > max {
		v.add(field, fmt.Sprintf("Must be between %d and %d", min, max))
	}
	return v
}

// MinDuration fails if the duration is shorter than min.
func (v *Validator) MinDuration(field string, value, min time.Duration) *Validator {
	if value < min {
		v.add(field, fmt.Sprintf("Must be at least %s", min))
	}
	return v
}

// URL fails if the value does not parse as an absolute URL with one of the schemes.
func (v *Validator) URL(field, value string, schemes ...string) *Validator {
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" {
		v.add(field, "Must be a valid URL")
		return v
	}
	if len(schemes) == 0 {
		return v
	}
	for _, scheme := range schemes {
		if parsed.Scheme == scheme {
			return v
		}
	}
	v.add(field, fmt.Sprintf("URL scheme must be one of: %s", strings.Join(schemes, ", ")))
	return v
}

// OneOf fails if the value is not in the allowed set of strings.
func (v *Validator) OneOf(field, value string, allowed ...string) *Validator {
	for _, a := range allowed {
		if value == a {
			return v
		}
	}
	v.add(field, fmt.Sprintf("Must be one of: %s", strings.Join(allowed, ", ")))
	return v
}

// Custom adds a failure with a custom message if the condition is true.
//
// # Example
//
//	v.Custom("SESSION_SECRET", len(secret) < 16, "Must be at least 16 characters")
func (v *Validator) Custom(field string, failed bool, message string) *Validator {
	if failed {
		v.add(field, message)
	}
	return v
}

// Err returns a [apperr.AppError] (VALIDATION_ERROR) if any rules failed,
// or nil if all rules passed.
//
// This is the only output method; call it at the end of the chain.
func (v *Validator) Err() error {
	if len(v.errs) == 0 {
		return nil
	}
	return apperr.ValidationError("Validation failed", v.errs...)
}

// HasErrors reports whether any validation rule has failed so far.
func (v *Validator) HasErrors() bool {
	return len(v.errs) > 0
}

// add appends a [apperr.FieldError] to the internal slice.
func (v *Validator) add(field, message string) {
	v.errs = append(v.errs, apperr.FieldError{Field: field, Message: message})
}
