// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"errors"
	"fmt"
)

// ErrInvalidSelector is returned when a LibrarySelector cannot address a library.
var ErrInvalidSelector = errors.New("invalid library selector")

// LibraryKind distinguishes personal libraries from shared group libraries.
type LibraryKind string

const (
	LibraryUser  LibraryKind = "user"
	LibraryGroup LibraryKind = "group"
)

// ParseLibraryKind accepts the singular and plural forms used by the
// remote API ("user", "users", "group", "groups").
func ParseLibraryKind(s string) (LibraryKind, error) {
	switch s {
	case "user", "users":
		return LibraryUser, nil
	case "group", "groups":
		return LibraryGroup, nil
	default:
		return "", fmt.Errorf("%w: unknown library type %q", ErrInvalidSelector, s)
	}
}

// LibrarySelector identifies the remote library and the credential used to
// read it. It is fixed for the duration of a run.
type LibrarySelector struct {
	ID     int64       `json:"id" yaml:"id"`
	Kind   LibraryKind `json:"kind" yaml:"kind"`
	APIKey string      `json:"-" yaml:"-"`
}

// Validate reports whether the selector is complete.
func (s LibrarySelector) Validate() error {
	if s.ID <= 0 {
		return fmt.Errorf("%w: library id must be positive, got %d", ErrInvalidSelector, s.ID)
	}
	if s.Kind != LibraryUser && s.Kind != LibraryGroup {
		return fmt.Errorf("%w: unknown library type %q", ErrInvalidSelector, s.Kind)
	}
	if s.APIKey == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidSelector)
	}
	return nil
}

// Prefix returns the URL path prefix for the library, e.g. "users/123".
func (s LibrarySelector) Prefix() string {
	return fmt.Sprintf("%ss/%d", s.Kind, s.ID)
}
