package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyUserID  = errors.New("user ID cannot be empty")
	ErrEmptyEmail   = errors.New("email cannot be empty")
	ErrInvalidEmail = errors.New("invalid email format")
	ErrEmptyOrgID   = errors.New("org ID cannot be empty")
	ErrEmptyOrgName = errors.New("org name cannot be empty")
)

// User is an account which acts on behalf of an org through the API. Every
// entity created through a write serializer records the user in its
// created_by/modified_by columns.
type User struct {
	ID        UserID    `json:"id"`
	Email     string    `json:"email"`
	IsActive  bool      `json:"is_active"`
	CreatedOn time.Time `json:"created_on"`
}

// Validate checks if the User has valid data.
func (u *User) Validate() error {
	if u.ID == NilUserID {
		return ErrEmptyUserID
	}
	if u.Email == "" {
		return ErrEmptyEmail
	}
	if !strings.Contains(u.Email, "@") {
		return ErrInvalidEmail
	}
	return nil
}

// Org is the tenant boundary. Nearly every query is scoped to one.
type Org struct {
	ID              OrgID     `json:"id"`
	Name            string    `json:"name"`
	IsAnon          bool      `json:"is_anon"`
	IsSuspended     bool      `json:"is_suspended"`
	PrimaryLanguage string    `json:"primary_language"`
	Languages       []string  `json:"languages"`
	Country         string    `json:"country"`
	CreatedOn       time.Time `json:"created_on"`
}

// Validate checks if the Org has valid data.
func (o *Org) Validate() error {
	if o.ID == NilOrgID {
		return ErrEmptyOrgID
	}
	if strings.TrimSpace(o.Name) == "" {
		return ErrEmptyOrgName
	}
	return nil
}

// HasLanguage reports whether iso639-3 code lang is enabled for the org.
func (o *Org) HasLanguage(lang string) bool {
	if lang == "" {
		return false
	}
	for _, l := range o.Languages {
		if l == lang {
			return true
		}
	}
	return false
}
