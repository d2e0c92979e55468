// Package recovery implements knowledge-based account recovery: a weighted
// catalog of verifiable profile fields, type-aware fuzzy answer matching,
// score accumulation and the per-identity attempt window.
package recovery

import (
	"errors"
	"time"

	"github.com/atinyakov/GophIntake/internal/models"
)

// Kind selects the comparison rule for a verifiable field.
type Kind int

const (
	// KindText compares case-insensitively by substring in either direction.
	KindText Kind = iota
	// KindURL strips protocol, www., @ and trailing slashes before comparing.
	KindURL
	// KindPhone compares digit-only suffixes.
	KindPhone
)

// Entry describes one verifiable field.
type Entry struct {
	Field  models.Field
	Label  string
	Weight int
	Kind   Kind
}

// Catalog is ordered by descending weight so the first prompt is stable.
var Catalog = []Entry{
	{Field: models.FieldGitHub, Label: "GitHub profile", Weight: 3, Kind: KindURL},
	{Field: models.FieldLinkedIn, Label: "LinkedIn profile", Weight: 3, Kind: KindURL},
	{Field: models.FieldPortfolio, Label: "portfolio URL", Weight: 3, Kind: KindURL},
	{Field: models.FieldWhatsApp, Label: "WhatsApp number", Weight: 2, Kind: KindPhone},
	{Field: models.FieldName, Label: "name", Weight: 1, Kind: KindText},
	{Field: models.FieldEngineeringArea, Label: "engineering area", Weight: 1, Kind: KindText},
}

// Lookup returns the catalog entry for f.
func Lookup(f models.Field) (Entry, bool) {
	for _, e := range Catalog {
		if e.Field == f {
			return e, true
		}
	}
	return Entry{}, false
}

// Policy holds the tunable recovery constants.
type Policy struct {
	// MinScore is the weighted score that proves identity.
	MinScore int
	// MaxInitiations is how many recoveries may start per Window.
	MaxInitiations int
	// Window is the rate-limit window for initiations.
	Window time.Duration
	// MaxFailures locks a recovery after this many wrong answers.
	MaxFailures int
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		MinScore:       5,
		MaxInitiations: 5,
		Window:         time.Hour,
		MaxFailures:    5,
	}
}

// Validate rejects a policy under which recovery proves nothing or never
// admits an attempt.
func (pol Policy) Validate() error {
	var errs []error
	if pol.MinScore <= 0 {
		errs = append(errs, errors.New("minimum verification score must be positive"))
	}
	if pol.MaxInitiations <= 0 {
		errs = append(errs, errors.New("recovery max attempts must be positive"))
	}
	if pol.MaxFailures <= 0 {
		errs = append(errs, errors.New("recovery max failures must be positive"))
	}
	if pol.Window <= 0 {
		errs = append(errs, errors.New("recovery window must be positive"))
	}
	return errors.Join(errs...)
}
