package recovery

import (
	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
)

// Available returns the catalog entries that p can be verified against.
// Skipped (N/A) and blank answers are not available.
func Available(p models.Profile) []Entry {
	var out []Entry
	for _, e := range Catalog {
		if p.Has(e.Field) {
			out = append(out, e)
		}
	}
	return out
}

// TotalPossible sums the weights of every available field.
func TotalPossible(p models.Profile) int {
	total := 0
	for _, e := range Available(p) {
		total += e.Weight
	}
	return total
}

// Begin starts a recovery for the identity whose stored profile is p.
// Feasible is false when even a perfect run cannot reach the minimum score.
func (pol Policy) Begin(email, targetSessionID string, p models.Profile) *models.PendingRecovery {
	total := 0
	available := []models.Field{}
	for _, e := range Available(p) {
		total += e.Weight
		available = append(available, e.Field)
	}
	return &models.PendingRecovery{
		Email:              email,
		TargetSessionID:    targetSessionID,
		AvailableFields:    available,
		VerifiedFields:     []models.Field{},
		TotalPossibleScore: total,
		Feasible:           total >= pol.MinScore,
	}
}

// NextField returns the first field on file that is not yet verified.
func NextField(r *models.PendingRecovery) (Entry, bool) {
	for _, f := range r.AvailableFields {
		if r.Verified(f) {
			continue
		}
		if e, ok := Lookup(f); ok {
			return e, true
		}
	}
	return Entry{}, false
}

// Succeeded reports whether r has proven the identity.
func (pol Policy) Succeeded(r *models.PendingRecovery) bool {
	return r != nil && r.Score >= pol.MinScore
}

// Result describes the effect of one recovery answer.
type Result struct {
	Matched   bool
	Succeeded bool
	Locked    bool
	// Exhausted means every available field was tried and the score is
	// still below the minimum.
	Exhausted bool
	// Next is the field to ask about next, when there is one.
	Next *Entry
}

// Answer checks one answer against the stored profile and updates r in
// place. A field already verified is not counted twice.
func (pol Policy) Answer(r *models.PendingRecovery, p models.Profile, f models.Field, answer string) (Result, *onboarding.Error) {
	if r == nil {
		return Result{}, onboarding.Preconditionf("no recovery in progress")
	}
	if r.Locked {
		return Result{}, onboarding.Preconditionf("recovery is locked after too many wrong answers; start again or start fresh")
	}
	if !r.Feasible {
		return Result{}, onboarding.Preconditionf("not enough profile data to verify this account; start fresh instead")
	}
	entry, ok := Lookup(f)
	if !ok {
		return Result{}, onboarding.Validationf("%q cannot be used to verify an account", f)
	}
	if !p.Has(f) {
		return Result{}, onboarding.Preconditionf("%s is not on file for this account", entry.Label)
	}

	r.Attempts++
	res := Result{}
	if Match(entry.Kind, p.Get(f), answer) {
		res.Matched = true
		if !r.Verified(f) {
			r.VerifiedFields = append(r.VerifiedFields, f)
			r.Score += entry.Weight
		}
	} else {
		r.Failures++
		if r.Failures >= pol.MaxFailures {
			r.Locked = true
		}
	}

	res.Locked = r.Locked
	res.Succeeded = pol.Succeeded(r)
	if res.Succeeded || res.Locked {
		return res, nil
	}
	if next, ok := NextField(r); ok {
		res.Next = &next
	} else {
		res.Exhausted = true
	}
	return res, nil
}
