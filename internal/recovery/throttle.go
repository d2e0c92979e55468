package recovery

import (
	"time"

	"github.com/atinyakov/GophIntake/internal/models"
)

// Admit applies the attempt window to t. The window is measured from the
// last recorded initiation and resets lazily on the first call after it
// expires. A rejected call returns t unchanged, so it does not consume an
// attempt, together with how long to wait.
func (pol Policy) Admit(t models.Throttle, now time.Time) (models.Throttle, time.Duration, bool) {
	if t.LastAttempt != nil && now.Sub(*t.LastAttempt) >= pol.Window {
		t.Attempts = 0
	}
	if t.Attempts >= pol.MaxInitiations {
		retry := pol.Window
		if t.LastAttempt != nil {
			retry = t.LastAttempt.Add(pol.Window).Sub(now)
		}
		return t, max(retry, 0), false
	}
	at := now
	t.Attempts++
	t.LastAttempt = &at
	return t, 0, true
}
