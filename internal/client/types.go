// Package client implements the terminal chat client: local session state,
// command parsing and calls to the onboarding HTTP API.
package client

// Recovery mirrors the recovery progress returned by the server.
type Recovery struct {
	Score          int      `json:"score"`
	TotalPossible  int      `json:"total_possible_score"`
	MinScore       int      `json:"min_score"`
	VerifiedFields []string `json:"verified_fields"`
	NextField      string   `json:"next_field,omitempty"`
	NextLabel      string   `json:"next_label,omitempty"`
	Matched        bool     `json:"matched"`
	Succeeded      bool     `json:"succeeded"`
	Locked         bool     `json:"locked"`
	Feasible       bool     `json:"feasible"`
}

// Outcome is the server's answer to every session call.
type Outcome struct {
	OK                  bool              `json:"ok"`
	Kind                string            `json:"kind,omitempty"`
	Reason              string            `json:"reason,omitempty"`
	Missing             []string          `json:"missing,omitempty"`
	RetryAfterSeconds   int               `json:"retry_after_seconds,omitempty"`
	SessionID           string            `json:"session_id"`
	State               string            `json:"state"`
	Prompt              string            `json:"prompt"`
	Suggestions         []string          `json:"suggestions"`
	Profile             map[string]string `json:"applicant_data"`
	PendingVerification bool              `json:"pending_verification"`
	Recovery            *Recovery         `json:"recovery,omitempty"`
	Submitted           bool              `json:"submitted"`
}

// LookupResult is the answer to GET /api/lookup.
type LookupResult struct {
	Found     bool   `json:"found"`
	SessionID string `json:"session_id,omitempty"`
	State     string `json:"state,omitempty"`
	Name      string `json:"name,omitempty"`
	Completed bool   `json:"completed"`
}
