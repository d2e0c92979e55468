// Package http provides the HTTP transport for the onboarding service.
package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/atinyakov/GophIntake/internal/middleware"
	"github.com/atinyakov/GophIntake/internal/onboarding"
	"github.com/atinyakov/GophIntake/internal/service"
)

// SessionService defines the conversation operations required by the
// SessionHandler. Every mutating call is keyed by a service.Turn.
type SessionService interface {
	SaveField(ctx context.Context, in service.Turn, value string) (service.Outcome, error)
	ChangeState(ctx context.Context, in service.Turn, target string) (service.Outcome, error)
	CompleteOnboarding(ctx context.Context, in service.Turn) (service.Outcome, error)
	VerifySecretPhrase(ctx context.Context, in service.Turn, candidate string) (service.Outcome, error)
	InitiateRecovery(ctx context.Context, in service.Turn, email string) (service.Outcome, error)
	VerifyRecoveryAnswer(ctx context.Context, in service.Turn, field, answer string) (service.Outcome, error)
	ResetSecretPhrase(ctx context.Context, in service.Turn, newPhrase string) (service.Outcome, error)
	CancelRecovery(ctx context.Context, in service.Turn) (service.Outcome, error)
	StartFresh(ctx context.Context, in service.Turn) (service.Outcome, error)
	UpdateProfileField(ctx context.Context, in service.Turn, field, value string) (service.Outcome, error)
	GetSession(ctx context.Context, id string) (service.Outcome, error)
}

// SessionHandler handles the /api/sessions/{sessionID} endpoints.
type SessionHandler struct {
	Service SessionService
}

type turnRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
}

type valueRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Value     string `json:"value"`
}

type stateRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Target    string `json:"target" validate:"required"`
}

type phraseRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Phrase    string `json:"phrase"`
}

type recoveryRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Email     string `json:"email" validate:"required"`
}

type answerRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Field     string `json:"field" validate:"required"`
	Answer    string `json:"answer"`
}

type profileRequest struct {
	MessageID string `json:"message_id" validate:"required,max=128"`
	Field     string `json:"field" validate:"required"`
	Value     string `json:"value"`
}

// serve decodes and validates the body into a T, runs call and writes its
// result. Domain failures are part of the result and still answer 200.
func serve[T, R any](w http.ResponseWriter, r *http.Request, call func(ctx context.Context, req *T) (R, error)) {
	req := new(T)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := onboarding.Validator().Struct(req); err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	result, err := call(r.Context(), req)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, result)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func turnOf(ctx context.Context, messageID string) service.Turn {
	return service.Turn{SessionID: middleware.GetSessionIDFromContext(ctx), MessageID: messageID}
}

// Get handles GET /api/sessions/{sessionID}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.Service.GetSession(r.Context(), middleware.GetSessionIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, out)
}

// SaveField handles POST /api/sessions/{sessionID}/fields.
func (h *SessionHandler) SaveField(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *valueRequest) (service.Outcome, error) {
		return h.Service.SaveField(ctx, turnOf(ctx, req.MessageID), req.Value)
	})
}

// ChangeState handles POST /api/sessions/{sessionID}/state.
func (h *SessionHandler) ChangeState(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *stateRequest) (service.Outcome, error) {
		return h.Service.ChangeState(ctx, turnOf(ctx, req.MessageID), req.Target)
	})
}

// Complete handles POST /api/sessions/{sessionID}/complete.
func (h *SessionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *turnRequest) (service.Outcome, error) {
		return h.Service.CompleteOnboarding(ctx, turnOf(ctx, req.MessageID))
	})
}

// VerifyPhrase handles POST /api/sessions/{sessionID}/verify-phrase.
func (h *SessionHandler) VerifyPhrase(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *phraseRequest) (service.Outcome, error) {
		return h.Service.VerifySecretPhrase(ctx, turnOf(ctx, req.MessageID), req.Phrase)
	})
}

// InitiateRecovery handles POST /api/sessions/{sessionID}/recovery.
func (h *SessionHandler) InitiateRecovery(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *recoveryRequest) (service.Outcome, error) {
		return h.Service.InitiateRecovery(ctx, turnOf(ctx, req.MessageID), req.Email)
	})
}

// AnswerRecovery handles POST /api/sessions/{sessionID}/recovery/answer.
func (h *SessionHandler) AnswerRecovery(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *answerRequest) (service.Outcome, error) {
		return h.Service.VerifyRecoveryAnswer(ctx, turnOf(ctx, req.MessageID), req.Field, req.Answer)
	})
}

// ResetPhrase handles POST /api/sessions/{sessionID}/recovery/reset.
func (h *SessionHandler) ResetPhrase(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *phraseRequest) (service.Outcome, error) {
		return h.Service.ResetSecretPhrase(ctx, turnOf(ctx, req.MessageID), req.Phrase)
	})
}

// CancelRecovery handles POST /api/sessions/{sessionID}/recovery/cancel.
func (h *SessionHandler) CancelRecovery(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *turnRequest) (service.Outcome, error) {
		return h.Service.CancelRecovery(ctx, turnOf(ctx, req.MessageID))
	})
}

// StartFresh handles POST /api/sessions/{sessionID}/start-fresh.
func (h *SessionHandler) StartFresh(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *turnRequest) (service.Outcome, error) {
		return h.Service.StartFresh(ctx, turnOf(ctx, req.MessageID))
	})
}

// UpdateProfile handles POST /api/sessions/{sessionID}/profile.
func (h *SessionHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	serve(w, r, func(ctx context.Context, req *profileRequest) (service.Outcome, error) {
		return h.Service.UpdateProfileField(ctx, turnOf(ctx, req.MessageID), req.Field, req.Value)
	})
}
