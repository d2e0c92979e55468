// Package dispatcher exposes the deterministic onboarding operations as MCP
// tools. A language model picks the tool; the tool only validates arguments
// and forwards them to the service.
package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/service"
)

// Service is the subset of the onboarding service the tools call.
type Service interface {
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
	Lookup(ctx context.Context, email string) (service.LookupResult, error)
}

// Tool pairs an MCP definition with its handler.
type Tool struct {
	Definition mcp.Tool
	Handle     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Tools returns one tool per operation, in a stable order.
func Tools(svc Service) []Tool {
	return []Tool{
		mutating("save_field",
			"Save the user's answer to the current onboarding question. The server decides which field the answer belongs to from the session state.",
			[]mcp.ToolOption{mcp.WithString("value", mcp.Required(), mcp.Description("The user's answer, verbatim."))},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.SaveField(ctx, in, req.GetString("value", ""))
			}),
		mutating("change_state",
			"Move to any profile question from name to success definition, backward or forward, when the user asks to change or jump to an answer. Stored answers are kept and the conversation continues in order from that question. Email, secret phrase and the finished states cannot be targeted.",
			[]mcp.ToolOption{mcp.WithString("target", mcp.Required(), mcp.Description("Target step, e.g. AWAITING_CAREER_GOALS or career_goals."), mcp.Enum(stepNames()...))},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.ChangeState(ctx, in, req.GetString("target", ""))
			}),
		mutating("complete_onboarding",
			"Submit the application once every required question is answered.",
			nil,
			func(ctx context.Context, in service.Turn, _ mcp.CallToolRequest) (service.Outcome, error) {
				return svc.CompleteOnboarding(ctx, in)
			}),
		mutating("verify_secret_phrase",
			"Check the secret phrase when the session is waiting to confirm ownership of an email that is already in use.",
			[]mcp.ToolOption{mcp.WithString("phrase", mcp.Required(), mcp.Description("The phrase the user typed."))},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.VerifySecretPhrase(ctx, in, req.GetString("phrase", ""))
			}),
		mutating("initiate_recovery",
			"Start account recovery for a user who forgot their secret phrase.",
			[]mcp.ToolOption{mcp.WithString("email", mcp.Required(), mcp.Description("Email of the account to recover."))},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.InitiateRecovery(ctx, in, req.GetString("email", ""))
			}),
		mutating("verify_recovery_answer",
			"Check one recovery answer against the stored profile. Ask for the field named in recovery.next_field.",
			[]mcp.ToolOption{
				mcp.WithString("field", mcp.Required(), mcp.Description("Profile field being answered."), mcp.Enum(fieldNames()...)),
				mcp.WithString("answer", mcp.Required(), mcp.Description("The user's answer.")),
			},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.VerifyRecoveryAnswer(ctx, in, req.GetString("field", ""), req.GetString("answer", ""))
			}),
		mutating("reset_secret_phrase",
			"Set a new secret phrase after recovery reached the minimum score.",
			[]mcp.ToolOption{mcp.WithString("phrase", mcp.Required(), mcp.Description("The new secret phrase."))},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.ResetSecretPhrase(ctx, in, req.GetString("phrase", ""))
			}),
		mutating("cancel_recovery",
			"Abandon the recovery in progress.",
			nil,
			func(ctx context.Context, in service.Turn, _ mcp.CallToolRequest) (service.Outcome, error) {
				return svc.CancelRecovery(ctx, in)
			}),
		mutating("start_fresh",
			"Discard the unfinished application bound to the contested email and restart onboarding from the email question.",
			nil,
			func(ctx context.Context, in service.Turn, _ mcp.CallToolRequest) (service.Outcome, error) {
				return svc.StartFresh(ctx, in)
			}),
		mutating("update_profile_field",
			"Edit one field of a submitted application.",
			[]mcp.ToolOption{
				mcp.WithString("field", mcp.Required(), mcp.Description("Profile field to edit."), mcp.Enum(fieldNames()...)),
				mcp.WithString("value", mcp.Required(), mcp.Description("New value.")),
			},
			func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error) {
				return svc.UpdateProfileField(ctx, in, req.GetString("field", ""), req.GetString("value", ""))
			}),
		{
			Definition: mcp.NewTool("get_session",
				mcp.WithDescription("Read the current state, prompt and quick replies of a session. Does not change anything."),
				mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id.")),
			),
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				id := req.GetString("session_id", "")
				if id == "" {
					return mcp.NewToolResultError("session_id is required"), nil
				}
				out, err := svc.GetSession(ctx, id)
				if err != nil {
					return nil, fmt.Errorf("get_session: %w", err)
				}
				return outcomeResult(out)
			},
		},
		{
			Definition: mcp.NewTool("lookup_email",
				mcp.WithDescription("Check whether an email already has an application and how far it got. Does not change anything."),
				mcp.WithString("email", mcp.Required(), mcp.Description("Email to look up.")),
			),
			Handle: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
				email := req.GetString("email", "")
				if email == "" {
					return mcp.NewToolResultError("email is required"), nil
				}
				res, err := svc.Lookup(ctx, email)
				if err != nil {
					return nil, fmt.Errorf("lookup_email: %w", err)
				}
				return jsonResult(res, false)
			},
		},
	}
}

type call func(ctx context.Context, in service.Turn, req mcp.CallToolRequest) (service.Outcome, error)

// mutating builds a tool keyed by (session_id, message_id). A repeated
// message_id replays the first result instead of running again.
func mutating(name, description string, args []mcp.ToolOption, fn call) Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(description),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Conversation session id.")),
		mcp.WithString("message_id", mcp.Required(), mcp.Description("Id of the user message being handled. Reuse it for every call made for that message.")),
	}
	opts = append(opts, args...)

	return Tool{
		Definition: mcp.NewTool(name, opts...),
		Handle: func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			in := service.Turn{
				SessionID: req.GetString("session_id", ""),
				MessageID: req.GetString("message_id", ""),
			}
			if in.SessionID == "" || in.MessageID == "" {
				return mcp.NewToolResultError("session_id and message_id are required"), nil
			}
			out, err := fn(ctx, in, req)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return outcomeResult(out)
		},
	}
}

// outcomeResult renders out as JSON. Failed outcomes are flagged as tool
// errors but still carry the full state so the model can re-prompt.
func outcomeResult(out service.Outcome) (*mcp.CallToolResult, error) {
	return jsonResult(out, !out.OK)
}

func jsonResult(v any, isError bool) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	if isError {
		return mcp.NewToolResultError(string(b)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func stepNames() []string {
	out := make([]string, 0, len(models.StepOrder))
	for _, s := range models.StepOrder {
		out = append(out, string(s))
	}
	for _, f := range models.Fields() {
		out = append(out, string(f))
	}
	return out
}

func fieldNames() []string {
	fs := models.Fields()
	out := make([]string, 0, len(fs))
	for _, f := range fs {
		out = append(out, string(f))
	}
	return out
}
