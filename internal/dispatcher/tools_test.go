package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/GophIntake/internal/models"
	"github.com/atinyakov/GophIntake/internal/onboarding"
	"github.com/atinyakov/GophIntake/internal/repository"
	"github.com/atinyakov/GophIntake/internal/service"
)

func toolsByName(svc Service) map[string]Tool {
	out := make(map[string]Tool)
	for _, t := range Tools(svc) {
		out[t.Definition.Name] = t
	}
	return out
}

func callTool(t *testing.T, tool Tool, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := tool.Handle(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

// getResultText extracts the text content from a CallToolResult.
func getResultText(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func decodeOutcome(t *testing.T, result *mcp.CallToolResult) service.Outcome {
	t.Helper()
	var out service.Outcome
	require.NoError(t, json.Unmarshal([]byte(getResultText(result)), &out))
	return out
}

func TestTools_Definitions(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))

	mutatingTools := []string{
		"save_field", "change_state", "complete_onboarding", "verify_secret_phrase",
		"initiate_recovery", "verify_recovery_answer", "reset_secret_phrase",
		"cancel_recovery", "start_fresh", "update_profile_field",
	}
	require.Len(t, tools, len(mutatingTools)+2)

	for _, name := range mutatingTools {
		tool, ok := tools[name]
		require.True(t, ok, name)
		assert.Contains(t, tool.Definition.InputSchema.Required, "session_id", name)
		assert.Contains(t, tool.Definition.InputSchema.Required, "message_id", name)
	}
	assert.NotContains(t, tools["get_session"].Definition.InputSchema.Required, "message_id")
	assert.Contains(t, tools["lookup_email"].Definition.InputSchema.Required, "email")
}

func TestSaveField_DrivesConversation(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))

	res := callTool(t, tools["save_field"], map[string]interface{}{
		"session_id": "chat-1", "message_id": "m1", "value": "Ana@Example.com",
	})
	require.False(t, res.IsError, getResultText(res))
	out := decodeOutcome(t, res)
	assert.Equal(t, models.AwaitingSecretPhrase, out.State)
	assert.Equal(t, "ana@example.com", out.Profile.Email)

	res = callTool(t, tools["save_field"], map[string]interface{}{
		"session_id": "chat-1", "message_id": "m2", "value": "blue harbor lights",
	})
	require.False(t, res.IsError, getResultText(res))
	assert.Equal(t, models.AwaitingName, decodeOutcome(t, res).State)
	assert.NotContains(t, getResultText(res), "blue harbor lights")

	res = callTool(t, tools["get_session"], map[string]interface{}{"session_id": "chat-1"})
	require.False(t, res.IsError)
	assert.Equal(t, onboarding.Prompt(models.AwaitingName), decodeOutcome(t, res).Prompt)
}

func TestChangeState_JumpsForward(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))
	assert.NotContains(t, tools["change_state"].Definition.Description, "rejected")

	callTool(t, tools["save_field"], map[string]interface{}{"session_id": "chat-1", "message_id": "m1", "value": "a@x.com"})
	callTool(t, tools["save_field"], map[string]interface{}{"session_id": "chat-1", "message_id": "m2", "value": "blue harbor lights"})

	res := callTool(t, tools["change_state"], map[string]interface{}{
		"session_id": "chat-1", "message_id": "m3", "target": "tech_focus",
	})
	require.False(t, res.IsError, getResultText(res))
	assert.Equal(t, models.AwaitingTechFocus, decodeOutcome(t, res).State)

	res = callTool(t, tools["change_state"], map[string]interface{}{
		"session_id": "chat-1", "message_id": "m4", "target": "email",
	})
	assert.True(t, res.IsError)
}

func TestMutatingTool_ReplaysSameMessage(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))
	args := map[string]interface{}{"session_id": "chat-1", "message_id": "m1", "value": "a@x.com"}

	first := getResultText(callTool(t, tools["save_field"], args))

	// A second tool in the same turn gets the first result back.
	second := callTool(t, tools["start_fresh"], map[string]interface{}{"session_id": "chat-1", "message_id": "m1"})
	assert.Equal(t, first, getResultText(second))
}

func TestMutatingTool_RequiresIDs(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))

	res := callTool(t, tools["save_field"], map[string]interface{}{"session_id": "chat-1", "value": "a@x.com"})
	assert.True(t, res.IsError)
	assert.Contains(t, getResultText(res), "message_id")

	res = callTool(t, tools["get_session"], map[string]interface{}{})
	assert.True(t, res.IsError)

	res = callTool(t, tools["lookup_email"], map[string]interface{}{})
	assert.True(t, res.IsError)
}

func TestCompleteOnboarding_FailureIsToolError(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))

	res := callTool(t, tools["complete_onboarding"], map[string]interface{}{"session_id": "chat-1", "message_id": "m1"})
	require.True(t, res.IsError)
	out := decodeOutcome(t, res)
	assert.False(t, out.OK)
	assert.Equal(t, onboarding.KindValidation, out.Kind)
	assert.NotEmpty(t, out.Missing)
	assert.Equal(t, models.AwaitingEmail, out.State)
}

func TestLookupEmail(t *testing.T) {
	tools := toolsByName(service.NewOnboardingService(repository.NewMemoryStore()))
	callTool(t, tools["save_field"], map[string]interface{}{"session_id": "chat-1", "message_id": "m1", "value": "a@x.com"})

	res := callTool(t, tools["lookup_email"], map[string]interface{}{"email": "A@X.com"})
	require.False(t, res.IsError)

	var got service.LookupResult
	require.NoError(t, json.Unmarshal([]byte(getResultText(res)), &got))
	assert.True(t, got.Found)
	assert.Equal(t, "chat-1", got.SessionID)
	assert.False(t, got.Completed)
}

// failingService returns an infrastructure error from every call.
type failingService struct{ Service }

func (failingService) SaveField(context.Context, service.Turn, string) (service.Outcome, error) {
	return service.Outcome{}, errors.New("store unavailable")
}

func TestMutatingTool_InfrastructureError(t *testing.T) {
	tools := toolsByName(failingService{})
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]interface{}{"session_id": "chat-1", "message_id": "m1", "value": "x"}

	result, err := tools["save_field"].Handle(context.Background(), req)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "save_field")
}

func TestNewServer(t *testing.T) {
	s := NewServer(service.NewOnboardingService(repository.NewMemoryStore()), zap.NewNop())
	require.NotNil(t, s)
}
