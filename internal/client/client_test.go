package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// roundTripperFunc lets tests stub http.Client.
type roundTripperFunc func(req *http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(fn roundTripperFunc) *http.Client {
	return &http.Client{Transport: fn, Timeout: time.Second}
}

func jsonResponse(code int, body string) *http.Response {
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body))}
}

func TestLoad_FileNotExist(t *testing.T) {
	ls, err := Load(filepath.Join(t.TempDir(), "state.json"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if ls.SessionID == "" {
		t.Error("expected a new session id")
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	ls, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	ls.Observe(Outcome{SessionID: ls.SessionID, State: "AWAITING_NAME"})
	if err := ls.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.SessionID != ls.SessionID || again.State != "AWAITING_NAME" {
		t.Errorf("state not restored: %+v", again)
	}
}

func TestForget(t *testing.T) {
	ls, _ := Load(filepath.Join(t.TempDir(), "state.json"))
	old := ls.SessionID
	ls.NextMessageID()
	ls.Forget()
	if ls.SessionID == old || ls.LastMessageID != "" {
		t.Errorf("expected a new session, got %+v", ls)
	}
}

func TestSend_PostsTurn(t *testing.T) {
	ls, _ := Load(filepath.Join(t.TempDir(), "state.json"))
	ls.SessionID = "s1"

	var gotPath string
	var gotBody map[string]string
	api := &API{BaseURL: "http://example.com", HTTP: newTestClient(func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		if ct := req.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		_ = json.NewDecoder(req.Body).Decode(&gotBody)
		return jsonResponse(http.StatusOK, `{"ok":true,"session_id":"s1","state":"AWAITING_SECRET_PHRASE"}`), nil
	})}

	out, err := api.Send(ls, send("/fields", "value", "a@x.com"))
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if gotPath != "/api/sessions/s1/fields" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotBody["value"] != "a@x.com" || gotBody["message_id"] == "" || gotBody["message_id"] != ls.LastMessageID {
		t.Errorf("unexpected body %v", gotBody)
	}
	if !out.OK || ls.State != "AWAITING_SECRET_PHRASE" {
		t.Errorf("unexpected outcome %+v / state %q", out, ls.State)
	}
}

func TestSend_RetryKeepsMessageID(t *testing.T) {
	ls, _ := Load(filepath.Join(t.TempDir(), "state.json"))
	var ids []string
	api := &API{BaseURL: "http://example.com", Retries: 1, HTTP: newTestClient(func(req *http.Request) (*http.Response, error) {
		var body map[string]string
		_ = json.NewDecoder(req.Body).Decode(&body)
		ids = append(ids, body["message_id"])
		if len(ids) == 1 {
			return nil, errors.New("connection reset")
		}
		return jsonResponse(http.StatusOK, `{"ok":true}`), nil
	})}

	if _, err := api.Send(ls, send("/complete")); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != ids[1] {
		t.Errorf("expected the same message id twice, got %v", ids)
	}
}

func TestSend_Errors(t *testing.T) {
	tests := []struct {
		name   string
		rt     roundTripperFunc
		substr string
	}{
		{
			name:   "network error",
			rt:     func(*http.Request) (*http.Response, error) { return nil, errors.New("network down") },
			substr: "request failed",
		},
		{
			name:   "server error",
			rt:     func(*http.Request) (*http.Response, error) { return jsonResponse(500, "internal error\n"), nil },
			substr: "server error: internal error",
		},
		{
			name:   "invalid JSON",
			rt:     func(*http.Request) (*http.Response, error) { return jsonResponse(200, "not-json"), nil },
			substr: "invalid response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ls, _ := Load(filepath.Join(t.TempDir(), "state.json"))
			api := &API{BaseURL: "http://example.com", HTTP: newTestClient(tt.rt)}
			_, err := api.Send(ls, Command{Action: ActionSend})
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("expected %q, got %v", tt.substr, err)
			}
		})
	}
}

func TestLookup(t *testing.T) {
	api := &API{BaseURL: "http://example.com", HTTP: newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Query().Get("email") != "a+b@x.com" {
			t.Errorf("unexpected query %q", req.URL.RawQuery)
		}
		return jsonResponse(200, `{"found":true,"name":"Ann","completed":true}`), nil
	})}
	res, err := api.Lookup("a+b@x.com")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Found || res.Name != "Ann" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line   string
		action Action
		path   string
		args   map[string]string
	}{
		{"Ana Lima", ActionSend, "/fields", map[string]string{"value": "Ana Lima"}},
		{"/status", ActionSend, "", nil},
		{"/back career_goals", ActionSend, "/state", map[string]string{"target": "career_goals"}},
		{"/done", ActionSend, "/complete", map[string]string{}},
		{"/phrase blue harbor", ActionSend, "/verify-phrase", map[string]string{"phrase": "blue harbor"}},
		{"/recover a@x.com", ActionSend, "/recovery", map[string]string{"email": "a@x.com"}},
		{"/answer name Ana Lima", ActionSend, "/recovery/answer", map[string]string{"field": "name", "answer": "Ana Lima"}},
		{"/edit github analima", ActionSend, "/profile", map[string]string{"field": "github", "value": "analima"}},
		{"/review a@x.com accepted great fit", ActionReview, "", map[string]string{"email": "a@x.com", "status": "accepted", "notes": "great fit"}},
		{"/exit", ActionExit, "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			cmd, err := ParseCommand(tt.line)
			if err != nil {
				t.Fatalf("ParseCommand: %v", err)
			}
			if cmd.Action != tt.action || cmd.Path != tt.path {
				t.Fatalf("unexpected command %+v", cmd)
			}
			for k, v := range tt.args {
				if cmd.Args[k] != v {
					t.Errorf("%s: expected %q, got %q", k, v, cmd.Args[k])
				}
			}
		})
	}
}

func TestParseCommand_Usage(t *testing.T) {
	for _, line := range []string{"", "/answer name", "/recover", "/nope"} {
		if _, err := ParseCommand(line); err == nil {
			t.Errorf("expected error for %q", line)
		}
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Outcome{
		Reason:      "some required answers are missing",
		Missing:     []string{"career goals"},
		Prompt:      "What are your career goals?",
		Suggestions: []string{"Tech lead", "Staff engineer"},
	})
	out := buf.String()
	for _, want := range []string{"! some required answers are missing", "missing: career goals", "What are your career goals?", "[Tech lead] [Staff engineer]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
