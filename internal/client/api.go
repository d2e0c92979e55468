package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// API calls the onboarding HTTP endpoints.
type API struct {
	HTTP    *http.Client
	BaseURL string
	// Retries is how many times a turn is resent after a transport error.
	// The message id is kept, so a resend never applies twice.
	Retries int
}

// Send executes cmd for the session in ls.
func (a *API) Send(ls *LocalState, cmd Command) (Outcome, error) {
	var out Outcome
	path := "/api/sessions/" + url.PathEscape(ls.SessionID)
	if cmd.Path == "" {
		if err := a.do(http.MethodGet, path, nil, &out); err != nil {
			return Outcome{}, err
		}
		ls.Observe(out)
		return out, nil
	}

	body := map[string]string{"message_id": ls.NextMessageID()}
	for k, v := range cmd.Args {
		body[k] = v
	}
	if err := a.do(http.MethodPost, path+cmd.Path, body, &out); err != nil {
		return Outcome{}, err
	}
	ls.Observe(out)
	return out, nil
}

// Lookup checks how far email got.
func (a *API) Lookup(email string) (LookupResult, error) {
	var res LookupResult
	err := a.do(http.MethodGet, "/api/lookup?email="+url.QueryEscape(email), nil, &res)
	return res, err
}

// Review records an admin decision. The HTTP client needs a reviewer
// certificate when the server enforces one.
func (a *API) Review(email, status, notes, reviewer string) (map[string]any, error) {
	var res map[string]any
	body := map[string]string{"status": status, "notes": notes, "reviewer": reviewer}
	err := a.do(http.MethodPost, "/api/applicants/"+url.PathEscape(email)+"/review", body, &res)
	return res, err
}

func (a *API) do(method, path string, body any, dst any) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = b
	}

	var resp *http.Response
	var err error
	for attempt := 0; attempt <= a.Retries; attempt++ {
		req, rerr := http.NewRequest(method, a.BaseURL+path, bytes.NewReader(payload))
		if rerr != nil {
			return rerr
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err = a.HTTP.Do(req)
		if err == nil {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server error: %s", bytes.TrimSpace(data))
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	return nil
}
