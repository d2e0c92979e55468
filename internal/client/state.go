package client

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/google/uuid"
)

// DefaultStateFile is where the chat client keeps its session between runs.
const DefaultStateFile = "intake-session.json"

// LocalState remembers the conversation so the client can resume it.
type LocalState struct {
	SessionID string `json:"session_id"`
	// LastMessageID is the id of the last turn sent; a retried line reuses it.
	LastMessageID string `json:"last_message_id,omitempty"`
	State         string `json:"state,omitempty"`

	path string
	mu   sync.Mutex
}

// Load reads the state file at path. A missing file starts a new session.
func Load(path string) (*LocalState, error) {
	ls := &LocalState{path: path}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			ls.SessionID = uuid.NewString()
			return ls, nil
		}
		return nil, err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(ls); err != nil {
		return nil, err
	}
	if ls.SessionID == "" {
		ls.SessionID = uuid.NewString()
	}
	return ls, nil
}

// Save writes the state file.
func (ls *LocalState) Save() error {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	f, err := os.Create(ls.path)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(ls)
}

// NextMessageID allocates the id for a new user line.
func (ls *LocalState) NextMessageID() string {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.LastMessageID = uuid.NewString()
	return ls.LastMessageID
}

// Observe records the server's view after a call.
func (ls *LocalState) Observe(out Outcome) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if out.SessionID != "" {
		ls.SessionID = out.SessionID
	}
	ls.State = out.State
}

// Forget drops the session so the next line starts a new conversation.
func (ls *LocalState) Forget() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.SessionID = uuid.NewString()
	ls.LastMessageID = ""
	ls.State = ""
}
