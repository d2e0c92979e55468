package client

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// Action says what the REPL should do with a parsed line.
type Action int

const (
	// ActionSend calls a session endpoint.
	ActionSend Action = iota
	ActionHelp
	ActionExit
	ActionNew
	ActionLookup
	ActionReview
)

// Command is one parsed line of user input.
type Command struct {
	Action Action
	// Path is the session endpoint suffix; empty means GET the session.
	Path string
	Args map[string]string
}

// Help lists the slash commands.
const Help = `Type an answer to reply to the current question, or:
  /status                      show the current question
  /back <step>                 go back to an earlier question (e.g. /back career_goals)
  /done                        submit the application
  /phrase <secret phrase>      prove you own an email already in use
  /recover <email>             recover an account without the phrase
  /answer <field> <value>      answer a recovery question
  /reset <new phrase>          set a new phrase after recovery
  /cancel                      cancel recovery
  /fresh                       start over with a new application
  /edit <field> <value>        change a submitted answer
  /lookup <email>              check an email
  /review <email> <status> [notes]
  /new                         forget this session locally
  /help, /exit`

var errUsage = errors.New("usage")

// ParseCommand turns a line into a Command. Text without a leading slash is
// an answer to the current question.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Command{}, errUsage
	}
	if !strings.HasPrefix(line, "/") {
		return send("/fields", "value", line), nil
	}

	name, rest, _ := strings.Cut(line[1:], " ")
	rest = strings.TrimSpace(rest)
	first, tail, _ := strings.Cut(rest, " ")
	tail = strings.TrimSpace(tail)

	switch name {
	case "help":
		return Command{Action: ActionHelp}, nil
	case "exit", "quit":
		return Command{Action: ActionExit}, nil
	case "new":
		return Command{Action: ActionNew}, nil
	case "status":
		return Command{Action: ActionSend}, nil
	case "done":
		return send("/complete"), nil
	case "cancel":
		return send("/recovery/cancel"), nil
	case "fresh":
		return send("/start-fresh"), nil
	case "back":
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /back <step>", errUsage)
		}
		return send("/state", "target", rest), nil
	case "phrase":
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /phrase <secret phrase>", errUsage)
		}
		return send("/verify-phrase", "phrase", rest), nil
	case "recover":
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /recover <email>", errUsage)
		}
		return send("/recovery", "email", rest), nil
	case "reset":
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /reset <new phrase>", errUsage)
		}
		return send("/recovery/reset", "phrase", rest), nil
	case "answer":
		if first == "" || tail == "" {
			return Command{}, fmt.Errorf("%w: /answer <field> <value>", errUsage)
		}
		return send("/recovery/answer", "field", first, "answer", tail), nil
	case "edit":
		if first == "" || tail == "" {
			return Command{}, fmt.Errorf("%w: /edit <field> <value>", errUsage)
		}
		return send("/profile", "field", first, "value", tail), nil
	case "lookup":
		if rest == "" {
			return Command{}, fmt.Errorf("%w: /lookup <email>", errUsage)
		}
		return Command{Action: ActionLookup, Args: map[string]string{"email": rest}}, nil
	case "review":
		status, notes, _ := strings.Cut(tail, " ")
		if first == "" || status == "" {
			return Command{}, fmt.Errorf("%w: /review <email> <status> [notes]", errUsage)
		}
		return Command{Action: ActionReview, Args: map[string]string{
			"email": first, "status": status, "notes": strings.TrimSpace(notes),
		}}, nil
	}
	return Command{}, fmt.Errorf("unknown command /%s, type /help", name)
}

func send(path string, kv ...string) Command {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return Command{Action: ActionSend, Path: path, Args: args}
}

// Render prints an outcome the way the chat shows it.
func Render(w io.Writer, out Outcome) {
	if !out.OK && out.Reason != "" {
		fmt.Fprintf(w, "! %s\n", out.Reason)
		if len(out.Missing) > 0 {
			fmt.Fprintf(w, "  missing: %s\n", strings.Join(out.Missing, ", "))
		}
		if out.RetryAfterSeconds > 0 {
			fmt.Fprintf(w, "  try again in %ds\n", out.RetryAfterSeconds)
		}
	}
	if r := out.Recovery; r != nil {
		fmt.Fprintf(w, "  recovery score %d/%d (need %d)\n", r.Score, r.TotalPossible, r.MinScore)
	}
	if out.Prompt != "" {
		fmt.Fprintln(w, out.Prompt)
	}
	if len(out.Suggestions) > 0 {
		fmt.Fprintf(w, "  [%s]\n", strings.Join(out.Suggestions, "] ["))
	}
}
