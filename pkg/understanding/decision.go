package understanding

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/papercomputeco/recall/pkg/memory"
)

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// errNoJSON is returned when a reply contains nothing that looks like JSON.
var errNoJSON = errors.New("no JSON object in reply")

// decisionPayload is the wire shape the decision prompt asks for.
type decisionPayload struct {
	Action          string            `json:"action"`
	Reasoning       string            `json:"reasoning"`
	MemoryToReplace string            `json:"memory_to_replace"`
	NewMemory       *memory.Candidate `json:"new_memory"`
}

// ExtractJSON finds the JSON object in a model reply: the whole reply if it
// parses, else a ```json fenced block, else the outermost braces.
func ExtractJSON(reply string) ([]byte, error) {
	trimmed := strings.TrimSpace(reply)
	if json.Valid([]byte(trimmed)) {
		return []byte(trimmed), nil
	}

	if m := fencedJSON.FindStringSubmatch(trimmed); m != nil {
		return []byte(m[1]), nil
	}

	if m := bareObject.FindString(trimmed); m != "" {
		return []byte(m), nil
	}

	return nil, errNoJSON
}

// ParseDecision decodes a model reply into a Decision. Every failure is a
// *memory.DependencyError so the caller can apply the fallback decision.
func ParseDecision(reply string) (*memory.Decision, error) {
	raw, err := ExtractJSON(reply)
	if err != nil {
		return nil, &memory.DependencyError{Op: "decide", Err: err}
	}

	var p decisionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, &memory.DependencyError{Op: "decide", Err: fmt.Errorf("decoding decision: %w", err)}
	}

	d := &memory.Decision{
		Action:    memory.Action(strings.ToUpper(strings.TrimSpace(p.Action))),
		Reasoning: p.Reasoning,
	}

	switch d.Action {
	case memory.ActionIgnore:
		return d, nil
	case memory.ActionAdd, memory.ActionUpdate:
		if p.NewMemory == nil {
			return nil, &memory.DependencyError{
				Op:  "decide",
				Err: fmt.Errorf("%s decision without new_memory", d.Action),
			}
		}
		d.Candidate = p.NewMemory
		if d.Action == memory.ActionUpdate {
			d.OldContentHint = strings.TrimSpace(p.MemoryToReplace)
		}
		return d, nil
	default:
		return nil, &memory.DependencyError{
			Op:  "decide",
			Err: fmt.Errorf("unknown action %q", p.Action),
		}
	}
}
