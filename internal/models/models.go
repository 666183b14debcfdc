// Package models defines the core data structures for flowbot.
//
// It includes the flow/step definition model loaded from the flow document,
// the per-correspondent session record, and response types shared across modules.
package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FlowKind distinguishes top-level flows from flows reachable only via a transition.
type FlowKind string

const (
	// FlowKindMain flows are started by trigger matching on inbound text.
	FlowKindMain FlowKind = "main"
	// FlowKindSubflow flows are entered only through a step's subflow transition.
	FlowKindSubflow FlowKind = "subflow"
)

// StepKind tags what a step expects from the correspondent. It is resolved
// once when the catalog is built, not re-inspected per message.
type StepKind string

const (
	// StepKindAnswer stores the raw inbound text under the step key.
	StepKindAnswer StepKind = "answer"
	// StepKindChoice matches the inbound text against option surface forms
	// and stores the canonical option key.
	StepKindChoice StepKind = "choice"
	// StepKindTransition jumps into a subflow when the inbound text matches
	// one of the configured subflow trigger phrases.
	StepKindTransition StepKind = "transition"
	// StepKindTerminal expects no answer; reaching it ends the session.
	StepKindTerminal StepKind = "terminal"
)

// Validation error variables for the flow catalog.
var (
	ErrUnknownFlowKind    = errors.New("unknown flow kind")
	ErrMainWithoutTrigger = errors.New("main flow must declare at least one trigger")
	ErrSubflowWithTrigger = errors.New("subflow must not declare triggers")
	ErrDanglingSubflowRef = errors.New("subflow reference does not exist")
	ErrNotASubflow        = errors.New("referenced flow is not a subflow")
	ErrFlowWithoutSteps   = errors.New("flow must declare at least one step")
	ErrDuplicateFlowID    = errors.New("duplicate flow identifier")
	ErrDuplicateFlowAlias = errors.New("duplicate flow alias")
)

// ChoiceOption is one canonical answer together with the surface forms that
// select it. Surface forms match case-insensitively and exactly, never by
// substring.
type ChoiceOption struct {
	Key     string
	Answers []string
}

// OptionSet holds a step's choice options in declaration order. The flow
// document writes options as a JSON object; object order is authoritative
// for tie-breaks, so decoding walks the object tokens instead of using a map.
type OptionSet []ChoiceOption

// UnmarshalJSON decodes {"canonical": ["form", ...], ...} preserving key order.
func (os *OptionSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("options: expected JSON object, got %v", tok)
	}
	out := OptionSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key := keyTok.(string)
		var answers []string
		if err := dec.Decode(&answers); err != nil {
			return fmt.Errorf("options %q: %w", key, err)
		}
		out = append(out, ChoiceOption{Key: key, Answers: answers})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*os = out
	return nil
}

// MarshalJSON writes the options back as an object in declaration order.
func (os OptionSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range os {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(opt.Answers)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Match returns the canonical key of the first option whose surface forms
// contain the normalized answer, comparing case-insensitively. Declaration
// order breaks ties.
func (os OptionSet) Match(normalized string) (string, bool) {
	for _, opt := range os {
		for _, answer := range opt.Answers {
			if strings.ToLower(answer) == normalized {
				return opt.Key, true
			}
		}
	}
	return "", false
}

// SubflowRef names a subflow reachable from a step, together with the two
// trigger phrases that select it. Label is the distinguished "pretty" phrase
// stored under the step key on a jump; Match is the short token.
type SubflowRef struct {
	Flow  string
	Match string
	Label string
}

// SubflowSet holds a step's subflow transitions in declaration order. The
// flow document writes them as {"flow-id": ["match", "Label"], ...}.
type SubflowSet []SubflowRef

// UnmarshalJSON decodes the subflow object preserving key order.
func (ss *SubflowSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("subflows: expected JSON object, got %v", tok)
	}
	out := SubflowSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		id := keyTok.(string)
		var pair []string
		if err := dec.Decode(&pair); err != nil {
			return fmt.Errorf("subflows %q: %w", id, err)
		}
		if len(pair) != 2 {
			return fmt.Errorf("subflows %q: expected [match, label] pair, got %d elements", id, len(pair))
		}
		out = append(out, SubflowRef{Flow: id, Match: pair[0], Label: pair[1]})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*ss = out
	return nil
}

// MarshalJSON writes the subflow transitions back as an object in declaration order.
func (ss SubflowSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ref := range ss {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(ref.Flow)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal([]string{ref.Match, ref.Label})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Step is one prompt-and-optional-answer unit within a flow. Key empty (or
// JSON null) means the step collects no answer; a step that both collects no
// answer and declares no subflows is terminal.
type Step struct {
	Prompt   string     `json:"question"`
	Key      string     `json:"key,omitempty"`
	Options  OptionSet  `json:"options,omitempty"`
	Subflows SubflowSet `json:"subflows,omitempty"`
}

// Kind reports the resolved step kind.
func (s Step) Kind() StepKind {
	switch {
	case len(s.Subflows) > 0:
		return StepKindTransition
	case len(s.Options) > 0:
		return StepKindChoice
	case s.Key != "":
		return StepKindAnswer
	default:
		return StepKindTerminal
	}
}

// Flow is a named, ordered sequence of steps representing one conversational
// path. Alias is the document key the flow was declared under; the flow
// aliased "main" is the default fallback when no trigger matches.
type Flow struct {
	ID       string   `json:"id"`
	Alias    string   `json:"-"`
	Kind     FlowKind `json:"type"`
	Triggers []string `json:"triggers,omitempty"`
	Steps    []Step   `json:"steps"`
}

// FlowSet holds flow definitions in document declaration order. The flow
// document is a JSON object mapping alias to flow; declaration order is
// authoritative for trigger search, so decoding walks the object tokens.
type FlowSet []Flow

// UnmarshalJSON decodes {"alias": {flow}, ...} preserving declaration order
// and recording each flow's alias.
func (fs *FlowSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("flows: expected JSON object, got %v", tok)
	}
	out := FlowSet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		alias := keyTok.(string)
		var flow Flow
		if err := dec.Decode(&flow); err != nil {
			return fmt.Errorf("flow %q: %w", alias, err)
		}
		flow.Alias = alias
		out = append(out, flow)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*fs = out
	return nil
}

// MarshalJSON writes the flow document back as an alias-keyed object in
// declaration order.
func (fs FlowSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, flow := range fs {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(flow.Alias)
		if err != nil {
			return nil, err
		}
		type alias Flow
		v, err := json.Marshal(alias(flow))
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Session tracks a correspondent's position and collected answers within a
// flow. It is owned by the session store; the engine holds only a transient
// per-message copy.
type Session struct {
	Flow string            `json:"flow"`
	Step int               `json:"step"`
	Data map[string]string `json:"data"`
}

// Response represents an incoming text message from a correspondent.
type Response struct {
	From string `json:"from"`
	Body string `json:"body"`
	Time int64  `json:"time"`
}
