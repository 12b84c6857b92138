// Package domain defines the canonical conversation model shared by the
// session engine: messages, processing steps, interactive prompts, and the
// session lifecycle states.
package domain

import (
	"encoding/json"
	"time"
)

// TypingID is the temporary id carried by the single in-flight assistant
// message. It is replaced with a permanent id when the message is sealed.
const TypingID = "typing"

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ThinkingStatus tracks whether the agent is still producing reasoning
// output for a message.
type ThinkingStatus string

const (
	ThinkingInProgress ThinkingStatus = "in-progress"
	ThinkingCompleted  ThinkingStatus = "completed"
)

// InteractionStatus tracks the interactive-prompt sub-protocol on a message.
type InteractionStatus string

const (
	InteractionNone      InteractionStatus = "none"
	InteractionReady     InteractionStatus = "ready"
	InteractionCompleted InteractionStatus = "completed"
)

// StepStatus is the reported state of a single processing step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepError   StepStatus = "error"
)

// ProcessingStep is one entry in a message's diagnostic progress trail.
// Steps are append-only and never mutated after they are recorded.
type ProcessingStep struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	Status     StepStatus      `json:"status"`
	Content    string          `json:"content,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	RawDetails json.RawMessage `json:"raw_details,omitempty"`
}

// PromptKind distinguishes the two interactive sub-protocol shapes.
type PromptKind string

const (
	PromptUserSelect PromptKind = "userSelect"
	PromptUserInput  PromptKind = "userInput"
)

// SelectOption is a single choice offered by a userSelect prompt.
type SelectOption struct {
	Value       string `json:"value"`
	Key         string `json:"key"`
	Description string `json:"description,omitempty"`
}

// FormField is a single input offered by a userInput prompt.
type FormField struct {
	Type      string `json:"type"`
	Key       string `json:"key"`
	Label     string `json:"label"`
	ValueType string `json:"valueType,omitempty"`
	Required  bool   `json:"required"`
}

// InteractivePrompt is the payload of a validated interactive event
// attached to an in-flight assistant message. Answering the prompt marks
// it processed and resumes the turn.
type InteractivePrompt struct {
	Kind          PromptKind     `json:"kind"`
	Options       []SelectOption `json:"options,omitempty"`
	Fields        []FormField    `json:"fields,omitempty"`
	Processed     bool           `json:"processed"`
	SelectedValue string         `json:"selected_value,omitempty"`
	SelectedKey   string         `json:"selected_key,omitempty"`
	SelectedAt    *time.Time     `json:"selected_at,omitempty"`
}

// Message is one entry in a conversation transcript. While in flight the
// assistant placeholder carries TypingID and is mutable; sealing swaps in a
// permanent id and freezes content and interactive data.
type Message struct {
	ID                string             `json:"id"`
	Role              Role               `json:"role"`
	Content           string             `json:"content"`
	Timestamp         time.Time          `json:"timestamp"`
	ThinkingStatus    ThinkingStatus     `json:"thinking_status,omitempty"`
	InteractionStatus InteractionStatus  `json:"interaction_status,omitempty"`
	ProcessingSteps   []ProcessingStep   `json:"processing_steps,omitempty"`
	Interactive       *InteractivePrompt `json:"interactive,omitempty"`
	ResponseID        string             `json:"response_id,omitempty"`
	Offline           bool               `json:"offline,omitempty"`
}

// InFlight reports whether the message is the mutable placeholder.
func (m *Message) InFlight() bool {
	return m.ID == TypingID
}

// Clone returns a deep copy of the message. Transcript snapshots handed to
// persistence and subscribers must not alias the engine's mutable state.
func (m *Message) Clone() *Message {
	cp := *m
	if len(m.ProcessingSteps) > 0 {
		cp.ProcessingSteps = make([]ProcessingStep, len(m.ProcessingSteps))
		copy(cp.ProcessingSteps, m.ProcessingSteps)
	}
	if m.Interactive != nil {
		iv := *m.Interactive
		if len(m.Interactive.Options) > 0 {
			iv.Options = make([]SelectOption, len(m.Interactive.Options))
			copy(iv.Options, m.Interactive.Options)
		}
		if len(m.Interactive.Fields) > 0 {
			iv.Fields = make([]FormField, len(m.Interactive.Fields))
			copy(iv.Fields, m.Interactive.Fields)
		}
		if m.Interactive.SelectedAt != nil {
			at := *m.Interactive.SelectedAt
			iv.SelectedAt = &at
		}
		cp.Interactive = &iv
	}
	return &cp
}

// CloneMessages deep-copies a transcript.
func CloneMessages(msgs []*Message) []*Message {
	out := make([]*Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
