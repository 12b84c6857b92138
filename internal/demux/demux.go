// Package demux classifies inbound protocol events from the agent's event
// stream. Classification is a pure function over (eventType, payload); it
// never mutates conversation state itself.
package demux

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avasile/agentwire/internal/domain"
)

// Category is the primary classification of an intermediate event.
type Category int

const (
	// CategoryIgnored covers unrecognized event types. They are dropped
	// without error so new server-side event types don't break old clients.
	CategoryIgnored Category = iota
	// CategoryStep is a workflow/node status event recorded as a
	// processing step.
	CategoryStep
	// CategoryInteractive is a validated interactive prompt.
	CategoryInteractive
)

// Event is the classification result. ResponseID is a side channel: it is
// captured opportunistically from any payload carrying a correlation id and
// does not change the primary category.
type Event struct {
	Category     Category
	Step         *domain.ProcessingStep
	Prompt       *domain.InteractivePrompt
	ResponseID   string
	ThinkingSeen bool
	ThinkingDone bool
}

// stepEvents is the fixed set of event types recorded as processing steps.
var stepEvents = map[string]struct{}{
	"flowNodeStatus":  {},
	"moduleStatus":    {},
	"moduleStart":     {},
	"moduleEnd":       {},
	"thinking":        {},
	"thinkingStart":   {},
	"thinkingEnd":     {},
	"toolCall":        {},
	"toolParams":      {},
	"toolResponse":    {},
	"updateVariables": {},
	"flowResponses":   {},
}

// wirePayload mirrors the loose field layout of intermediate events. The
// same semantic field arrives under several names depending on which server
// module emitted it.
type wirePayload struct {
	NodeID           string           `json:"nodeId"`
	ID               string           `json:"id"`
	ModuleID         string           `json:"moduleId"`
	Name             string           `json:"name"`
	ModuleName       string           `json:"moduleName"`
	ToolName         string           `json:"toolName"`
	Status           string           `json:"status"`
	State            string           `json:"state"`
	Content          string           `json:"content"`
	Text             string           `json:"text"`
	Message          string           `json:"message"`
	ChatCompletionID string           `json:"chatCompletionId"`
	CompletionID     string           `json:"completionId"`
	Interactive      *wireInteractive `json:"interactive"`
	Type             string           `json:"type"`
	Params           *wireParams      `json:"params"`
}

type wireInteractive struct {
	Type   string      `json:"type"`
	Params *wireParams `json:"params"`
}

type wireParams struct {
	UserSelectOptions []domain.SelectOption `json:"userSelectOptions"`
	InputForm         []domain.FormField    `json:"inputForm"`
}

// Classify routes one intermediate event. A non-nil error is only returned
// for malformed interactive payloads; the caller logs it and continues the
// turn. All other unparseable or unrecognized input classifies as ignored.
func Classify(eventType string, payload json.RawMessage) (Event, error) {
	var p wirePayload
	// Payloads are not guaranteed to be objects; correlation and step
	// fields simply stay empty when decoding fails.
	_ = json.Unmarshal(payload, &p)

	ev := Event{Category: CategoryIgnored}
	ev.ResponseID = firstNonEmpty(p.ID, p.ChatCompletionID, p.CompletionID)

	if eventType == "interactive" {
		prompt, err := buildPrompt(&p)
		if err != nil {
			return ev, err
		}
		ev.Category = CategoryInteractive
		ev.Prompt = prompt
		return ev, nil
	}

	if _, ok := stepEvents[eventType]; !ok {
		return ev, nil
	}

	ev.Category = CategoryStep
	ev.Step = buildStep(eventType, &p, payload)
	if strings.HasPrefix(eventType, "thinking") {
		ev.ThinkingSeen = true
		ev.ThinkingDone = eventType == "thinkingEnd"
	}
	return ev, nil
}

func buildStep(eventType string, p *wirePayload, raw json.RawMessage) *domain.ProcessingStep {
	id := firstNonEmpty(p.NodeID, p.ID, p.ModuleID)
	if id == "" {
		id = fmt.Sprintf("%s-%s", eventType, uuid.NewString())
	}
	details := make(json.RawMessage, len(raw))
	copy(details, raw)
	return &domain.ProcessingStep{
		ID:         id,
		Type:       eventType,
		Name:       firstNonEmpty(p.Name, p.ModuleName, p.ToolName, eventType),
		Status:     normalizeStatus(firstNonEmpty(p.Status, p.State)),
		Content:    firstNonEmpty(p.Content, p.Text, p.Message),
		Timestamp:  time.Now(),
		RawDetails: details,
	}
}

func buildPrompt(p *wirePayload) (*domain.InteractivePrompt, error) {
	kind := ""
	params := p.Params
	if p.Interactive != nil {
		kind = p.Interactive.Type
		params = p.Interactive.Params
	} else if p.Type != "" {
		kind = p.Type
	}

	switch domain.PromptKind(kind) {
	case domain.PromptUserSelect:
		if params == nil || len(params.UserSelectOptions) == 0 {
			return nil, domain.NewError(domain.ErrorKindInteractivePayload,
				"userSelect prompt carries no options")
		}
		return &domain.InteractivePrompt{
			Kind:    domain.PromptUserSelect,
			Options: params.UserSelectOptions,
		}, nil
	case domain.PromptUserInput:
		if params == nil || len(params.InputForm) == 0 {
			return nil, domain.NewError(domain.ErrorKindInteractivePayload,
				"userInput prompt carries no form fields")
		}
		return &domain.InteractivePrompt{
			Kind:   domain.PromptUserInput,
			Fields: params.InputForm,
		}, nil
	default:
		return nil, domain.NewError(domain.ErrorKindInteractivePayload,
			fmt.Sprintf("unknown interactive kind %q", kind))
	}
}

// normalizeStatus folds the wire's status vocabulary into the four step
// states the model keeps.
func normalizeStatus(s string) domain.StepStatus {
	switch s {
	case "success", "completed":
		return domain.StepSuccess
	case "error", "failed":
		return domain.StepError
	case "pending":
		return domain.StepPending
	default:
		return domain.StepRunning
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
