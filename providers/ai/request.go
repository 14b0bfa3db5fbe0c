package ai

import (
	"strings"
)

// ClampTemperature bounds temperature to [low, high]. A nil temperature
// stays nil so the vendor default applies.
func ClampTemperature(temperature *float64, low, high float64) *float64 {
	if temperature == nil {
		return nil
	}
	clamped := min(max(*temperature, low), high)
	return &clamped
}

// SplitSystem separates system instructions from the conversation for vendors
// that carry them outside the message list. The request's SystemPrompt comes
// first, followed by the content of every system-role message in order,
// joined by blank lines. The remaining messages keep their order.
func (r ChatRequest) SplitSystem() (string, []Message) {
	var system []string
	if prompt := strings.TrimSpace(r.SystemPrompt); prompt != "" {
		system = append(system, prompt)
	}

	conversation := make([]Message, 0, len(r.Messages))
	for _, message := range r.Messages {
		if message.Role == RoleSystem {
			if content := strings.TrimSpace(message.Content); content != "" {
				system = append(system, content)
			}
			continue
		}
		conversation = append(conversation, message)
	}
	return strings.Join(system, "\n\n"), conversation
}

// WithLeadingSystem returns the messages with SystemPrompt, when set,
// prepended as a system-role message. Used by vendors whose system prompt is
// just the first message.
func (r ChatRequest) WithLeadingSystem() []Message {
	if strings.TrimSpace(r.SystemPrompt) == "" {
		return r.Messages
	}
	messages := make([]Message, 0, len(r.Messages)+1)
	messages = append(messages, Message{Role: RoleSystem, Content: r.SystemPrompt})
	return append(messages, r.Messages...)
}

// Passthrough picks the metadata entries a vendor accepts as extra top-level
// request fields. Keys are converted with convert (SnakeCase or CamelCase,
// matching the vendor's wire casing) before being checked against allowed;
// nested object keys are converted the same way.
func (r ChatRequest) Passthrough(convert func(string) string, allowed ...string) map[string]Value {
	if len(r.Metadata) == 0 {
		return nil
	}
	accepted := make(map[string]bool, len(allowed))
	for _, key := range allowed {
		accepted[key] = true
	}

	var selected map[string]Value
	for key, value := range r.Metadata {
		wireKey := convert(key)
		if !accepted[wireKey] {
			continue
		}
		if selected == nil {
			selected = make(map[string]Value)
		}
		selected[wireKey] = value.ConvertKeys(convert)
	}
	return selected
}

// MetadataString returns the string metadata entry named key.
func (r ChatRequest) MetadataString(key string) string {
	value, ok := r.Metadata[key]
	if !ok {
		return ""
	}
	text, _ := value.AsString()
	return text
}
