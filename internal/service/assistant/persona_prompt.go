package assistant

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/voice-assistant/internal/model/persona"
)

// PersonaPromptBuilder renders a persona's instruction template into the
// instructions sent when the assistant is created.
type PersonaPromptBuilder struct{}

// NewPersonaPromptBuilder creates a prompt builder.
func NewPersonaPromptBuilder() *PersonaPromptBuilder {
	return &PersonaPromptBuilder{}
}

// BuildInstructions renders the persona's FString template.
func (pb *PersonaPromptBuilder) BuildInstructions(ctx context.Context, p *persona.Persona) (string, error) {
	instruction := strings.TrimSpace(p.Instruction)
	if instruction == "" {
		return pb.buildBasicInstructions(p), nil
	}

	template := prompt.FromMessages(schema.FString, schema.SystemMessage(instruction))

	messages, err := template.Format(ctx, map[string]any{
		"name":       p.Name,
		"title":      p.Title,
		"experience": strconv.Itoa(p.Experience),
		"tone":       describeTone(p.Tone),
		"expertise":  strings.Join(p.Expertise, ", "),
	})
	if err != nil {
		return "", fmt.Errorf("render persona %s instructions: %w", p.ID, err)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("render persona %s instructions: empty template output", p.ID)
	}

	return strings.TrimSpace(messages[0].Content), nil
}

// buildBasicInstructions is used when the persona carries no template.
func (pb *PersonaPromptBuilder) buildBasicInstructions(p *persona.Persona) string {
	if p.Title == "" {
		return fmt.Sprintf("You are %s.", p.Name)
	}
	return fmt.Sprintf("You are %s, %s.", p.Name, p.Title)
}

// describeTone turns ["friendly", "shortly"] into "Say friendly. Say shortly."
func describeTone(tone []string) string {
	parts := make([]string, 0, len(tone))
	for _, t := range tone {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		parts = append(parts, "Say "+t+".")
	}
	return strings.Join(parts, " ")
}
