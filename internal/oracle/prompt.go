package oracle

import (
	"fmt"
	"strings"
)

// Persona is everything the prompt builder needs to put an agent in
// character for one oracle call.
type Persona struct {
	Name       string
	Age        int
	Occupation string
	Background string
	Traits     map[string]float64 // big five, 0..1
}

// PromptInput assembles the situational sections around a persona.
type PromptInput struct {
	Persona        Persona
	SimTime        string
	Location       string
	Activity       string
	ChannelContext string
	PhoneSummary   string
	Memories       []string
	Extra          string
}

// Trait descriptor pairs, applied at the 0.5 threshold. Order fixes the
// rendering order in the prompt.
var traitDescriptors = []struct {
	trait string
	high  string
	low   string
}{
	{"openness", "curious and open to new experiences", "practical and conventional"},
	{"conscientiousness", "organized and dependable", "spontaneous and flexible"},
	{"extraversion", "outgoing and energetic", "reserved and reflective"},
	{"agreeableness", "warm, trusting, and cooperative", "skeptical and guarded"},
	{"neuroticism", "sensitive to stress and easily worried", "calm and emotionally stable"},
}

// DescribeTraits renders a big-five profile as a natural-language clause.
func DescribeTraits(traits map[string]float64) string {
	var parts []string
	for _, d := range traitDescriptors {
		v, ok := traits[d.trait]
		if !ok {
			continue
		}
		if v > 0.5 {
			parts = append(parts, d.high)
		} else {
			parts = append(parts, d.low)
		}
	}
	return strings.Join(parts, "; ")
}

// BuildSystemPrompt renders the full in-character system prompt: identity,
// personality, situation, channel framing, phone state, retrieved memories,
// caller extras, and the response guidelines.
func BuildSystemPrompt(in PromptInput) string {
	var b strings.Builder
	p := in.Persona

	fmt.Fprintf(&b, "You are %s", p.Name)
	if p.Age > 0 {
		fmt.Fprintf(&b, ", %d years old", p.Age)
	}
	if p.Occupation != "" {
		fmt.Fprintf(&b, ", working as %s", p.Occupation)
	}
	b.WriteString(".\n")
	if p.Background != "" {
		b.WriteString(p.Background + "\n")
	}
	if desc := DescribeTraits(p.Traits); desc != "" {
		fmt.Fprintf(&b, "Your personality: %s.\n", desc)
	}

	b.WriteString("\n")
	if in.SimTime != "" {
		fmt.Fprintf(&b, "It is %s.", in.SimTime)
	}
	if in.Location != "" {
		fmt.Fprintf(&b, " You are at the %s.", in.Location)
	}
	if in.Activity != "" {
		fmt.Fprintf(&b, " You are currently %s.", in.Activity)
	}
	b.WriteString("\n")

	if in.ChannelContext != "" {
		b.WriteString("\n" + in.ChannelContext + "\n")
	}
	if in.PhoneSummary != "" {
		b.WriteString("\n" + in.PhoneSummary + "\n")
	}

	if len(in.Memories) > 0 {
		b.WriteString("\nRelevant things you remember:\n")
		for _, m := range in.Memories {
			b.WriteString("- " + m + "\n")
		}
	}

	if in.Extra != "" {
		b.WriteString("\n" + in.Extra + "\n")
	}

	b.WriteString("\nGuidelines: stay fully in character as " + p.Name + ". " +
		"Respond with only what you would say, no narration or stage directions. " +
		"Keep replies to one to three sentences unless the situation demands more.")
	return b.String()
}
