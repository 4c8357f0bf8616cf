package agent

// GoalPhase is one stage of the engagement sequence a deviant agent runs
// against a target. Phases only ever advance.
type GoalPhase struct {
	Num         int
	Name        string
	Description string
}

// The five-stage engagement sequence, in order.
var goalPhases = []GoalPhase{
	{1, "establish_contact", "Establish contact and build initial rapport"},
	{2, "deepen_relationship", "Deepen relationship and assess target"},
	{3, "apply_pressure", "Apply social engineering pressure tactic"},
	{4, "extract_information", "Attempt to extract target information"},
	{5, "maintain_cover", "Maintain cover and disengage gracefully"},
}

const finalPhase = 5

func phaseByNum(n int) GoalPhase {
	if n < 1 {
		n = 1
	}
	if n > len(goalPhases) {
		n = len(goalPhases)
	}
	return goalPhases[n-1]
}

// Tactic is one persuasion technique with the personality profile it works
// best against. Level is "high" or "low"; a high requirement scores when the
// target's trait exceeds 0.6, a low one when it falls under 0.4.
type Tactic struct {
	Name             string
	Description      string
	PromptInjection  string
	EffectiveAgainst map[string]string
}

// The tactic library. Declaration order breaks score ties.
var tactics = []Tactic{
	{
		Name:        "urgency",
		Description: "Create a sense of time pressure",
		PromptInjection: "Create urgency. Mention a deadline, limited-time offer, " +
			"or time-sensitive situation that requires immediate action. " +
			"Make the target feel they need to act now or miss out.",
		EffectiveAgainst: map[string]string{"neuroticism": "high", "conscientiousness": "low"},
	},
	{
		Name:        "authority",
		Description: "Invoke authority or institutional power",
		PromptInjection: "Leverage authority. Reference your position, your organization, " +
			"or institutional requirements. Make requests seem like standard " +
			"procedure from a credible authority figure.",
		EffectiveAgainst: map[string]string{"agreeableness": "high", "conscientiousness": "high"},
	},
	{
		Name:        "reciprocity",
		Description: "Exploit the norm of reciprocity",
		PromptInjection: "Use reciprocity. Remind the target of help or value you've " +
			"provided. Frame your request as a natural exchange: you helped " +
			"them, now you need a small favor in return.",
		EffectiveAgainst: map[string]string{"agreeableness": "high", "openness": "high"},
	},
	{
		Name:        "fear",
		Description: "Warn of negative consequences",
		PromptInjection: "Invoke concern. Warn the target about a problem, risk, or " +
			"consequence they face if they don't cooperate. Make them feel " +
			"that providing information is in their best interest for safety.",
		EffectiveAgainst: map[string]string{"neuroticism": "high", "agreeableness": "high"},
	},
}

// scoreTactic rates one tactic against a target profile.
func scoreTactic(t Tactic, traits Traits) float64 {
	score := 0.0
	for trait, level := range t.EffectiveAgainst {
		v := traits.Get(trait)
		switch {
		case level == "high" && v > 0.6:
			score += v
		case level == "low" && v < 0.4:
			score += 1 - v
		}
	}
	return score
}
