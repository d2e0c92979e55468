package models

// Step identifies one stage of the onboarding conversation.
type Step string

const (
	AwaitingEmail             Step = "AWAITING_EMAIL"
	AwaitingSecretPhrase      Step = "AWAITING_SECRET_PHRASE"
	AwaitingName              Step = "AWAITING_NAME"
	AwaitingWhatsApp          Step = "AWAITING_WHATSAPP"
	AwaitingEngineeringArea   Step = "AWAITING_ENGINEERING_AREA"
	AwaitingSkillLevel        Step = "AWAITING_SKILL_LEVEL"
	AwaitingImprovementGoals  Step = "AWAITING_IMPROVEMENT_GOALS"
	AwaitingCareerGoals       Step = "AWAITING_CAREER_GOALS"
	AwaitingGitHub            Step = "AWAITING_GITHUB"
	AwaitingLinkedIn          Step = "AWAITING_LINKEDIN"
	AwaitingPortfolio         Step = "AWAITING_PORTFOLIO"
	AwaitingProjects          Step = "AWAITING_PROJECTS"
	AwaitingTimeCommitment    Step = "AWAITING_TIME_COMMITMENT"
	AwaitingLearningStyle     Step = "AWAITING_LEARNING_STYLE"
	AwaitingTechFocus         Step = "AWAITING_TECH_FOCUS"
	AwaitingSuccessDefinition Step = "AWAITING_SUCCESS_DEFINITION"
	Completed                 Step = "COMPLETED"
	FreeChat                  Step = "FREE_CHAT"
)

// StepOrder is the authoritative question order. Terminal states come last.
var StepOrder = []Step{
	AwaitingEmail,
	AwaitingSecretPhrase,
	AwaitingName,
	AwaitingWhatsApp,
	AwaitingEngineeringArea,
	AwaitingSkillLevel,
	AwaitingImprovementGoals,
	AwaitingCareerGoals,
	AwaitingGitHub,
	AwaitingLinkedIn,
	AwaitingPortfolio,
	AwaitingProjects,
	AwaitingTimeCommitment,
	AwaitingLearningStyle,
	AwaitingTechFocus,
	AwaitingSuccessDefinition,
	Completed,
	FreeChat,
}

// Index returns the position of s in StepOrder, or -1 if s is unknown.
func (s Step) Index() int {
	for i, step := range StepOrder {
		if step == s {
			return i
		}
	}
	return -1
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool { return s.Index() >= 0 }

// Terminal reports whether onboarding is over for s.
func (s Step) Terminal() bool { return s == Completed || s == FreeChat }

// ParseStep accepts both the canonical name and a lowercase short form
// such as "career_goals".
func ParseStep(v string) (Step, bool) {
	s := Step(v)
	if s.Valid() {
		return s, true
	}
	for _, step := range StepOrder {
		if f, ok := StepField(step); ok && string(f) == v {
			return step, true
		}
	}
	return "", false
}
