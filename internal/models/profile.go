package models

// Field names one profile attribute collected during onboarding.
type Field string

const (
	FieldEmail             Field = "email"
	FieldName              Field = "name"
	FieldWhatsApp          Field = "whatsapp"
	FieldEngineeringArea   Field = "engineering_area"
	FieldSkillLevel        Field = "skill_level"
	FieldImprovementGoals  Field = "improvement_goals"
	FieldCareerGoals       Field = "career_goals"
	FieldGitHub            Field = "github"
	FieldLinkedIn          Field = "linkedin"
	FieldPortfolio         Field = "portfolio"
	FieldProjects          Field = "projects"
	FieldTimeCommitment    Field = "time_commitment"
	FieldLearningStyle     Field = "learning_style"
	FieldTechFocus         Field = "tech_focus"
	FieldSuccessDefinition Field = "success_definition"
)

// NotApplicable is stored when an optional question is skipped.
const NotApplicable = "N/A"

type fieldInfo struct {
	label    string
	step     Step
	optional bool
}

var fields = map[Field]fieldInfo{
	FieldEmail:             {label: "email", step: AwaitingEmail},
	FieldName:              {label: "name", step: AwaitingName},
	FieldWhatsApp:          {label: "whatsapp number", step: AwaitingWhatsApp},
	FieldEngineeringArea:   {label: "engineering area", step: AwaitingEngineeringArea},
	FieldSkillLevel:        {label: "skill level", step: AwaitingSkillLevel},
	FieldImprovementGoals:  {label: "improvement goals", step: AwaitingImprovementGoals},
	FieldCareerGoals:       {label: "career goals", step: AwaitingCareerGoals},
	FieldGitHub:            {label: "github", step: AwaitingGitHub, optional: true},
	FieldLinkedIn:          {label: "linkedin", step: AwaitingLinkedIn, optional: true},
	FieldPortfolio:         {label: "portfolio", step: AwaitingPortfolio, optional: true},
	FieldProjects:          {label: "projects", step: AwaitingProjects},
	FieldTimeCommitment:    {label: "time commitment", step: AwaitingTimeCommitment},
	FieldLearningStyle:     {label: "learning style", step: AwaitingLearningStyle},
	FieldTechFocus:         {label: "tech focus", step: AwaitingTechFocus},
	FieldSuccessDefinition: {label: "success definition", step: AwaitingSuccessDefinition},
}

// Fields lists every profile field in question order.
func Fields() []Field {
	out := make([]Field, 0, len(fields))
	for _, step := range StepOrder {
		if f, ok := StepField(step); ok {
			out = append(out, f)
		}
	}
	return out
}

// Label is the human-readable name used in prompts and error messages.
func (f Field) Label() string { return fields[f].label }

// Optional reports whether onboarding can complete without f.
func (f Field) Optional() bool { return fields[f].optional }

// Valid reports whether f is a known profile field.
func (f Field) Valid() bool {
	_, ok := fields[f]
	return ok
}

// Step returns the onboarding step that collects f.
func (f Field) Step() Step { return fields[f].step }

// StepField maps a collecting step to its profile field. The secret phrase
// step and the terminal states have no profile field.
func StepField(s Step) (Field, bool) {
	for f, info := range fields {
		if info.step == s {
			return f, true
		}
	}
	return "", false
}

// Profile is the applicant data gathered by the conversation.
type Profile struct {
	Email             string `json:"email,omitempty"`
	Name              string `json:"name,omitempty"`
	WhatsApp          string `json:"whatsapp,omitempty"`
	EngineeringArea   string `json:"engineering_area,omitempty"`
	SkillLevel        string `json:"skill_level,omitempty"`
	ImprovementGoals  string `json:"improvement_goals,omitempty"`
	CareerGoals       string `json:"career_goals,omitempty"`
	GitHub            string `json:"github,omitempty"`
	LinkedIn          string `json:"linkedin,omitempty"`
	Portfolio         string `json:"portfolio,omitempty"`
	Projects          string `json:"projects,omitempty"`
	TimeCommitment    string `json:"time_commitment,omitempty"`
	LearningStyle     string `json:"learning_style,omitempty"`
	TechFocus         string `json:"tech_focus,omitempty"`
	SuccessDefinition string `json:"success_definition,omitempty"`
}

func (p *Profile) ref(f Field) *string {
	switch f {
	case FieldEmail:
		return &p.Email
	case FieldName:
		return &p.Name
	case FieldWhatsApp:
		return &p.WhatsApp
	case FieldEngineeringArea:
		return &p.EngineeringArea
	case FieldSkillLevel:
		return &p.SkillLevel
	case FieldImprovementGoals:
		return &p.ImprovementGoals
	case FieldCareerGoals:
		return &p.CareerGoals
	case FieldGitHub:
		return &p.GitHub
	case FieldLinkedIn:
		return &p.LinkedIn
	case FieldPortfolio:
		return &p.Portfolio
	case FieldProjects:
		return &p.Projects
	case FieldTimeCommitment:
		return &p.TimeCommitment
	case FieldLearningStyle:
		return &p.LearningStyle
	case FieldTechFocus:
		return &p.TechFocus
	case FieldSuccessDefinition:
		return &p.SuccessDefinition
	}
	return nil
}

// Get returns the value of f, or "" for unknown fields.
func (p Profile) Get(f Field) string {
	if r := p.ref(f); r != nil {
		return *r
	}
	return ""
}

// Set assigns v to f. It returns false if f is not a profile field.
func (p *Profile) Set(f Field, v string) bool {
	r := p.ref(f)
	if r == nil {
		return false
	}
	*r = v
	return true
}

// Has reports whether f holds a usable (non-blank, non-skipped) value.
func (p Profile) Has(f Field) bool {
	v := p.Get(f)
	return v != "" && v != NotApplicable
}
