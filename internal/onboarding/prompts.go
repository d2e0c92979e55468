package onboarding

import "github.com/atinyakov/GophIntake/internal/models"

type question struct {
	prompt      string
	suggestions []string
}

var questions = map[models.Step]question{
	models.AwaitingEmail: {
		prompt: "What's your email address?",
	},
	models.AwaitingSecretPhrase: {
		prompt: "Pick a secret phrase you'll remember. You'll need it to pick up where you left off.",
	},
	models.AwaitingName: {
		prompt: "What should we call you?",
	},
	models.AwaitingWhatsApp: {
		prompt: "What's your WhatsApp number, including the country code?",
	},
	models.AwaitingEngineeringArea: {
		prompt:      "Which engineering area are you in?",
		suggestions: []string{"Backend", "Frontend", "Full-stack", "Mobile", "DevOps", "Data/ML"},
	},
	models.AwaitingSkillLevel: {
		prompt:      "How would you rate your current skill level?",
		suggestions: []string{"Beginner", "Intermediate", "Advanced", "Expert"},
	},
	models.AwaitingImprovementGoals: {
		prompt:      "What do you most want to get better at?",
		suggestions: []string{"System design", "Writing cleaner code", "Testing", "Communication"},
	},
	models.AwaitingCareerGoals: {
		prompt:      "Where do you want your career to be in two years?",
		suggestions: []string{"Senior engineer", "Tech lead", "Switch domains", "Start a company"},
	},
	models.AwaitingGitHub: {
		prompt:      "Share your GitHub profile, or skip.",
		suggestions: []string{"Skip"},
	},
	models.AwaitingLinkedIn: {
		prompt:      "Share your LinkedIn profile, or skip.",
		suggestions: []string{"Skip"},
	},
	models.AwaitingPortfolio: {
		prompt:      "Do you have a portfolio or personal site? Share it, or skip.",
		suggestions: []string{"Skip"},
	},
	models.AwaitingProjects: {
		prompt:      "Tell us about a project you're proud of.",
		suggestions: []string{"A side project", "Something from work", "Open source contribution"},
	},
	models.AwaitingTimeCommitment: {
		prompt:      "How much time can you commit each week?",
		suggestions: []string{"1-3 hours", "3-5 hours", "5-10 hours", "10+ hours"},
	},
	models.AwaitingLearningStyle: {
		prompt:      "How do you learn best?",
		suggestions: []string{"Pair programming", "Code reviews", "Reading", "Building projects"},
	},
	models.AwaitingTechFocus: {
		prompt:      "Which technologies do you want to focus on?",
		suggestions: []string{"Go", "TypeScript", "Python", "Cloud", "Kubernetes"},
	},
	models.AwaitingSuccessDefinition: {
		prompt:      "What would make this mentorship a success for you?",
		suggestions: []string{"Landing a new role", "Shipping a project", "Leveling up"},
	},
	models.Completed: {
		prompt:      "That's everything. Ready to submit your application?",
		suggestions: []string{"Submit", "Review my answers"},
	},
	models.FreeChat: {
		prompt:      "Your application is in. Anything else you'd like to talk about?",
		suggestions: []string{"Check my status", "Update my profile"},
	},
}

// Prompt returns the question asked at step s.
func Prompt(s models.Step) string {
	return questions[s].prompt
}

// Suggestions returns a fresh copy of the quick replies for step s.
func Suggestions(s models.Step) []string {
	return append([]string{}, questions[s].suggestions...)
}

// VerificationSuggestions are offered while a returning user must prove
// ownership of an email.
func VerificationSuggestions() []string {
	return []string{"I forgot my phrase", "Start fresh"}
}

// VerificationPrompt is asked when an email collision needs the phrase.
const VerificationPrompt = "Welcome back! Enter your secret phrase to continue where you left off."
