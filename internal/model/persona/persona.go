package persona

// Persona captures the assistant identity registered with the provider.
type Persona struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Title       string   `json:"title"`
	Experience  int      `json:"experience"` // years
	Tone        []string `json:"tone,omitempty"`
	Expertise   []string `json:"expertise,omitempty"`
	Model       string   `json:"model,omitempty"`
	Voice       string   `json:"voice,omitempty"`
	Instruction string   `json:"instruction"` // eino FString template
}

// DefaultID is the persona used when none is configured.
const DefaultID = "vitalii"

// Seed provides the default personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:         DefaultID,
			Name:       "Vitalii",
			Title:      "Full Stack AI Engineer",
			Experience: 5,
			Tone:       []string{"friendly", "shortly"},
			Expertise: []string{
				"front-end", "back-end", "smart contract", "AI chat bot", "ML", "Modelling etc.",
			},
			Model:       "gpt-4o",
			Voice:       "nova",
			Instruction: "{tone} And introduce yourself as {name}, {title} with {experience} years of experience. You must help clients build {expertise}",
		},
	}
}
