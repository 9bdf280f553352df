package types

import (
	"github.com/go-playground/validator/v10"
)

// CandidateProfile is the fixed, read-only profile assessed against every query
type CandidateProfile struct {
	Name        string         `yaml:"name" json:"name" validate:"required"`
	Headline    string         `yaml:"headline" json:"headline,omitempty"`
	Skills      []ProfileSkill `yaml:"skills" json:"skills" validate:"required,min=1,dive"`
	Experience  []Position     `yaml:"experience" json:"experience,omitempty" validate:"dive"`
	Preferences Preferences    `yaml:"preferences" json:"preferences"`
}

// ProfileSkill is one skill held by the candidate
type ProfileSkill struct {
	Name  string  `yaml:"name" json:"name" validate:"required"`
	Level string  `yaml:"level" json:"level,omitempty" validate:"omitempty,oneof=beginner intermediate advanced expert"`
	Years float64 `yaml:"years" json:"years,omitempty" validate:"gte=0"`
}

// Position is one entry of work history
type Position struct {
	Company string   `yaml:"company" json:"company" validate:"required"`
	Title   string   `yaml:"title" json:"title" validate:"required"`
	Years   float64  `yaml:"years" json:"years,omitempty" validate:"gte=0"`
	Skills  []string `yaml:"skills" json:"skills,omitempty"`
}

// Preferences captures what the candidate is looking for
type Preferences struct {
	Remote    bool     `yaml:"remote" json:"remote"`
	Locations []string `yaml:"locations" json:"locations,omitempty"`
	Values    []string `yaml:"values" json:"values,omitempty"`
}

// Validate validates the CandidateProfile using the validator.
func (p *CandidateProfile) Validate() error {
	validate := validator.New()
	return validate.Struct(p)
}

// SkillNames returns the candidate's skill names in profile order
func (p *CandidateProfile) SkillNames() []string {
	names := make([]string, 0, len(p.Skills))
	for _, s := range p.Skills {
		names = append(names, s.Name)
	}
	return names
}
