// Package types provides type definitions for structured data used throughout the fit-agent system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"github.com/go-playground/validator/v10"
)

// QueryType is the classified kind of an incoming query
type QueryType string

const (
	// QueryCompany is a query naming an employer
	QueryCompany QueryType = "company"
	// QueryJobTitle is a query naming a role, optionally at an employer
	QueryJobTitle QueryType = "job_title"
	// QueryJobDescription is a pasted job posting
	QueryJobDescription QueryType = "job_description"
	// QueryIrrelevant is a query outside the assessment domain
	QueryIrrelevant QueryType = "irrelevant"
)

// Mode selects how the classifier treats a query
type Mode string

const (
	// ModeAuto lets the classifier decide the query type
	ModeAuto Mode = "auto"
	// ModeCompany forces company research
	ModeCompany Mode = "company"
	// ModeJobDescription forces job-description handling
	ModeJobDescription Mode = "job_description"
)

// AssessRequest is a validated request to run one assessment
type AssessRequest struct {
	Query string `json:"query" validate:"required,min=2,max=8000"`
	Mode  Mode   `json:"mode,omitempty" validate:"omitempty,oneof=auto company job_description"`
}

// Validate validates the AssessRequest using the validator.
func (r *AssessRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// EffectiveMode returns the mode, defaulting to auto
func (r *AssessRequest) EffectiveMode() Mode {
	if r.Mode == "" {
		return ModeAuto
	}
	return r.Mode
}

// Classification is the output of the connecting phase
type Classification struct {
	InScope  bool      `json:"in_scope"`
	Type     QueryType `json:"query_type"`
	Company  string    `json:"company,omitempty"`
	JobTitle string    `json:"job_title,omitempty"`
	Skills   []string  `json:"skills,omitempty"`
	Reason   string    `json:"reason,omitempty"`
}

// IsJobDescriptionWithSkills reports whether the query is a job description
// carrying at least minSkills extracted skills.
func (c *Classification) IsJobDescriptionWithSkills(minSkills int) bool {
	if c == nil {
		return false
	}
	return c.Type == QueryJobDescription && len(c.Skills) >= minSkills
}

// Subject returns the best human-readable subject of the query
func (c *Classification) Subject() string {
	if c == nil {
		return ""
	}
	switch {
	case c.Company != "" && c.JobTitle != "":
		return c.JobTitle + " at " + c.Company
	case c.Company != "":
		return c.Company
	default:
		return c.JobTitle
	}
}
