// Package types provides type definitions for structured data used throughout the term-sync system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// Course is the subset of a catalog course record the sync reads and writes.
type Course struct {
	ID           int64     `json:"id"`
	Code         string    `json:"code"`
	Name         string    `json:"name"`
	DepartmentID *int64    `json:"department_id,omitempty"`
	TermTags     []string  `json:"term"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// HasTermTag reports whether the course is already tagged with tag.
func (c *Course) HasTermTag(tag string) bool {
	for _, t := range c.TermTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Department owns zero or more subject prefixes.
type Department struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Prefixes []string `json:"prefixes"`
}

// TermTag labels an academic period in which a course is offered.
type TermTag string

// Known term tags
const (
	TermFall   TermTag = "Fall"
	TermWinter TermTag = "Winter"
	TermSpring TermTag = "Spring"
	TermSummer TermTag = "Summer"
)

// KnownTermTags returns every accepted term tag in calendar order.
func KnownTermTags() []TermTag {
	return []TermTag{TermWinter, TermSpring, TermSummer, TermFall}
}

// IsValid reports whether t is one of the known term tags.
func (t TermTag) IsValid() bool {
	for _, known := range KnownTermTags() {
		if t == known {
			return true
		}
	}
	return false
}
