// Package records is the reference domain built on the substrate: its
// repository functions run against the document store, its service
// function calls the outside notification service, and its commands
// compose both into business operations.
package records

import (
	"strings"
	"time"
)

// Record is a stored document.
type Record struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput is the payload for creating a record.
type CreateInput struct {
	Name string   `json:"name"`
	Tags []string `json:"tags,omitempty"`
}

func (in CreateInput) validate() []string {
	var issues []string
	name := strings.TrimSpace(in.Name)
	if name == "" {
		issues = append(issues, "name is required")
	}
	if len(name) > 200 {
		issues = append(issues, "name exceeds 200 characters")
	}
	if len(in.Tags) > 20 {
		issues = append(issues, "at most 20 tags are allowed")
	}
	return issues
}

// UpdateArgs carries the target record id plus the replacement fields.
type UpdateArgs struct {
	ID    string
	Input CreateInput
}

// ListQuery filters a record listing.
type ListQuery struct {
	Owner string
}

// Notification is the payload sent to the outside notification service
// when a record is created.
type Notification struct {
	Event    string `json:"event"`
	RecordID string `json:"record_id"`
	Owner    string `json:"owner"`
}
