// Package models defines the domain models for the workflow governance service
package models

import (
	"time"
)

// Identity is the acting user as supplied by the identity provider.
type Identity struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// DraftRecord is the client-local shadow copy of an unsaved workflow.
type DraftRecord struct {
	ID                string    `json:"id"`
	Workflow          Workflow  `json:"workflow"`
	Timestamp         time.Time `json:"timestamp"`
	ExpiresAt         time.Time `json:"expiresAt"`
	ClientFingerprint string    `json:"clientFingerprint,omitempty"`
}

// Expired reports whether the record is past its expiry at now.
func (r DraftRecord) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Comment is a discussion entry attached to a workflow.
type Comment struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflowId"`
	UserID     string    `json:"userId"`
	UserName   string    `json:"userName"`
	Content    string    `json:"content"`
	ParentID   string    `json:"parentId,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ShareRecord grants one user access to a workflow.
type ShareRecord struct {
	ID          string     `json:"id"`
	WorkflowID  string     `json:"workflowId"`
	UserID      string     `json:"userId"`
	Permissions Permission `json:"permissions"`
	SharedBy    string     `json:"sharedBy"`
	SharedAt    time.Time  `json:"sharedAt"`
}

// Bundle is a predefined catalog template of tools and implementation steps.
type Bundle struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Description   string   `json:"description" yaml:"description"`
	Category      string   `json:"category,omitempty" yaml:"category"`
	Tools         []string `json:"tools,omitempty" yaml:"tools"`
	Steps         []string `json:"steps,omitempty" yaml:"steps"`
	EstimatedCost string   `json:"estimatedCost,omitempty" yaml:"estimated_cost"`
}

// HealthStatus represents service health
type HealthStatus struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// ProblemDetails represents RFC 7807 Problem Details
type ProblemDetails struct {
	Type     string   `json:"type"`
	Title    string   `json:"title"`
	Status   int      `json:"status"`
	Detail   string   `json:"detail,omitempty"`
	Instance string   `json:"instance,omitempty"`
	TraceID  string   `json:"trace_id,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}
