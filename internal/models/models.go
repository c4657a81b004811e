package models

import "time"

// Prospect is a discovered profile candidate for outreach. The profile URL
// is its identity key: a prospect is never stored twice under the same URL.
type Prospect struct {
	ID           int64     `json:"id,omitempty"`
	ProfileURL   string    `json:"profile_url"`
	Name         string    `json:"name"`
	JobTitle     string    `json:"job_title"`
	Location     string    `json:"location,omitempty"`
	Company      string    `json:"company,omitempty"`
	SearchSource string    `json:"search_source,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
}

// ConnectionResult is the outcome of one connection attempt. It is written
// once and never mutated. Success implies MessageSent is non-empty;
// failure implies ErrorClass is non-empty.
type ConnectionResult struct {
	ID           int64
	ProfileURL   string
	Success      bool
	MessageSent  string
	ErrorClass   string
	RetryCount   int
	Elapsed      time.Duration
	UsedFallback bool
	CreatedAt    time.Time
}

// Connection error classifications recorded in ConnectionResult.ErrorClass.
const (
	ErrClassNavigation       = "navigation"
	ErrClassInsufficientData = "insufficient-data"
	ErrClassButtonNotFound   = "button-not-found"
	ErrClassModalHandling    = "modal-handling"
)

// RunSummary is the per-run report appended at the end of a discovery or
// connection run.
type RunSummary struct {
	ID               int64
	RunType          string
	ProspectsFound   int
	DuplicatesFound  int
	ValidationErrors int
	TotalProspects   int
	Successful       int
	Failed           int
	Elapsed          time.Duration
	CreatedAt        time.Time
}

const (
	RunTypeDiscovery  = "discovery"
	RunTypeConnection = "connection"
)
