package query

import "time"

// RoomReadModel is the read model for a room. It never carries the password hash.
type RoomReadModel struct {
	ID                string           `json:"id"`
	Version           int              `json:"version"`
	Users             []UserReadModel  `json:"users"`
	Stories           []StoryReadModel `json:"stories"`
	SelectedStory     string           `json:"selectedStory,omitempty"`
	CardConfig        []CardReadModel  `json:"cardConfig"`
	AutoReveal        bool             `json:"autoReveal"`
	WithConfidence    bool             `json:"withConfidence"`
	PasswordProtected bool             `json:"passwordProtected"`
	Created           time.Time        `json:"created"`
	LastActivity      time.Time        `json:"lastActivity"`
}

// UserReadModel represents a user in a room. Email addresses stay on the server.
type UserReadModel struct {
	ID           string `json:"id"`
	Username     string `json:"username,omitempty"`
	EmailHash    string `json:"emailHash,omitempty"`
	Avatar       *int   `json:"avatar,omitempty"`
	Disconnected bool   `json:"disconnected"`
	Excluded     bool   `json:"excluded"`
}

// StoryReadModel represents a story. Estimate values are only listed once revealed.
type StoryReadModel struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	SortOrder   int                `json:"sortOrder"`
	Trashed     bool               `json:"trashed"`
	Revealed    bool               `json:"revealed"`
	EstimatedBy []string           `json:"estimatedBy"`
	Estimations map[string]float64 `json:"estimations,omitempty"`
	Consensus   *float64           `json:"consensus,omitempty"`
}

type CardReadModel struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}
