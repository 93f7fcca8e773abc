package room

import (
	"sort"
	"time"
)

const AggregateType = "Room"

// Room is the state of one estimation room. Handlers read it; only the
// appliers in this package produce new values.
type Room struct {
	ID             string           `json:"id"`
	Version        int              `json:"version"`
	Users          map[string]User  `json:"users"`
	Stories        map[string]Story `json:"stories"`
	SelectedStory  string           `json:"selectedStory,omitempty"`
	CardConfig     []Card           `json:"cardConfig,omitempty"` // nil means DefaultCardConfig
	AutoReveal     bool             `json:"autoReveal"`
	WithConfidence bool             `json:"withConfidence"`
	Password       string           `json:"password,omitempty"` // bcrypt hash
	Created        time.Time        `json:"created"`
	LastActivity   time.Time        `json:"lastActivity"`

	pristine bool
}

type User struct {
	ID           string `json:"id"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	EmailHash    string `json:"emailHash,omitempty"`
	Avatar       *int   `json:"avatar,omitempty"`
	Disconnected bool   `json:"disconnected"`
	Excluded     bool   `json:"excluded,omitempty"`
}

type Story struct {
	ID          string                `json:"id"`
	Title       string                `json:"title"`
	Description string                `json:"description,omitempty"`
	Created     time.Time             `json:"createdAt"`
	SortOrder   int                   `json:"sortOrder"`
	Estimations map[string]Estimation `json:"estimations"`
	Revealed    bool                  `json:"revealed,omitempty"`
	Trashed     bool                  `json:"trashed,omitempty"`
	Consensus   *float64              `json:"consensus,omitempty"`
}

type Estimation struct {
	Value      float64 `json:"value"`
	Confidence int     `json:"confidence,omitempty"`
}

type Card struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color"`
}

// DefaultCardConfig is used by rooms that never set their own deck.
var DefaultCardConfig = []Card{
	{Label: "?", Value: -2, Color: "#bdbfbf"},
	{Label: "1/2", Value: 0.5, Color: "#667a66"},
	{Label: "1", Value: 1, Color: "#839e7a"},
	{Label: "2", Value: 2, Color: "#8cb080"},
	{Label: "3", Value: 3, Color: "#95c387"},
	{Label: "5", Value: 5, Color: "#9ed68d"},
	{Label: "8", Value: 8, Color: "#add67f"},
	{Label: "13", Value: 13, Color: "#bbd672"},
	{Label: "21", Value: 21, Color: "#c9d665"},
	{Label: "34", Value: 34, Color: "#d6d457"},
	{Label: "55", Value: 55, Color: "#d6c44a"},
	{Label: "☕", Value: -1, Color: "#b4a27c"},
}

// New returns the pristine room a creating command starts from.
func New(id string, now time.Time) Room {
	return Room{
		ID:           id,
		Users:        map[string]User{},
		Stories:      map[string]Story{},
		AutoReveal:   true,
		Created:      now,
		LastActivity: now,
		pristine:     true,
	}
}

func (r Room) GetID() string    { return r.ID }
func (r Room) GetVersion() int  { return r.Version }
func (r Room) IsPristine() bool { return r.pristine }

// Settle marks the room as stored.
func (r Room) Settle() Room {
	r.pristine = false
	return r
}

// Clone returns a deep copy sharing no maps or slices with r.
func (r Room) Clone() Room {
	c := r
	c.Users = make(map[string]User, len(r.Users))
	for id, u := range r.Users {
		if u.Avatar != nil {
			avatar := *u.Avatar
			u.Avatar = &avatar
		}
		c.Users[id] = u
	}
	c.Stories = make(map[string]Story, len(r.Stories))
	for id, s := range r.Stories {
		c.Stories[id] = s.clone()
	}
	if r.CardConfig != nil {
		c.CardConfig = append([]Card(nil), r.CardConfig...)
	}
	return c
}

func (s Story) clone() Story {
	c := s
	c.Estimations = make(map[string]Estimation, len(s.Estimations))
	for userID, e := range s.Estimations {
		c.Estimations[userID] = e
	}
	if s.Consensus != nil {
		v := *s.Consensus
		c.Consensus = &v
	}
	return c
}

// Cards returns the room's deck.
func (r Room) Cards() []Card {
	if len(r.CardConfig) == 0 {
		return DefaultCardConfig
	}
	return r.CardConfig
}

func (r Room) PasswordProtected() bool {
	return r.Password != ""
}

func (r Room) HasUser(userID string) bool {
	_, ok := r.Users[userID]
	return ok
}

// UserList returns users ordered by id.
func (r Room) UserList() []User {
	users := make([]User, 0, len(r.Users))
	for _, u := range r.Users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// StoryList returns stories by sort order, then creation time.
func (r Room) StoryList() []Story {
	stories := make([]Story, 0, len(r.Stories))
	for _, s := range r.Stories {
		stories = append(stories, s)
	}
	sort.Slice(stories, func(i, j int) bool {
		if stories[i].SortOrder != stories[j].SortOrder {
			return stories[i].SortOrder < stories[j].SortOrder
		}
		if !stories[i].Created.Equal(stories[j].Created) {
			return stories[i].Created.Before(stories[j].Created)
		}
		return stories[i].ID < stories[j].ID
	})
	return stories
}

// ActiveStoryIDs lists the ids of stories that are not trashed, in list order.
func (r Room) ActiveStoryIDs() []string {
	var ids []string
	for _, s := range r.StoryList() {
		if !s.Trashed {
			ids = append(ids, s.ID)
		}
	}
	return ids
}

// Estimators are the users whose estimate is awaited: connected and not excluded.
func (r Room) Estimators() []User {
	var users []User
	for _, u := range r.UserList() {
		if !u.Disconnected && !u.Excluded {
			users = append(users, u)
		}
	}
	return users
}

func (r Room) nextSortOrder() int {
	next := 0
	for _, s := range r.Stories {
		if s.SortOrder >= next {
			next = s.SortOrder + 1
		}
	}
	return next
}
