package room

const (
	EventRoomCreated               = "roomCreated"
	EventJoinedRoom                = "joinedRoom"
	EventLeftRoom                  = "leftRoom"
	EventConnectionLost            = "connectionLost"
	EventKicked                    = "kicked"
	EventUsernameSet               = "usernameSet"
	EventEmailSet                  = "emailSet"
	EventAvatarSet                 = "avatarSet"
	EventExcludedFromEstimations   = "excludedFromEstimations"
	EventIncludedInEstimations     = "includedInEstimations"
	EventTokenIssued               = "tokenIssued"
	EventStoryAdded                = "storyAdded"
	EventStoryChanged              = "storyChanged"
	EventStorySelected             = "storySelected"
	EventStoryTrashed              = "storyTrashed"
	EventStoryRestored             = "storyRestored"
	EventStoryDeleted              = "storyDeleted"
	EventSortOrderSet              = "sortOrderSet"
	EventStoryEstimateGiven        = "storyEstimateGiven"
	EventStoryEstimateCleared      = "storyEstimateCleared"
	EventRevealed                  = "revealed"
	EventConsensusAchieved         = "consensusAchieved"
	EventNewEstimationRoundStarted = "newEstimationRoundStarted"
	EventCardConfigSet             = "cardConfigSet"
	EventRoomConfigSet             = "roomConfigSet"
	EventPasswordSet               = "passwordSet"
	EventPasswordCleared           = "passwordCleared"
)

// JoinedRoom carries the room as the joining user will see it.
type JoinedRoom struct {
	Stories           []Story `json:"stories"`
	SelectedStory     string  `json:"selectedStory,omitempty"`
	Users             []User  `json:"users"`
	CardConfig        []Card  `json:"cardConfig"`
	AutoReveal        bool    `json:"autoReveal"`
	WithConfidence    bool    `json:"withConfidence"`
	PasswordProtected bool    `json:"passwordProtected"`
}

type UserRef struct {
	UserID string `json:"userId"`
}

type UsernameSet struct {
	Username string `json:"username"`
}

type EmailSet struct {
	Email     string `json:"email"`
	EmailHash string `json:"emailHash"`
}

type AvatarSet struct {
	Avatar int `json:"avatar"`
}

type TokenIssued struct {
	Token string `json:"token"`
}

type StoryAdded struct {
	StoryID     string `json:"storyId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type StoryChanged struct {
	StoryID     string `json:"storyId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type StoryRef struct {
	StoryID string `json:"storyId"`
}

type SortOrderSet struct {
	SortOrder []string `json:"sortOrder"`
}

type StoryEstimateGiven struct {
	StoryID    string  `json:"storyId"`
	Value      float64 `json:"value"`
	Confidence int     `json:"confidence,omitempty"`
}

type Revealed struct {
	StoryID  string `json:"storyId"`
	Manually bool   `json:"manually"`
}

type ConsensusAchieved struct {
	StoryID string  `json:"storyId"`
	Value   float64 `json:"value"`
}

type CardConfigSet struct {
	CardConfig []Card `json:"cardConfig"`
}

type RoomConfigSet struct {
	AutoReveal     bool `json:"autoReveal"`
	WithConfidence bool `json:"withConfidence"`
}

type PasswordSet struct {
	Password string `json:"password"` // bcrypt hash, stripped by Public
}
