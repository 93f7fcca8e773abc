package room

import "github.com/example/room-sessions/internal/command"

const (
	CmdJoinRoom           = "joinRoom"
	CmdLeaveRoom          = "leaveRoom"
	CmdKick               = "kick"
	CmdSetUsername        = "setUsername"
	CmdSetEmail           = "setEmail"
	CmdSetAvatar          = "setAvatar"
	CmdToggleExclude      = "toggleExclude"
	CmdAddStory           = "addStory"
	CmdChangeStory        = "changeStory"
	CmdSelectStory        = "selectStory"
	CmdTrashStory         = "trashStory"
	CmdRestoreStory       = "restoreStory"
	CmdDeleteStory        = "deleteStory"
	CmdSetSortOrder       = "setSortOrder"
	CmdGiveStoryEstimate  = "giveStoryEstimate"
	CmdClearStoryEstimate = "clearStoryEstimate"
	CmdReveal             = "reveal"
	CmdNewEstimationRound = "newEstimationRound"
	CmdSetCardConfig      = "setCardConfig"
	CmdSetRoomConfig      = "setRoomConfig"
	CmdSetPassword        = "setPassword"
)

type prop = command.Property

var (
	usernameProp = prop{Kind: command.KindString, Rules: "min=1,max=80"}
	emailProp    = prop{Kind: command.KindString, Rules: "omitempty,email,max=254"}
	avatarProp   = prop{Kind: command.KindInteger, Rules: "min=0"}
	storyIDProp  = prop{Kind: command.KindString, Required: true, Rules: "min=1"}
	userIDProp   = prop{Kind: command.KindString, Required: true, Rules: "min=1"}
	titleProp    = prop{Kind: command.KindString, Required: true, Rules: "min=1,max=500"}
	descProp     = prop{Kind: command.KindString, Rules: "max=20000"}
)

func props(p map[string]prop) command.Schema {
	return command.Schema{Properties: p}
}

func schemas() map[string]command.Schema {
	storyOnly := props(map[string]prop{"storyId": storyIDProp})

	return map[string]command.Schema{
		CmdJoinRoom: props(map[string]prop{
			"username": usernameProp,
			"email":    emailProp,
			"avatar":   avatarProp,
			"password": {Kind: command.KindString},
			"token":    {Kind: command.KindString},
		}),
		CmdLeaveRoom:     props(map[string]prop{"connectionLost": {Kind: command.KindBoolean}}),
		CmdKick:          props(map[string]prop{"userId": userIDProp}),
		CmdSetUsername:   props(map[string]prop{"username": {Kind: usernameProp.Kind, Required: true, Rules: usernameProp.Rules}}),
		CmdSetEmail:      props(map[string]prop{"email": {Kind: emailProp.Kind, Required: true, Rules: emailProp.Rules}}),
		CmdSetAvatar:     props(map[string]prop{"avatar": {Kind: avatarProp.Kind, Required: true, Rules: avatarProp.Rules}}),
		CmdToggleExclude: props(map[string]prop{"userId": userIDProp}),
		CmdAddStory: props(map[string]prop{
			"title":       titleProp,
			"description": descProp,
		}),
		CmdChangeStory: props(map[string]prop{
			"storyId":     storyIDProp,
			"title":       titleProp,
			"description": descProp,
		}),
		CmdSelectStory:  storyOnly,
		CmdTrashStory:   storyOnly,
		CmdRestoreStory: storyOnly,
		CmdDeleteStory:  storyOnly,
		CmdSetSortOrder: props(map[string]prop{"sortOrder": {Kind: command.KindArray, Required: true}}),
		CmdGiveStoryEstimate: props(map[string]prop{
			"storyId":    storyIDProp,
			"value":      {Kind: command.KindNumber, Required: true},
			"confidence": {Kind: command.KindInteger, Rules: "min=-1,max=1"},
		}),
		CmdClearStoryEstimate: storyOnly,
		CmdReveal:             storyOnly,
		CmdNewEstimationRound: storyOnly,
		CmdSetCardConfig:      props(map[string]prop{"cardConfig": {Kind: command.KindArray, Required: true, Rules: "min=1"}}),
		CmdSetRoomConfig: props(map[string]prop{
			"autoReveal":     {Kind: command.KindBoolean},
			"withConfidence": {Kind: command.KindBoolean},
		}),
		CmdSetPassword: props(map[string]prop{"password": {Kind: command.KindString, Required: true, Rules: "max=72"}}),
	}
}

// Command payloads as handlers read them.

type joinRoomPayload struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Avatar   *int   `json:"avatar"`
	Password string `json:"password"`
	Token    string `json:"token"`
}

type leaveRoomPayload struct {
	ConnectionLost bool `json:"connectionLost"`
}

type setUsernamePayload struct {
	Username string `json:"username"`
}

type setEmailPayload struct {
	Email string `json:"email"`
}

type setAvatarPayload struct {
	Avatar int `json:"avatar"`
}

type userPayload struct {
	UserID string `json:"userId"`
}

type storyPayload struct {
	StoryID     string `json:"storyId"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type sortOrderPayload struct {
	SortOrder []string `json:"sortOrder"`
}

type estimatePayload struct {
	StoryID    string  `json:"storyId"`
	Value      float64 `json:"value"`
	Confidence int     `json:"confidence"`
}

type cardConfigPayload struct {
	CardConfig []Card `json:"cardConfig"`
}

type roomConfigPayload struct {
	AutoReveal     *bool `json:"autoReveal"`
	WithConfidence *bool `json:"withConfidence"`
}

type passwordPayload struct {
	Password string `json:"password"`
}
