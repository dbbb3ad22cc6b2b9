package game

import "github.com/therealmerengue/PlaceYourGuessServer/location"

// Outbound event names. The client listens on these by name; inbound names
// live in handlers.go next to their payload structs.
const (
	EventRoomList              = "roomList"
	EventRoomCreated           = "roomCreated"
	EventRoomAlreadyExists     = "roomAlreadyExists"
	EventRoomNotExists         = "roomNotExists"
	EventNicknameAlreadyTaken  = "nicknameAlreadyTaken"
	EventPlayerJoined          = "playerJoined"
	EventPlayerLeft            = "playerLeft"
	EventNominateHost          = "nominateHost"
	EventNotHost               = "notHost"
	EventClientStartGame       = "clientStartGame"
	EventStartSingleplayerGame = "startSingleplayerGame"
	EventStartMultiplayerGame  = "startMultiplayerGame"
	EventShowScores            = "showScores"
	EventCountryNotFound       = "countryNotFound"
	EventLocationsUnavailable  = "locationsUnavailable"
)

// RoomSummary is one entry of the roomList event.
type RoomSummary struct {
	Name            string `json:"name"`
	NumberOfPlayers int    `json:"numberOfPlayers"`
}

// PlayerScore is one entry of the showScores event.
type PlayerScore struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

// MultiplayerStart is the payload of startMultiplayerGame: every member of
// the room receives the identical locations array plus the host's settings.
type MultiplayerStart struct {
	Locations    []location.Point `json:"locations"`
	TimerLimit   int              `json:"timerLimit"`
	HintsEnabled bool             `json:"hintsEnabled"`
}
