// Package types defines the domain types shared across replaycast packages.
//
//nolint:revive // types is a common Go package naming convention
package types

// NoColor marks a player whose color slot is unknown.
const NoColor = -1

// Player is a participant extracted from a replay header.
type Player struct {
	// Number is the in-game player number referenced by chat events.
	Number int `json:"number" msgpack:"number"`
	// Name is the display name.
	Name string `json:"name" msgpack:"name"`
	// ColorID is the in-game color slot (0-7), or NoColor.
	ColorID int `json:"color_id" msgpack:"color_id"`
}

// ChatEvent is one chat message from the replay body.
type ChatEvent struct {
	// PlayerNumber references Player.Number.
	PlayerNumber int `json:"player_number" msgpack:"player_number"`
	// TimestampMs is the in-game offset of the message.
	TimestampMs int64 `json:"timestamp_ms" msgpack:"timestamp_ms"`
	// Message is the chat text.
	Message string `json:"message" msgpack:"message"`
}

// Replay is the parsed form of a replay file.
// Chat is kept in source order, which is already chronological.
type Replay struct {
	Path       string      `json:"path"`
	Players    []Player    `json:"players"`
	Chat       []ChatEvent `json:"chat"`
	DurationMs int64       `json:"duration_ms"`

	// Degraded is set when the parser gave up; Err carries the last failure.
	Degraded bool   `json:"degraded,omitempty"`
	Err      string `json:"error,omitempty"`
}

// Player returns the player with the given number.
func (r *Replay) Player(number int) (Player, bool) {
	for _, p := range r.Players {
		if p.Number == number {
			return p, true
		}
	}
	return Player{}, false
}
