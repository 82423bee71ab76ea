package types //nolint:revive // types is a common Go package naming convention

import "time"

// Artifact is a rendered chat image on disk.
type Artifact struct {
	// Path is the absolute output path.
	Path string `json:"path"`
	// Name is the base file name, e.g. "Monday 2nd game.jpg".
	Name string `json:"name"`
	// ReplayPath is the replay the artifact was rendered from.
	ReplayPath string `json:"replay_path"`
	// Weekday is the local weekday of the replay modification time.
	Weekday time.Weekday `json:"weekday"`
	// Rank is the 1-based position of the replay within its game day.
	Rank int `json:"rank"`
	// Lines is the number of chat lines drawn, placeholders included.
	Lines int `json:"lines"`
	// Degraded mirrors Replay.Degraded.
	Degraded bool `json:"degraded,omitempty"`
	// CreatedAt is when the image was written.
	CreatedAt time.Time `json:"created_at"`
}

// DeliveryStatus is the result of one delivery attempt.
type DeliveryStatus string

const (
	// DeliverySuccess indicates the channel accepted the artifact.
	DeliverySuccess DeliveryStatus = "success"
	// DeliveryFailure indicates the channel failed; Reason explains why.
	DeliveryFailure DeliveryStatus = "failure"
)

// DeliveryOutcome records what one delivery channel did with an artifact.
type DeliveryOutcome struct {
	Channel string         `json:"channel"`
	Status  DeliveryStatus `json:"status"`
	Reason  string         `json:"reason,omitempty"`
}

// OK reports whether the delivery succeeded.
func (o DeliveryOutcome) OK() bool { return o.Status == DeliverySuccess }
