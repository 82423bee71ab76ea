// Package adapter defines the delivery boundary for rendered chat images.
//
// Each Adapter moves one artifact to one destination: a chat group, a bot
// conversation, an HTTP endpoint, a pub/sub channel. The runtime calls every
// configured adapter once per artifact and owns their lifecycle; adapters do
// not retry unless configured to.
package adapter

import (
	"context"
	"time"

	"github.com/pithecene-io/replaycast/types"
)

// EventArtifactDelivered is the event type of Notification.
const EventArtifactDelivered = "artifact_delivered"

// Delivery is what an adapter is asked to send.
type Delivery struct {
	// Artifact is the image on disk.
	Artifact *types.Artifact
	// Caption is a short human-readable description, usually the artifact name.
	Caption string
}

// Adapter delivers artifacts to one downstream channel.
type Adapter interface {
	// Name identifies the channel in logs and outcomes.
	Name() string

	// Deliver sends the artifact.
	// Must respect context cancellation and deadlines.
	Deliver(ctx context.Context, d *Delivery) error

	// Close releases adapter resources.
	Close() error
}

// Notification is the JSON payload published by notify-style adapters.
type Notification struct {
	ContractVersion string `json:"contract_version"`
	EventType       string `json:"event_type"` // always "artifact_delivered"
	ArtifactName    string `json:"artifact_name"`
	ArtifactPath    string `json:"artifact_path"`
	ReplayPath      string `json:"replay_path"`
	Weekday         string `json:"weekday"`
	Rank            int    `json:"rank"`
	Lines           int    `json:"lines"`
	Degraded        bool   `json:"degraded"`
	Caption         string `json:"caption,omitempty"`
	Timestamp       string `json:"timestamp"` // RFC 3339
}

// NewNotification builds the notification for d.
func NewNotification(d *Delivery) *Notification {
	a := d.Artifact
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	return &Notification{
		ContractVersion: types.ContractVersion,
		EventType:       EventArtifactDelivered,
		ArtifactName:    a.Name,
		ArtifactPath:    a.Path,
		ReplayPath:      a.ReplayPath,
		Weekday:         a.Weekday.String(),
		Rank:            a.Rank,
		Lines:           a.Lines,
		Degraded:        a.Degraded,
		Caption:         d.Caption,
		Timestamp:       created.UTC().Format(time.RFC3339),
	}
}
