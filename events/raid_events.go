// Package events defines the cross-module event contracts for the raid domain.
package events

import (
	"time"

	"github.com/go-monolith/mono/pkg/helper"
)

// RaidStartedEvent is emitted when a clan's raid transitions to active.
type RaidStartedEvent struct {
	ClanID       string    `json:"clan_id"`
	BossHP       int       `json:"boss_hp"`
	Participants []string  `json:"participants"`
	StartedAt    time.Time `json:"started_at"`
}

// RaidEndedEvent is emitted when a raid ends, whether or not the boss fell.
type RaidEndedEvent struct {
	ClanID       string        `json:"clan_id"`
	Victory      bool          `json:"victory"`
	Participants []string      `json:"participants"`
	Duration     time.Duration `json:"duration"`
	EndedAt      time.Time     `json:"ended_at"`
}

// RaidScheduledEvent is emitted by the worker when a scheduled raid trigger
// fires for a clan, before the room actually starts the fight.
type RaidScheduledEvent struct {
	ClanID      string    `json:"clan_id"`
	BossHP      int       `json:"boss_hp"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// Event definitions for the raid domain.
var (
	RaidStartedV1 = helper.EventDefinition[RaidStartedEvent](
		"raid",
		"RaidStarted",
		"v1",
	)

	RaidEndedV1 = helper.EventDefinition[RaidEndedEvent](
		"raid",
		"RaidEnded",
		"v1",
	)

	RaidScheduledV1 = helper.EventDefinition[RaidScheduledEvent](
		"raid",
		"RaidScheduled",
		"v1",
	)
)
