package clan

import (
	domain "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
)

// XP and credit awards for the core progression loops.
const (
	RaidVictoryXP      = 100
	RaidDefeatXP       = 25
	DailyBattleXP      = 50
	DailyBattleCredits = 10

	victorySanityBoost = 10.0
)

// SummonRequest invites a player into the inviter's clan, creating the
// clan if the inviter has none.
type SummonRequest struct {
	InviterUsername string `json:"inviter_username"`
	InviteeUsername string `json:"invitee_username"`
}

// SummonResult reports the outcome of a summon.
type SummonResult struct {
	Success         bool   `json:"success"`
	ClanName        string `json:"clan_name"`
	InviteCode      string `json:"invite_code"`
	InviteeUsername string `json:"invitee_username"`
	Message         string `json:"message"`
}

// JoinRequest joins a clan by invite code.
type JoinRequest struct {
	Username   string `json:"username"`
	InviteCode string `json:"invite_code"`
}

// StatusRequest fetches clan status for one member.
type StatusRequest struct {
	Username string `json:"username"`
}

// MemberStatus is one member row in a clan status report.
type MemberStatus struct {
	Username             string `json:"username"`
	XP                   int    `json:"xp"`
	DailyBattleCompleted bool   `json:"daily_battle_completed"`
}

// StatusResult is the clan status report.
type StatusResult struct {
	ClanName    string           `json:"clan_name"`
	InviteCode  string           `json:"invite_code"`
	Members     []MemberStatus   `json:"members"`
	SyncLevel   domain.SyncLevel `json:"sync_level"`
	SanityMeter float64          `json:"sanity_meter"`
	Region      string           `json:"region"`
}

// DailyBattleResult reports the rewards of a completed daily battle.
type DailyBattleResult struct {
	XPAwarded      int `json:"xp_awarded"`
	CreditsAwarded int `json:"credits_awarded"`
}
