package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
)

// Notifier pushes raid and sanity announcements to clan members who
// linked a Telegram account.
type Notifier struct {
	client *BotClient
	users  *player.Repository
	clans  *clan.Repository
}

// NewNotifier wires the announcer to the API client.
func NewNotifier(client *BotClient) *Notifier {
	return &Notifier{client: client}
}

// SetRepositories provides member and clan lookup.
func (n *Notifier) SetRepositories(users *player.Repository, clans *clan.Repository) {
	n.users = users
	n.clans = clans
}

// NotifyRaidScheduled announces an upcoming raid to every reachable member.
func (n *Notifier) NotifyRaidScheduled(ctx context.Context, clanID string, bossHP int) {
	text := fmt.Sprintf(`⚔️ <b>%s raid is starting!</b>

A boss with %d HP awaits. Join your clan mates and attack with your voice!`,
		n.clanName(ctx, clanID), bossHP)
	n.broadcast(ctx, clanID, text)
}

// NotifyRaidEnded announces the raid outcome.
func (n *Notifier) NotifyRaidEnded(ctx context.Context, clanID string, victory bool, participants []string) {
	var text string
	if victory {
		text = fmt.Sprintf(`🏆 <b>%s defeated the boss!</b>

%d warriors fought. XP and credits have been awarded.`,
			n.clanName(ctx, clanID), len(participants))
	} else {
		text = fmt.Sprintf(`💀 <b>%s raid has ended.</b>

The boss survived this time. Train your English and try again!`,
			n.clanName(ctx, clanID))
	}
	n.broadcast(ctx, clanID, text)
}

// NotifyLowSanity warns every member of each clan below the threshold.
func (n *Notifier) NotifyLowSanity(ctx context.Context, threshold float64) {
	if n.clans == nil {
		return
	}
	clans, err := n.clans.BelowSanity(ctx, threshold)
	if err != nil {
		log.Printf("[telegram] low sanity lookup: %v", err)
		return
	}
	for _, c := range clans {
		text := fmt.Sprintf(`🧠 <b>%s sanity is at %.0f%%!</b>

Complete daily battles to restore your clan before the next raid.`,
			c.Name, c.SanityMeter)
		n.broadcast(ctx, strconv.FormatUint(uint64(c.ID), 10), text)
	}
}

func (n *Notifier) clanName(ctx context.Context, clanID string) string {
	if n.clans != nil {
		if id, err := strconv.ParseUint(clanID, 10, 64); err == nil {
			if c, err := n.clans.FindByID(ctx, uint(id)); err == nil {
				return c.Name
			}
		}
	}
	return "Clan " + clanID
}

func (n *Notifier) broadcast(ctx context.Context, clanID string, text string) {
	if n.users == nil {
		return
	}
	id, err := strconv.ParseUint(clanID, 10, 64)
	if err != nil {
		log.Printf("[telegram] skipping broadcast for non-numeric clan id %q", clanID)
		return
	}

	members, err := n.users.MembersOf(ctx, uint(id))
	if err != nil {
		log.Printf("[telegram] member lookup for clan %s: %v", clanID, err)
		return
	}

	sent := 0
	for _, m := range members {
		if m.TelegramID == nil {
			continue
		}
		chatID, err := strconv.ParseInt(*m.TelegramID, 10, 64)
		if err != nil {
			continue
		}
		if err := n.client.SendMessage(ctx, chatID, text); err != nil {
			log.Printf("[telegram] send to %s: %v", m.Username, err)
			continue
		}
		sent++
	}
	log.Printf("[telegram] notified %d/%d members of clan %s", sent, len(members), clanID)
}
