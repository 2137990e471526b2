package clan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	nanoid "github.com/jaevor/go-nanoid"

	domain "github.com/aziyat1977/Synapse-IELTS-RPG/domain/clan"
	"github.com/aziyat1977/Synapse-IELTS-RPG/domain/player"
	"github.com/aziyat1977/Synapse-IELTS-RPG/modules/cache"
)

// Invite codes avoid ambiguous characters so they survive being read
// aloud or typed from a phone screen.
const inviteCodeAlphabet = "23456789abcdefghjkmnpqrstuvwxyz"

// ErrDailyBattleDone is returned when a user already finished today's battle.
var ErrDailyBattleDone = errors.New("daily battle already completed")

// Service implements clan membership and progression.
type Service struct {
	users         *player.Repository
	clans         *domain.Repository
	newInviteCode func() string

	mu    sync.RWMutex
	cache *cache.Cache
}

// NewService creates the clan service.
func NewService(users *player.Repository, clans *domain.Repository) (*Service, error) {
	gen, err := nanoid.CustomASCII(inviteCodeAlphabet, 10)
	if err != nil {
		return nil, fmt.Errorf("failed to build invite code generator: %w", err)
	}
	return &Service{
		users:         users,
		clans:         clans,
		newInviteCode: gen,
	}, nil
}

// SetCache wires the shared Redis cache for leaderboard invalidation.
// The service works without it; invalidation just becomes a no-op.
func (s *Service) SetCache(c *cache.Cache) {
	s.mu.Lock()
	s.cache = c
	s.mu.Unlock()
}

// Summon invites a player into the inviter's clan. A first summon creates
// the clan, named after the inviter, and pulls both players into it. The
// invitee account is created on the fly when unknown.
func (s *Service) Summon(ctx context.Context, req SummonRequest) (*SummonResult, error) {
	inviter, err := s.users.FindByUsername(ctx, req.InviterUsername)
	if err != nil {
		return nil, fmt.Errorf("inviter: %w", err)
	}

	invitee, err := s.users.FindByUsername(ctx, req.InviteeUsername)
	if errors.Is(err, player.ErrUserNotFound) {
		invitee = &player.User{
			Username: req.InviteeUsername,
			Region:   inviter.Region,
		}
		if err := s.users.Create(ctx, invitee); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("invitee: %w", err)
	}

	var c *domain.Clan
	if inviter.ClanID != nil {
		c, err = s.clans.FindByID(ctx, *inviter.ClanID)
		if err != nil {
			return nil, err
		}
		if err := s.users.AssignClan(ctx, invitee.Username, c.ID); err != nil {
			return nil, err
		}
	} else {
		c = &domain.Clan{
			Name:       fmt.Sprintf("%s's Clan", inviter.Username),
			InviteCode: s.newInviteCode(),
			Region:     inviter.Region,
		}
		if err := s.clans.Create(ctx, c); err != nil {
			return nil, err
		}
		if err := s.users.AssignClan(ctx, inviter.Username, c.ID); err != nil {
			return nil, err
		}
		if err := s.users.AssignClan(ctx, invitee.Username, c.ID); err != nil {
			return nil, err
		}
	}

	s.invalidateLeaderboards(ctx)

	return &SummonResult{
		Success:         true,
		ClanName:        c.Name,
		InviteCode:      c.InviteCode,
		InviteeUsername: invitee.Username,
		Message:         fmt.Sprintf("%s has joined %s!", invitee.Username, c.Name),
	}, nil
}

// JoinByInviteCode moves a player into the clan behind the invite code.
func (s *Service) JoinByInviteCode(ctx context.Context, req JoinRequest) (*SummonResult, error) {
	c, err := s.clans.FindByInviteCode(ctx, req.InviteCode)
	if err != nil {
		return nil, err
	}
	if err := s.users.AssignClan(ctx, req.Username, c.ID); err != nil {
		return nil, err
	}

	s.invalidateLeaderboards(ctx)

	return &SummonResult{
		Success:         true,
		ClanName:        c.Name,
		InviteCode:      c.InviteCode,
		InviteeUsername: req.Username,
		Message:         fmt.Sprintf("%s has joined %s!", req.Username, c.Name),
	}, nil
}

// Status reports the member's clan, its roster, and its meters.
func (s *Service) Status(ctx context.Context, username string) (*StatusResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.ClanID == nil {
		return nil, domain.ErrClanNotFound
	}

	c, err := s.clans.FindByID(ctx, *user.ClanID)
	if err != nil {
		return nil, err
	}
	members, err := s.users.MembersOf(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	result := &StatusResult{
		ClanName:    c.Name,
		InviteCode:  c.InviteCode,
		SyncLevel:   c.SyncLevel,
		SanityMeter: c.SanityMeter,
		Region:      c.Region,
		Members:     make([]MemberStatus, 0, len(members)),
	}
	for _, m := range members {
		result.Members = append(result.Members, MemberStatus{
			Username:             m.Username,
			XP:                   m.XP,
			DailyBattleCompleted: m.DailyBattleCompleted,
		})
	}
	return result, nil
}

// AwardRaidOutcome pays out XP to every raid participant and, on victory,
// restores part of the clan's sanity meter. Participants without an
// account are skipped; the raid room tracks display names, not accounts.
func (s *Service) AwardRaidOutcome(ctx context.Context, clanID uint, participants []string, victory bool) error {
	xp := RaidDefeatXP
	if victory {
		xp = RaidVictoryXP
	}

	for _, username := range participants {
		if err := s.users.AwardXP(ctx, username, xp, 0); err != nil {
			if errors.Is(err, player.ErrUserNotFound) {
				log.Printf("[clan] raid participant %q has no account, skipping award", username)
				continue
			}
			return err
		}
	}

	if victory {
		c, err := s.clans.FindByID(ctx, clanID)
		if err != nil {
			return err
		}
		sanity := c.SanityMeter + victorySanityBoost
		if sanity > 100 {
			sanity = 100
		}
		if err := s.clans.SetSanity(ctx, clanID, sanity); err != nil {
			return err
		}
	}

	s.invalidateLeaderboards(ctx)
	return nil
}

// CompleteDailyBattle marks today's battle done and pays its rewards.
func (s *Service) CompleteDailyBattle(ctx context.Context, username string) (*DailyBattleResult, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.DailyBattleCompleted {
		return nil, ErrDailyBattleDone
	}

	if err := s.users.AwardXP(ctx, username, DailyBattleXP, DailyBattleCredits); err != nil {
		return nil, err
	}
	if err := s.users.SetDailyBattleCompleted(ctx, username, true); err != nil {
		return nil, err
	}

	s.invalidateLeaderboards(ctx)
	return &DailyBattleResult{XPAwarded: DailyBattleXP, CreditsAwarded: DailyBattleCredits}, nil
}

// ResetDailyBattles clears every daily battle flag, run once a day by the
// scheduler.
func (s *Service) ResetDailyBattles(ctx context.Context) (int64, error) {
	return s.users.ResetAllDailyBattles(ctx)
}

// DecaySanity lowers every clan's sanity meter, run periodically by the
// scheduler.
func (s *Service) DecaySanity(ctx context.Context, amount float64) (int64, error) {
	return s.clans.AdjustSanityAll(ctx, -amount)
}

func (s *Service) invalidateLeaderboards(ctx context.Context) {
	s.mu.RLock()
	c := s.cache
	s.mu.RUnlock()
	if c == nil {
		return
	}
	if err := c.DeletePattern(ctx, "leaderboard:*"); err != nil {
		log.Printf("[clan] failed to invalidate leaderboard cache: %v", err)
	}
}
