package raid

import (
	"errors"
	"log"
	"sort"
	"sync"
	"time"
)

// ErrClanMismatch is returned when a connection is admitted into a room
// with a clan id that is not the room's own.
var ErrClanMismatch = errors.New("clan id does not match room")

// Events receives raid lifecycle notifications. The room invokes it outside
// its own lock; implementations must not call back into the room.
type Events interface {
	RaidStarted(clanID string, bossHP int, participants []string, startedAt time.Time)
	RaidEnded(clanID string, victory bool, participants []string, duration time.Duration)
}

// Room is the per-clan coordinator of one raid's live state and connected
// sessions. All state and roster mutation happens under one mutex, so each
// room is its own serialization domain; rooms never share state.
type Room struct {
	clanID string
	events Events

	mu         sync.Mutex
	sessions   map[string]*Session
	state      State
	nextSeq    int
	seqs       map[string]int
	lastActive time.Time
}

func newRoom(clanID string, events Events) *Room {
	return &Room{
		clanID:     clanID,
		events:     events,
		sessions:   make(map[string]*Session),
		seqs:       make(map[string]int),
		lastActive: time.Now(),
	}
}

// ClanID returns the room's clan identifier.
func (r *Room) ClanID() string {
	return r.clanID
}

// Admit accepts a connection into the room. The caller's clan id must match
// the room's own; on mismatch the connection is closed and an error
// returned. On success the joiner receives the current state snapshot, the
// rest of the room is told about the arrival, and the joiner is added to
// the participant roster if a raid is running.
func (r *Room) Admit(conn Conn, username, clanID string) (*Session, error) {
	if clanID != r.clanID {
		_ = conn.Close()
		return nil, ErrClanMismatch
	}

	sess := newSession(conn, username, clanID)
	go sess.writePump()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sess.ID] = sess
	r.seqs[sess.ID] = r.nextSeq
	r.nextSeq++
	r.lastActive = time.Now()

	// Snapshot to the joiner first, join notice to everyone else after.
	// The order prevents the joiner from seeing its own arrival as news.
	if b, err := encodeServer(MsgRaidState, r.state.Snapshot()); err == nil {
		if !sess.enqueue(b) {
			log.Printf("[raid] room %s: snapshot to session %s dropped", r.clanID, sess.ID)
		}
	}
	if b, err := encodeServer(MsgPlayerJoined, PlayerPayload{Username: username}); err == nil {
		r.broadcastLocked(b, sess.ID)
	}

	r.state.AddParticipant(username)

	log.Printf("[raid] room %s: session %s (%s) joined", r.clanID, sess.ID, username)
	return sess, nil
}

// Remove handles the disconnect path for one session: everyone else is
// notified, the display name leaves the roster, and the connection is
// closed with the code and reason that accompanied the disconnect.
// Unknown session ids are ignored.
func (r *Room) Remove(sessionID string, code int, reason string) {
	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.sessions, sessionID)
	delete(r.seqs, sessionID)
	r.lastActive = time.Now()

	if b, err := encodeServer(MsgPlayerLeft, PlayerPayload{Username: sess.Username}); err == nil {
		r.broadcastLocked(b, sessionID)
	}
	r.state.RemoveParticipant(sess.Username)
	r.mu.Unlock()

	sess.closeWith(code, reason)
	log.Printf("[raid] room %s: session %s (%s) left: %d %s", r.clanID, sessionID, sess.Username, code, reason)
}

// StartRaid resets the fight with a fresh roster of the currently connected
// display names. Restarting an active raid is allowed and simply resets it.
func (r *Room) StartRaid(bossHP int) {
	now := time.Now()

	r.mu.Lock()
	r.state.Start(bossHP, r.connectedUsernamesLocked(), now)
	r.lastActive = now
	if b, err := encodeServer(MsgRaidStarted, r.state.Snapshot()); err == nil {
		r.broadcastLocked(b, "")
	}
	participants := append([]string{}, r.state.Participants...)
	r.mu.Unlock()

	log.Printf("[raid] room %s: raid started, boss HP %d, %d participants", r.clanID, bossHP, len(participants))
	if r.events != nil {
		r.events.RaidStarted(r.clanID, bossHP, participants, now)
	}
}

// End force-ends the raid and broadcasts raid_ended unconditionally, even
// when no raid is active. Repeated calls keep reporting against the last
// start time, zero duration if the room never started a fight.
func (r *Room) End(victory bool) {
	r.mu.Lock()
	participants, duration := r.endLocked(victory)
	r.mu.Unlock()

	if r.events != nil {
		r.events.RaidEnded(r.clanID, victory, participants, duration)
	}
}

// HandleMessage applies one inbound frame from a session. Malformed frames,
// unknown message types, and unknown sessions are dropped; nothing here may
// take the room down.
func (r *Room) HandleMessage(sessionID string, raw []byte) {
	msg, err := DecodeClientMessage(raw)
	if err != nil {
		log.Printf("[raid] room %s: dropping frame from session %s: %v", r.clanID, sessionID, err)
		return
	}

	var (
		ended        bool
		participants []string
		duration     time.Duration
	)

	r.mu.Lock()
	sess, ok := r.sessions[sessionID]
	if !ok {
		r.mu.Unlock()
		log.Printf("[raid] room %s: dropping frame from unknown session %s", r.clanID, sessionID)
		return
	}
	r.lastActive = time.Now()

	switch msg.Type {
	case MsgAttack:
		ended, participants, duration = r.applyDamageLocked(MsgBossDamaged, sess.Username, msg.Damage, "")
	case MsgVoiceAttack:
		ended, participants, duration = r.applyDamageLocked(MsgVoiceAttack, sess.Username, msg.Damage, msg.Transcript)
	case MsgChat:
		if b, err := encodeServer(MsgChat, ChatPayload{Username: sess.Username, Message: msg.Message}); err == nil {
			r.broadcastLocked(b, sessionID)
		}
	}
	r.mu.Unlock()

	if ended && r.events != nil {
		r.events.RaidEnded(r.clanID, true, participants, duration)
	}
}

// applyDamageLocked mutates the fight and echoes the damage under the
// inbound frame's own type, so voice attacks stay voice attacks even with
// an empty transcript. No-op while no raid is active. When HP reaches zero
// the raid ends before this returns, so no further damage can ever be
// applied to a dead boss.
func (r *Room) applyDamageLocked(msgType, username string, damage int, transcript string) (ended bool, participants []string, duration time.Duration) {
	if !r.state.Active {
		return false, nil, 0
	}

	remaining, percentage, defeated := r.state.ApplyDamage(damage)

	payload := DamagePayload{
		Username:    username,
		Transcript:  transcript,
		Damage:      damage,
		RemainingHP: remaining,
		Percentage:  percentage,
	}
	if b, err := encodeServer(msgType, payload); err == nil {
		r.broadcastLocked(b, "")
	}

	if defeated {
		participants, duration = r.endLocked(true)
		return true, participants, duration
	}
	return false, nil, 0
}

// endLocked deactivates the fight and broadcasts raid_ended to everyone.
func (r *Room) endLocked(victory bool) (participants []string, duration time.Duration) {
	duration = r.state.End(time.Now())
	participants = append([]string{}, r.state.Participants...)

	payload := EndedPayload{
		Victory:      victory,
		Participants: participants,
		Duration:     duration.Milliseconds(),
	}
	if b, err := encodeServer(MsgRaidEnded, payload); err == nil {
		r.broadcastLocked(b, "")
	}

	log.Printf("[raid] room %s: raid ended, victory=%t, duration=%s", r.clanID, victory, duration)
	return participants, duration
}

// broadcastLocked fans one pre-serialized frame out to every session except
// exceptID. A recipient whose queue is full or closed misses the frame and
// is logged; it stays registered, only the disconnect path removes sessions.
func (r *Room) broadcastLocked(b []byte, exceptID string) {
	for id, sess := range r.sessions {
		if id == exceptID {
			continue
		}
		if !sess.enqueue(b) {
			log.Printf("[raid] room %s: dropping frame for session %s (%s)", r.clanID, id, sess.Username)
		}
	}
}

// connectedUsernamesLocked returns display names in join order.
func (r *Room) connectedUsernamesLocked() []string {
	ids := make([]string, 0, len(r.sessions))
	for id := range r.sessions {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return r.seqs[ids[i]] < r.seqs[ids[j]] })

	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, r.sessions[id].Username)
	}
	return names
}

// SessionCount returns the number of live sessions.
func (r *Room) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Participants returns a copy of the current roster.
func (r *Room) Participants() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.state.Participants...)
}

// Active reports whether a raid is currently running.
func (r *Room) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Active
}

// Snapshot returns the wire form of the current raid state.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// idle reports whether the room is empty, inactive, and untouched for at
// least ttl.
func (r *Room) idle(now time.Time, ttl time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions) == 0 && !r.state.Active && now.Sub(r.lastActive) >= ttl
}

// closeAll disconnects every session, used on shutdown and eviction.
func (r *Room) closeAll() {
	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sessions = append(sessions, sess)
	}
	r.sessions = make(map[string]*Session)
	r.seqs = make(map[string]int)
	r.mu.Unlock()

	for _, sess := range sessions {
		sess.close()
	}
}
