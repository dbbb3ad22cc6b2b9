package game

import "sync"

// Player is owned by exactly one Room. score is nil until the player reports
// for the current round.
type Player struct {
	Nickname string
	Channel  Channel
	score    *int
}

// Room holds an ordered player list and an explicit host reference. The host
// is always the earliest-joined surviving member unless explicitly migrated;
// both are guarded by mu and only mutated through the Registry.
type Room struct {
	name string

	mu      sync.Mutex
	players []*Player
	host    *Player
}

func newRoom(name string, host *Player) *Room {
	return &Room{
		name:    name,
		players: []*Player{host},
		host:    host,
	}
}

func (r *Room) Name() string { return r.name }

// rosterLocked returns the current nickname list in join order.
func (r *Room) rosterLocked() []string {
	names := make([]string, len(r.players))
	for i, p := range r.players {
		names[i] = p.Nickname
	}
	return names
}

// channelsLocked snapshots every member channel for broadcasting outside the
// lock.
func (r *Room) channelsLocked() []Channel {
	channels := make([]Channel, len(r.players))
	for i, p := range r.players {
		channels[i] = p.Channel
	}
	return channels
}

func (r *Room) playerByNicknameLocked(nickname string) (int, *Player) {
	for i, p := range r.players {
		if p.Nickname == nickname {
			return i, p
		}
	}
	return -1, nil
}

func (r *Room) playerByChannelLocked(channelID string) (int, *Player) {
	for i, p := range r.players {
		if p.Channel.ID() == channelID {
			return i, p
		}
	}
	return -1, nil
}

// removeLocked removes the player at index i and, when the host left,
// migrates host to the new earliest-joined member in the same step. There is
// never a state where a non-empty room has no host.
func (r *Room) removeLocked(i int) (removed *Player, newHost *Player) {
	removed = r.players[i]
	r.players = append(r.players[:i], r.players[i+1:]...)

	if len(r.players) == 0 {
		r.host = nil
		return removed, nil
	}
	if removed == r.host {
		r.host = r.players[0]
		return removed, r.host
	}
	return removed, nil
}

// submitScoreLocked records a score and, when every current member has one,
// closes the barrier: it returns the aggregated list plus the channels to
// notify and clears all scores in the same critical section, so the barrier
// fires exactly once per round.
func (r *Room) submitScoreLocked(nickname string, score int) (scores []PlayerScore, channels []Channel, err error) {
	_, player := r.playerByNicknameLocked(nickname)
	if player == nil {
		return nil, nil, ErrPlayerNotFound
	}
	player.score = &score

	for _, p := range r.players {
		if p.score == nil {
			return nil, nil, nil
		}
	}

	scores = make([]PlayerScore, len(r.players))
	for i, p := range r.players {
		scores[i] = PlayerScore{Nickname: p.Nickname, Score: *p.score}
		p.score = nil
	}
	return scores, r.channelsLocked(), nil
}
