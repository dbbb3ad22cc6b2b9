package game

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/therealmerengue/PlaceYourGuessServer/observability"
)

// Registry owns the set of live rooms. All membership, host, and score
// mutations go through it; rooms are created on first use and destroyed the
// instant they empty.
//
// Lock ordering: Registry.mu before Room.mu, never the reverse. Broadcasts
// are sent from snapshots after both locks are released.
type Registry struct {
	mu        sync.RWMutex
	rooms     map[string]*Room
	byChannel map[string]*Room

	metrics *observability.Collector
	log     zerolog.Logger
}

func NewRegistry(metrics *observability.Collector, log zerolog.Logger) *Registry {
	return &Registry{
		rooms:     make(map[string]*Room),
		byChannel: make(map[string]*Room),
		metrics:   metrics,
		log:       log.With().Str("component", "registry").Logger(),
	}
}

type emit struct {
	ch      Channel
	event   string
	payload any
}

func (g *Registry) send(emits []emit) {
	for _, e := range emits {
		if err := e.ch.Emit(e.event, e.payload); err != nil {
			g.log.Debug().Err(err).Str("event", e.event).Msg("emit failed")
		}
	}
}

// CreateRoom registers a new room with the creator as only member and host.
func (g *Registry) CreateRoom(name, hostNickname string, ch Channel) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.rooms[name]; exists {
		return ErrRoomAlreadyExists
	}

	host := &Player{Nickname: hostNickname, Channel: ch}
	g.rooms[name] = newRoom(name, host)
	g.byChannel[ch.ID()] = g.rooms[name]

	g.metrics.RoomOpened()
	g.metrics.PlayerJoined()
	g.log.Info().Str("room", name).Str("host", hostNickname).Msg("room created")
	return nil
}

// JoinRoom adds a player and broadcasts the updated roster, requester
// included, as a playerJoined event.
func (g *Registry) JoinRoom(name, nickname string, ch Channel) error {
	g.mu.Lock()
	room, ok := g.rooms[name]
	if !ok {
		g.mu.Unlock()
		return ErrRoomNotExists
	}

	room.mu.Lock()
	if _, taken := room.playerByNicknameLocked(nickname); taken != nil {
		room.mu.Unlock()
		g.mu.Unlock()
		return ErrNicknameAlreadyTaken
	}
	room.players = append(room.players, &Player{Nickname: nickname, Channel: ch})
	g.byChannel[ch.ID()] = room

	roster := room.rosterLocked()
	channels := room.channelsLocked()
	room.mu.Unlock()
	g.mu.Unlock()

	g.metrics.PlayerJoined()
	g.log.Info().Str("room", name).Str("nickname", nickname).Msg("player joined")

	emits := make([]emit, 0, len(channels))
	for _, c := range channels {
		emits = append(emits, emit{c, EventPlayerJoined, roster})
	}
	g.send(emits)
	return nil
}

// LeaveRoom removes a player by nickname. Survivors get a playerLeft roster;
// a departing host hands off to the earliest-joined survivor, who receives
// nominateHost; an emptied room is destroyed in the same operation.
func (g *Registry) LeaveRoom(name, nickname string) error {
	g.mu.Lock()
	room, ok := g.rooms[name]
	if !ok {
		g.mu.Unlock()
		return ErrRoomNotExists
	}
	emits, err := g.removePlayerLocked(room, func(r *Room) int {
		i, _ := r.playerByNicknameLocked(nickname)
		return i
	})
	g.mu.Unlock()
	if err != nil {
		return err
	}
	g.send(emits)
	return nil
}

// Disconnect is LeaveRoom resolved by channel identity, applied to whichever
// room currently contains the channel. A channel in no room is a no-op.
func (g *Registry) Disconnect(channelID string) {
	g.mu.Lock()
	room, ok := g.byChannel[channelID]
	if !ok {
		g.mu.Unlock()
		return
	}
	emits, err := g.removePlayerLocked(room, func(r *Room) int {
		i, _ := r.playerByChannelLocked(channelID)
		return i
	})
	g.mu.Unlock()
	if err != nil {
		g.log.Warn().Err(err).Str("channel", channelID).Msg("disconnect cleanup failed")
		return
	}
	g.send(emits)
}

// removePlayerLocked does the full removal under both locks: player out,
// reverse index updated, host migrated or room destroyed, broadcast snapshot
// taken. Caller holds g.mu.
func (g *Registry) removePlayerLocked(room *Room, locate func(*Room) int) ([]emit, error) {
	room.mu.Lock()
	i := locate(room)
	if i < 0 {
		room.mu.Unlock()
		return nil, ErrPlayerNotFound
	}

	removed, newHost := room.removeLocked(i)
	delete(g.byChannel, removed.Channel.ID())
	destroyed := len(room.players) == 0
	if destroyed {
		delete(g.rooms, room.name)
	}

	var emits []emit
	if !destroyed {
		roster := room.rosterLocked()
		for _, ch := range room.channelsLocked() {
			emits = append(emits, emit{ch, EventPlayerLeft, roster})
		}
		if newHost != nil {
			emits = append(emits, emit{newHost.Channel, EventNominateHost, nil})
		}
	}
	room.mu.Unlock()

	g.metrics.PlayerLeft()
	if destroyed {
		g.metrics.RoomClosed()
	}
	g.log.Info().
		Str("room", room.name).
		Str("nickname", removed.Nickname).
		Bool("destroyed", destroyed).
		Msg("player left")
	return emits, nil
}

// RoomList snapshots every live room for the roomList event.
func (g *Registry) RoomList() []RoomSummary {
	g.mu.RLock()
	rooms := make([]*Room, 0, len(g.rooms))
	for _, room := range g.rooms {
		rooms = append(rooms, room)
	}
	g.mu.RUnlock()

	list := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		list = append(list, RoomSummary{Name: room.name, NumberOfPlayers: len(room.players)})
		room.mu.Unlock()
	}
	return list
}

// BroadcastRoster re-sends the full nickname list to every member of the
// room as a playerJoined event (requestPlayerList).
func (g *Registry) BroadcastRoster(name string) error {
	g.mu.RLock()
	room, ok := g.rooms[name]
	g.mu.RUnlock()
	if !ok {
		return ErrRoomNotExists
	}

	room.mu.Lock()
	roster := room.rosterLocked()
	channels := room.channelsLocked()
	room.mu.Unlock()

	emits := make([]emit, 0, len(channels))
	for _, ch := range channels {
		emits = append(emits, emit{ch, EventPlayerJoined, roster})
	}
	g.send(emits)
	return nil
}

// StartGame forwards the host's settings to every non-host member as
// clientStartGame. Only the current host of some room may start.
func (g *Registry) StartGame(hostChannelID string, settings json.RawMessage) error {
	g.mu.RLock()
	room, ok := g.byChannel[hostChannelID]
	g.mu.RUnlock()
	if !ok {
		return ErrNotHost
	}

	room.mu.Lock()
	if room.host == nil || room.host.Channel.ID() != hostChannelID {
		room.mu.Unlock()
		return ErrNotHost
	}
	targets := make([]Channel, 0, len(room.players)-1)
	for _, p := range room.players {
		if p != room.host {
			targets = append(targets, p.Channel)
		}
	}
	room.mu.Unlock()

	emits := make([]emit, 0, len(targets))
	for _, ch := range targets {
		emits = append(emits, emit{ch, EventClientStartGame, settings})
	}
	g.send(emits)
	g.log.Info().Str("room", room.name).Msg("game started")
	return nil
}

// HostedRoomChannels returns a snapshot of every member channel in the room
// hosted by the given channel, host included.
func (g *Registry) HostedRoomChannels(hostChannelID string) ([]Channel, error) {
	g.mu.RLock()
	room, ok := g.byChannel[hostChannelID]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrNotHost
	}

	room.mu.Lock()
	defer room.mu.Unlock()
	if room.host == nil || room.host.Channel.ID() != hostChannelID {
		return nil, ErrNotHost
	}
	return room.channelsLocked(), nil
}

// SubmitScore records one player's round score. When the last missing score
// arrives the barrier closes atomically: every member gets exactly one
// showScores with the aggregated list, and all scores are cleared for the
// next round.
func (g *Registry) SubmitScore(roomName, nickname string, score int) error {
	g.mu.RLock()
	room, ok := g.rooms[roomName]
	g.mu.RUnlock()
	if !ok {
		return ErrRoomNotExists
	}

	room.mu.Lock()
	scores, channels, err := room.submitScoreLocked(nickname, score)
	room.mu.Unlock()
	if err != nil {
		return err
	}
	if scores == nil {
		// Barrier still open.
		return nil
	}

	emits := make([]emit, 0, len(channels))
	for _, ch := range channels {
		emits = append(emits, emit{ch, EventShowScores, scores})
	}
	g.send(emits)
	g.log.Info().Str("room", roomName).Int("players", len(scores)).Msg("round scores released")
	return nil
}
