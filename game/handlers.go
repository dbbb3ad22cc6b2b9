package game

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/therealmerengue/PlaceYourGuessServer/countries"
	"github.com/therealmerengue/PlaceYourGuessServer/location"
)

const pingInterval = 30 * time.Second

// LocationSource is the location engine as the transport sees it.
type LocationSource interface {
	Generate(ctx context.Context, c location.Constraints) ([]location.Point, error)
	PickCities(count int) ([]location.Point, error)
}

type Handler struct {
	registry        *Registry
	locations       LocationSource
	generateTimeout time.Duration
	upgrader        websocket.Upgrader
	log             zerolog.Logger
}

func NewHandler(registry *Registry, locations LocationSource, generateTimeout time.Duration, log zerolog.Logger) *Handler {
	return &Handler{
		registry:        registry,
		locations:       locations,
		generateTimeout: generateTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin policy is enforced by the CORS middleware in front.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: log.With().Str("component", "handler").Logger(),
	}
}

// Websocket upgrades the connection and serves the client's event loop until
// the socket drops, at which point the client is removed from its room.
func (h *Handler) Websocket(ctx *gin.Context) {
	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		h.log.Warn().Err(err).Str("ip", ctx.ClientIP()).Msg("websocket upgrade failed")
		return
	}

	session := NewWebsocketConnection(conn)
	ch := newWSChannel(session)
	go ch.writePump(pingInterval)

	h.log.Debug().Str("channel", ch.ID()).Msg("client connected")
	if err := ch.Emit(EventRoomList, h.registry.RoomList()); err != nil {
		h.log.Debug().Err(err).Msg("initial room list push failed")
	}

	h.readLoop(ch, session)
}

func (h *Handler) readLoop(ch *wsChannel, session NetworkSession) {
	defer func() {
		h.registry.Disconnect(ch.ID())
		ch.close()
		session.Close("")
		h.log.Debug().Str("channel", ch.ID()).Msg("client disconnected")
	}()

	for {
		data, err := session.Read()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.log.Warn().Err(err).Str("channel", ch.ID()).Msg("malformed frame")
			continue
		}
		h.dispatch(ch, env)
	}
}

// Inbound payloads.

type createRoomRequest struct {
	RoomName string `json:"roomName"`
	HostName string `json:"hostName"`
}

type joinRoomRequest struct {
	RoomName   string `json:"roomName"`
	PlayerName string `json:"playerName"`
}

type leaveRoomRequest struct {
	Room     string `json:"room"`
	Nickname string `json:"nickname"`
}

type sendScoreRequest struct {
	RoomName string `json:"roomName"`
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
}

type loadLocationsRequest struct {
	NumberOfRounds int     `json:"numberOfRounds"`
	RandomCountry  bool    `json:"randomCountry"`
	IsSingleplayer bool    `json:"isSingleplayer"`
	CountryCode    string  `json:"countryCode"`
	TimerLimit     int     `json:"timerLimit"`
	HintsEnabled   bool    `json:"hintsEnabled"`
	MinLat         float64 `json:"minLat"`
	MaxLat         float64 `json:"maxLat"`
	MinLng         float64 `json:"minLng"`
	MaxLng         float64 `json:"maxLng"`
}

type loadCityLocationsRequest struct {
	NumberOfRounds int  `json:"numberOfRounds"`
	IsSingleplayer bool `json:"isSingleplayer"`
	TimerLimit     int  `json:"timerLimit"`
	HintsEnabled   bool `json:"hintsEnabled"`
}

func (h *Handler) dispatch(ch *wsChannel, env Envelope) {
	switch env.Event {
	case "createRoom":
		var req createRoomRequest
		if !h.bind(ch, env, &req) {
			return
		}
		switch err := h.registry.CreateRoom(req.RoomName, req.HostName, ch); {
		case err == nil:
			ch.Emit(EventRoomCreated, nil)
		case errors.Is(err, ErrRoomAlreadyExists):
			ch.Emit(EventRoomAlreadyExists, nil)
		}

	case "joinExistingRoom":
		var req joinRoomRequest
		if !h.bind(ch, env, &req) {
			return
		}
		switch err := h.registry.JoinRoom(req.RoomName, req.PlayerName, ch); {
		case errors.Is(err, ErrRoomNotExists):
			ch.Emit(EventRoomNotExists, nil)
		case errors.Is(err, ErrNicknameAlreadyTaken):
			ch.Emit(EventNicknameAlreadyTaken, nil)
		}

	case "leaveRoom":
		var req leaveRoomRequest
		if !h.bind(ch, env, &req) {
			return
		}
		if err := h.registry.LeaveRoom(req.Room, req.Nickname); err != nil {
			h.log.Warn().Err(err).Str("room", req.Room).Msg("leaveRoom rejected")
		}

	case "requestPlayerList":
		var roomName string
		if !h.bind(ch, env, &roomName) {
			return
		}
		if err := h.registry.BroadcastRoster(roomName); err != nil {
			ch.Emit(EventRoomNotExists, nil)
		}

	case "reloadRoomList":
		ch.Emit(EventRoomList, h.registry.RoomList())

	case "startGame":
		if err := h.registry.StartGame(ch.ID(), env.Data); err != nil {
			ch.Emit(EventNotHost, nil)
		}

	case "loadLocations":
		var req loadLocationsRequest
		if !h.bind(ch, env, &req) {
			return
		}
		h.loadLocations(ch, req)

	case "loadCityLocations":
		var req loadCityLocationsRequest
		if !h.bind(ch, env, &req) {
			return
		}
		h.loadCityLocations(ch, req)

	case "sendScore":
		var req sendScoreRequest
		if !h.bind(ch, env, &req) {
			return
		}
		if err := h.registry.SubmitScore(req.RoomName, req.Nickname, req.Score); err != nil {
			h.log.Warn().Err(err).Str("room", req.RoomName).Msg("sendScore rejected")
		}

	default:
		h.log.Warn().Str("event", env.Event).Str("channel", ch.ID()).Msg("unknown event")
	}
}

func (h *Handler) bind(ch *wsChannel, env Envelope, out any) bool {
	if err := json.Unmarshal(env.Data, out); err != nil {
		h.log.Warn().Err(err).Str("event", env.Event).Str("channel", ch.ID()).Msg("bad payload")
		return false
	}
	return true
}

func (h *Handler) loadLocations(ch *wsChannel, req loadLocationsRequest) {
	constraints := location.Constraints{Count: req.NumberOfRounds}
	switch {
	case req.RandomCountry:
		constraints.Selector = location.RandomCountry
	case req.CountryCode == countries.CustomCode:
		constraints.Selector = location.CustomBox
		constraints.Box = countries.Bounds{
			MinLat: req.MinLat,
			MaxLat: req.MaxLat,
			MinLng: req.MinLng,
			MaxLng: req.MaxLng,
		}
	default:
		constraints.Selector = location.FixedCountry
		constraints.CountryCode = req.CountryCode
	}

	recipients, ok := h.roundRecipients(ch, req.IsSingleplayer)
	if !ok {
		return
	}

	// Generation blocks on backend lookups; run it off the read loop so the
	// client and other rooms keep being served meanwhile.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.generateTimeout)
		defer cancel()

		points, err := h.locations.Generate(ctx, constraints)
		if err != nil {
			h.reportGenerateFailure(ch, err)
			return
		}
		h.deliverRound(recipients, points, req.TimerLimit, req.HintsEnabled)
	}()
}

func (h *Handler) loadCityLocations(ch *wsChannel, req loadCityLocationsRequest) {
	recipients, ok := h.roundRecipients(ch, req.IsSingleplayer)
	if !ok {
		return
	}

	points, err := h.locations.PickCities(req.NumberOfRounds)
	if err != nil {
		h.reportGenerateFailure(ch, err)
		return
	}
	h.deliverRound(recipients, points, req.TimerLimit, req.HintsEnabled)
}

// roundRecipients resolves who receives the round: just the requester in
// singleplayer, the whole hosted room otherwise.
func (h *Handler) roundRecipients(ch *wsChannel, singleplayer bool) ([]Channel, bool) {
	if singleplayer {
		return []Channel{ch}, true
	}
	recipients, err := h.registry.HostedRoomChannels(ch.ID())
	if err != nil {
		ch.Emit(EventNotHost, nil)
		return nil, false
	}
	return recipients, true
}

func (h *Handler) deliverRound(recipients []Channel, points []location.Point, timerLimit int, hintsEnabled bool) {
	if len(recipients) == 1 {
		recipients[0].Emit(EventStartSingleplayerGame, points)
		return
	}
	payload := MultiplayerStart{
		Locations:    points,
		TimerLimit:   timerLimit,
		HintsEnabled: hintsEnabled,
	}
	for _, ch := range recipients {
		if err := ch.Emit(EventStartMultiplayerGame, payload); err != nil {
			h.log.Debug().Err(err).Msg("round delivery failed")
		}
	}
}

func (h *Handler) reportGenerateFailure(ch *wsChannel, err error) {
	switch {
	case errors.Is(err, countries.ErrCountryNotFound):
		ch.Emit(EventCountryNotFound, nil)
	default:
		h.log.Error().Err(err).Msg("location generation failed")
		ch.Emit(EventLocationsUnavailable, nil)
	}
}
