package game

import "errors"

var (
	ErrRoomAlreadyExists    = errors.New("room name already registered")
	ErrRoomNotExists        = errors.New("room does not exist")
	ErrNicknameAlreadyTaken = errors.New("nickname already taken in this room")
	ErrPlayerNotFound       = errors.New("player not found in room")
	ErrNotHost              = errors.New("channel is not a recognized host")
	ErrChannelClosed        = errors.New("channel closed")
)
