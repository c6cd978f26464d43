package domain

import "errors"

var (
	ErrInvalidPayload    = errors.New("invalid payload")
	ErrRoomNotFound      = errors.New("room not found")
	ErrUnknownConnection = errors.New("connection not registered")
	ErrMemberMismatch    = errors.New("connection represents another member")
	ErrSendBufferFull    = errors.New("send buffer full")
)
