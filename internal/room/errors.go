package room

import "errors"

var (
	// ErrCapacityExceeded rejects a join against a full room. Only the joining
	// client sees it; the room is unaffected.
	ErrCapacityExceeded = errors.New("room is full")
	// ErrRoomClosed rejects operations against a room that is disposing or
	// already gone.
	ErrRoomClosed = errors.New("room is closed")
	// ErrUnknownKind rejects creation of a room with an unrecognized variant.
	ErrUnknownKind = errors.New("unknown room kind")
	// ErrCreateFailed wraps a failed simulation-room handoff.
	ErrCreateFailed = errors.New("could not create game room")
)
