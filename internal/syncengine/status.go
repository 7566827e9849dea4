package syncengine

import "time"

type State string

const (
	StateIdle    State = "idle"
	StateSyncing State = "syncing"
	StateSuccess State = "success"
	StateError   State = "error"
)

// User facing messages of the error state.
const (
	MsgConflictResolved = "conflict resolved using server data"
	MsgEmptyRejected    = "server refused to overwrite existing data with an empty workspace; server data restored"
	MsgUnreadableServer = "server returned an unreadable snapshot"
)

// Status is the observable sync state. It is never persisted.
type Status struct {
	State      State     `json:"state"`
	Message    string    `json:"message,omitempty"`
	LastSyncAt time.Time `json:"lastSyncAt,omitzero"`
}

// Source tells where Init took the initial snapshot from.
type Source string

const (
	SourceRemote Source = "remote"
	SourceCache  Source = "cache"
	SourceEmpty  Source = "empty"
)
