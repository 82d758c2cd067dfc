package session

import (
	"sort"
	"time"
)

// QueuedCommand is one client-submitted command line awaiting processing
// by the broadcast tick. ClientVersion is the document version observed
// at the moment the command was received, not a version the client
// reports itself — the wire protocol never carries one.
type QueuedCommand struct {
	SessionID     string
	Username      string
	Role          string
	CommandLine   string
	ClientVersion uint64
	Arrival       time.Time
}

// stableSortByArrival sorts commands by arrival time, preserving
// relative order among equal timestamps (mirrors the original
// implementation's bubble sort over linked-list timestamps, which is
// likewise stable).
func stableSortByArrival(cmds []QueuedCommand) {
	sort.SliceStable(cmds, func(i, j int) bool {
		return cmds[i].Arrival.Before(cmds[j].Arrival)
	})
}
