package entities

// Sync state is persisted as tags on the LibraryItem itself; the tag set is
// the only durable state this program owns. An item carries at most one of
// these at a time: the orchestrator removes the old tag in the same write that
// adds the next one.
const (
	// TagToSync marks an item the user wants pushed to the device.
	TagToSync = "to_sync"
	// TagSynced marks an item whose PDF has been uploaded to the device and
	// whose annotated copy has not come back yet.
	TagSynced = "synced"
	// TagRead marks an item whose annotated PDF has been delivered back to
	// the library.
	TagRead = "read"
)

// SyncState is the explicit state-machine view of an item's sync tags.
type SyncState int

const (
	StateUnsynced SyncState = iota
	StatePendingPull
	StateDone
)

// StateOf derives the sync state from an item's tag set. Read wins over
// synced so that a partially cleaned-up item is never pushed again.
func StateOf(item LibraryItem) SyncState {
	switch {
	case item.HasTag(TagRead):
		return StateDone
	case item.HasTag(TagSynced):
		return StatePendingPull
	default:
		return StateUnsynced
	}
}
