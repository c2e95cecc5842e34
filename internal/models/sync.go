package models

// SyncStatus is the tag of a SyncState
type SyncStatus string

const (
	SyncUnset   SyncStatus = "unset"
	SyncPending SyncStatus = "pending"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SyncState is the tracker sync state of a single epic or story.
// Build it with Unsynced, Syncing, Synced or Failed so that Key and URL are
// only ever set on a successful sync and Reason only on a failed one.
type SyncState struct {
	Status SyncStatus `json:"status"`
	Key    string     `json:"key,omitempty"`
	URL    string     `json:"url,omitempty"`
	Reason string     `json:"reason,omitempty"`
}

// Unsynced returns the state of an item never pushed to the tracker
func Unsynced() SyncState {
	return SyncState{Status: SyncUnset}
}

// Syncing returns the in-flight state
func Syncing() SyncState {
	return SyncState{Status: SyncPending}
}

// Synced returns the success state. An empty key or url degrades to Failed.
func Synced(key, url string) SyncState {
	if key == "" || url == "" {
		return Failed("tracker returned an incomplete issue reference")
	}
	return SyncState{Status: SyncSuccess, Key: key, URL: url}
}

// Failed returns the failure state with a user-facing reason
func Failed(reason string) SyncState {
	return SyncState{Status: SyncFailed, Reason: reason}
}

// Retryable reports whether a manual retry is offered for the item
func (s SyncState) Retryable() bool {
	return s.Status == SyncFailed
}

// Terminal reports whether the item reached success or failure
func (s SyncState) Terminal() bool {
	return s.Status == SyncSuccess || s.Status == SyncFailed
}

// Label returns the badge text shown next to an item
func (s SyncState) Label() string {
	switch s.Status {
	case SyncSuccess:
		return s.Key
	case SyncFailed:
		return "Failed"
	case SyncPending:
		return "Syncing..."
	default:
		return "Not synced"
	}
}

// deriveSyncState maps the backend's jira columns onto a SyncState
func deriveSyncState(success *bool, key, url string) SyncState {
	switch {
	case success == nil && key == "":
		return Unsynced()
	case success != nil && !*success:
		return Failed("tracker creation failed")
	default:
		return Synced(key, url)
	}
}
