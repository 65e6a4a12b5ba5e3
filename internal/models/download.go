package models

// DownloadStatus is the per-resource download lifecycle state.
// Transitions are monotonic: Pending -> Downloading -> Completed|Failed.
// Failed is terminal within a batch; a resume re-enqueue returns the
// resource to Pending.
type DownloadStatus string

const (
	StatusPending     DownloadStatus = "pending"
	StatusDownloading DownloadStatus = "downloading"
	StatusCompleted   DownloadStatus = "completed"
	StatusFailed      DownloadStatus = "failed"
)

// IsTerminal reports whether the status ends the resource's lifecycle
// within the current batch.
func (s DownloadStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo enforces the monotonic status order.
func (s DownloadStatus) CanTransitionTo(next DownloadStatus) bool {
	switch s {
	case StatusPending:
		return next == StatusDownloading || next == StatusFailed
	case StatusDownloading:
		return next == StatusCompleted || next == StatusFailed
	default:
		return false
	}
}

// DownloadState is the durable record of one resource's download.
// Identity is the deterministic hash of (server id, path); see
// NetworkResource.ID.
type DownloadState struct {
	AlbumID  string          `json:"albumId"`
	Resource NetworkResource `json:"resource"`
	Status   DownloadStatus  `json:"status"`
	Progress float64         `json:"progress"`
}

// DownloadProgress is the aggregate batch view published to observers.
//
// Invariants: Completed+Failed <= Total, and IsActive iff
// Completed+Failed < Total.
type DownloadProgress struct {
	Total     int  `json:"total"`
	Completed int  `json:"completed"`
	Failed    int  `json:"failed"`
	IsActive  bool `json:"isActive"`
}

// Remaining returns the number of resources still pending or in flight.
func (p DownloadProgress) Remaining() int {
	return p.Total - p.Completed - p.Failed
}
