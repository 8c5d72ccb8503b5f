// Package scanner defines core types shared across the discovery subsystems.
package scanner

import "time"

// ScanState is the durable checkpoint recording how far a previous scan got.
// It is overwritten whole on every completed or early-terminated scan, never
// merged. HighestValidID is always <= HighestScannedID.
type ScanState struct {
	HighestValidID   int64     `json:"highestValidId"`
	HighestScannedID int64     `json:"highestScannedId"`
	ScannedAt        time.Time `json:"scannedAt"`
}

// IsZero reports whether the state carries no checkpoint.
func (s ScanState) IsZero() bool {
	return s.HighestValidID == 0 && s.HighestScannedID == 0 && s.ScannedAt.IsZero()
}

// ProbeResult classifies a single ownership probe. A timed-out probe proves
// nothing about existence: TimedOut=true means Exists and Owned are unknown,
// never "not found".
type ProbeResult struct {
	ID       int64
	Exists   bool
	Owned    bool
	TimedOut bool
}

// Outcome returns the metrics label for this result.
func (r ProbeResult) Outcome() string {
	switch {
	case r.TimedOut:
		return "timeout"
	case r.Owned:
		return "owned"
	case r.Exists:
		return "foreign"
	default:
		return "not_found"
	}
}

// DiscoveryEvent is published for each newly discovered video.
type DiscoveryEvent struct {
	VideoID      int64     `json:"video_id"`
	DiscoveredAt time.Time `json:"discovered_at"`
}
