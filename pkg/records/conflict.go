package records

import "github.com/agentstation/utc"

// Conflict preserves a remote version that lost a merge against a newer or
// equally recent local version.
type Conflict struct {
	ID             int64        `json:"id" yaml:"id"`
	SessionID      string       `json:"session_id" yaml:"session_id"`
	LocalID        LocalID      `json:"local_id" yaml:"local_id"`
	LocalUpdatedAt utc.Time     `json:"local_updated_at" yaml:"local_updated_at"`
	Remote         RemoteRecord `json:"remote" yaml:"remote"`
	Fields         []string     `json:"fields" yaml:"fields"`
	DetectedAt     utc.Time     `json:"detected_at" yaml:"detected_at"`
}
