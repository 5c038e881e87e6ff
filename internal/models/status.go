package models

import "fmt"

// VideoStatus is the internal status vocabulary for a video iteration.
// succeeded and failed are terminal: retries create a new iteration
// instead of reviving a terminal row.
type VideoStatus string

const (
	StatusQueued     VideoStatus = "queued"
	StatusProcessing VideoStatus = "processing"
	StatusSucceeded  VideoStatus = "succeeded"
	StatusFailed     VideoStatus = "failed"
)

func (s VideoStatus) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusSucceeded, StatusFailed:
		return true
	}
	return false
}

func (s VideoStatus) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// adminStatusMap translates the admin portal vocabulary into the internal
// enum. The admin-facing strings never reach the data model.
var adminStatusMap = map[string]VideoStatus{
	"completed":  StatusSucceeded,
	"pending":    StatusQueued,
	"queued":     StatusQueued,
	"processing": StatusProcessing,
	"succeeded":  StatusSucceeded,
	"failed":     StatusFailed,
}

// ParseAdminStatus maps an admin-supplied status string to the internal
// enum, rejecting anything outside the translation table.
func ParseAdminStatus(s string) (VideoStatus, error) {
	status, ok := adminStatusMap[s]
	if !ok {
		return "", fmt.Errorf("invalid status %q", s)
	}
	return status, nil
}

// AdminStatus is the reverse translation used when rendering internal
// statuses on the admin boundary.
func (s VideoStatus) AdminStatus() string {
	switch s {
	case StatusSucceeded:
		return "completed"
	case StatusQueued:
		return "pending"
	default:
		return string(s)
	}
}
