package models

// Status is the lifecycle state of a filing.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusPending           Status = "PENDING"
	StatusPaid              Status = "PAID"
	StatusCompleted         Status = "COMPLETED"
	StatusCorrected         Status = "CORRECTED"
	StatusPendingCorrection Status = "PENDING_CORRECTION"
	StatusWithdrawn         Status = "WITHDRAWN"
	StatusError             Status = "ERROR"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{
	StatusDraft,
	StatusPending,
	StatusPaid,
	StatusCompleted,
	StatusCorrected,
	StatusPendingCorrection,
	StatusWithdrawn,
	StatusError,
}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further automatic transition applies.
// A COMPLETED filing can still be marked CORRECTED by a later correction.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCorrected, StatusWithdrawn, StatusError:
		return true
	default:
		return false
	}
}

func (s Status) String() string {
	return string(s)
}
