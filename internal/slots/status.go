package slots

type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusBooked, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// CanBeCancelled reports whether an organizer may still cancel the slot.
func (s Status) CanBeCancelled() bool {
	return s == StatusAvailable || s == StatusBooked
}

// IsTerminal reports whether the slot no longer changes state.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}
