package types

// RideStatus is the lifecycle state of a ride.
//
//	requested -> accepted -> started -> completed
//	requested | accepted -> cancelled
type RideStatus string

const (
	StatusRequested RideStatus = "requested"
	StatusAccepted  RideStatus = "accepted"
	StatusStarted   RideStatus = "started"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
)

func (s RideStatus) String() string {
	return string(s)
}

// transitions lists allowed next states for every status.
var transitions = map[RideStatus][]RideStatus{
	StatusRequested: {StatusAccepted, StatusCancelled},
	StatusAccepted:  {StatusStarted, StatusCancelled},
	StatusStarted:   {StatusCompleted},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to RideStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s RideStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Valid reports whether s is a known status.
func (s RideStatus) Valid() bool {
	switch s {
	case StatusRequested, StatusAccepted, StatusStarted, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}
