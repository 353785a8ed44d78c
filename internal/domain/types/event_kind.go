package types

// EventKind tags a domain event. Its value is also the name of the queue the
// event is published to.
type EventKind string

func (k EventKind) String() string {
	return string(k)
}

const (
	EventNewRide       EventKind = "new-ride"
	EventRideAccepted  EventKind = "ride-accepted"
	EventRideStarted   EventKind = "ride-started"
	EventRideCompleted EventKind = "ride-completed"
	EventRideCancelled EventKind = "ride-cancelled"
)

// EventKinds returns every kind, in lifecycle order.
func EventKinds() []EventKind {
	return []EventKind{EventNewRide, EventRideAccepted, EventRideStarted, EventRideCompleted, EventRideCancelled}
}

// EventFor maps the status a ride entered to the event announcing it.
func EventFor(status RideStatus) (EventKind, bool) {
	switch status {
	case StatusRequested:
		return EventNewRide, true
	case StatusAccepted:
		return EventRideAccepted, true
	case StatusStarted:
		return EventRideStarted, true
	case StatusCompleted:
		return EventRideCompleted, true
	case StatusCancelled:
		return EventRideCancelled, true
	}
	return "", false
}
