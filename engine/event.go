package engine

import "fmt"

// EventKind names a domain event that can move challenge progress.
type EventKind string

const (
	EventMealLogged     EventKind = "MealLogged"
	EventActivityLogged EventKind = "ActivityLogged"
	EventStreakAdvanced EventKind = "StreakAdvanced"
)

// Event is a progress-relevant fact about one user. StreakLength is only
// meaningful for StreakAdvanced.
type Event struct {
	Kind         EventKind
	UserID       uint
	StreakLength int
}

// MealLogged is emitted once per food associated with a daily log.
func MealLogged(userID uint) Event {
	return Event{Kind: EventMealLogged, UserID: userID}
}

// ActivityLogged is emitted once per exercise associated with a daily log.
func ActivityLogged(userID uint) Event {
	return Event{Kind: EventActivityLogged, UserID: userID}
}

// StreakAdvanced carries the freshly computed streak length.
func StreakAdvanced(userID uint, length int) Event {
	return Event{Kind: EventStreakAdvanced, UserID: userID, StreakLength: length}
}

// Validate checks that the event is well formed for its kind.
func (e Event) Validate() error {
	if e.UserID == 0 {
		return fmt.Errorf("%w: missing user id", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventStreakAdvanced:
		if e.StreakLength < 0 {
			return fmt.Errorf("%w: negative streak length %d", ErrInvalidEvent, e.StreakLength)
		}
	case EventMealLogged, EventActivityLogged:
		if e.StreakLength != 0 {
			return fmt.Errorf("%w: %s carries no payload", ErrInvalidEvent, e.Kind)
		}
	default:
		return fmt.Errorf("%w: unknown event kind %q", ErrInvalidEvent, e.Kind)
	}
	return nil
}
