package events

import "fmt"

// TargetKind selects who receives a delivery.
type TargetKind int

const (
	// ToRoom fans out to every connection joined to Target.Room.
	ToRoom TargetKind = iota + 1
	// ToUser reaches every live session of Target.UserID; dropped when absent.
	ToUser
	// ToCaller reaches only the connection that issued the event.
	ToCaller
	// ToOthers reaches every connection except the caller's.
	ToOthers
)

type Target struct {
	Kind   TargetKind
	Room   string
	UserID int64
}

func Room(key string) Target { return Target{Kind: ToRoom, Room: key} }

func User(id int64) Target { return Target{Kind: ToUser, UserID: id} }

func Caller() Target { return Target{Kind: ToCaller} }

func Others() Target { return Target{Kind: ToOthers} }

func (t Target) String() string {
	switch t.Kind {
	case ToRoom:
		return "room:" + t.Room
	case ToUser:
		return fmt.Sprintf("user:%d", t.UserID)
	case ToCaller:
		return "caller"
	case ToOthers:
		return "others"
	default:
		return "unknown"
	}
}

// Delivery is one outbound event and its audience.
type Delivery struct {
	Target  Target
	Event   Name
	Payload any
}

// Outcome lists the notifications produced by a handled event.
// Persistence has already happened by the time an Outcome is returned.
// Join and Leave name a room the calling connection enters or exits; membership
// changes are applied before any delivery.
type Outcome struct {
	Join       string
	Leave      string
	Deliveries []Delivery
}

func (o *Outcome) Add(target Target, event Name, payload any) {
	o.Deliveries = append(o.Deliveries, Delivery{Target: target, Event: event, Payload: payload})
}

// Notify is a convenience for single-delivery outcomes.
func Notify(target Target, event Name, payload any) Outcome {
	var o Outcome
	o.Add(target, event, payload)
	return o
}

// RoomKey is the canonical room name for a user pair; argument order does not matter.
func RoomKey(a, b int64) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("chat_%d_%d", a, b)
}
