package domain

import "context"

// MessageKind tags a push message.
type MessageKind int

// Push message kinds.
const (
	MessageCreated MessageKind = iota + 1
	MessageUpdated
	MessageDeleted
	MessageAttendeesChanged
)

func (k MessageKind) String() string {
	switch k {
	case MessageCreated:
		return "created"
	case MessageUpdated:
		return "updated"
	case MessageDeleted:
		return "deleted"
	case MessageAttendeesChanged:
		return "attendees_changed"
	default:
		return "unknown"
	}
}

// Message is one change notification: Created, Updated and AttendeesChanged carry an
// Event, Deleted carries only ID.
type Message struct {
	Kind  MessageKind
	Event *Event
	ID    string
}

// Created returns a Created message for e.
func Created(e *Event) Message { return Message{Kind: MessageCreated, Event: e} }

// Updated returns an Updated message for e.
func Updated(e *Event) Message { return Message{Kind: MessageUpdated, Event: e} }

// AttendeesChanged returns an AttendeesChanged message for e.
func AttendeesChanged(e *Event) Message { return Message{Kind: MessageAttendeesChanged, Event: e} }

// Deleted returns a Deleted message for id.
func Deleted(id string) Message { return Message{Kind: MessageDeleted, ID: id} }

// EntityID returns the id the message targets, or "" when it has none.
func (m Message) EntityID() string {
	if m.Kind == MessageDeleted {
		return m.ID
	}
	if m.Event == nil {
		return ""
	}
	return m.Event.ID
}

// ChannelState is the state of the push subscription.
type ChannelState int

// Push channel states.
const (
	ChannelDisconnected ChannelState = iota
	ChannelConnecting
	ChannelConnected
)

func (s ChannelState) String() string {
	switch s {
	case ChannelConnecting:
		return "connecting"
	case ChannelConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// PushChannel is a single push subscription. Open returns the message stream, which is
// closed when the connection ends. Close tears the connection down before returning.
type PushChannel interface {
	Open(ctx context.Context) (<-chan Message, error)
	Close() error
	State() ChannelState
}

// EventAPI is the remote event service. credential may be empty for guest calls.
type EventAPI interface {
	List(ctx context.Context) ([]*Event, error)
	Create(ctx context.Context, credential string, fields EventFields) (*Event, error)
	Update(ctx context.Context, credential, id string, fields EventFields) (*Event, error)
	Delete(ctx context.Context, credential, id string) error
	Join(ctx context.Context, credential, id string) (*Event, error)
	Leave(ctx context.Context, credential, id string) (*Event, error)
}
