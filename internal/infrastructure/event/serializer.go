package event

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/coopmarket/backend/internal/domain/shared"
)

// EventSerializer turns events into outbox payloads and back. Payloads are
// plain JSON of the event struct so that external consumers can read them.
type EventSerializer struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

// NewEventSerializer creates a serializer that knows every order event
func NewEventSerializer() *EventSerializer {
	s := &EventSerializer{types: make(map[string]reflect.Type)}
	RegisterOrderEvents(s)
	return s
}

// Register makes an event type decodable
func (s *EventSerializer) Register(eventType string, prototype shared.DomainEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := reflect.TypeOf(prototype)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	s.types[eventType] = t
}

// Serialize encodes an event
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", event.EventType(), err)
	}
	return data, nil
}

// Deserialize decodes a payload of a registered event type
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	s.mu.RLock()
	t, ok := s.types[eventType]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}

	ptr := reflect.New(t).Interface()
	if err := json.Unmarshal(data, ptr); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", eventType, err)
	}
	event, ok := ptr.(shared.DomainEvent)
	if !ok {
		return nil, fmt.Errorf("%s does not implement DomainEvent", t)
	}
	return event, nil
}

// RegisteredTypes returns the registered event types in sorted order
func (s *EventSerializer) RegisteredTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.types))
	for t := range s.types {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
