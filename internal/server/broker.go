package server

import (
	"encoding/json"
	"sync"
)

// Event types pushed to subscribers.
const (
	EventQRVerified    = "qr_verified"
	EventRoundUnlocked = "round_unlocked"
	EventHuntCompleted = "hunt_completed"
	EventHintReviewed  = "hint_reviewed"
	EventTeamsChanged  = "teams_changed"
)

// leaderboardTopic receives every progress change. Team ids are UUIDs, so
// it cannot collide with a team topic.
const leaderboardTopic = "leaderboard"

// Event is the payload published to subscribers.
type Event struct {
	Type          string `json:"type"`
	TeamID        string `json:"teamId,omitempty"`
	RoundNumber   int    `json:"roundNumber,omitempty"`
	HintRequestID string `json:"hintRequestId,omitempty"`
	Status        string `json:"status,omitempty"`
}

// Broker is an in-process pub/sub keyed by topic: a team id or the
// leaderboard.
type Broker struct {
	mu   sync.RWMutex
	subs map[string]map[chan []byte]struct{}
}

func NewBroker() *Broker {
	return &Broker{
		subs: make(map[string]map[chan []byte]struct{}),
	}
}

// Subscribe returns a channel that receives JSON-encoded events for topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish sends event to every subscriber of topic. Slow subscribers miss it.
func (b *Broker) Publish(topic string, event Event) {
	data, _ := json.Marshal(event)
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
		}
	}
	b.mu.RUnlock()
}

// PublishProgress notifies the team and the leaderboard feed.
func (b *Broker) PublishProgress(event Event) {
	b.Publish(event.TeamID, event)
	b.Publish(leaderboardTopic, event)
}
