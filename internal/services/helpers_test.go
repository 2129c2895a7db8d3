package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/ChrisKp1710/gamecall/internal/imtypes"
)

// recordingNotifier collects live events instead of delivering them.
type recordingNotifier struct {
	mu     sync.Mutex
	sent   map[uuid.UUID][]imtypes.Event
	online map[uuid.UUID]bool
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{
		sent:   make(map[uuid.UUID][]imtypes.Event),
		online: make(map[uuid.UUID]bool),
	}
}

func (n *recordingNotifier) SendTo(user uuid.UUID, ev imtypes.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent[user] = append(n.sent[user], ev)
}

func (n *recordingNotifier) IsOnline(user uuid.UUID) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.online[user]
}

func (n *recordingNotifier) events(user uuid.UUID) []imtypes.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]imtypes.Event(nil), n.sent[user]...)
}

type producedRecord struct {
	topic   string
	key     []byte
	payload []byte
}

type recordingProducer struct {
	mu      sync.Mutex
	records []producedRecord
	err     error
}

func (p *recordingProducer) SendMessage(_ context.Context, topic string, key []byte, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.records = append(p.records, producedRecord{topic: topic, key: key, payload: payload})
	return nil
}

func (p *recordingProducer) Close() {}
