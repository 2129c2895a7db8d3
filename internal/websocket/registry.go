package websocket

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ChrisKp1710/gamecall/internal/imtypes"
	"github.com/ChrisKp1710/gamecall/internal/metrics"
)

// Outbox is the bounded queue of encoded events waiting to be written to one connection.
// Retiring an outbox closes Done instead of the data channel, so concurrent senders never
// race with a close.
type Outbox struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

// NewOutbox creates an outbox that buffers up to size frames.
func NewOutbox(size int) *Outbox {
	if size <= 0 {
		size = 1
	}
	return &Outbox{
		ch:   make(chan []byte, size),
		done: make(chan struct{}),
	}
}

// C returns the channel the owning session drains.
func (o *Outbox) C() <-chan []byte { return o.ch }

// Done is closed when the outbox has been retired.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Close retires the outbox. It is safe to call more than once.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

// offer enqueues data without blocking and reports whether it was accepted.
func (o *Outbox) offer(data []byte) bool {
	select {
	case <-o.done:
		return false
	default:
	}
	select {
	case o.ch <- data:
		return true
	default:
		return false
	}
}

// Registry 维护在线用户到其连接发送队列的映射。
// Each user has at most one outbox; registering again replaces and retires the previous one.
// Supporting several devices per user would turn the map value into a set of outboxes.
type Registry struct {
	mu       sync.RWMutex
	outboxes map[uuid.UUID]*Outbox
	logger   *zap.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		outboxes: make(map[uuid.UUID]*Outbox),
		logger:   logger.Named("registry"),
	}
}

// Register installs outbox for user. Any previous outbox for the user is retired.
func (r *Registry) Register(user uuid.UUID, outbox *Outbox) {
	r.mu.Lock()
	old := r.outboxes[user]
	r.outboxes[user] = outbox
	n := len(r.outboxes)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	if old != nil && old != outbox {
		old.Close()
		metrics.SessionsTotal.WithLabelValues("superseded").Inc()
		r.logger.Info("session superseded", zap.Stringer("user_id", user))
	}
}

// Unregister removes user's mapping only if it still points at outbox, and reports whether it did.
func (r *Registry) Unregister(user uuid.UUID, outbox *Outbox) bool {
	r.mu.Lock()
	current, ok := r.outboxes[user]
	removed := ok && current == outbox
	if removed {
		delete(r.outboxes, user)
	}
	n := len(r.outboxes)
	r.mu.Unlock()

	metrics.ActiveSessions.Set(float64(n))
	return removed
}

// IsOnline reports whether user currently has a registered outbox.
func (r *Registry) IsOnline(user uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.outboxes[user]
	return ok
}

// OnlineCount returns the number of registered users.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.outboxes)
}

// SendTo delivers ev to user if connected. Offline users and full queues drop the event.
func (r *Registry) SendTo(user uuid.UUID, ev imtypes.Event) {
	data, ok := r.encode(ev)
	if !ok {
		return
	}
	r.deliver(user, ev.EventType(), data)
}

// Broadcast delivers ev to every user registered at the time of the call.
func (r *Registry) Broadcast(ev imtypes.Event) {
	data, ok := r.encode(ev)
	if !ok {
		return
	}

	r.mu.RLock()
	users := make([]uuid.UUID, 0, len(r.outboxes))
	for user := range r.outboxes {
		users = append(users, user)
	}
	r.mu.RUnlock()

	for _, user := range users {
		r.deliver(user, ev.EventType(), data)
	}
}

func (r *Registry) encode(ev imtypes.Event) ([]byte, bool) {
	data, err := imtypes.Encode(ev)
	if err != nil {
		r.logger.Error("encode live event", zap.Error(err))
		return nil, false
	}
	return data, true
}

func (r *Registry) deliver(user uuid.UUID, typ imtypes.EventType, data []byte) {
	r.mu.RLock()
	outbox := r.outboxes[user]
	r.mu.RUnlock()

	result := metrics.ResultDelivered
	switch {
	case outbox == nil:
		result = metrics.ResultOffline
	case !outbox.offer(data):
		result = metrics.ResultDropped
		r.logger.Debug("live event dropped", zap.Stringer("user_id", user), zap.String("event", string(typ)))
	}
	metrics.LiveEvents.WithLabelValues(string(typ), result).Inc()
}
