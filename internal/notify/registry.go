package notify

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const subscriptionBuffer = 16

type targetKind int

const (
	targetUser targetKind = iota
	targetAdmins
	targetAll
)

type Target struct {
	kind   targetKind
	userID uuid.UUID
}

func User(id uuid.UUID) Target { return Target{kind: targetUser, userID: id} }

var (
	Admins   = Target{kind: targetAdmins}
	Everyone = Target{kind: targetAll}
)

// Subscription is a live connection handle. It is removed from its
// bucket on Close, on idle timeout, or on the first failed delivery,
// whichever happens first; removal is idempotent.
type Subscription struct {
	id          uuid.UUID
	userID      uuid.UUID
	admin       bool
	events      chan Event
	done        chan struct{}
	once        sync.Once
	idle        *time.Timer
	idleTimeout time.Duration
	registry    *Registry
}

func (s *Subscription) ID() uuid.UUID { return s.id }

func (s *Subscription) Events() <-chan Event { return s.events }

func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.idle.Stop()
		close(s.done)
		s.registry.remove(s)
	})
}

// deliver pushes an event with a time bound so one slow connection
// never stalls delivery to the others.
func (s *Subscription) deliver(ev Event, timeout time.Duration) bool {
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case s.events <- ev:
		s.idle.Reset(s.idleTimeout)
		return true
	case <-s.done:
		return false
	case <-t.C:
		return false
	}
}

// Registry owns the live subscriber buckets: one per user plus the
// admin bucket. It is created at process start and injected; there is
// no package-level state.
type Registry struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]map[*Subscription]struct{}
	admins      map[*Subscription]struct{}
	sendTimeout time.Duration
	idleTimeout time.Duration
	log         *slog.Logger
}

func NewRegistry(sendTimeout, idleTimeout time.Duration, log *slog.Logger) *Registry {
	if sendTimeout <= 0 {
		sendTimeout = 2 * time.Second
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		users:       make(map[uuid.UUID]map[*Subscription]struct{}),
		admins:      make(map[*Subscription]struct{}),
		sendTimeout: sendTimeout,
		idleTimeout: idleTimeout,
		log:         log,
	}
}

func (r *Registry) Subscribe(userID uuid.UUID, admin bool) *Subscription {
	sub := &Subscription{
		id:          uuid.New(),
		userID:      userID,
		admin:       admin,
		events:      make(chan Event, subscriptionBuffer),
		done:        make(chan struct{}),
		idleTimeout: r.idleTimeout,
		registry:    r,
	}
	sub.idle = time.AfterFunc(r.idleTimeout, sub.Close)

	r.mu.Lock()
	if admin {
		r.admins[sub] = struct{}{}
	} else {
		bucket := r.users[userID]
		if bucket == nil {
			bucket = make(map[*Subscription]struct{})
			r.users[userID] = bucket
		}
		bucket[sub] = struct{}{}
	}
	r.mu.Unlock()

	sub.deliver(Event{
		Type:      EventConnected,
		Payload:   map[string]any{"subscription_id": sub.id},
		Timestamp: time.Now().UTC(),
	}, r.sendTimeout)

	return sub
}

// Publish delivers {type, payload, timestamp} to every live connection
// in the target bucket. Fire-and-forget: a connection that fails to
// take delivery within the send timeout is dropped, not retried.
func (r *Registry) Publish(t Target, eventType string, payload any) {
	ev := Event{Type: eventType, Payload: payload, Timestamp: time.Now().UTC()}

	for _, sub := range r.snapshot(t) {
		if !sub.deliver(ev, r.sendTimeout) {
			r.log.Warn("notify: dropping dead subscription",
				"subscription_id", sub.id, "user_id", sub.userID, "event_type", eventType)
			sub.Close()
		}
	}
}

func (r *Registry) Subscribers(t Target) int {
	return len(r.snapshot(t))
}

func (r *Registry) snapshot(t Target) []*Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var subs []*Subscription
	switch t.kind {
	case targetUser:
		for sub := range r.users[t.userID] {
			subs = append(subs, sub)
		}
	case targetAdmins:
		for sub := range r.admins {
			subs = append(subs, sub)
		}
	case targetAll:
		for _, bucket := range r.users {
			for sub := range bucket {
				subs = append(subs, sub)
			}
		}
		for sub := range r.admins {
			subs = append(subs, sub)
		}
	}
	return subs
}

func (r *Registry) remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.admin {
		delete(r.admins, sub)
		return
	}
	bucket := r.users[sub.userID]
	if bucket == nil {
		return
	}
	delete(bucket, sub)
	if len(bucket) == 0 {
		delete(r.users, sub.userID)
	}
}
