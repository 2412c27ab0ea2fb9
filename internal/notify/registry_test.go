package notify

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func recvEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev := <-sub.Events():
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func requireNoEvent(t *testing.T, sub *Subscription) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %q", ev.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribeSendsConnectedAck(t *testing.T) {
	r := NewRegistry(time.Second, time.Minute, nil)
	sub := r.Subscribe(uuid.New(), false)
	defer sub.Close()

	ev := recvEvent(t, sub)
	require.Equal(t, EventConnected, ev.Type)
	require.False(t, ev.Timestamp.IsZero())

	payload, ok := ev.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, sub.ID(), payload["subscription_id"])
}

func TestPublishToUser(t *testing.T) {
	r := NewRegistry(time.Second, time.Minute, nil)
	userID := uuid.New()

	first := r.Subscribe(userID, false)
	second := r.Subscribe(userID, false)
	stranger := r.Subscribe(uuid.New(), false)
	defer first.Close()
	defer second.Close()
	defer stranger.Close()

	recvEvent(t, first)
	recvEvent(t, second)
	recvEvent(t, stranger)

	r.Publish(User(userID), EventOrderCreated, map[string]any{"order_id": uuid.New()})

	// Every connection of the target user gets a copy.
	require.Equal(t, EventOrderCreated, recvEvent(t, first).Type)
	require.Equal(t, EventOrderCreated, recvEvent(t, second).Type)
	requireNoEvent(t, stranger)
}

func TestPublishToAdminsAndEveryone(t *testing.T) {
	r := NewRegistry(time.Second, time.Minute, nil)

	user := r.Subscribe(uuid.New(), false)
	admin := r.Subscribe(uuid.New(), true)
	defer user.Close()
	defer admin.Close()

	recvEvent(t, user)
	recvEvent(t, admin)

	r.Publish(Admins, EventLowStockAlert, nil)
	require.Equal(t, EventLowStockAlert, recvEvent(t, admin).Type)
	requireNoEvent(t, user)

	r.Publish(Everyone, EventInventoryChanged, nil)
	require.Equal(t, EventInventoryChanged, recvEvent(t, user).Type)
	require.Equal(t, EventInventoryChanged, recvEvent(t, admin).Type)
}

func TestSubscriberCounts(t *testing.T) {
	r := NewRegistry(time.Second, time.Minute, nil)
	userID := uuid.New()

	require.Equal(t, 0, r.Subscribers(User(userID)))

	first := r.Subscribe(userID, false)
	second := r.Subscribe(userID, false)
	admin := r.Subscribe(uuid.New(), true)

	require.Equal(t, 2, r.Subscribers(User(userID)))
	require.Equal(t, 1, r.Subscribers(Admins))
	require.Equal(t, 3, r.Subscribers(Everyone))

	first.Close()
	require.Equal(t, 1, r.Subscribers(User(userID)))

	second.Close()
	admin.Close()
	require.Equal(t, 0, r.Subscribers(Everyone))
}

func TestCloseIsIdempotent(t *testing.T) {
	r := NewRegistry(time.Second, time.Minute, nil)
	sub := r.Subscribe(uuid.New(), false)

	sub.Close()
	sub.Close()

	select {
	case <-sub.Done():
	default:
		t.Fatal("done channel not closed")
	}
	require.Equal(t, 0, r.Subscribers(Everyone))
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	r := NewRegistry(10*time.Millisecond, time.Minute, nil)
	userID := uuid.New()
	sub := r.Subscribe(userID, false)

	// Nobody reads; fill the buffer (the connected ack took one slot)
	// until a delivery times out and the connection is dropped.
	for i := 0; i < subscriptionBuffer+1; i++ {
		r.Publish(User(userID), EventInventoryChanged, nil)
	}

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("slow subscription was not dropped")
	}
	require.Equal(t, 0, r.Subscribers(User(userID)))
}

func TestDeadConnectionDoesNotStallOthers(t *testing.T) {
	r := NewRegistry(10*time.Millisecond, time.Minute, nil)
	userID := uuid.New()

	healthy := r.Subscribe(userID, false)
	dead := r.Subscribe(userID, false)
	defer healthy.Close()

	recvEvent(t, healthy)
	recvEvent(t, dead)

	// The dead connection stops reading; enough publishes fill its
	// buffer and get it dropped while the healthy one keeps receiving.
	for i := 0; i < subscriptionBuffer+1; i++ {
		r.Publish(User(userID), EventOrderStatusChanged, nil)
		recvEvent(t, healthy)
	}

	select {
	case <-dead.Done():
	case <-time.After(time.Second):
		t.Fatal("dead subscription was not dropped")
	}
	require.Equal(t, 1, r.Subscribers(User(userID)))

	r.Publish(User(userID), EventOrderStatusChanged, nil)
	require.Equal(t, EventOrderStatusChanged, recvEvent(t, healthy).Type)
}

func TestIdleSubscriptionExpires(t *testing.T) {
	r := NewRegistry(time.Second, 50*time.Millisecond, nil)
	sub := r.Subscribe(uuid.New(), false)

	select {
	case <-sub.Done():
	case <-time.After(time.Second):
		t.Fatal("idle subscription did not expire")
	}
	require.Equal(t, 0, r.Subscribers(Everyone))
}

func TestDeliveryResetsIdleTimer(t *testing.T) {
	r := NewRegistry(time.Second, 150*time.Millisecond, nil)
	userID := uuid.New()
	sub := r.Subscribe(userID, false)
	defer sub.Close()

	recvEvent(t, sub)

	// Keep the connection busy past the original idle deadline.
	for i := 0; i < 4; i++ {
		time.Sleep(60 * time.Millisecond)
		r.Publish(User(userID), EventInventoryChanged, nil)
		require.Equal(t, EventInventoryChanged, recvEvent(t, sub).Type)
	}

	select {
	case <-sub.Done():
		t.Fatal("active subscription expired")
	default:
	}
}
