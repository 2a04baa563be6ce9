package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/messaging-service/internal/listing"
	"github.com/campusmarket/marketplace/messaging-service/internal/mailer"
	"github.com/campusmarket/marketplace/messaging-service/internal/repository"
	"github.com/campusmarket/marketplace/pkg/pubsub"
)

type fakeUsers map[string]*domain.UserProfile

func (f fakeUsers) GetByID(_ context.Context, id string) (*domain.UserProfile, error) {
	u, ok := f[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (f fakeUsers) GetByIDs(_ context.Context, ids []string) (map[string]*domain.UserProfile, error) {
	out := map[string]*domain.UserProfile{}
	for _, id := range ids {
		if u, ok := f[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakePrefs map[string]*domain.NotificationPreference

func (f fakePrefs) GetByUserID(_ context.Context, id string) (*domain.NotificationPreference, error) {
	p, ok := f[id]
	if !ok {
		return nil, repository.ErrPreferenceNotFound
	}
	return p, nil
}

func (f fakePrefs) Upsert(_ context.Context, p *domain.NotificationPreference) error {
	f[p.UserID] = p
	return nil
}

type fakeListings map[string]*domain.Listing

func (f fakeListings) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	l, ok := f[id]
	if !ok {
		return nil, listing.ErrListingNotFound
	}
	return l, nil
}

type recordingSender struct {
	mu   sync.Mutex
	sent []*mailer.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg *mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []*mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*mailer.Message(nil), s.sent...)
}

func testEvent() *domain.MessageSentEvent {
	conv := &domain.Conversation{ID: "conv-1", ListingID: "lst-1", BuyerID: "buyer", SellerID: "seller"}
	msg := &domain.Message{ID: "msg-1", ConversationID: "conv-1", SenderID: "buyer", Content: "Is this available?", CreatedAt: time.Now().UTC()}
	return domain.NewMessageSentEvent(conv, msg)
}

func newTestNotifier(prefs fakePrefs, sender *recordingSender, enabled bool) *EmailNotifier {
	users := fakeUsers{
		"buyer":  {ID: "buyer", Username: "bjones", FirstName: "Bea", LastName: "Jones", Email: "bea@example.com"},
		"seller": {ID: "seller", Username: "sam", FirstName: "Sam", Email: "sam@example.com"},
	}
	listings := fakeListings{"lst-1": {ID: "lst-1", SellerID: "seller", Title: "Desk Lamp"}}
	return NewEmailNotifier(users, prefs, listings, sender, enabled)
}

func TestRenderNewMessageEmail(t *testing.T) {
	t.Run("with listing title", func(t *testing.T) {
		msg := NewMessageEmail{To: "a@b.c", FirstName: "Sam", SenderName: "Bea Jones", ListingTitle: "Desk Lamp", Content: "hello"}.Render()
		assert.Equal(t, "a@b.c", msg.To)
		assert.Equal(t, "New message about your Desk Lamp listing", msg.Subject)
		assert.Contains(t, msg.Body, "Hi Sam,")
		assert.Contains(t, msg.Body, `"hello"`)
	})

	t.Run("without listing title", func(t *testing.T) {
		msg := NewMessageEmail{SenderName: "Bea Jones", Content: "hello"}.Render()
		assert.Equal(t, "New message from Bea Jones", msg.Subject)
		assert.Contains(t, msg.Body, "Hi there,")
	})

	t.Run("without sender name", func(t *testing.T) {
		msg := NewMessageEmail{FirstName: "  "}.Render()
		assert.Equal(t, "New message from Someone", msg.Subject)
		assert.Contains(t, msg.Body, "Hi there,")
	})
}

func TestEmailNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults to profile email", func(t *testing.T) {
		sender := &recordingSender{}
		newTestNotifier(fakePrefs{}, sender, true).Notify(ctx, testEvent())

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "sam@example.com", sent[0].To)
		assert.Equal(t, "New message about your Desk Lamp listing", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Hi Sam,")
		assert.Contains(t, sent[0].Body, "Bea Jones")
	})

	t.Run("uses preference overrides", func(t *testing.T) {
		sender := &recordingSender{}
		prefs := fakePrefs{"seller": {UserID: "seller", EmailNotificationsEnabled: true, Email: "alt@example.com", FirstName: "Sammy"}}
		newTestNotifier(prefs, sender, true).Notify(ctx, testEvent())

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "alt@example.com", sent[0].To)
		assert.Contains(t, sent[0].Body, "Hi Sammy,")
	})

	t.Run("disabled preference skips", func(t *testing.T) {
		sender := &recordingSender{}
		prefs := fakePrefs{"seller": {UserID: "seller", EmailNotificationsEnabled: false}}
		newTestNotifier(prefs, sender, true).Notify(ctx, testEvent())
		assert.Empty(t, sender.messages())
	})

	t.Run("global switch off skips", func(t *testing.T) {
		sender := &recordingSender{}
		newTestNotifier(fakePrefs{}, sender, false).Notify(ctx, testEvent())
		assert.Empty(t, sender.messages())
	})

	t.Run("missing recipient profile skips", func(t *testing.T) {
		sender := &recordingSender{}
		evt := testEvent()
		evt.RecipientID = "ghost"
		newTestNotifier(fakePrefs{}, sender, true).Notify(ctx, evt)
		assert.Empty(t, sender.messages())
	})

	t.Run("no email anywhere skips", func(t *testing.T) {
		sender := &recordingSender{}
		n := newTestNotifier(fakePrefs{}, sender, true)
		n.users.(fakeUsers)["seller"] = &domain.UserProfile{ID: "seller", Username: "sam"}
		n.Notify(ctx, testEvent())
		assert.Empty(t, sender.messages())
	})

	t.Run("unknown listing falls back to sender subject", func(t *testing.T) {
		sender := &recordingSender{}
		evt := testEvent()
		evt.ListingID = "gone"
		newTestNotifier(fakePrefs{}, sender, true).Notify(ctx, evt)

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "New message from Bea Jones", sent[0].Subject)
	})

	t.Run("send failure is swallowed", func(t *testing.T) {
		sender := &recordingSender{err: errors.New("smtp down")}
		assert.NotPanics(t, func() {
			newTestNotifier(fakePrefs{}, sender, true).Notify(ctx, testEvent())
		})
	})

	t.Run("recipient derived from participants", func(t *testing.T) {
		sender := &recordingSender{}
		evt := testEvent()
		evt.RecipientID = ""
		evt.SenderID = "seller"
		newTestNotifier(fakePrefs{}, sender, true).Notify(ctx, evt)

		sent := sender.messages()
		require.Len(t, sent, 1)
		assert.Equal(t, "bea@example.com", sent[0].To)
	})
}

type recordingNotifier struct {
	mu      sync.Mutex
	events  []domain.MessageSentEvent
	ctxErrs []error
	block   chan struct{}
}

func (r *recordingNotifier) Notify(ctx context.Context, event *domain.MessageSentEvent) {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, *event)
	r.ctxErrs = append(r.ctxErrs, ctx.Err())
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestAsyncDispatcherDelivers(t *testing.T) {
	n := &recordingNotifier{}
	d := NewAsyncDispatcher(n, 2, 8, time.Second)
	d.Start()

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Dispatch(context.Background(), testEvent()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	assert.Equal(t, 5, n.count())

	select {
	case <-d.Done():
	default:
		t.Fatal("done channel should be closed after stop")
	}

	assert.ErrorIs(t, d.Dispatch(context.Background(), testEvent()), ErrDispatcherStopped)
}

func TestAsyncDispatcherDropsWhenFull(t *testing.T) {
	n := &recordingNotifier{}
	d := NewAsyncDispatcher(n, 1, 1, time.Second)

	// Not started, so the single slot stays occupied.
	require.NoError(t, d.Dispatch(context.Background(), testEvent()))
	assert.ErrorIs(t, d.Dispatch(context.Background(), testEvent()), ErrQueueFull)

	require.NoError(t, d.Stop(context.Background()))
	assert.Zero(t, n.count())
}

func TestAsyncDispatcherIgnoresCallerCancellation(t *testing.T) {
	n := &recordingNotifier{block: make(chan struct{})}
	d := NewAsyncDispatcher(n, 1, 4, time.Second)
	d.Start()

	reqCtx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Dispatch(reqCtx, testEvent()))
	cancel()
	close(n.block)

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer stopCancel()
	require.NoError(t, d.Stop(stopCtx))
	require.Equal(t, 1, n.count())
	assert.NoError(t, n.ctxErrs[0])
}

// memoryBus is an in-process pubsub.PubSub.
type memoryBus struct {
	mu   sync.Mutex
	subs map[string]chan *pubsub.Event
}

func newMemoryBus() *memoryBus {
	return &memoryBus{subs: map[string]chan *pubsub.Event{}}
}

func (b *memoryBus) Publish(_ context.Context, channel string, event *pubsub.Event) error {
	b.mu.Lock()
	ch, ok := b.subs[channel]
	b.mu.Unlock()
	if !ok {
		return nil
	}
	ch <- event
	return nil
}

func (b *memoryBus) Subscribe(_ context.Context, channel string) (<-chan *pubsub.Event, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan *pubsub.Event, 16)
	b.subs[channel] = ch
	return ch, nil
}

func (b *memoryBus) Unsubscribe(_ context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[channel]; ok {
		close(ch)
		delete(b.subs, channel)
	}
	return nil
}

func (b *memoryBus) Close() error { return nil }

func TestPubSubDispatchAndConsume(t *testing.T) {
	bus := newMemoryBus()
	n := &recordingNotifier{}

	consumer := NewConsumer(bus, "", n, time.Second)
	require.NoError(t, consumer.Start(context.Background()))

	d := NewAsyncDispatcher(NewPubSubNotifier(bus, ""), 1, 4, time.Second)
	d.Start()
	evt := testEvent()
	require.NoError(t, d.Dispatch(context.Background(), evt))

	// Events of other types are ignored.
	other, err := pubsub.NewEvent("message.deleted", "conv-1", evt)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), pubsub.ChannelChatNotifications, other))

	require.Eventually(t, func() bool { return n.count() == 1 }, time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
	require.NoError(t, consumer.Close(ctx))
	<-consumer.Done()

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, evt.MessageID, n.events[0].MessageID)
	assert.Equal(t, "seller", n.events[0].RecipientID)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, *pubsub.Event) error {
	return errors.New("broker down")
}

func TestPubSubNotifierReturnsPublishError(t *testing.T) {
	n := NewPubSubNotifier(failingPublisher{}, "chat:notifications")
	assert.Error(t, n.Publish(context.Background(), testEvent()))

	// Notify only logs the failure.
	n.Notify(context.Background(), testEvent())
}

// stalledPublisher blocks every publish until its context ends.
type stalledPublisher struct {
	calls chan struct{}
}

func (p *stalledPublisher) Publish(ctx context.Context, _ string, _ *pubsub.Event) error {
	p.calls <- struct{}{}
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledBrokerDoesNotBlockDispatch(t *testing.T) {
	pub := &stalledPublisher{calls: make(chan struct{}, 4)}
	n := NewPubSubNotifier(pub, "")
	n.publishTimeout = 50 * time.Millisecond

	d := NewAsyncDispatcher(n, 1, 4, time.Second)
	d.Start()

	start := time.Now()
	require.NoError(t, d.Dispatch(context.Background(), testEvent()))
	assert.Less(t, time.Since(start), 20*time.Millisecond)

	select {
	case <-pub.calls:
	case <-time.After(time.Second):
		t.Fatal("publish never started")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Stop(ctx))
}
