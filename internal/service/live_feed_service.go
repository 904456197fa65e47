package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/observability"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

// Collections pushed on the live feed.
const (
	CollectionStudents   = "students"
	CollectionDismissals = "dismissals"
)

// LivePublisher announces that a collection changed.
type LivePublisher interface {
	Publish(ctx context.Context, collection string)
}

// Snapshot is the full authoritative content of one collection.
// Records are ordered newest first. Version grows with every store read.
type Snapshot struct {
	Collection string
	Version    uint64
	Students   []models.Student
	Records    []models.DismissalRecord
}

// LiveSubscription delivers snapshots until closed. At most one snapshot per
// collection is pending; a newer one replaces it in place.
type LiveSubscription struct {
	updates chan Snapshot
	signal  chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	seen    map[string]uint64
	pending map[string]Snapshot
	order   []string
	closed  bool
	once    sync.Once
	hub     *liveHub
}

func newLiveSubscription(hub *liveHub) *LiveSubscription {
	sub := &LiveSubscription{
		updates: make(chan Snapshot),
		signal:  make(chan struct{}, 1),
		done:    make(chan struct{}),
		seen:    make(map[string]uint64),
		pending: make(map[string]Snapshot),
		hub:     hub,
	}
	go sub.forward()
	return sub
}

// Updates returns the snapshot channel. It is closed when the subscription ends.
func (s *LiveSubscription) Updates() <-chan Snapshot {
	return s.updates
}

// Close releases the subscription. It is safe to call more than once.
func (s *LiveSubscription) Close() {
	s.once.Do(func() {
		s.hub.unregister(s)
	})
}

// LiveFeedService fans collection snapshots out to subscribers on this node
// and, through Redis and NATS, to the other nodes.
type LiveFeedService interface {
	LivePublisher
	Subscribe(ctx context.Context) (*LiveSubscription, error)
	Start(ctx context.Context)
}

type liveFeedService struct {
	students     repository.StudentRepository
	dismissals   repository.DismissalRepository
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	hub          *liveHub
	nodeID       string
	seq          atomic.Uint64
	logger       zerolog.Logger
}

type liveHub struct {
	mu   sync.RWMutex
	subs map[*LiveSubscription]struct{}
	done bool
	log  zerolog.Logger
}

type liveEvent struct {
	Source     string    `json:"source"`
	Collection string    `json:"collection"`
	SentAt     time.Time `json:"sent_at"`
}

// NewLiveFeedService creates the live feed. redisClient and natsConn are optional.
func NewLiveFeedService(students repository.StudentRepository, dismissals repository.DismissalRepository, redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger) LiveFeedService {
	redisChannel := ""
	natsSubject := ""
	if channelBase != "" {
		redisChannel = channelBase + ":changes"
		natsSubject = strings.ReplaceAll(channelBase, ":", ".") + ".changes"
	}

	return &liveFeedService{
		students:     students,
		dismissals:   dismissals,
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		hub: &liveHub{
			subs: make(map[*LiveSubscription]struct{}),
			log:  logger.With().Str("component", "live_hub").Logger(),
		},
		nodeID: uuid.NewString(),
		logger: logger.With().Str("component", "live_feed_service").Logger(),
	}
}

// Start consumes remote change events and ends every subscription when ctx is done.
func (s *liveFeedService) Start(ctx context.Context) {
	if s.redis != nil && s.redisChannel != "" {
		go s.consumeRedis(ctx)
	}
	if s.nats != nil && s.natsSubject != "" {
		go s.consumeNATS(ctx)
	}
	go func() {
		<-ctx.Done()
		s.hub.closeAll()
	}()
}

// Subscribe registers a subscriber and queues the current snapshot of both
// collections. The subscription also ends when ctx is done.
func (s *liveFeedService) Subscribe(ctx context.Context) (*LiveSubscription, error) {
	sub := newLiveSubscription(s.hub)
	if !s.hub.register(sub) {
		sub.shutdown()
		return nil, context.Canceled
	}

	for _, collection := range []string{CollectionStudents, CollectionDismissals} {
		snap, err := s.snapshot(ctx, collection)
		if err != nil {
			sub.Close()
			return nil, err
		}
		sub.offer(snap)
	}

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Publish re-reads collection from the store, delivers it locally and
// announces the change to other nodes.
func (s *liveFeedService) Publish(ctx context.Context, collection string) {
	s.deliver(ctx, collection, "local")

	if err := s.announce(ctx, collection); err != nil {
		s.logger.Warn().Err(err).Str("collection", collection).Msg("failed to announce live change")
	}
}

func (s *liveFeedService) deliver(ctx context.Context, collection, origin string) {
	snap, err := s.snapshot(ctx, collection)
	if err != nil {
		observability.LiveEvents().WithLabelValues(collection, "error").Inc()
		s.logger.Warn().Err(err).Str("collection", collection).Msg("failed to read live snapshot")
		return
	}
	observability.LiveEvents().WithLabelValues(collection, origin).Inc()
	s.hub.broadcast(snap)
}

func (s *liveFeedService) snapshot(ctx context.Context, collection string) (Snapshot, error) {
	version := s.seq.Add(1)
	switch collection {
	case CollectionStudents:
		students, err := s.students.List(ctx)
		if err != nil {
			return Snapshot{}, errors.Join(ErrStoreUnavailable, err)
		}
		return Snapshot{Collection: collection, Version: version, Students: reconcile.SortRoster(students)}, nil
	case CollectionDismissals:
		records, err := s.dismissals.List(ctx, repository.DismissalFilter{})
		if err != nil {
			return Snapshot{}, errors.Join(ErrStoreUnavailable, err)
		}
		return Snapshot{Collection: collection, Version: version, Records: reconcile.SortNewestFirst(records)}, nil
	default:
		return Snapshot{}, errors.New("unknown live collection " + collection)
	}
}

func (s *liveFeedService) announce(ctx context.Context, collection string) error {
	payload, err := json.Marshal(liveEvent{Source: s.nodeID, Collection: collection, SentAt: time.Now().UTC()})
	if err != nil {
		return err
	}

	if s.redis != nil && s.redisChannel != "" {
		if err := s.redis.Publish(ctx, s.redisChannel, payload).Err(); err != nil {
			return err
		}
	}
	if s.nats != nil && s.natsSubject != "" {
		if err := s.nats.Publish(s.natsSubject, payload); err != nil {
			return err
		}
	}
	return nil
}

func (s *liveFeedService) consumeRedis(ctx context.Context) {
	pubsub := s.redis.Subscribe(ctx, s.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()
	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			s.logger.Error().Err(err).Msg("live redis subscription closed")
			return
		}
		s.handleEvent(ctx, []byte(msg.Payload))
	}
}

func (s *liveFeedService) consumeNATS(ctx context.Context) {
	sub, err := s.nats.Subscribe(s.natsSubject, func(msg *nats.Msg) {
		s.handleEvent(ctx, msg.Data)
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to subscribe to nats live subject")
		return
	}
	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain live nats subscription")
		}
	}()
}

func (s *liveFeedService) handleEvent(ctx context.Context, data []byte) {
	var event liveEvent
	if err := json.Unmarshal(data, &event); err != nil {
		s.logger.Warn().Err(err).Msg("invalid live event")
		return
	}
	if event.Source == s.nodeID {
		return
	}
	s.deliver(ctx, event.Collection, "remote")
}

// offer queues snap unless a newer snapshot of the same collection was
// already queued.
func (s *LiveSubscription) offer(snap Snapshot) {
	s.mu.Lock()
	if s.closed || snap.Version <= s.seen[snap.Collection] {
		s.mu.Unlock()
		return
	}
	s.seen[snap.Collection] = snap.Version
	if _, queued := s.pending[snap.Collection]; !queued {
		s.order = append(s.order, snap.Collection)
	}
	s.pending[snap.Collection] = snap
	s.mu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *LiveSubscription) next() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return Snapshot{}, false
	}
	collection := s.order[0]
	s.order = s.order[1:]
	snap := s.pending[collection]
	delete(s.pending, collection)
	return snap, true
}

// forward moves pending snapshots onto updates in arrival order and closes
// updates once the subscription ends.
func (s *LiveSubscription) forward() {
	defer close(s.updates)
	for {
		select {
		case <-s.signal:
		case <-s.done:
			return
		}
		for {
			snap, ok := s.next()
			if !ok {
				break
			}
			select {
			case s.updates <- snap:
			case <-s.done:
				return
			}
		}
	}
}

func (s *LiveSubscription) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.pending = nil
	s.order = nil
	close(s.done)
}

func (h *liveHub) register(sub *LiveSubscription) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.done {
		return false
	}
	h.subs[sub] = struct{}{}
	observability.LiveSubscribers().Inc()
	h.log.Debug().Int("subscribers", len(h.subs)).Msg("live subscriber added")
	return true
}

func (h *liveHub) unregister(sub *LiveSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

func (h *liveHub) remove(sub *LiveSubscription) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	sub.shutdown()
	observability.LiveSubscribers().Dec()
	h.log.Debug().Int("subscribers", len(h.subs)).Msg("live subscriber removed")
}

func (h *liveHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.done = true
	for sub := range h.subs {
		h.remove(sub)
	}
}

func (h *liveHub) broadcast(snap Snapshot) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs {
		sub.offer(snap)
	}
}

// count reports the number of open subscriptions.
func (h *liveHub) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
