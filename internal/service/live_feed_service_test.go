package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

func receiveSnapshot(t *testing.T, sub *LiveSubscription) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-sub.Updates():
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot received")
		return Snapshot{}
	}
}

func TestLiveFeedSubscribeDeliversInitialSnapshots(t *testing.T) {
	db := setupTestDB(t)
	students := repository.NewStudentRepository(db)
	records := repository.NewDismissalRepository(db)
	ctx := context.Background()

	require.NoError(t, students.Create(ctx, &models.Student{Name: "윤지수", Grade: 2}))
	older := models.DismissalRecord{StudentName: "윤지수", Grade: 2, DismissalMethod: models.MethodWalk, Timestamp: 1000}
	newer := models.DismissalRecord{StudentName: "윤지수", Grade: 2, DismissalMethod: models.MethodWalk, Timestamp: 2000}
	require.NoError(t, records.Append(ctx, &older))
	require.NoError(t, records.Append(ctx, &newer))

	feed := NewLiveFeedService(students, records, nil, nil, "test", testLogger())
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()

	first := receiveSnapshot(t, sub)
	require.Equal(t, CollectionStudents, first.Collection)
	require.Len(t, first.Students, 1)

	second := receiveSnapshot(t, sub)
	require.Equal(t, CollectionDismissals, second.Collection)
	require.Len(t, second.Records, 2)
	require.Equal(t, newer.ID, second.Records[0].ID)
}

func TestLiveFeedPublishRereadsStore(t *testing.T) {
	db := setupTestDB(t)
	students := repository.NewStudentRepository(db)
	feed := NewLiveFeedService(students, repository.NewDismissalRepository(db), nil, nil, "test", testLogger())
	ctx := context.Background()

	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()
	receiveSnapshot(t, sub)
	receiveSnapshot(t, sub)

	require.NoError(t, students.Create(ctx, &models.Student{Name: "양혜린", Grade: 2}))
	feed.Publish(ctx, CollectionStudents)

	snap := receiveSnapshot(t, sub)
	require.Equal(t, CollectionStudents, snap.Collection)
	require.Len(t, snap.Students, 1)
	require.Equal(t, "양혜린", snap.Students[0].Name)
}

func TestLiveSubscriptionCloseReleases(t *testing.T) {
	db := setupTestDB(t)
	feed := NewLiveFeedService(repository.NewStudentRepository(db), repository.NewDismissalRepository(db), nil, nil, "", testLogger()).(*liveFeedService)

	ctx, cancel := context.WithCancel(context.Background())
	sub, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, feed.hub.count())

	sub.Close()
	sub.Close()
	require.Equal(t, 0, feed.hub.count())

	other, err := feed.Subscribe(ctx)
	require.NoError(t, err)
	cancel()
	require.Eventually(t, func() bool { return feed.hub.count() == 0 }, time.Second, 10*time.Millisecond)

	for range other.Updates() {
	}
}

func TestLiveFeedStopsOnServiceShutdown(t *testing.T) {
	db := setupTestDB(t)
	feed := NewLiveFeedService(repository.NewStudentRepository(db), repository.NewDismissalRepository(db), nil, nil, "", testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	feed.Start(ctx)

	sub, err := feed.Subscribe(context.Background())
	require.NoError(t, err)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Updates():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	_, err = feed.Subscribe(context.Background())
	require.Error(t, err)
}

func TestLiveFeedFansOutAcrossNodesThroughRedis(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer redisClient.Close()

	db := setupTestDB(t)
	students := repository.NewStudentRepository(db)
	records := repository.NewDismissalRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	nodeA := NewLiveFeedService(students, records, redisClient, nil, "test", testLogger())
	nodeB := NewLiveFeedService(students, records, redisClient, nil, "test", testLogger())
	nodeB.Start(ctx)

	sub, err := nodeB.Subscribe(ctx)
	require.NoError(t, err)
	defer sub.Close()
	receiveSnapshot(t, sub)
	receiveSnapshot(t, sub)

	require.Eventually(t, func() bool {
		return len(server.PubSubChannels("test:changes")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	record := models.DismissalRecord{StudentName: "임지효", Grade: 5, DismissalMethod: models.MethodEduTaxi, Timestamp: time.Now().UnixMilli()}
	require.NoError(t, records.Append(ctx, &record))
	nodeA.Publish(ctx, CollectionDismissals)

	snap := receiveSnapshot(t, sub)
	require.Equal(t, CollectionDismissals, snap.Collection)
	require.Len(t, snap.Records, 1)
	require.Equal(t, record.ID, snap.Records[0].ID)
}

func drainSnapshots(sub *LiveSubscription) []Snapshot {
	var got []Snapshot
	for {
		select {
		case snap, ok := <-sub.Updates():
			if !ok {
				return got
			}
			got = append(got, snap)
		case <-time.After(200 * time.Millisecond):
			return got
		}
	}
}

func TestLiveSubscriptionSlowReaderKeepsRosterSnapshot(t *testing.T) {
	hub := &liveHub{subs: make(map[*LiveSubscription]struct{}), log: testLogger()}
	sub := newLiveSubscription(hub)
	require.True(t, hub.register(sub))
	defer sub.Close()

	sub.offer(Snapshot{Collection: CollectionStudents, Version: 1, Students: []models.Student{{ID: "s1", Name: "박가은", Grade: 4}}})
	for version := uint64(2); version <= 40; version++ {
		sub.offer(Snapshot{Collection: CollectionDismissals, Version: version})
	}

	got := drainSnapshots(sub)
	require.LessOrEqual(t, len(got), 3)

	var roster, latestRecords *Snapshot
	for i := range got {
		switch got[i].Collection {
		case CollectionStudents:
			roster = &got[i]
		case CollectionDismissals:
			latestRecords = &got[i]
		}
	}
	require.NotNil(t, roster)
	require.Len(t, roster.Students, 1)
	require.NotNil(t, latestRecords)
	require.EqualValues(t, 40, latestRecords.Version)
}

func TestLiveSubscriptionReplacesPendingSnapshotInPlace(t *testing.T) {
	hub := &liveHub{subs: make(map[*LiveSubscription]struct{}), log: testLogger()}
	sub := newLiveSubscription(hub)
	require.True(t, hub.register(sub))
	defer sub.Close()

	sub.offer(Snapshot{Collection: CollectionDismissals, Version: 1})
	sub.offer(Snapshot{Collection: CollectionStudents, Version: 2})
	sub.offer(Snapshot{Collection: CollectionStudents, Version: 5})
	sub.offer(Snapshot{Collection: CollectionStudents, Version: 3})

	got := drainSnapshots(sub)
	require.Len(t, got, 2)
	require.Equal(t, CollectionDismissals, got[0].Collection)
	require.Equal(t, CollectionStudents, got[1].Collection)
	require.EqualValues(t, 5, got[1].Version)
}
