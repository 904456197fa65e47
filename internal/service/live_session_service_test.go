package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

type pipeConn struct {
	incoming chan dto.LiveCommand
	outgoing chan dto.LiveFrame
	once     sync.Once
	closed   chan struct{}
}

func newPipeConn() *pipeConn {
	return &pipeConn{
		incoming: make(chan dto.LiveCommand, 8),
		outgoing: make(chan dto.LiveFrame, 32),
		closed:   make(chan struct{}),
	}
}

func (p *pipeConn) ReadJSON(v interface{}) error {
	select {
	case command := <-p.incoming:
		*(v.(*dto.LiveCommand)) = command
		return nil
	case <-p.closed:
		return errors.New("closed")
	}
}

func (p *pipeConn) WriteJSON(v interface{}) error {
	select {
	case <-p.closed:
		return errors.New("closed")
	default:
	}
	frame := v.(dto.LiveFrame)
	// Round-trip so tests inspect what a client would decode.
	raw, err := json.Marshal(frame.Data)
	if err != nil {
		return err
	}
	var decoded interface{}
	_ = json.Unmarshal(raw, &decoded)
	frame.Data = decoded
	p.outgoing <- frame
	return nil
}

func (p *pipeConn) WriteMessage(int, []byte) error { return nil }

func (p *pipeConn) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *pipeConn) next(t *testing.T, frameType string) dto.LiveFrame {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case frame := <-p.outgoing:
			if frame.Type == frameType {
				return frame
			}
		case <-deadline:
			t.Fatalf("no %s frame received", frameType)
			return dto.LiveFrame{}
		}
	}
}

type liveFixture struct {
	conn     *pipeConn
	students repository.StudentRepository
	records  repository.DismissalRepository
	feed     LiveFeedService
	done     chan struct{}
}

func startLiveSession(t *testing.T, day time.Time, staff bool, seed func(students repository.StudentRepository, records repository.DismissalRepository)) liveFixture {
	t.Helper()
	db := setupTestDB(t)
	students := repository.NewStudentRepository(db)
	records := repository.NewDismissalRepository(db)
	if seed != nil {
		seed(students, records)
	}

	feed := NewLiveFeedService(students, records, nil, nil, "", testLogger())
	dismissals := NewDismissalService(records, students, nil, feed, nil, seoul, testLogger())
	sessions := NewLiveSessionService(feed, dismissals, nil, testLogger())

	conn := newPipeConn()
	done := make(chan struct{})
	go func() {
		defer close(done)
		sessions.ServeConnection(conn, LiveSessionOptions{Date: day, Staff: staff})
	}()
	t.Cleanup(func() {
		_ = conn.Close()
		<-done
	})

	return liveFixture{conn: conn, students: students, records: records, feed: feed, done: done}
}

func statusGrades(t *testing.T, frame dto.LiveFrame) []interface{} {
	t.Helper()
	data, ok := frame.Data.(map[string]interface{})
	require.True(t, ok)
	grades, ok := data["grades"].([]interface{})
	require.True(t, ok)
	return grades
}

func TestLiveSessionPushesStatusAndFollowsChanges(t *testing.T) {
	day := time.Date(2025, 12, 22, 0, 0, 0, 0, seoul)
	f := startLiveSession(t, day, false, func(students repository.StudentRepository, _ repository.DismissalRepository) {
		require.NoError(t, students.Create(context.Background(), &models.Student{Name: "서상준", Grade: 5}))
	})

	initial := f.conn.next(t, dto.LiveFrameStatus)
	data := initial.Data.(map[string]interface{})
	require.Equal(t, "2025-12-22", data["date"])
	require.EqualValues(t, 1, data["total"])
	require.EqualValues(t, 0, data["completed"])
	require.Len(t, statusGrades(t, initial), 6)

	record := models.DismissalRecord{StudentName: "서상준", Grade: 5, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 14, 0, 0, 0, seoul).UnixMilli()}
	require.NoError(t, f.records.Append(context.Background(), &record))
	f.feed.Publish(context.Background(), CollectionDismissals)

	updated := f.conn.next(t, dto.LiveFrameStatus)
	require.EqualValues(t, 1, updated.Data.(map[string]interface{})["completed"])

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandSelectDate, Date: "2025-12-23"}
	moved := f.conn.next(t, dto.LiveFrameStatus)
	movedData := moved.Data.(map[string]interface{})
	require.Equal(t, "2025-12-23", movedData["date"])
	require.EqualValues(t, 0, movedData["completed"])
}

func TestLiveSessionEditFlow(t *testing.T) {
	day := time.Date(2025, 12, 22, 0, 0, 0, 0, seoul)
	var record models.DismissalRecord
	f := startLiveSession(t, day, true, func(students repository.StudentRepository, records repository.DismissalRepository) {
		require.NoError(t, students.Create(context.Background(), &models.Student{Name: "전지후", Grade: 5}))
		record = models.DismissalRecord{StudentName: "전지후", Grade: 5, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 13, 0, 0, 0, seoul).UnixMilli()}
		require.NoError(t, records.Append(context.Background(), &record))
	})
	f.conn.next(t, dto.LiveFrameStatus)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)}
	require.Equal(t, "수정 중인 기록이 없습니다.", f.conn.next(t, dto.LiveFrameError).Error)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditBegin, RecordID: "unknown"}
	f.conn.next(t, dto.LiveFrameError)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditBegin, RecordID: record.ID}
	edit := f.conn.next(t, dto.LiveFrameEdit)
	require.Equal(t, record.ID, edit.Data.(map[string]interface{})["id"])

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodWalk, Hour: 9, Minute: intPtr(0)}
	f.conn.next(t, dto.LiveFrameError)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodParentCar, Hour: 3, Minute: intPtr(20)}
	saved := f.conn.next(t, dto.LiveFrameSaved)
	require.Equal(t, models.MethodParentCar, saved.Data.(map[string]interface{})["dismissal_method"])

	stored, err := f.records.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 12, 22, 15, 20, 0, 0, seoul).UnixMilli(), stored.Timestamp)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)}
	require.Equal(t, "수정 중인 기록이 없습니다.", f.conn.next(t, dto.LiveFrameError).Error)
}

func TestLiveSessionViewerCannotEdit(t *testing.T) {
	day := time.Date(2025, 12, 22, 0, 0, 0, 0, seoul)
	var record models.DismissalRecord
	f := startLiveSession(t, day, false, func(students repository.StudentRepository, records repository.DismissalRepository) {
		require.NoError(t, students.Create(context.Background(), &models.Student{Name: "차승환", Grade: 5}))
		record = models.DismissalRecord{StudentName: "차승환", Grade: 5, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 13, 0, 0, 0, seoul).UnixMilli()}
		require.NoError(t, records.Append(context.Background(), &record))
	})
	f.conn.next(t, dto.LiveFrameStatus)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditBegin, RecordID: record.ID}
	require.Equal(t, LiveStaffOnlyMessage, f.conn.next(t, dto.LiveFrameError).Error)

	f.conn.incoming <- dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodCityBus, Hour: 3, Minute: intPtr(0)}
	require.Equal(t, LiveStaffOnlyMessage, f.conn.next(t, dto.LiveFrameError).Error)

	stored, err := f.records.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.MethodWalk, stored.DismissalMethod)
	require.Equal(t, record.Timestamp, stored.Timestamp)
}
