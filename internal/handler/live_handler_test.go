package handler_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/service"
)

// listen serves the app on a loopback port and returns its ws:// base URL.
func (a testApp) listen(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		_ = a.app.Listener(ln)
	}()
	t.Cleanup(func() {
		_ = a.app.Shutdown()
	})
	return "ws://" + ln.Addr().String()
}

func readFrame(t *testing.T, conn *websocket.Conn, frameType string) map[string]interface{} {
	t.Helper()
	return readFrameWhere(t, conn, frameType, func(map[string]interface{}) bool { return true })
}

func readFrameWhere(t *testing.T, conn *websocket.Conn, frameType string, match func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		var frame struct {
			Type  string                 `json:"type"`
			Data  map[string]interface{} `json:"data"`
			Error string                 `json:"error"`
		}
		require.NoError(t, conn.ReadJSON(&frame))
		if frame.Type == frameType && match(frame.Data) {
			return frame.Data
		}
	}
}

func TestLiveWebsocketPushesDailyStatus(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.addStudent(t, "최은율", 4)

	base := app.listen(t)
	url := base + "/api/v1/live/ws?date=2025-12-22&access_token=" + app.staffToken(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readFrame(t, conn, dto.LiveFrameStatus)
	require.Equal(t, "2025-12-22", initial["date"])
	require.EqualValues(t, 1, initial["total"])
	require.EqualValues(t, 0, initial["completed"])

	record := models.DismissalRecord{StudentName: "최은율", Grade: 4, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 14, 10, 0, 0, seoul).UnixMilli()}
	require.NoError(t, app.records.Append(context.Background(), &record))
	app.feed.Publish(context.Background(), service.CollectionDismissals)

	updated := readFrameWhere(t, conn, dto.LiveFrameStatus, func(data map[string]interface{}) bool {
		return data["completed"] == float64(1)
	})
	require.EqualValues(t, 1, updated["total"])

	require.NoError(t, conn.WriteJSON(dto.LiveCommand{Type: dto.LiveCommandEditBegin, RecordID: record.ID}))
	edit := readFrame(t, conn, dto.LiveFrameEdit)
	require.Equal(t, record.ID, edit["id"])
}

func TestLiveWebsocketViewerCannotEditRecords(t *testing.T) {
	app := newTestApp(t, appOptions{})
	app.addStudent(t, "엄승환", 4)
	record := models.DismissalRecord{StudentName: "엄승환", Grade: 4, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 13, 0, 0, 0, seoul).UnixMilli()}
	require.NoError(t, app.records.Append(context.Background(), &record))

	base := app.listen(t)
	resp := app.do(t, "PATCH", "/api/v1/staff/dismissals/"+record.ID, map[string]interface{}{"dismissal_method": models.MethodCityBus, "hour": 3, "minute": 0}, "")
	require.Equal(t, 401, resp.StatusCode)

	conn, _, err := websocket.DefaultDialer.Dial(base+"/api/v1/live/ws?date=2025-12-22", nil)
	require.NoError(t, err)
	defer conn.Close()
	readFrame(t, conn, dto.LiveFrameStatus)

	minute := 0
	require.NoError(t, conn.WriteJSON(dto.LiveCommand{Type: dto.LiveCommandEditBegin, RecordID: record.ID}))
	require.NoError(t, conn.WriteJSON(dto.LiveCommand{Type: dto.LiveCommandEditSave, DismissalMethod: models.MethodCityBus, Hour: 3, Minute: &minute}))

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
		var frame dto.LiveFrame
		for {
			require.NoError(t, conn.ReadJSON(&frame))
			if frame.Type != dto.LiveFrameStatus {
				break
			}
		}
		require.Equal(t, dto.LiveFrameError, frame.Type)
		require.Equal(t, service.LiveStaffOnlyMessage, frame.Error)
	}

	stored, err := app.records.GetByID(context.Background(), record.ID)
	require.NoError(t, err)
	require.Equal(t, models.MethodWalk, stored.DismissalMethod)
	require.Equal(t, record.Timestamp, stored.Timestamp)

	require.NoError(t, conn.WriteJSON(dto.LiveCommand{Type: dto.LiveCommandSelectDate, Date: "2025-12-23"}))
	moved := readFrameWhere(t, conn, dto.LiveFrameStatus, func(data map[string]interface{}) bool {
		return data["date"] == "2025-12-23"
	})
	require.EqualValues(t, 0, moved["completed"])
}

func TestLiveWebsocketRejectsForgedToken(t *testing.T) {
	app := newTestApp(t, appOptions{})
	base := app.listen(t)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "staff",
		"role": "teacher",
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(base+"/api/v1/live/ws?access_token="+forged, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	require.Equal(t, 401, resp.StatusCode)
}

func TestLiveWebsocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, appOptions{})
	resp := app.do(t, "GET", "/api/v1/live/ws", nil, "")
	require.Equal(t, 426, resp.StatusCode)
}
