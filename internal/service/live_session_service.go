package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/reconcile"
)

const (
	liveSendBufferSize = 16
	livePingInterval   = 30 * time.Second
)

// LiveStaffOnlyMessage answers edit commands from viewers without a staff token.
const LiveStaffOnlyMessage = "교사 인증이 필요합니다."

// LiveConn is the part of a websocket connection a live session uses.
type LiveConn interface {
	ReadJSON(v interface{}) error
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// LiveSessionOptions wraps metadata extracted during the HTTP upgrade.
// Viewers may only select dates; Staff sessions may also edit records.
type LiveSessionOptions struct {
	Date          time.Time
	CorrelationID string
	Context       context.Context
	Staff         bool
}

// LiveSessionService drives one reconciliation board per websocket viewer.
type LiveSessionService interface {
	ServeConnection(conn LiveConn, opts LiveSessionOptions)
}

type liveSessionService struct {
	feed       LiveFeedService
	dismissals DismissalService
	validator  *validator.Validate
	logger     zerolog.Logger
}

type liveSession struct {
	service *liveSessionService
	conn    LiveConn
	staff   bool
	board   *reconcile.Board
	send    chan dto.LiveFrame
	closed  chan struct{}
	once    sync.Once
	log     zerolog.Logger
}

// NewLiveSessionService constructs the websocket session driver.
func NewLiveSessionService(feed LiveFeedService, dismissals DismissalService, validate *validator.Validate, logger zerolog.Logger) LiveSessionService {
	if validate == nil {
		validate = dto.NewValidator()
	}
	return &liveSessionService{
		feed:       feed,
		dismissals: dismissals,
		validator:  validate,
		logger:     logger.With().Str("component", "live_session").Logger(),
	}
}

func (s *liveSessionService) ServeConnection(conn LiveConn, opts LiveSessionOptions) {
	baseCtx := opts.Context
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	day := opts.Date
	if day.IsZero() {
		day = s.dismissals.Today()
	}

	session := &liveSession{
		service: s,
		conn:    conn,
		staff:   opts.Staff,
		board:   reconcile.NewBoard(day.In(s.dismissals.Location())),
		send:    make(chan dto.LiveFrame, liveSendBufferSize),
		closed:  make(chan struct{}),
		log:     s.logger.With().Str("correlation_id", opts.CorrelationID).Bool("staff", opts.Staff).Logger(),
	}

	sub, err := s.feed.Subscribe(ctx)
	if err != nil {
		session.log.Warn().Err(err).Msg("live subscription failed")
		_ = conn.WriteJSON(dto.LiveFrame{Type: dto.LiveFrameError, Error: "실시간 데이터를 불러오지 못했습니다."})
		_ = conn.Close()
		return
	}
	defer sub.Close()

	go session.writer()
	go session.pump(sub)
	session.reader(ctx)
}

// pump applies snapshots to the board and pushes a status frame once both
// collections have arrived.
func (s *liveSession) pump(sub *LiveSubscription) {
	defer s.close()
	for snap := range sub.Updates() {
		switch snap.Collection {
		case CollectionStudents:
			s.board.SetRoster(snap.Students)
		case CollectionDismissals:
			s.board.SetRecords(snap.Records)
		}
		s.pushStatus()
	}
}

func (s *liveSession) reader(ctx context.Context) {
	defer s.close()
	for {
		var command dto.LiveCommand
		if err := s.conn.ReadJSON(&command); err != nil {
			s.log.Debug().Err(err).Msg("live read loop ended")
			return
		}

		select {
		case <-s.closed:
			return
		default:
		}

		s.handle(ctx, command)
	}
}

func (s *liveSession) handle(ctx context.Context, command dto.LiveCommand) {
	if err := s.service.validator.Struct(command); err != nil {
		s.fail("알 수 없는 요청입니다.")
		return
	}
	if !s.staff && command.Type != dto.LiveCommandSelectDate {
		s.log.Warn().Str("command", command.Type).Msg("edit command from viewer session rejected")
		s.fail(LiveStaffOnlyMessage)
		return
	}

	switch command.Type {
	case dto.LiveCommandSelectDate:
		day, err := reconcile.ParseDate(command.Date, s.service.dismissals.Location())
		if err != nil {
			s.fail("날짜 형식이 올바르지 않습니다.")
			return
		}
		s.board.SelectDate(day)
		s.pushStatus()
	case dto.LiveCommandEditBegin:
		record, err := s.board.BeginEdit(command.RecordID)
		if err != nil {
			s.fail("수정할 기록을 찾을 수 없습니다.")
			return
		}
		s.queue(dto.LiveFrame{Type: dto.LiveFrameEdit, Data: dto.NewDismissalResponse(record, s.service.dismissals.Location())})
	case dto.LiveCommandEditCancel:
		s.board.CloseEdit()
		s.queue(dto.LiveFrame{Type: dto.LiveFrameClosed})
		s.pushStatus()
	case dto.LiveCommandEditSave:
		s.save(ctx, command)
	}
}

// save keeps the edit slot open when the store rejects the change.
func (s *liveSession) save(ctx context.Context, command dto.LiveCommand) {
	record, ok := s.board.Editing()
	if !ok {
		s.fail("수정 중인 기록이 없습니다.")
		return
	}

	updated, err := s.service.dismissals.Edit(ctx, record.ID, dto.EditDismissalRequest{
		DismissalMethod: command.DismissalMethod,
		Hour:            command.Hour,
		Minute:          command.Minute,
	})
	if err != nil {
		var validationErrs validator.ValidationErrors
		switch {
		case errors.As(err, &validationErrs):
			s.fail("하교 방법과 시간을 확인해주세요.")
		case errors.Is(err, ErrRecordNotFound):
			s.board.CloseEdit()
			s.fail("기록이 이미 삭제되었습니다.")
		default:
			s.log.Warn().Err(err).Str("record_id", record.ID).Msg("live edit failed")
			s.fail("수정 실패")
		}
		return
	}

	s.board.CloseEdit()
	s.queue(dto.LiveFrame{Type: dto.LiveFrameSaved, Data: dto.NewDismissalResponse(updated, s.service.dismissals.Location())})
}

func (s *liveSession) pushStatus() {
	if !s.board.Ready() {
		return
	}
	view := s.board.View()
	status := dto.NewDailyStatusResponse(view.Date, view.Statuses, s.service.dismissals.Location())
	status.Editing = view.Editing
	s.queue(dto.LiveFrame{Type: dto.LiveFrameStatus, Data: status})
}

func (s *liveSession) fail(message string) {
	s.queue(dto.LiveFrame{Type: dto.LiveFrameError, Error: message})
}

func (s *liveSession) queue(frame dto.LiveFrame) {
	select {
	case <-s.closed:
		return
	default:
	}
	select {
	case s.send <- frame:
	default:
		s.log.Warn().Str("type", frame.Type).Msg("dropping live frame for slow client")
	}
}

func (s *liveSession) writer() {
	defer s.close()
	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.send:
			if err := s.conn.WriteJSON(frame); err != nil {
				s.log.Debug().Err(err).Msg("live write loop terminated")
				return
			}
		case <-ticker.C:
			if err := s.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				s.log.Debug().Err(err).Msg("live ping failed")
				return
			}
		case <-s.closed:
			return
		}
	}
}

func (s *liveSession) close() {
	s.once.Do(func() {
		close(s.closed)
		_ = s.conn.Close()
	})
}
