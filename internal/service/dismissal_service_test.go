package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dismissal-api/internal/dto"
	"github.com/noah-isme/dismissal-api/internal/models"
	"github.com/noah-isme/dismissal-api/internal/repository"
)

type dismissalFixture struct {
	svc       *dismissalService
	students  repository.StudentRepository
	records   repository.DismissalRepository
	publisher *recordingPublisher
}

func newDismissalFixture(t *testing.T, now time.Time) dismissalFixture {
	t.Helper()
	db := setupTestDB(t)
	students := repository.NewStudentRepository(db)
	records := repository.NewDismissalRepository(db)
	publisher := &recordingPublisher{}

	svc := NewDismissalService(records, students, fixedGoodbye("잘 가요!"), publisher, nil, seoul, testLogger()).(*dismissalService)
	svc.now = func() time.Time { return now }

	return dismissalFixture{svc: svc, students: students, records: records, publisher: publisher}
}

type failingDismissalRepo struct {
	repository.DismissalRepository
	appends int
}

func (f *failingDismissalRepo) Append(context.Context, *models.DismissalRecord) error {
	f.appends++
	return errors.New("connection reset")
}

func TestSubmitStoresAfternoonTimestampWithStudentID(t *testing.T) {
	now := time.Date(2025, 12, 22, 9, 15, 42, 0, seoul)
	f := newDismissalFixture(t, now)
	ctx := context.Background()

	student := models.Student{Name: "김온유", Grade: 3}
	require.NoError(t, f.students.Create(ctx, &student))

	record, err := f.svc.Submit(ctx, dto.SubmitDismissalRequest{
		StudentID:       student.ID,
		DismissalMethod: models.MethodWalk,
		Hour:            2,
		Minute:          intPtr(30),
	})
	require.NoError(t, err)

	require.Equal(t, time.Date(2025, 12, 22, 14, 30, 0, 0, seoul).UnixMilli(), record.Timestamp)
	require.NotNil(t, record.StudentID)
	require.Equal(t, student.ID, *record.StudentID)
	require.Equal(t, "김온유", record.StudentName)
	require.Equal(t, 3, record.Grade)
	require.Equal(t, "잘 가요!", record.Message)
	require.Equal(t, []string{CollectionDismissals}, f.publisher.Published())
}

func TestSubmitByNameAttachesRosterStudent(t *testing.T) {
	f := newDismissalFixture(t, time.Date(2025, 12, 22, 13, 0, 0, 0, seoul))
	ctx := context.Background()

	student := models.Student{Name: "박소윤", Grade: 3}
	require.NoError(t, f.students.Create(ctx, &student))

	record, err := f.svc.Submit(ctx, dto.SubmitDismissalRequest{StudentName: "박소윤", Grade: 3, DismissalMethod: models.MethodCityBus, Hour: 1, Minute: intPtr(0)})
	require.NoError(t, err)
	require.NotNil(t, record.StudentID)
	require.Equal(t, student.ID, *record.StudentID)

	legacy, err := f.svc.Submit(ctx, dto.SubmitDismissalRequest{StudentName: "전학생", Grade: 5, DismissalMethod: models.MethodCityBus, Hour: 1, Minute: intPtr(0)})
	require.NoError(t, err)
	require.Nil(t, legacy.StudentID)
}

func TestSubmitValidationRejectsBeforeStore(t *testing.T) {
	repo := &failingDismissalRepo{}
	svc := NewDismissalService(repo, nil, nil, nil, nil, seoul, testLogger())

	cases := map[string]dto.SubmitDismissalRequest{
		"empty name":    {StudentName: " ", Grade: 1, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)},
		"grade too big": {StudentName: "김건우", Grade: 7, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)},
		"bad hour":      {StudentName: "김건우", Grade: 1, DismissalMethod: models.MethodWalk, Hour: 5, Minute: intPtr(0)},
		"bad minute":    {StudentName: "김건우", Grade: 1, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(15)},
		"no minute":     {StudentName: "김건우", Grade: 1, DismissalMethod: models.MethodWalk, Hour: 1},
		"bad method":    {StudentName: "김건우", Grade: 1, DismissalMethod: "헬리콥터", Hour: 1, Minute: intPtr(0)},
	}

	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Submit(context.Background(), req)
			var validationErrs validator.ValidationErrors
			require.ErrorAs(t, err, &validationErrs)
		})
	}
	require.Zero(t, repo.appends)
}

func TestSubmitUnknownStudentID(t *testing.T) {
	f := newDismissalFixture(t, time.Now())
	_, err := f.svc.Submit(context.Background(), dto.SubmitDismissalRequest{StudentID: "missing", DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestSubmitWriteFailureIsTransient(t *testing.T) {
	db := setupTestDB(t)
	svc := NewDismissalService(&failingDismissalRepo{}, repository.NewStudentRepository(db), nil, nil, nil, seoul, testLogger())

	_, err := svc.Submit(context.Background(), dto.SubmitDismissalRequest{StudentName: "김건우", Grade: 1, DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)})
	require.ErrorIs(t, err, ErrTransientWrite)
}

func TestEditKeepsDateAndZeroesSeconds(t *testing.T) {
	f := newDismissalFixture(t, time.Now())
	ctx := context.Background()

	original := models.DismissalRecord{
		StudentName:     "강태양",
		Grade:           4,
		DismissalMethod: models.MethodSchoolBus,
		Timestamp:       time.Date(2025, 12, 23, 13, 10, 37, 500_000_000, seoul).UnixMilli(),
		Message:         "안녕",
	}
	require.NoError(t, f.records.Append(ctx, &original))

	edited, err := f.svc.Edit(ctx, original.ID, dto.EditDismissalRequest{DismissalMethod: models.MethodParentCar, Hour: 4, Minute: intPtr(50)})
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, 12, 23, 16, 50, 0, 0, seoul).UnixMilli(), edited.Timestamp)

	stored, err := f.records.GetByID(ctx, original.ID)
	require.NoError(t, err)
	require.Equal(t, models.MethodParentCar, stored.DismissalMethod)
	require.Equal(t, edited.Timestamp, stored.Timestamp)
	require.Equal(t, "강태양", stored.StudentName)
	require.Equal(t, "안녕", stored.Message)
}

func TestEditUnknownRecord(t *testing.T) {
	f := newDismissalFixture(t, time.Now())
	_, err := f.svc.Edit(context.Background(), "missing", dto.EditDismissalRequest{DismissalMethod: models.MethodWalk, Hour: 1, Minute: intPtr(0)})
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestRemoveMissingRecordSucceeds(t *testing.T) {
	f := newDismissalFixture(t, time.Now())
	removed, err := f.svc.Remove(context.Background(), "missing")
	require.NoError(t, err)
	require.False(t, removed)
	require.Empty(t, f.publisher.Published())
}

func TestDailyStatusOnePerStudent(t *testing.T) {
	day := time.Date(2025, 12, 22, 0, 0, 0, 0, seoul)
	f := newDismissalFixture(t, day)
	ctx := context.Background()

	a := models.Student{Name: "김건우", Grade: 1}
	b := models.Student{Name: "김하설", Grade: 1}
	require.NoError(t, f.students.Create(ctx, &a))
	require.NoError(t, f.students.Create(ctx, &b))

	aID := a.ID
	for _, record := range []models.DismissalRecord{
		{StudentID: &aID, StudentName: a.Name, Grade: 1, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 22, 13, 0, 0, 0, seoul).UnixMilli()},
		{StudentID: &aID, StudentName: a.Name, Grade: 1, DismissalMethod: models.MethodEduTaxi, Timestamp: time.Date(2025, 12, 22, 14, 0, 0, 0, seoul).UnixMilli()},
		{StudentName: b.Name, Grade: 1, DismissalMethod: models.MethodWalk, Timestamp: time.Date(2025, 12, 21, 14, 0, 0, 0, seoul).UnixMilli()},
	} {
		record := record
		require.NoError(t, f.records.Append(ctx, &record))
	}

	statuses, err := f.svc.DailyStatus(ctx, day)
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	require.Equal(t, "김건우", statuses[0].Student.Name)
	require.True(t, statuses[0].Dismissed())
	require.Equal(t, models.MethodEduTaxi, statuses[0].Record.DismissalMethod)
	require.Equal(t, 2, statuses[0].Duplicates)

	require.Equal(t, "김하설", statuses[1].Student.Name)
	require.False(t, statuses[1].Dismissed())
}

func TestRangeIsInclusiveAndNewestFirst(t *testing.T) {
	f := newDismissalFixture(t, time.Now())
	ctx := context.Background()

	for _, ts := range []time.Time{
		time.Date(2025, 12, 21, 23, 59, 59, 0, seoul),
		time.Date(2025, 12, 22, 0, 0, 0, 0, seoul),
		time.Date(2025, 12, 23, 23, 59, 59, 999_000_000, seoul),
		time.Date(2025, 12, 24, 0, 0, 0, 0, seoul),
	} {
		record := models.DismissalRecord{StudentName: "서아인", Grade: 1, DismissalMethod: models.MethodWalk, Timestamp: ts.UnixMilli()}
		require.NoError(t, f.records.Append(ctx, &record))
	}

	records, err := f.svc.Range(ctx, time.Date(2025, 12, 22, 0, 0, 0, 0, seoul), time.Date(2025, 12, 23, 0, 0, 0, 0, seoul))
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Greater(t, records[0].Timestamp, records[1].Timestamp)

	_, err = f.svc.Range(ctx, time.Date(2025, 12, 24, 0, 0, 0, 0, seoul), time.Date(2025, 12, 22, 0, 0, 0, 0, seoul))
	require.ErrorIs(t, err, ErrInvalidRange)
}
