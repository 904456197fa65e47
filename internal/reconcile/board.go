package reconcile

import (
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/dismissal-api/internal/models"
)

// ErrUnknownRecord indicates an edit was requested for a record the board has not seen.
var ErrUnknownRecord = errors.New("record not on board")

// Board is the per-viewer reconciliation state: the latest roster and record
// snapshots, the selected date and a single edit slot. Snapshots are
// replaced wholesale as they are pushed; nothing is merged.
type Board struct {
	mu         sync.Mutex
	roster     []models.Student
	records    []models.DismissalRecord
	hasRoster  bool
	hasRecords bool
	selected   time.Time
	editing    string
}

// View is a rendered board.
type View struct {
	Date     time.Time
	Statuses []Status
	Editing  string
}

// NewBoard starts a board on selected's calendar date.
func NewBoard(selected time.Time) *Board {
	return &Board{selected: StartOfDay(selected)}
}

// SetRoster replaces the roster snapshot.
func (b *Board) SetRoster(students []models.Student) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.roster = append([]models.Student(nil), students...)
	b.hasRoster = true
}

// SetRecords replaces the record snapshot. An open edit whose record
// disappeared is closed.
func (b *Board) SetRecords(records []models.DismissalRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records = SortNewestFirst(records)
	b.hasRecords = true
	if b.editing != "" {
		if _, ok := b.find(b.editing); !ok {
			b.editing = ""
		}
	}
}

// Ready reports whether both snapshots have arrived.
func (b *Board) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasRoster && b.hasRecords
}

// SelectDate moves the board to day's calendar date.
func (b *Board) SelectDate(day time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.selected = StartOfDay(day)
}

// Selected returns the selected date at midnight.
func (b *Board) Selected() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.selected
}

// BeginEdit opens the edit slot on id, replacing any previous edit.
func (b *Board) BeginEdit(id string) (models.DismissalRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	record, ok := b.find(id)
	if !ok {
		return models.DismissalRecord{}, ErrUnknownRecord
	}
	b.editing = id
	return record, nil
}

// Editing returns the record in the edit slot.
func (b *Board) Editing() (models.DismissalRecord, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.editing == "" {
		return models.DismissalRecord{}, false
	}
	return b.find(b.editing)
}

// CloseEdit empties the edit slot.
func (b *Board) CloseEdit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.editing = ""
}

// View renders the daily status for the selected date.
func (b *Board) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	return View{
		Date:     b.selected,
		Statuses: DailyStatus(b.roster, b.records, b.selected),
		Editing:  b.editing,
	}
}

func (b *Board) find(id string) (models.DismissalRecord, bool) {
	for _, record := range b.records {
		if record.ID == id {
			return record, true
		}
	}
	return models.DismissalRecord{}, false
}
