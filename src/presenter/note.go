package presenter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cat-board/src/domain"
)

// DateLayout renders createdAt like ko-KR numeric dates with a 24h clock
const DateLayout = "2006. 01. 02. 15:04"

// rotation hash constants: ((id*A + B) mod M) / M
const (
	rotationA = 9301
	rotationB = 49297
	rotationM = 233280

	// MaxRotation is the largest tilt in degrees either way
	MaxRotation = 3.0
)

// ErrInvalidArgument is returned for memos that cannot be displayed
var ErrInvalidArgument = errors.New("invalid argument")

// Palette is the fixed, ordered set of note colors
var Palette = []domain.Color{
	domain.ColorYellow,
	domain.ColorPink,
	domain.ColorBlue,
	domain.ColorGreen,
	domain.ColorPurple,
	domain.ColorOrange,
}

// Mapper converts memos to notes. It holds no state besides the display
// location, so one value can be shared freely.
type Mapper struct {
	loc *time.Location
}

// NewMapper creates a mapper rendering dates in loc (UTC when nil)
func NewMapper(loc *time.Location) Mapper {
	if loc == nil {
		loc = time.UTC
	}
	return Mapper{loc: loc}
}

// ToNote derives the display note for a memo
func (m Mapper) ToNote(memo domain.Memo) (domain.Note, error) {
	date, err := m.FormatDate(memo.CreatedAt)
	if err != nil {
		return domain.Note{}, fmt.Errorf("memo %d: %w", memo.ID, err)
	}

	return domain.Note{
		ID:       strconv.FormatInt(memo.ID, 10),
		Text:     memo.Content,
		Date:     date,
		Color:    ColorFor(memo.ID),
		Rotation: RotationFor(memo.ID),
	}, nil
}

// ToNotes maps memos in order and stops at the first one that fails
func (m Mapper) ToNotes(memos []domain.Memo) ([]domain.Note, error) {
	notes := make([]domain.Note, 0, len(memos))
	for _, memo := range memos {
		note, err := m.ToNote(memo)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// FormatDate renders an ISO-8601 timestamp in the mapper's location
func (m Mapper) FormatDate(createdAt string) (string, error) {
	t, err := parseTimestamp(createdAt)
	if err != nil {
		return "", err
	}
	return t.In(m.location()).Format(DateLayout), nil
}

func (m Mapper) location() *time.Location {
	if m.loc == nil {
		return time.UTC
	}
	return m.loc
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999", // ローカル時刻（オフセットなし）
	"2006-01-02 15:04:05",
}

func parseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, fmt.Errorf("%w: createdAt is empty", ErrInvalidArgument)
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: createdAt %q is not an ISO-8601 timestamp", ErrInvalidArgument, value)
}

// ColorFor picks Palette[id mod len(Palette)]. Negative ids wrap around.
func ColorFor(id int64) domain.Color {
	return Palette[mod(id, int64(len(Palette)))]
}

// RotationFor returns a tilt in [-3, 3] degrees that depends only on id
func RotationFor(id int64) float64 {
	// (id*A + B) mod M without overflow: reduce id first
	seed := (mod(id, rotationM)*rotationA + rotationB) % rotationM
	return float64(seed)/rotationM*(2*MaxRotation) - MaxRotation
}

// ParseNoteID converts a note id back to a memo id
func ParseNoteID(id string) (int64, error) {
	value, err := strconv.ParseInt(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: note id %q is not an integer", ErrInvalidArgument, id)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: note id %d must be positive", ErrInvalidArgument, value)
	}
	return value, nil
}

func mod(a, n int64) int64 {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
