package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

type ID string

// Zero represents the zero value ID, don't use this unless its a placeholder.
const Zero ID = ""

// Length is the fixed width of every entity identifier. API keys embed two
// identifiers at fixed character positions, so this must never change.
const Length = 32

// ErrInvalid reports a malformed identifier string.
var ErrInvalid = errors.New("idx: invalid id")

// New returns a new 32-character lowercase hex identifier (a UUIDv4 with the
// dashes stripped). All entity ids in the system use this form.
func New() ID {
	u := uuid.New()
	return ID(strings.ReplaceAll(u.String(), "-", ""))
}

// MustNew is like New but panics on unexpected failure (extremely unlikely).
func MustNew() ID {
	id := New()
	if id == Zero {
		// Panic here so we don't put the program into an unknown state
		panic("idx: failed to generate id")
	}
	return id
}

// Parse validates the canonical 32-character lowercase hex form.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if !Valid(s) {
		return Zero, ErrInvalid
	}
	return ID(s), nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

// Valid reports whether s is a well-formed identifier.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == Zero }

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

var (
	eventOnce sync.Once
	eventGen  *eventGenerator
)

// eventGenerator hands out monotonic ULIDs, safe for concurrent use.
type eventGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *eventGenerator) newAt(t time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), g.entropy).String()
}

// NewEventID returns a lexicographically sortable ULID used for audit-event
// ids, so ordering by id matches ordering by emission time.
func NewEventID() string {
	eventOnce.Do(func() {
		eventGen = &eventGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return eventGen.newAt(time.Now().UTC())
}
