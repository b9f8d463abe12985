// Package annotate builds zone definitions from a stream of clicks and key
// presses.
//
// A Session replaces an interactive drawing window: the caller forwards
// pointer clicks and keys, and the session collects four corners per spot,
// asks for a spot id and accumulates the resulting zones.
//
//	idle ──click──▶ collecting ──4th click──▶ prompting ──enter──▶ idle
//	  │                 │                        │
//	  │ q / r / esc     │ q / r / esc            └──esc──▶ idle (points dropped)
//	  ▼                 ▼
//	saved / idle / cancelled
//
// Outside the prompt, q finishes the session, r discards every zone and
// escape abandons it. While prompting, printable keys edit the spot id.
package annotate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
	"github.com/ironsheep/parkspot-mcp/internal/zones"
)

var (
	// ErrInvalidTransition is returned for events sent to a finished session.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrDuplicateSpot is returned when a confirmed spot id is already used.
	// The session stays in the prompt so the id can be corrected.
	ErrDuplicateSpot = errors.New("duplicate spot id")

	// ErrUnknownKey is returned for key names that are neither a control
	// key nor a single printable character.
	ErrUnknownKey = errors.New("unknown key")
)

// State is the position of a session in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateCollecting
	StatePrompting
	StateSaved
	StateCancelled
)

var stateNames = [...]string{"idle", "collecting", "prompting", "saved", "cancelled"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name.
func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown session state %q", text)
}

// Terminal reports whether the session accepts no further events.
func (s State) Terminal() bool {
	return s == StateSaved || s == StateCancelled
}

// Key names accepted by Session.Key besides single printable characters.
const (
	KeyEnter     = "enter"
	KeyEscape    = "escape"
	KeyBackspace = "backspace"
)

var keyAliases = map[string]string{
	"enter":     KeyEnter,
	"return":    KeyEnter,
	"\r":        KeyEnter,
	"\n":        KeyEnter,
	"escape":    KeyEscape,
	"esc":       KeyEscape,
	"\x1b":      KeyEscape,
	"backspace": KeyBackspace,
	"delete":    KeyBackspace,
	"\b":        KeyBackspace,
	"\x7f":      KeyBackspace,
}

// Session is safe for concurrent use.
type Session struct {
	mu      sync.Mutex
	lotID   int
	state   State
	zones   []zones.Zone
	pending []geometry.Point
	prompt  []byte
}

// NewSession starts an empty session for lotID.
func NewSession(lotID int) *Session {
	return &Session{lotID: lotID, state: StateIdle}
}

// Click records a corner at (x, y). Clicks during the prompt are ignored.
func (s *Session) Click(x, y int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateCollecting:
		s.pending = append(s.pending, geometry.Point{X: x, Y: y})
		if len(s.pending) == zones.VerticesPerZone {
			s.state = StatePrompting
			s.prompt = s.prompt[:0]
		} else {
			s.state = StateCollecting
		}
		return nil
	case StatePrompting:
		return nil
	default:
		return fmt.Errorf("%w: click in state %s", ErrInvalidTransition, s.state)
	}
}

// Key handles one key press. key is a name (enter, escape, backspace and
// their aliases) or a single printable ASCII character.
func (s *Session) Key(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return fmt.Errorf("%w: key %q in state %s", ErrInvalidTransition, key, s.state)
	}

	name, ch, err := parseKey(key)
	if err != nil {
		return err
	}

	if s.state == StatePrompting {
		return s.promptKey(name, ch)
	}

	switch {
	case name == KeyEscape:
		s.state = StateCancelled
	case ch == 'q':
		s.state = StateSaved
	case ch == 'r':
		s.zones = nil
		s.pending = nil
		s.state = StateIdle
	}
	return nil
}

// Type sends every character of text as a key press, stopping at the first
// error.
func (s *Session) Type(text string) error {
	for _, r := range text {
		if err := s.Key(string(r)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) promptKey(name string, ch byte) error {
	switch name {
	case KeyEnter:
		return s.commit()
	case KeyEscape:
		s.pending = nil
		s.prompt = s.prompt[:0]
		s.state = StateIdle
	case KeyBackspace:
		if len(s.prompt) > 0 {
			s.prompt = s.prompt[:len(s.prompt)-1]
		}
	default:
		s.prompt = append(s.prompt, ch)
	}
	return nil
}

// commit turns the pending corners into a zone.
func (s *Session) commit() error {
	id := string(s.prompt)
	if id == "" {
		id = s.nextAutoID()
	} else if s.hasSpot(id) {
		return fmt.Errorf("%w: %q", ErrDuplicateSpot, id)
	}

	coords := make(geometry.Polygon, len(s.pending))
	copy(coords, s.pending)
	s.zones = append(s.zones, zones.Zone{SpotID: id, Coords: coords})

	s.pending = nil
	s.prompt = s.prompt[:0]
	s.state = StateIdle
	return nil
}

// nextAutoID returns spot<N+1> for N existing zones, skipping ids already
// taken by typed names.
func (s *Session) nextAutoID() string {
	for n := len(s.zones) + 1; ; n++ {
		id := fmt.Sprintf("spot%d", n)
		if !s.hasSpot(id) {
			return id
		}
	}
}

func (s *Session) hasSpot(id string) bool {
	for _, z := range s.zones {
		if z.SpotID == id {
			return true
		}
	}
	return false
}

// parseKey returns either a control key name or a printable character.
func parseKey(key string) (string, byte, error) {
	if name, ok := keyAliases[strings.ToLower(key)]; ok {
		return name, 0, nil
	}
	if len(key) == 1 && key[0] >= 32 && key[0] <= 126 {
		return "", key[0], nil
	}
	return "", 0, fmt.Errorf("%w: %q", ErrUnknownKey, key)
}

// Status is a snapshot of a session.
type Status struct {
	LotID   int              `json:"lot_id"`
	State   State            `json:"state"`
	Zones   []zones.Zone     `json:"zones"`
	Pending []geometry.Point `json:"pending"`
	Prompt  string           `json:"prompt,omitempty"`
}

// Status returns a copy of the session's current state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		LotID:   s.lotID,
		State:   s.state,
		Zones:   append([]zones.Zone{}, s.zones...),
		Pending: append([]geometry.Point{}, s.pending...),
	}
	if s.state == StatePrompting {
		st.Prompt = string(s.prompt)
	}
	return st
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Lot returns the zones committed so far.
func (s *Session) Lot() *zones.Lot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &zones.Lot{LotID: s.lotID, Zones: append([]zones.Zone{}, s.zones...)}
}

// Result returns the finished zone definition. It fails unless the session
// was saved with at least one zone.
func (s *Session) Result() (*zones.Lot, error) {
	if st := s.State(); st != StateSaved {
		return nil, fmt.Errorf("%w: session is %s, not saved", ErrInvalidTransition, st)
	}
	lot := s.Lot()
	if err := lot.Validate(); err != nil {
		return nil, err
	}
	return lot, nil
}
