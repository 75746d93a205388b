// Package session holds the shared state of one bridge run: the output
// transcript, the outstanding input requests and the browser activity
// markers the supervisor uses to decide when to exit.
package session

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

const requestPrefix = "input_"

type EventKind int

const (
	EventLineAppended EventKind = iota
	EventLineUpdated
	EventRequestCreated
	EventRequestAnswered
	EventFinished
)

// Event describes one mutation. Seq is the index of the affected line.
// Version is the state version the mutation produced. Observers may see
// events from different goroutines out of order; Version orders them.
type Event struct {
	Kind      EventKind
	Version   uint64
	Seq       int
	Line      Line
	RequestID string
	Tag       TypeTag
	Value     string
	At        time.Time
}

type Snapshot struct {
	Output   []string
	Pending  []string
	Finished bool
	Version  uint64
}

type request struct {
	seq    int
	tag    TypeTag
	prompt string
}

type State struct {
	id  string
	now func() time.Time

	mu           sync.Mutex
	lines        []Line
	pending      map[string]*request
	waiters      map[string]chan string
	counter      int
	finished     bool
	lastActivity time.Time
	seenActivity bool
	version      uint64

	observers   []func(Event)
	subscribers map[int]chan uint64
	nextSub     int
}

type Option func(*State)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

func WithID(id string) Option {
	return func(s *State) {
		s.id = id
	}
}

func New(opts ...Option) *State {
	s := &State{
		id:          uuid.NewString(),
		now:         time.Now,
		pending:     make(map[string]*request),
		waiters:     make(map[string]chan string),
		subscribers: make(map[int]chan uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID identifies this run in logs and in the transcript.
func (s *State) ID() string {
	return s.id
}

// OnEvent registers fn to be called after every mutation. Callbacks run
// outside the lock, in the goroutine that caused the mutation.
func (s *State) OnEvent(fn func(Event)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Subscribe returns a channel that receives the latest version after each
// change. Notifications coalesce: a slow reader only sees the newest one.
func (s *State) Subscribe() (<-chan uint64, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan uint64, 1)
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = ch
	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

func (s *State) AppendLine(text string) {
	s.appendLine(Line{Kind: KindText, Body: text})
}

// AppendLatex adds a math line in display or inline mode.
func (s *State) AppendLatex(tex string, display bool) {
	kind := KindLatexInline
	if display {
		kind = KindLatexDisplay
	}
	s.appendLine(Line{Kind: kind, Body: tex})
}

func (s *State) appendLine(line Line) {
	s.mu.Lock()
	s.lines = append(s.lines, line)
	ev := Event{Kind: EventLineAppended, Seq: len(s.lines) - 1, Line: line, At: s.now()}
	v, obs := s.changedLocked()
	s.mu.Unlock()
	dispatch(obs, v, ev)
}

// AppendToLast concatenates text onto the most recent line, or starts the
// first line when the transcript is empty.
func (s *State) AppendToLast(text string) {
	s.mu.Lock()
	var ev Event
	if n := len(s.lines); n > 0 {
		s.lines[n-1].Body += text
		ev = Event{Kind: EventLineUpdated, Seq: n - 1, Line: s.lines[n-1], At: s.now()}
	} else {
		line := Line{Kind: KindText, Body: text}
		s.lines = append(s.lines, line)
		ev = Event{Kind: EventLineAppended, Seq: 0, Line: line, At: s.now()}
	}
	v, obs := s.changedLocked()
	s.mu.Unlock()
	dispatch(obs, v, ev)
}

// CreateRequest registers a new pending input and appends its prompt line.
func (s *State) CreateRequest(prompt string, tag TypeTag) string {
	s.mu.Lock()
	s.counter++
	id := requestPrefix + strconv.Itoa(s.counter)
	s.pending[id] = &request{seq: s.counter, tag: tag, prompt: prompt}
	s.waiters[id] = make(chan string, 1)
	line := Line{Kind: KindInput, ID: id, Body: prompt}
	s.lines = append(s.lines, line)
	at := s.now()
	evs := []Event{
		{Kind: EventRequestCreated, RequestID: id, Tag: tag, At: at},
		{Kind: EventLineAppended, Seq: len(s.lines) - 1, Line: line, RequestID: id, At: at},
	}
	v, obs := s.changedLocked()
	s.mu.Unlock()
	dispatch(obs, v, evs...)
	return id
}

// Await blocks until id is answered and returns the answer. It returns ""
// for an unknown id, when the request's channel is closed without a value,
// or when ctx ends first.
func (s *State) Await(ctx context.Context, id string) string {
	s.mu.Lock()
	ch, ok := s.waiters[id]
	s.mu.Unlock()
	if !ok {
		return ""
	}
	defer func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.mu.Unlock()
	}()

	select {
	case v, ok := <-ch:
		if !ok {
			return ""
		}
		return v
	case <-ctx.Done():
		return ""
	}
}

// Submit answers a pending request. It reports false, and changes nothing,
// when id is unknown or was already answered.
func (s *State) Submit(id, value string) bool {
	s.mu.Lock()
	if _, ok := s.pending[id]; !ok {
		s.mu.Unlock()
		return false
	}
	delete(s.pending, id)
	line := Line{Kind: KindText, Body: value}
	s.lines = append(s.lines, line)
	// Buffered with capacity one and written once, so this never blocks.
	if ch, ok := s.waiters[id]; ok {
		ch <- value
	}
	at := s.now()
	evs := []Event{
		{Kind: EventLineAppended, Seq: len(s.lines) - 1, Line: line, RequestID: id, At: at},
		{Kind: EventRequestAnswered, RequestID: id, Value: value, At: at},
	}
	v, obs := s.changedLocked()
	s.mu.Unlock()
	dispatch(obs, v, evs...)
	return true
}

// Tag returns the expected type of a pending request.
func (s *State) Tag(id string) (TypeTag, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[id]
	if !ok {
		return "", false
	}
	return req.tag, true
}

func (s *State) MarkFinished() {
	s.mu.Lock()
	if s.finished {
		s.mu.Unlock()
		return
	}
	s.finished = true
	ev := Event{Kind: EventFinished, At: s.now()}
	v, obs := s.changedLocked()
	s.mu.Unlock()
	dispatch(obs, v, ev)
}

func (s *State) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// TouchActivity records an inbound browser request.
func (s *State) TouchActivity() {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.seenActivity = true
	s.mu.Unlock()
}

// Activity returns the time of the last browser request and whether one
// was ever seen.
func (s *State) Activity() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity, s.seenActivity
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, len(s.lines))
	for i, l := range s.lines {
		out[i] = l.String()
	}

	reqs := make([]*request, 0, len(s.pending))
	for _, r := range s.pending {
		reqs = append(reqs, r)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].seq < reqs[j].seq })
	pending := make([]string, len(reqs))
	for i, r := range reqs {
		pending[i] = requestPrefix + strconv.Itoa(r.seq)
	}

	return Snapshot{
		Output:   out,
		Pending:  pending,
		Finished: s.finished,
		Version:  s.version,
	}
}

// Version increases with every visible change.
func (s *State) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// changedLocked bumps the version, notifies subscribers and returns the new
// version with a copy of the observers to call once the lock is released.
func (s *State) changedLocked() (uint64, []func(Event)) {
	s.version++
	v := s.version
	for _, ch := range s.subscribers {
		select {
		case ch <- v:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
	if len(s.observers) == 0 {
		return v, nil
	}
	obs := make([]func(Event), len(s.observers))
	copy(obs, s.observers)
	return v, obs
}

func dispatch(obs []func(Event), version uint64, evs ...Event) {
	for _, ev := range evs {
		ev.Version = version
		for _, fn := range obs {
			fn(ev)
		}
	}
}
