// Package chatstore persists named chat sessions in a local Badger store.
//
// All sessions live under a single key as one serialized map, read once at
// open and rewritten on every save or delete. The store also tracks the
// active session pointer: at most one session is active and it always
// references an existing record.
package chatstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

const (
	sessionsKey = "chat_sessions"
	activeKey   = "active_chat"

	titleLimit = 30
)

// Greeting seeds the transcript of every newly created session.
const Greeting = "Hi! I'm ready to help. Start recording to talk, type a message, or upload a file."

// ErrNotFound is returned when looking up a session id the store doesn't hold.
var ErrNotFound = errors.New("chat session not found")

// Message is one transcript entry.
type Message struct {
	Role string `json:"role"` // "user" or "assistant"
	Text string `json:"text"`
}

// Roles for transcript messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Session is one persisted chat session.
type Session struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	Timestamp time.Time `json:"timestamp"` // last modified
}

// clone returns a deep copy so callers can't mutate stored state.
func (s *Session) clone() *Session {
	cp := *s
	cp.Messages = append([]Message(nil), s.Messages...)
	return &cp
}

// Store maps session identifiers to transcripts, backed by Badger.
type Store struct {
	db *badger.DB

	mu       sync.Mutex
	sessions map[string]*Session
	active   string
	counter  uint64

	now func() time.Time
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	return openWith(opts)
}

// OpenInMemory opens a store that is never written to disk, for tests and
// ephemeral use.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return openWith(opts)
}

func openWith(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}

	s := &Store{
		db:       db,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
	if err := s.load(); err != nil {
		_ = db.Close()
		return nil, err
	}
	// Seed the counter past existing sessions so restarts can't collide
	// within the same millisecond.
	s.counter = uint64(len(s.sessions))
	return s, nil
}

// load reads the serialized session map and active pointer.
func (s *Store) load() error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(sessionsKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			// Fresh store.
		case err != nil:
			return fmt.Errorf("read sessions: %w", err)
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &s.sessions)
			}); err != nil {
				return fmt.Errorf("decode sessions: %w", err)
			}
		}

		item, err = txn.Get([]byte(activeKey))
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		case err != nil:
			return fmt.Errorf("read active pointer: %w", err)
		}
		return item.Value(func(val []byte) error {
			s.active = string(val)
			return nil
		})
	})
}

// persist rewrites the whole session map and active pointer.
// Caller must hold s.mu.
func (s *Store) persist() error {
	data, err := json.Marshal(s.sessions)
	if err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(sessionsKey), data); err != nil {
			return err
		}
		return txn.Set([]byte(activeKey), []byte(s.active))
	})
	if err != nil {
		return fmt.Errorf("write sessions: %w", err)
	}
	return nil
}

// Create makes a fresh session seeded with the canned greeting, records it
// as active, and persists it. The identifier combines the current
// millisecond timestamp with an in-memory counter, so two creations within
// the same millisecond still get distinct ids.
func (s *Store) Create() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked()
}

func (s *Store) createLocked() (*Session, error) {
	now := s.now()
	s.counter++
	id := fmt.Sprintf("chat_%d_%d", now.UnixMilli(), s.counter)

	sess := &Session{
		ID:        id,
		Title:     fallbackTitle(now),
		Messages:  []Message{{Role: RoleAssistant, Text: Greeting}},
		Timestamp: now,
	}
	s.sessions[id] = sess
	s.active = id

	if err := s.persist(); err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

// Save rewrites the session's full message list from the rendered
// transcript. It is an upsert: the whole record (id, derived title,
// messages, timestamp) is replaced, so saving the same transcript twice is
// idempotent apart from the timestamp.
func (s *Store) Save(id string, messages []Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		ID:        id,
		Title:     deriveTitle(messages, now),
		Messages:  append([]Message(nil), messages...),
		Timestamp: now,
	}
	s.sessions[id] = sess
	return s.persist()
}

// Load returns the stored session and marks it active.
// Returns ErrNotFound if the id is absent.
func (s *Store) Load(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	s.active = id
	if err := s.persist(); err != nil {
		return nil, err
	}
	return sess.clone(), nil
}

// Delete removes the session. Deleting the active session creates a
// replacement and returns it, so the active pointer never dangles; deleting
// any other session returns nil.
func (s *Store) Delete(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.sessions, id)

	if s.active == id {
		return s.createLocked()
	}
	return nil, s.persist()
}

// List returns all sessions ordered by descending last-modified timestamp,
// most recent first.
func (s *Store) List() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Active returns the active session id, or "" if none is set.
func (s *Store) Active() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Resume returns the session to show on launch: the recorded active session
// if it still exists, else the most recently modified one, else a brand-new
// session.
func (s *Store) Resume() (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[s.active]; ok {
		return sess.clone(), nil
	}

	var recent *Session
	for _, sess := range s.sessions {
		if recent == nil || sess.Timestamp.After(recent.Timestamp) {
			recent = sess
		}
	}
	if recent != nil {
		s.active = recent.ID
		if err := s.persist(); err != nil {
			return nil, err
		}
		return recent.clone(), nil
	}

	return s.createLocked()
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// deriveTitle names a session after its first user message, truncated to
// titleLimit runes with an ellipsis; a session with no user message gets a
// timestamp-based title.
func deriveTitle(messages []Message, now time.Time) string {
	for _, m := range messages {
		if m.Role != RoleUser {
			continue
		}
		runes := []rune(m.Text)
		if len(runes) > titleLimit {
			return string(runes[:titleLimit]) + "..."
		}
		return m.Text
	}
	return fallbackTitle(now)
}

func fallbackTitle(now time.Time) string {
	return "Chat " + now.Format("1/2/2006, 3:04:05 PM")
}
