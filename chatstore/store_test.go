package chatstore

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCreateDistinctIDsSameMillisecond(t *testing.T) {
	s := newTestStore(t)

	// Freeze the clock so both creations land in the same millisecond.
	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return frozen }

	a, err := s.Create()
	if err != nil {
		t.Fatalf("first Create: %v", err)
	}
	b, err := s.Create()
	if err != nil {
		t.Fatalf("second Create: %v", err)
	}

	if a.ID == b.ID {
		t.Fatalf("identical ids %q within one millisecond", a.ID)
	}
}

func TestCreateSeedsGreetingAndActive(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(sess.Messages) != 1 || sess.Messages[0].Role != RoleAssistant {
		t.Fatalf("messages = %+v, want one assistant greeting", sess.Messages)
	}
	if sess.Messages[0].Text != Greeting {
		t.Errorf("greeting = %q", sess.Messages[0].Text)
	}
	if got := s.Active(); got != sess.ID {
		t.Errorf("Active = %q, want %q", got, sess.ID)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	messages := []Message{
		{Role: RoleAssistant, Text: Greeting},
		{Role: RoleUser, Text: "what's in my data?"},
		{Role: RoleAssistant, Text: "You have two columns."},
		{Role: RoleUser, Text: "thanks"},
	}
	if err := s.Save(sess.ID, messages); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Messages) != len(messages) {
		t.Fatalf("got %d messages, want %d", len(got.Messages), len(messages))
	}
	for i := range messages {
		if got.Messages[i] != messages[i] {
			t.Errorf("message %d = %+v, want %+v", i, got.Messages[i], messages[i])
		}
	}

	// load -> save -> load must be a fixed point.
	if err := s.Save(sess.ID, got.Messages); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	again, err := s.Load(sess.ID)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}
	for i := range got.Messages {
		if again.Messages[i] != got.Messages[i] {
			t.Errorf("round-trip changed message %d: %+v -> %+v", i, got.Messages[i], again.Messages[i])
		}
	}
}

func TestSaveSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	sess, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Save(sess.ID, []Message{{Role: RoleUser, Text: "persist me"}}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Load(sess.ID)
	if err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
	if got.Messages[0].Text != "persist me" {
		t.Errorf("got %+v", got.Messages)
	}
	if reopened.Active() != sess.ID {
		t.Errorf("active pointer lost on reopen")
	}
}

func TestLoadMissing(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Load("chat_0_0"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load = %v, want ErrNotFound", err)
	}
}

func TestDeleteActiveCreatesReplacement(t *testing.T) {
	s := newTestStore(t)

	sess, err := s.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	replacement, err := s.Delete(sess.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if replacement == nil {
		t.Fatal("deleting the active session must return a replacement")
	}
	if replacement.ID == sess.ID {
		t.Fatal("replacement reuses deleted id")
	}

	active := s.Active()
	if active != replacement.ID {
		t.Errorf("Active = %q, want %q", active, replacement.ID)
	}
	if _, err := s.Load(active); err != nil {
		t.Errorf("active session does not exist: %v", err)
	}

	sessions := s.List()
	if len(sessions) != 1 {
		t.Errorf("store holds %d sessions, want exactly 1", len(sessions))
	}
}

func TestDeleteInactive(t *testing.T) {
	s := newTestStore(t)

	first, _ := s.Create()
	second, _ := s.Create() // active

	replacement, err := s.Delete(first.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if replacement != nil {
		t.Errorf("deleting an inactive session must not create a replacement")
	}
	if s.Active() != second.ID {
		t.Errorf("active pointer moved unexpectedly")
	}
}

func TestListOrdering(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	stamps := []time.Time{base, base.Add(time.Hour), base.Add(2 * time.Hour)}

	var ids []string
	for i, ts := range stamps {
		s.now = func() time.Time { return ts }
		sess, err := s.Create()
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		ids = append(ids, sess.ID)
	}

	got := s.List()
	if len(got) != 3 {
		t.Fatalf("List returned %d sessions, want 3", len(got))
	}
	// Most recent first: T3, T2, T1.
	want := []string{ids[2], ids[1], ids[0]}
	for i := range want {
		if got[i].ID != want[i] {
			t.Errorf("List[%d] = %s, want %s", i, got[i].ID, want[i])
		}
	}
}

func TestDeriveTitle(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	long := strings.Repeat("x", 45)

	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{
			"short_user_message",
			[]Message{{Role: RoleAssistant, Text: Greeting}, {Role: RoleUser, Text: "hello"}},
			"hello",
		},
		{
			"long_user_message_truncated",
			[]Message{{Role: RoleUser, Text: long}},
			strings.Repeat("x", 30) + "...",
		},
		{
			"exactly_thirty",
			[]Message{{Role: RoleUser, Text: strings.Repeat("y", 30)}},
			strings.Repeat("y", 30),
		},
		{
			"no_user_message",
			[]Message{{Role: RoleAssistant, Text: Greeting}},
			"Chat " + now.Format("1/2/2006, 3:04:05 PM"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := deriveTitle(tt.messages, now)
			if got != tt.want {
				t.Errorf("deriveTitle = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResume(t *testing.T) {
	s := newTestStore(t)

	// Empty store: Resume creates a session.
	sess, err := s.Resume()
	if err != nil {
		t.Fatalf("Resume on empty store: %v", err)
	}
	if sess == nil || s.Active() != sess.ID {
		t.Fatal("Resume must create and activate a session")
	}

	// With history: Resume returns the active session.
	second, _ := s.Create()
	got, err := s.Resume()
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if got.ID != second.ID {
		t.Errorf("Resume = %s, want active %s", got.ID, second.ID)
	}
}
