package app

import (
	"testing"

	"github.com/voxlet/voxlet/agent"
	"github.com/voxlet/voxlet/audiocapture"
)

func TestStartStopRecording(t *testing.T) {
	s, _ := newTestService(t, &fakeAPI{})
	rec := &fakeRecorder{}
	s.newRecorder = func(func(agent.Event)) recorder { return rec }

	var statuses []string
	s.OnStatus(func(text string) { statuses = append(statuses, text) })

	if err := s.StartRecording(t.Context()); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}
	if !s.Recording() {
		t.Error("Recording() = false after start")
	}
	if err := s.StartRecording(t.Context()); err != agent.ErrAlreadyRecording {
		t.Errorf("second start = %v, want ErrAlreadyRecording", err)
	}

	s.StopRecording()
	if s.Recording() {
		t.Error("Recording() = true after stop")
	}
	if !rec.stopped {
		t.Error("session not stopped")
	}

	want := []string{"Listening...", "Ready to chat!"}
	if len(statuses) != len(want) {
		t.Fatalf("statuses = %v", statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("status %d = %q, want %q", i, statuses[i], want[i])
		}
	}
}

func TestStartRecordingPermissionDenied(t *testing.T) {
	s, _ := newTestService(t, &fakeAPI{})
	s.newRecorder = func(func(agent.Event)) recorder {
		return &fakeRecorder{startErr: audiocapture.ErrPermissionDenied}
	}

	var status string
	s.OnStatus(func(text string) { status = text })

	if err := s.StartRecording(t.Context()); err != audiocapture.ErrPermissionDenied {
		t.Fatalf("StartRecording = %v", err)
	}
	if s.Recording() {
		t.Error("service must stay idle after a failed start")
	}
	if status != "Microphone access is required to use the voice agent." {
		t.Errorf("status = %q", status)
	}

	// A later attempt is not blocked by the failed one.
	s.newRecorder = func(func(agent.Event)) recorder { return &fakeRecorder{} }
	if err := s.StartRecording(t.Context()); err != nil {
		t.Errorf("retry after failure: %v", err)
	}
	s.StopRecording()
}

func TestStartRecordingNoDevice(t *testing.T) {
	s, _ := newTestService(t, &fakeAPI{})
	s.newRecorder = func(func(agent.Event)) recorder {
		return &fakeRecorder{startErr: audiocapture.ErrNoDevice}
	}

	var status string
	s.OnStatus(func(text string) { status = text })

	if err := s.StartRecording(t.Context()); err != audiocapture.ErrNoDevice {
		t.Fatalf("StartRecording = %v", err)
	}
	if s.Recording() {
		t.Error("service must stay idle after a failed start")
	}
	if status != "No microphone input device was found." {
		t.Errorf("status = %q", status)
	}
}

func TestToggleRecording(t *testing.T) {
	s, _ := newTestService(t, &fakeAPI{})

	if err := s.ToggleRecording(t.Context()); err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !s.Recording() {
		t.Fatal("not recording after toggle on")
	}
	if err := s.ToggleRecording(t.Context()); err != nil {
		t.Fatalf("toggle off: %v", err)
	}
	if s.Recording() {
		t.Fatal("still recording after toggle off")
	}
}

func TestStopRecordingIdleIsNoop(t *testing.T) {
	s, _ := newTestService(t, &fakeAPI{})

	called := false
	s.OnStatus(func(string) { called = true })

	s.StopRecording()
	if called {
		t.Error("idle stop must not emit a status")
	}
}
