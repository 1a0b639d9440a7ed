package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat" {
			t.Errorf("path = %q, want /chat", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["message"] != "hello" || body["chat_id"] != "chat_1_1" {
			t.Errorf("unexpected body: %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"response": "hi there", "audio": "UklGRg=="})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL)
	got, err := api.Chat(context.Background(), "hello", "chat_1_1")
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if got.Response != "hi there" || got.Audio != "UklGRg==" {
		t.Errorf("got %+v", got)
	}
}

func TestChatServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"detail": "api keys not configured"})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL)
	_, err := api.Chat(context.Background(), "hello", "chat_1_1")
	if !errors.Is(err, ErrRequestFailed) {
		t.Fatalf("Chat error = %v, want ErrRequestFailed", err)
	}
}

func TestUploadRejectsTypeBeforeNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	api := NewAPI(srv.URL)
	_, err := api.Upload(context.Background(), "notes.txt")
	if !errors.Is(err, ErrUnsupportedFileType) {
		t.Fatalf("Upload = %v, want ErrUnsupportedFileType", err)
	}
	if hits != 0 {
		t.Errorf("server received %d requests, want 0", hits)
	}
}

func TestUpload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("a,b\n1,2\n"), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		file.Close()
		if header.Filename != "data.csv" {
			t.Errorf("filename = %q", header.Filename)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(UploadResult{
			Filename:   "data.csv",
			FileType:   "CSV",
			Shape:      []int{1, 2},
			AIInsights: "Two columns, one row.",
		})
	}))
	defer srv.Close()

	api := NewAPI(srv.URL)
	got, err := api.Upload(context.Background(), path)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if got.Filename != "data.csv" || len(got.Shape) != 2 || got.Shape[1] != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestTranslate(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload TranslationResult
		wantErr bool
	}{
		{
			"success",
			http.StatusOK,
			TranslationResult{Success: true, OriginalText: "hello", TranslatedText: "hola", Audio: "AAAA"},
			false,
		},
		{
			"declared_failure",
			http.StatusOK,
			TranslationResult{Success: false, Error: "unsupported language"},
			true,
		},
		{
			"server_error",
			http.StatusBadGateway,
			TranslationResult{Error: "tts unavailable"},
			true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/multilingual-voice" {
					t.Errorf("path = %q", r.URL.Path)
				}
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(tt.payload)
			}))
			defer srv.Close()

			api := NewAPI(srv.URL)
			got, err := api.Translate(context.Background(), "hello", "spanish", "friendly")
			if tt.wantErr {
				if !errors.Is(err, ErrRequestFailed) {
					t.Fatalf("Translate = %v, want ErrRequestFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if got.TranslatedText != "hola" {
				t.Errorf("got %+v", got)
			}
		})
	}
}
