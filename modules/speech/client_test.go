package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient("test-key")
	client.SetBaseURL(srv.URL)
	client.SetHTTPClient(srv.Client())
	return client, srv
}

func completionResponse(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	}
	data, _ := json.Marshal(body)
	return string(data)
}

func TestTranscribe(t *testing.T) {
	var gotPath, gotAuth string
	var gotFields map[string]string
	var gotAudio []byte

	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")

		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotFields = map[string]string{}
		for name := range r.MultipartForm.Value {
			gotFields[name] = r.FormValue(name)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer file.Close()
		buf := make([]byte, 64)
		n, _ := file.Read(buf)
		gotAudio = buf[:n]

		fmt.Fprint(w, `{"text": "hello world"}`)
	})
	defer srv.Close()

	text, err := client.Transcribe(context.Background(), []byte("webm-bytes"), "")
	if err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if text != "hello world" {
		t.Errorf("transcript = %q, want %q", text, "hello world")
	}
	if gotPath != "/audio/transcriptions" {
		t.Errorf("path = %q, want /audio/transcriptions", gotPath)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q, want Bearer test-key", gotAuth)
	}
	if string(gotAudio) != "webm-bytes" {
		t.Errorf("audio payload = %q, want webm-bytes", gotAudio)
	}

	wantFields := map[string]string{
		"model":           "whisper-1",
		"language":        "en",
		"response_format": "json",
		"prompt":          defaultTranscriptionPrompt,
	}
	for name, want := range wantFields {
		if gotFields[name] != want {
			t.Errorf("field %s = %q, want %q", name, gotFields[name], want)
		}
	}
}

func TestTranscribeCustomPrompt(t *testing.T) {
	var gotPrompt string
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotPrompt = r.FormValue("prompt")
		fmt.Fprint(w, `{"text": "ok"}`)
	})
	defer srv.Close()

	if _, err := client.Transcribe(context.Background(), []byte("x"), "focus on idioms"); err != nil {
		t.Fatalf("Transcribe() error: %v", err)
	}
	if gotPrompt != "focus on idioms" {
		t.Errorf("prompt = %q, want custom prompt", gotPrompt)
	}
}

func TestTranscribeServerError(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": {"message": "invalid api key"}}`)
	})
	defer srv.Close()

	_, err := client.Transcribe(context.Background(), []byte("x"), "")
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("error %q should carry the api message", err)
	}
}

func TestCompleteJSON(t *testing.T) {
	var gotReq chatRequest
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q, want /chat/completions", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		fmt.Fprint(w, completionResponse(`{"damage": 42}`))
	})
	defer srv.Close()

	content, err := client.CompleteJSON(context.Background(), "system prompt", "user prompt", 0.8)
	if err != nil {
		t.Fatalf("CompleteJSON() error: %v", err)
	}
	if content != `{"damage": 42}` {
		t.Errorf("content = %q", content)
	}

	if gotReq.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want gpt-4o-mini", gotReq.Model)
	}
	if gotReq.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %q, want json_object", gotReq.ResponseFormat.Type)
	}
	if gotReq.Temperature != 0.8 {
		t.Errorf("temperature = %v, want 0.8", gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[0].Content != "system prompt" {
		t.Errorf("system message = %+v", gotReq.Messages[0])
	}
	if gotReq.Messages[1].Role != "user" || gotReq.Messages[1].Content != "user prompt" {
		t.Errorf("user message = %+v", gotReq.Messages[1])
	}
}

func TestCompleteJSONEmptyChoices(t *testing.T) {
	client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices": []}`)
	})
	defer srv.Close()

	_, err := client.CompleteJSON(context.Background(), "s", "u", 0.7)
	if err == nil {
		t.Fatal("expected error for empty choices")
	}
}
