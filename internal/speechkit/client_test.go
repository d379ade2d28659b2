package speechkit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(recognizeURL, operationURL string) *Client {
	return NewClient(&StaticTokenSource{Value: "test-token"}, ClientOptions{
		RecognizeEndpoint: recognizeURL,
		OperationEndpoint: operationURL,
	})
}

func TestSubmitReturnsOperationID(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/speech/stt/v2/longRunningRecognize" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"id": "op-123"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	id, err := client.Submit(context.Background(), "http://store/audio.ogg")
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if id != "op-123" {
		t.Errorf("operation id = %s, want op-123", id)
	}
	if gotAuth != "Bearer test-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}

func TestSubmitErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.Submit(context.Background(), "http://store/audio.ogg"); !errors.Is(err, ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
}

func TestSubmitMissingOperationID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.Submit(context.Background(), "http://store/audio.ogg"); !errors.Is(err, ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
}

func TestPollPending(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/operations/op-1" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{"done": false}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	result, err := client.Poll(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if result.Done {
		t.Error("Done = true, want false")
	}
}

func TestPollDoneConcatenatesChunks(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"done": true,
			"response": {
				"chunks": [
					{"alternatives": [{"text": "привет"}, {"text": "ignored"}]},
					{"alternatives": [{"text": "мир"}]}
				]
			}
		}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	result, err := client.Poll(context.Background(), "op-1")
	if err != nil {
		t.Fatalf("Poll returned error: %v", err)
	}
	if !result.Done {
		t.Fatal("Done = false, want true")
	}
	if result.Text != "привет мир" {
		t.Errorf("Text = %q, want %q", result.Text, "привет мир")
	}
}

func TestPollOperationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"done": true, "error": {"code": 9, "message": "audio unreadable"}}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	if _, err := client.Poll(context.Background(), "op-1"); !errors.Is(err, ErrOperationFailed) {
		t.Fatalf("err = %v, want ErrOperationFailed", err)
	}
}

func TestPollServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(server.URL, server.URL)
	_, err := client.Poll(context.Background(), "op-1")
	if err == nil {
		t.Fatal("expected error")
	}
	// ネットワーク系の失敗は ErrOperationFailed と区別される
	if errors.Is(err, ErrOperationFailed) {
		t.Fatalf("server error must not map to ErrOperationFailed: %v", err)
	}
}
