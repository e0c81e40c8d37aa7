package sendgrid

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Send(t *testing.T) {
	t.Parallel()

	var got message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v3/mail/send" || r.Header.Get("Authorization") != "Bearer sg" {
			t.Errorf("unexpected request %s %v", r.URL.Path, r.Header)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, APIKey: "sg", From: "hello@board.test", Timeout: time.Second})
	if err := c.Send(context.Background(), "d-welcome", "ada@example.com", map[string]any{"first_name": "Ada"}); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	if got.TemplateID != "d-welcome" || got.From.Email != "hello@board.test" {
		t.Fatalf("unexpected message %+v", got)
	}
	if len(got.Personalizations) != 1 || got.Personalizations[0].To[0].Email != "ada@example.com" {
		t.Fatalf("unexpected personalizations %+v", got.Personalizations)
	}
	if got.Personalizations[0].Data["first_name"] != "Ada" {
		t.Fatalf("unexpected template data %v", got.Personalizations[0].Data)
	}
}

func TestClient_SendFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: time.Second})
	if err := c.Send(context.Background(), "d-1", "a@example.com", nil); err == nil {
		t.Fatal("expected error for unauthorized response")
	}
}
