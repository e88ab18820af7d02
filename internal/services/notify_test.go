package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		attempts int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{10, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := RetryDelay(tt.attempts); got != tt.want {
			t.Errorf("RetryDelay(%d) = %v, want %v", tt.attempts, got, tt.want)
		}
	}
}

func TestHTTPNotifierSend(t *testing.T) {
	var received Notification
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	n := Notification{
		RecipientEmail: "pat@example.com",
		Title:          "Appointment update",
		TemplateID:     TemplateAppointmentConfirmation,
		TemplateData:   map[string]string{"username": "Pat"},
	}

	notifier := NewHTTPNotifier(srv.URL, "secret")
	if err := notifier.Send(context.Background(), n); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if received.TemplateID != TemplateAppointmentConfirmation || received.TemplateData["username"] != "Pat" {
		t.Errorf("provider received %+v", received)
	}
}

func TestHTTPNotifierSendProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	notifier := NewHTTPNotifier(srv.URL, "secret")
	if err := notifier.Send(context.Background(), Notification{}); err == nil {
		t.Fatal("expected error for 502 response")
	}
}
