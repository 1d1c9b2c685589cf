package stream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Bytekeeper/xdccmon/internal/domain"
	"github.com/Bytekeeper/xdccmon/internal/log"
)

func TestSubscriberDecodesIRCMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Errorf("path = %s, want /events", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)

		frames := []string{
			": keep-alive\n\n",
			"event: irc-message\ndata: {\"prefix\":\"bot!b@host\",\"message\":\"NOTICE hello\"}\n\n",
			// Malformed payload: must be dropped without tearing the stream down
			"event: irc-message\ndata: {nope\n\n",
			// Unrelated event type: ignored
			"event: update\ndata: {\"prefix\":\"x\",\"message\":\"y\"}\n\n",
			"event: irc-message\ndata: {\"prefix\":\"server\",\"message\":\"PRIVMSG #chan :hi\"}\n\n",
		}
		for _, frame := range frames {
			io.WriteString(w, frame)
			flusher.Flush()
		}
		// Keep the connection open until the client goes away
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(srv.URL, log.NullLogger())
	go sub.Run(ctx)

	want := []domain.LogEvent{
		{Prefix: "bot!b@host", Message: "NOTICE hello"},
		{Prefix: "server", Message: "PRIVMSG #chan :hi"},
	}
	for i, expected := range want {
		select {
		case got := <-sub.Events():
			if got != expected {
				t.Errorf("event %d = %+v, want %+v", i, got, expected)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for event %d", i)
		}
	}

	// The malformed and unrelated frames must not have produced events.
	select {
	case got := <-sub.Events():
		t.Errorf("unexpected extra event: %+v", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscriberClosesChannelOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := NewSubscriber(srv.URL, log.NullLogger())

	done := make(chan struct{})
	go func() {
		sub.Run(ctx)
		close(done)
	}()

	// Give the subscriber a moment to connect, then cancel the session.
	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if _, ok := <-sub.Events(); ok {
		t.Error("events channel still open after Run returned")
	}
}

func TestSubscriberJoinsMultiLineData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "event: irc-message\ndata: {\"prefix\":\"a\",\ndata: \"message\":\"b\"}\n\n")
		w.(http.Flusher).Flush()
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := NewSubscriber(srv.URL, log.NullLogger())
	go sub.Run(ctx)

	select {
	case got := <-sub.Events():
		if got.Prefix != "a" || got.Message != "b" {
			t.Errorf("event = %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for multi-line event")
	}
}
