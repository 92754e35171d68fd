package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

func TestMessageText(t *testing.T) {
	t.Parallel()

	if got := (Message{Body: "b"}).Text(); got != "b" {
		t.Errorf("got %q, expected %q", got, "b")
	}
	if got := (Message{Title: "t", Body: "b"}).Text(); got != "t\n\nb" {
		t.Errorf("got %q, expected %q", got, "t\n\nb")
	}
}

func TestTelegramNotify(t *testing.T) {
	t.Parallel()

	t.Run("posts sendMessage form", func(t *testing.T) {
		t.Parallel()

		type request struct{ path, chatID, text string }
		requests := make(chan request, 1)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse form: %v", err)
			}
			requests <- request{r.URL.Path, r.PostForm.Get("chat_id"), r.PostForm.Get("text")}
			_, _ = w.Write([]byte(`{"ok":true}`))
		}))
		defer srv.Close()

		tg := &Telegram{Token: "123:abc", ChatID: "42", APIBase: srv.URL}
		if err := tg.Notify(context.Background(), Message{Title: "upsub", Body: "3 feeds"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := <-requests
		path, chatID, text := got.path, got.chatID, got.text
		if path != "/bot123:abc/sendMessage" {
			t.Errorf("got path %q, expected %q", path, "/bot123:abc/sendMessage")
		}
		if chatID != "42" {
			t.Errorf("got chat_id %q, expected %q", chatID, "42")
		}
		if text != "upsub\n\n3 feeds" {
			t.Errorf("got text %q, expected %q", text, "upsub\n\n3 feeds")
		}
	})

	t.Run("non-2xx is a delivery failure", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		}))
		defer srv.Close()

		tg := &Telegram{Token: "secret-token", ChatID: "42", APIBase: srv.URL}
		err := tg.Notify(context.Background(), Message{Body: "x"})
		if !errors.Is(err, ErrDeliveryFailed) {
			t.Fatalf("got %v, expected ErrDeliveryFailed", err)
		}
		if strings.Contains(err.Error(), "secret-token") {
			t.Errorf("error leaks the token: %v", err)
		}
	})

	t.Run("missing settings", func(t *testing.T) {
		t.Parallel()

		if err := (&Telegram{}).Notify(context.Background(), Message{}); !errors.Is(err, ErrNotConfigured) {
			t.Errorf("got %v, expected ErrNotConfigured", err)
		}
	})
}

func TestAppriseNotify(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	received := make([]appriseRequest, 0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req appriseRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		mu.Lock()
		received = append(received, req)
		mu.Unlock()
		if strings.HasPrefix(req.URLs, "bad://") {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := &Apprise{Server: srv.URL + "/notify", Recipients: []string{"tgram://x/y", "bad://z"}}
	err := a.Notify(context.Background(), Message{Title: "t", Body: "b"})
	if !errors.Is(err, ErrDeliveryFailed) {
		t.Errorf("got %v, expected ErrDeliveryFailed", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 2 {
		t.Fatalf("got %d requests, expected 2", len(received))
	}
	if received[0].URLs != "tgram://x/y" || received[0].Body != "b" || received[0].Title != "t" {
		t.Errorf("got %+v, expected tgram request", received[0])
	}
}

type recordingNotifier struct {
	calls int
	err   error
}

func (r *recordingNotifier) Notify(context.Context, Message) error {
	r.calls++
	return r.err
}

func TestMultiNotify(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	first := &recordingNotifier{err: boom}
	second := &recordingNotifier{}

	err := Multi{first, second}.Notify(context.Background(), Message{Body: "x"})
	if !errors.Is(err, boom) {
		t.Errorf("got %v, expected %v", err, boom)
	}
	if first.calls != 1 || second.calls != 1 {
		t.Errorf("got calls %d/%d, expected 1/1", first.calls, second.calls)
	}
	if err := (Multi{}).Notify(context.Background(), Message{}); err != nil {
		t.Errorf("empty multi: got %v, expected nil", err)
	}
}
