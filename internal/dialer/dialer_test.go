package dialer

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type scriptedTrigger struct {
	mu    sync.Mutex
	calls int
	errs  []error
	res   TriggerResult
}

func (s *scriptedTrigger) NextCall(ctx context.Context, userID string) (TriggerResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return TriggerResult{}, s.errs[i]
	}
	return s.res, nil
}

func (s *scriptedTrigger) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func runOne(t *testing.T, trig Trigger, opts Options) (TriggerResult, error) {
	t.Helper()
	q := NewQueue(trig, opts, nil)
	type outcome struct {
		res TriggerResult
		err error
	}
	done := make(chan outcome, 1)
	q.OnDone(func(_ Job, res TriggerResult, err error) { done <- outcome{res, err} })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	q.Start(ctx)
	if !q.Dispatch("u1") {
		t.Fatalf("dispatch refused")
	}
	select {
	case o := <-done:
		q.Close()
		return o.res, o.err
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not finish")
	}
	return TriggerResult{}, nil
}

func TestQueue_RetriesOnceThenSucceeds(t *testing.T) {
	trig := &scriptedTrigger{errs: []error{errors.New("boom")}}
	_, err := runOne(t, trig, Options{Workers: 1, Attempts: 2, Backoff: time.Millisecond})
	if err != nil {
		t.Fatalf("expected success on second attempt, got %v", err)
	}
	if trig.count() != 2 {
		t.Fatalf("expected 2 attempts, got %d", trig.count())
	}
}

func TestQueue_GivesUpAfterAttempts(t *testing.T) {
	trig := &scriptedTrigger{errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	_, err := runOne(t, trig, Options{Workers: 1, Attempts: 2, Backoff: time.Millisecond})
	if err == nil {
		t.Fatalf("expected error after exhausting attempts")
	}
	if trig.count() != 2 {
		t.Fatalf("expected exactly 2 attempts, got %d", trig.count())
	}
}

func TestQueue_DoneReplyIsNotRetried(t *testing.T) {
	trig := &scriptedTrigger{res: TriggerResult{Done: true, Reason: "no leads"}}
	res, err := runOne(t, trig, Options{Workers: 1, Attempts: 2})
	if err != nil || !res.Done {
		t.Fatalf("expected done reply, got %+v %v", res, err)
	}
	if trig.count() != 1 {
		t.Fatalf("done reply must not be retried, got %d calls", trig.count())
	}
}

func TestQueue_DispatchRefusedWhenFullOrClosed(t *testing.T) {
	q := NewQueue(&scriptedTrigger{}, Options{Capacity: 1}, nil)
	if !q.Dispatch("u1") {
		t.Fatalf("first dispatch should fit")
	}
	if q.Dispatch("u2") {
		t.Fatalf("expected full queue to refuse")
	}
	q.Close()
	if q.Dispatch("u3") {
		t.Fatalf("expected closed queue to refuse")
	}
}

func TestHTTPTrigger_PostsUserID(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("X-Internal-Secret") != "s3cret" {
			t.Errorf("missing secret header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["userId"] != "u1" {
			t.Errorf("unexpected body %v", body)
		}
		_, _ = w.Write([]byte(`{"done":true,"reason":"daily target reached"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPTrigger(srv.URL, "s3cret", time.Second).NextCall(context.Background(), "u1")
	if err != nil {
		t.Fatalf("next call: %v", err)
	}
	if !res.Done || res.Reason != "daily target reached" {
		t.Fatalf("unexpected result %+v", res)
	}
	if atomic.LoadInt32(&hits) != 1 {
		t.Fatalf("expected one request")
	}
}

func TestHTTPTrigger_Non2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewHTTPTrigger(srv.URL, "", time.Second).NextCall(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error on 503")
	}
}
