package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/maternity/internal/platform/loading"
	"github.com/ehr/maternity/internal/platform/store"
)

type note struct {
	ID     string `json:"id"`
	Parent string `json:"parentId"`
	Text   string `json:"text"`
}

func (n note) EntityID() string { return n.ID }
func (n note) ParentID() string { return n.Parent }

type noteRequest struct {
	Parent string       `json:"parentId"`
	Text   string       `json:"text"`
	Files  []Attachment `json:"-"`
}

func (r noteRequest) ParentID() string          { return r.Parent }
func (r noteRequest) Attachments() []Attachment { return r.Files }

// staticAuth hands out a fixed token and swaps it on refresh.
type staticAuth struct {
	mu        sync.Mutex
	token     string
	next      string
	refreshes int
	fail      bool
}

func (a *staticAuth) Token(context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.token, nil
}

func (a *staticAuth) Refresh(_ context.Context, stale string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail {
		return "", errors.New("refresh rejected")
	}
	if stale == a.token {
		a.refreshes++
		a.token = a.next
	}
	return a.token, nil
}

func newTestClient(t *testing.T, h http.Handler, auth Authenticator) (*Client, *loading.Tracker) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	tracker := loading.NewTracker()
	return New(Options{BaseURL: srv.URL}, auth, tracker, zerolog.Nop()), tracker
}

func TestResource_ListSendsPagingAndDecodesSpring(t *testing.T) {
	var query string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/treatments", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		query = r.URL.RawQuery
		_, _ = io.WriteString(w, `{"content":[{"id":"t1"}],"totalElements":5,"number":2,"size":1}`)
	})
	c, tracker := newTestClient(t, h, nil)
	res := NewResource[note](c, "/treatments", "")

	page, err := res.List(context.Background(), store.PageRequest{Page: 2, Size: 1, SortBy: "startDate", SortDir: "desc"})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, 5, page.Info.Total)
	assert.Equal(t, "startDate", page.Info.SortBy)
	for _, want := range []string{"page=2", "size=1", "sortBy=startDate", "sortDir=desc"} {
		assert.Contains(t, query, want)
	}
	assert.False(t, tracker.Active())
}

func TestResource_Paths(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Method+" "+r.URL.Path)
		mu.Unlock()
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case strings.HasSuffix(r.URL.Path, "/n1") || r.Method == http.MethodPost:
			_, _ = io.WriteString(w, `{"data":{"id":"n1","parentId":"c1"}}`)
		default:
			_, _ = io.WriteString(w, `[{"id":"n1","parentId":"c1"}]`)
		}
	})
	c, _ := newTestClient(t, h, nil)
	res := NewResource[note](c, "/notes", "")
	ctx := context.Background()

	_, err := res.ListByParent(ctx, "c1")
	require.NoError(t, err)
	_, err = res.Get(ctx, "n1")
	require.NoError(t, err)
	_, err = res.Search(ctx, store.SearchRequest{Term: "x"})
	require.NoError(t, err)
	_, err = res.Recent(ctx, 3)
	require.NoError(t, err)
	created, err := res.Create(ctx, noteRequest{Parent: "c1", Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "n1", created.ID)
	_, err = res.Update(ctx, "n1", noteRequest{Parent: "c1"})
	require.NoError(t, err)
	require.NoError(t, res.Delete(ctx, "n1"))

	assert.Equal(t, []string{
		"GET /notes/consultation/c1",
		"GET /notes/n1",
		"GET /notes/search",
		"GET /notes/recent",
		"POST /notes",
		"PUT /notes/n1",
		"DELETE /notes/n1",
	}, seen)
}

func TestClient_StatusErrorUsesEnvelope(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"A consultation already exists on this date"}`)
	})
	c, tracker := newTestClient(t, h, nil)

	_, err := NewResource[note](c, "/consultations", "pregnancy").Create(context.Background(), noteRequest{})
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindStatus, apiErr.Kind)
	assert.Equal(t, 409, apiErr.StatusCode())
	assert.Equal(t, "A consultation already exists on this date", apiErr.UserMessage())
	assert.Equal(t, 0, tracker.Count())
}

func TestClient_TransportError(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1"}, nil, nil, zerolog.Nop())
	_, err := c.Do(context.Background(), http.MethodGet, "/x", nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.Equal(t, 0, apiErr.StatusCode())
}

func TestClient_CancelledAndTimedOutRequests(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tracker := loading.NewTracker()
	c := New(Options{BaseURL: srv.URL}, nil, tracker, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Do(ctx, http.MethodGet, "/slow", nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, "The server took too long to respond.", apiErr.UserMessage())
	assert.Equal(t, "The server took too long to respond.", store.Message(err))

	cancelled, cancelNow := context.WithCancel(context.Background())
	cancelNow()
	_, err = c.Do(cancelled, http.MethodGet, "/slow", nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "The request was cancelled.", apiErr.UserMessage())
	assert.Equal(t, 0, tracker.Count())
}

func TestClient_RefreshesOnceAndReplays(t *testing.T) {
	var calls atomic.Int32
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `[]`)
	})
	auth := &staticAuth{token: "stale", next: "fresh"}
	c, tracker := newTestClient(t, h, auth)

	_, err := c.Do(context.Background(), http.MethodGet, "/consultations", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, auth.refreshes)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 0, tracker.Count())
}

func TestClient_RefreshFailureReturnsOriginal401(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"token expired"}`)
	})
	auth := &staticAuth{token: "stale", fail: true}
	c, _ := newTestClient(t, h, auth)

	_, err := c.Do(context.Background(), http.MethodGet, "/consultations", nil)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "token expired", apiErr.UserMessage())
}

func TestResource_MultipartReplayResendsFiles(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("images")
		require.NoError(t, err)
		content, _ := io.ReadAll(f)
		mu.Lock()
		bodies = append(bodies, hdr.Filename+":"+string(content))
		mu.Unlock()

		var payload noteRequest
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("data")), &payload))
		assert.Equal(t, "c1", payload.Parent)

		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{"id":"u1","parentId":"c1"}`)
	})
	auth := &staticAuth{token: "stale", next: "fresh"}
	c, _ := newTestClient(t, h, auth)

	req := noteRequest{Parent: "c1", Files: []Attachment{{Field: "images", FileName: "scan.png", ContentType: "image/png", Data: []byte("PNG")}}}
	got, err := NewResource[note](c, "/ultrasounds", "").Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, []string{"scan.png:PNG", "scan.png:PNG"}, bodies)
}

func TestClient_RateLimiterHonoursContext(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = io.WriteString(w, `[]`) })
	srv := httptest.NewServer(h)
	defer srv.Close()
	c := New(Options{BaseURL: srv.URL, RequestsPerSecond: 0.001, Burst: 1}, nil, nil, zerolog.Nop())

	_, err := c.Do(context.Background(), http.MethodGet, "/", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Do(ctx, http.MethodGet, "/", nil)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, KindTransport, apiErr.Kind)
}
