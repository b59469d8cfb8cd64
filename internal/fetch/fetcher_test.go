package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mlawson/shepard/internal/cache"
	"github.com/mlawson/shepard/internal/model"
)

func testFetchConfig(baseURL string) model.FetchConfig {
	return model.FetchConfig{
		BaseURL:           baseURL,
		UserAgent:         "shepard-test",
		Timeout:           5 * time.Second,
		RequestsPerSecond: 1000,
		Burst:             100,
		MaxBodyBytes:      1 << 20,
	}
}

func TestParseOpinionRef(t *testing.T) {
	tests := []struct {
		ref  string
		want int64
		ok   bool
	}{
		{"https://www.courtlistener.com/api/rest/v4/opinions/12345/", 12345, true},
		{"https://www.courtlistener.com/api/rest/v4/opinions/12345", 12345, true},
		{"12345", 12345, true},
		{"https://example.com/opinions/abc/", 0, false},
		{"", 0, false},
		{"https://example.com/opinions/0/", 0, false},
	}

	for _, tt := range tests {
		got, ok := parseOpinionRef(tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseOpinionRef(%q) = (%d, %v), want (%d, %v)", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestOpinion_TextPreference(t *testing.T) {
	op := &Opinion{PlainText: "plain", HTML: "<p>html</p>"}
	if op.Text() != "plain" {
		t.Errorf("expected plain text preferred, got %q", op.Text())
	}

	op = &Opinion{HTML: "<p>from html</p>"}
	if op.Text() != "from html" {
		t.Errorf("expected stripped html, got %q", op.Text())
	}

	op = &Opinion{}
	if op.Text() != "" {
		t.Errorf("expected empty text, got %q", op.Text())
	}
}

func TestOpinion_CitedIDsOrder(t *testing.T) {
	op := &Opinion{OpinionsCited: []string{
		"https://www.courtlistener.com/api/rest/v4/opinions/5/",
		"https://www.courtlistener.com/api/rest/v4/opinions/3/",
		"not-a-ref",
		"https://www.courtlistener.com/api/rest/v4/opinions/8/",
	}}

	got := op.CitedIDs()
	want := []int64{5, 3, 8}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestHTMLToText(t *testing.T) {
	raw := `<html><head><style>p{color:red}</style></head><body>
<p>First paragraph.</p>
<script>alert("no")</script>
<p>Second   paragraph.</p>
</body></html>`

	got := htmlToText(raw)

	if strings.Contains(got, "color:red") || strings.Contains(got, "alert") {
		t.Errorf("script/style content leaked: %q", got)
	}
	if !strings.Contains(got, "First paragraph.") || !strings.Contains(got, "Second   paragraph.") {
		t.Errorf("text content lost: %q", got)
	}
}

func newOpinionServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(calls, 1)

		switch r.URL.Path {
		case "/opinions/1/":
			fmt.Fprint(w, `{"id":1,"case_name":"Smith v. Jones","plain_text":"opinion text","opinions_cited":["/opinions/2/","/opinions/3/"]}`)
		case "/opinions/404/":
			http.NotFound(w, r)
		case "/opinions/429/":
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
}

func TestFetchOpinion(t *testing.T) {
	var calls int32
	srv := newOpinionServer(t, &calls)
	defer srv.Close()

	f := NewFetcher(testFetchConfig(srv.URL), nil)

	op, err := f.FetchOpinion(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchOpinion: %v", err)
	}
	if op.ID != 1 || op.PlainText != "opinion text" {
		t.Errorf("unexpected opinion: %+v", op)
	}
	if ids := op.CitedIDs(); len(ids) != 2 || ids[0] != 2 || ids[1] != 3 {
		t.Errorf("unexpected cited ids: %v", op.CitedIDs())
	}
}

func TestFetchOpinion_Errors(t *testing.T) {
	var calls int32
	srv := newOpinionServer(t, &calls)
	defer srv.Close()

	f := NewFetcher(testFetchConfig(srv.URL), nil)
	ctx := context.Background()

	if _, err := f.FetchOpinion(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := f.FetchOpinion(ctx, 429); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestFetchOpinion_ResponseCache(t *testing.T) {
	var calls int32
	srv := newOpinionServer(t, &calls)
	defer srv.Close()

	responses := cache.NewMemoryCache(time.Minute, time.Minute)
	f := NewFetcher(testFetchConfig(srv.URL), responses)
	ctx := context.Background()

	if _, err := f.FetchOpinion(ctx, 1); err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	first := atomic.LoadInt32(&calls)

	if _, err := f.FetchOpinion(ctx, 1); err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if atomic.LoadInt32(&calls) != first {
		t.Errorf("cached fetch hit the server: %d calls, then %d", first, calls)
	}

	// 404s are cached too
	if _, err := f.FetchOpinion(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	afterMiss := atomic.LoadInt32(&calls)
	if _, err := f.FetchOpinion(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected cached ErrNotFound, got %v", err)
	}
	if atomic.LoadInt32(&calls) != afterMiss {
		t.Errorf("cached 404 hit the server again")
	}
}

type fakeWriter struct {
	opinions  map[int64]string
	citations map[int64][]int64
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		opinions:  make(map[int64]string),
		citations: make(map[int64][]int64),
	}
}

func (w *fakeWriter) HasOpinion(ctx context.Context, id int64) (bool, error) {
	_, ok := w.opinions[id]
	return ok, nil
}

func (w *fakeWriter) AddOpinion(ctx context.Context, id int64, caseName, plainText string) error {
	w.opinions[id] = plainText
	return nil
}

func (w *fakeWriter) AddCitations(ctx context.Context, citingID int64, citedIDs []int64) error {
	w.citations[citingID] = citedIDs
	return nil
}

func TestEnsure(t *testing.T) {
	var calls int32
	srv := newOpinionServer(t, &calls)
	defer srv.Close()

	f := NewFetcher(testFetchConfig(srv.URL), nil)
	w := newFakeWriter()
	ctx := context.Background()

	fetched, err := f.Ensure(ctx, 1, w)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if !fetched {
		t.Error("expected a fetch for a missing opinion")
	}
	if w.opinions[1] != "opinion text" {
		t.Errorf("opinion not stored: %q", w.opinions[1])
	}
	if len(w.citations[1]) != 2 {
		t.Errorf("citations not stored: %v", w.citations[1])
	}

	// Already present: no fetch
	fetched, err = f.Ensure(ctx, 1, w)
	if err != nil {
		t.Fatalf("second Ensure: %v", err)
	}
	if fetched {
		t.Error("expected no fetch for a present opinion")
	}
}
