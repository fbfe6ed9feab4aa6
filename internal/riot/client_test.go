package riot

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/keithlinneman/riotquota/pkg/ratelimit"
)

// recordingLimiter satisfies ratelimit.Limiter and records interactions.
type recordingLimiter struct {
	calls    atomic.Int64
	resetIn  atomic.Int64 // last ResetIn duration in nanoseconds
	resets   atomic.Int64
	denyNext bool
}

func (r *recordingLimiter) Call(ctx context.Context, op func() error) error {
	if r.denyNext {
		return context.DeadlineExceeded
	}
	r.calls.Add(1)
	if op == nil {
		return nil
	}
	return op()
}

func (r *recordingLimiter) Wait(ctx context.Context) error { return nil }

func (r *recordingLimiter) ResetIn(d time.Duration) {
	r.resetIn.Store(int64(d))
	r.resets.Add(1)
}

func (r *recordingLimiter) Stats() ratelimit.Stats { return ratelimit.Stats{} }

func newTestClient(t *testing.T, handler http.Handler, opts ...Option) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts = append(opts, WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	c, err := New("na", "RGAPI-test", opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c, srv
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("atlantis", "RGAPI-test"); err == nil {
		t.Fatal("expected error for unknown region")
	}
	if _, err := New("na", ""); err == nil {
		t.Fatal("expected error for empty api key")
	}
}

func TestFeaturedGames(t *testing.T) {
	var gotPath, gotToken, gotAccept string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Riot-Token")
		gotAccept = r.Header.Get("Accept")
		w.Write([]byte(`{
			"clientRefreshInterval": 300,
			"gameList": [{
				"gameId": 42,
				"gameMode": "CLASSIC",
				"platformId": "NA1",
				"participants": [
					{"summonerName": "alpha", "championId": 7, "teamId": 100},
					{"riotId": "beta#NA1", "championId": 9, "teamId": 200, "bot": true}
				]
			}]
		}`))
	}))

	fg, err := c.FeaturedGames(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/lol/spectator/v5/featured-games" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotToken != "RGAPI-test" {
		t.Fatalf("X-Riot-Token = %q", gotToken)
	}
	if gotAccept != "application/json" {
		t.Fatalf("Accept = %q", gotAccept)
	}
	if fg.ClientRefreshInterval != 300 {
		t.Fatalf("refresh interval = %d", fg.ClientRefreshInterval)
	}
	if len(fg.GameList) != 1 || fg.GameList[0].GameID != 42 {
		t.Fatalf("game list = %+v", fg.GameList)
	}
	p := fg.GameList[0].Participants
	if len(p) != 2 || p[0].SummonerName != "alpha" || !p[1].Bot {
		t.Fatalf("participants = %+v", p)
	}
}

func TestSummonerByName(t *testing.T) {
	var gotPath string
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.Write([]byte(`{"id": "enc-id", "puuid": "puuid-1", "name": "Hide on bush", "summonerLevel": 743}`))
	}))

	s, err := c.SummonerByName(context.Background(), "Hide on bush")
	if err != nil {
		t.Fatal(err)
	}
	if gotPath != "/lol/summoner/v4/summoners/by-name/Hide%20on%20bush" {
		t.Fatalf("path = %q", gotPath)
	}
	if s.Name != "Hide on bush" || s.SummonerLevel != 743 {
		t.Fatalf("summoner = %+v", s)
	}

	if _, err := c.SummonerByName(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestClient_RoutesThroughLimiter(t *testing.T) {
	lim := &recordingLimiter{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"gameList": []}`))
	}), WithLimiter(lim))

	for i := 0; i < 3; i++ {
		if _, err := c.FeaturedGames(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if got := lim.calls.Load(); got != 3 {
		t.Fatalf("limiter saw %d calls, want 3", got)
	}
}

func TestClient_LimiterDenialShortCircuits(t *testing.T) {
	var served atomic.Int64
	lim := &recordingLimiter{denyNext: true}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		served.Add(1)
	}), WithLimiter(lim))

	if _, err := c.FeaturedGames(context.Background()); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
	if served.Load() != 0 {
		t.Fatal("request must not reach the server when admission is denied")
	}
}

func TestClient_429ResynchronizesWindow(t *testing.T) {
	lim := &recordingLimiter{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithLimiter(lim))

	_, err := c.FeaturedGames(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d", apiErr.StatusCode)
	}
	if apiErr.RetryAfter != 7*time.Second {
		t.Fatalf("retry after = %s", apiErr.RetryAfter)
	}
	if lim.resets.Load() != 1 {
		t.Fatalf("resets = %d, want 1", lim.resets.Load())
	}
	if got := time.Duration(lim.resetIn.Load()); got != 7*time.Second {
		t.Fatalf("ResetIn(%s), want 7s", got)
	}
}

func TestClient_429WithoutRetryAfter(t *testing.T) {
	lim := &recordingLimiter{}
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}), WithLimiter(lim))

	_, err := c.FeaturedGames(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.RetryAfter != 0 {
		t.Fatalf("retry after = %s, want 0", apiErr.RetryAfter)
	}
	if lim.resets.Load() != 0 {
		t.Fatal("window must not move without a Retry-After hint")
	}
}

func TestClient_ServerError(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.SummonerByName(context.Background(), "nobody")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Endpoint != "summoner_by_name" {
		t.Fatalf("api error = %+v", apiErr)
	}
}

func TestClient_OnRequestHook(t *testing.T) {
	type obs struct {
		endpoint string
		status   int
	}
	var got []obs
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}), WithOnRequest(func(endpoint string, status int, d time.Duration) {
		got = append(got, obs{endpoint, status})
	}))

	c.FeaturedGames(context.Background())
	if len(got) != 1 || got[0].endpoint != "featured_games" || got[0].status != http.StatusForbidden {
		t.Fatalf("observations = %+v", got)
	}
}

func TestRetryAfter(t *testing.T) {
	mk := func(v string) http.Header {
		h := http.Header{}
		if v != "" {
			h.Set("Retry-After", v)
		}
		return h
	}

	if d := retryAfter(mk("")); d != 0 {
		t.Fatalf("missing header: %s", d)
	}
	if d := retryAfter(mk("12")); d != 12*time.Second {
		t.Fatalf("delta-seconds: %s", d)
	}
	if d := retryAfter(mk("not-a-duration")); d != 0 {
		t.Fatalf("garbage: %s", d)
	}
	future := time.Now().Add(30 * time.Second).UTC().Format(http.TimeFormat)
	if d := retryAfter(mk(future)); d < 25*time.Second || d > 30*time.Second {
		t.Fatalf("http-date: %s", d)
	}
	past := time.Now().Add(-time.Minute).UTC().Format(http.TimeFormat)
	if d := retryAfter(mk(past)); d != 0 {
		t.Fatalf("past http-date: %s", d)
	}
}
