package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/supra-heroes/zorgbot/internal/cache"
	"github.com/supra-heroes/zorgbot/internal/config"
	"github.com/supra-heroes/zorgbot/internal/types"
	"github.com/supra-heroes/zorgbot/internal/upstream"
)

// fakeCompleter implements Completer and counts calls.
type fakeCompleter struct {
	calls   int
	content string
	usage   types.Usage
	err     error
}

func (f *fakeCompleter) Complete(_ context.Context, req upstream.Request) (*upstream.Response, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &upstream.Response{
		Content: f.content,
		Model:   req.Model,
		Usage:   f.usage,
	}, nil
}

// failingStore returns an operational error from every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) (*cache.Entry, error) {
	return nil, errors.New("connection refused")
}
func (failingStore) Put(context.Context, string, types.Envelope, time.Duration) error {
	return errors.New("connection refused")
}
func (failingStore) Clear(context.Context, string) (int, error) {
	return 0, errors.New("connection refused")
}
func (failingStore) Close() error { return nil }

func newTestEngine(up Completer, store cache.Store) *Engine {
	return New(Config{
		Upstream:  up,
		Cache:     store,
		AutoRoute: true,
		Models:    func() *config.ModelsConfig { return config.DefaultModels() },
	})
}

func TestChat_SimpleQuestionRoutesSmall(t *testing.T) {
	up := &fakeCompleter{content: "not much, you?", usage: types.Usage{InputTokens: 12, OutputTokens: 8, TotalTokens: 20}}
	e := newTestEngine(up, cache.NewMemoryStore())

	got, err := e.Ask(context.Background(), "Hey, what's up?")
	if err != nil {
		t.Fatal(err)
	}
	if got != "not much, you?" {
		t.Errorf("unexpected content: %q", got)
	}

	snap := e.Stats()
	if snap.RoutedToSmall != 1 || snap.RoutedToLarge != 0 {
		t.Errorf("routed = (%d, %d), want (1, 0)", snap.RoutedToSmall, snap.RoutedToLarge)
	}
	if snap.RequestsToUpstream != 1 {
		t.Errorf("requests to upstream = %d, want 1", snap.RequestsToUpstream)
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", up.calls)
	}
}

func TestChat_ComplexQuestionRoutesLarge(t *testing.T) {
	up := &fakeCompleter{content: "deep answer"}
	e := newTestEngine(up, cache.NewMemoryStore())

	resp, err := e.Chat(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "Can you analyze and explain the architecture of a distributed caching system?"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "mistral-large-latest" {
		t.Errorf("expected large tier, got %s", resp.Model)
	}
	if snap := e.Stats(); snap.RoutedToLarge != 1 {
		t.Errorf("routed to large = %d, want 1", snap.RoutedToLarge)
	}
}

func TestChat_SecondIdenticalCallHitsCache(t *testing.T) {
	up := &fakeCompleter{content: "cached answer", usage: types.Usage{InputTokens: 5, OutputTokens: 3, TotalTokens: 8}}
	e := newTestEngine(up, cache.NewMemoryStore())

	ctx := context.Background()
	messages := []types.Message{{Role: types.RoleUser, Content: "Hey, what's up?"}}

	first, err := e.Chat(ctx, messages, nil)
	if err != nil {
		t.Fatal(err)
	}
	if first.ServedFromCache {
		t.Error("first call should not be served from cache")
	}

	second, err := e.Chat(ctx, messages, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !second.ServedFromCache {
		t.Error("second identical call should be served from cache")
	}
	if second.Content != first.Content {
		t.Errorf("replayed content differs: %q vs %q", second.Content, first.Content)
	}

	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (at most one per identical request)", up.calls)
	}
	snap := e.Stats()
	if snap.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", snap.CacheHits)
	}
	if snap.RequestsToUpstream != 1 {
		t.Errorf("requests to upstream = %d, want 1", snap.RequestsToUpstream)
	}
}

func TestChat_TTLExpiryCallsUpstreamAgain(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	store := cache.NewMemoryStore()
	now := time.Now()
	store.Now = func() time.Time { return now }

	e := New(Config{
		Upstream:  up,
		Cache:     store,
		CacheTTL:  time.Hour,
		AutoRoute: true,
		Models:    func() *config.ModelsConfig { return config.DefaultModels() },
	})

	ctx := context.Background()
	messages := []types.Message{{Role: types.RoleUser, Content: "hi"}}

	e.Chat(ctx, messages, nil)
	now = now.Add(2 * time.Hour)

	resp, err := e.Chat(ctx, messages, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.ServedFromCache {
		t.Error("expired entry must not be replayed")
	}
	if up.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 after expiry", up.calls)
	}
}

func TestChat_UseCacheFalseSkipsCache(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, cache.NewMemoryStore())

	ctx := context.Background()
	messages := []types.Message{{Role: types.RoleUser, Content: "hi"}}
	noCache := false
	opts := &ChatOptions{UseCache: &noCache}

	e.Chat(ctx, messages, opts)
	e.Chat(ctx, messages, opts)

	if up.calls != 2 {
		t.Errorf("upstream calls = %d, want 2 with cache disabled", up.calls)
	}
	if snap := e.Stats(); snap.CacheHits != 0 {
		t.Errorf("cache hits = %d, want 0", snap.CacheHits)
	}
}

func TestChat_ModelOverrideBypassesRouter(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, cache.NewMemoryStore())

	resp, err := e.Chat(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "Hey, what's up?"},
	}, &ChatOptions{Model: "mistral-large-latest"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "mistral-large-latest" {
		t.Errorf("override ignored, got %s", resp.Model)
	}

	snap := e.Stats()
	if snap.RoutedToSmall != 0 || snap.RoutedToLarge != 0 {
		t.Errorf("override must not increment routing counters, got (%d, %d)",
			snap.RoutedToSmall, snap.RoutedToLarge)
	}
}

func TestChat_CostAccumulation(t *testing.T) {
	up := &fakeCompleter{content: "answer", usage: types.Usage{InputTokens: 1000, OutputTokens: 1000, TotalTokens: 2000}}
	e := newTestEngine(up, nil)

	// Small tier: 0.0002 + 0.0006 per 1K each way
	e.Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: "hi"}}, nil)

	snap := e.Stats()
	want := 0.0008
	if diff := snap.TotalCostUSD - want; diff > 1e-12 || diff < -1e-12 {
		t.Errorf("total cost = %g, want %g", snap.TotalCostUSD, want)
	}
	if snap.InputTokens != 1000 || snap.OutputTokens != 1000 {
		t.Errorf("token counters = (%d, %d)", snap.InputTokens, snap.OutputTokens)
	}
}

func TestChat_UpstreamErrorPropagates(t *testing.T) {
	upErr := &upstream.Error{StatusCode: 500, Message: "boom"}
	up := &fakeCompleter{err: upErr}
	store := cache.NewMemoryStore()
	e := newTestEngine(up, store)

	ctx := context.Background()
	messages := []types.Message{{Role: types.RoleUser, Content: "hi"}}

	_, err := e.Chat(ctx, messages, nil)
	var got *upstream.Error
	if !errors.As(err, &got) || got.StatusCode != 500 {
		t.Fatalf("expected upstream error, got %v", err)
	}

	// No partial stats, no cache entry for the failed attempt
	snap := e.Stats()
	if snap.RequestsToUpstream != 0 || snap.TotalCostUSD != 0 {
		t.Errorf("failed attempt recorded stats: %+v", snap)
	}
	if n, _ := store.Clear(ctx, KeyPrefix); n != 0 {
		t.Errorf("failed attempt wrote %d cache entries", n)
	}
}

func TestChat_CacheFailureDegradesToUpstream(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, failingStore{})

	resp, err := e.Chat(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}, nil)
	if err != nil {
		t.Fatalf("cache failure must not surface: %v", err)
	}
	if resp.Content != "answer" {
		t.Errorf("unexpected content: %q", resp.Content)
	}
	if up.calls != 1 {
		t.Errorf("upstream calls = %d, want 1", up.calls)
	}
}

func TestChat_EmptyMessagesIsInvalid(t *testing.T) {
	e := newTestEngine(&fakeCompleter{}, nil)
	_, err := e.Chat(context.Background(), nil, nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestChat_AutoRouteDisabledUsesLargeTier(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := New(Config{
		Upstream:  up,
		AutoRoute: false,
		Models:    func() *config.ModelsConfig { return config.DefaultModels() },
	})

	resp, err := e.Chat(context.Background(), []types.Message{
		{Role: types.RoleUser, Content: "Hey, what's up?"},
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "mistral-large-latest" {
		t.Errorf("auto_route off should default to the large tier, got %s", resp.Model)
	}
	if snap := e.Stats(); snap.RoutedToSmall != 0 && snap.RoutedToLarge != 0 {
		t.Error("no routing counters without the router")
	}
}

func TestAsk_RepeatScenario(t *testing.T) {
	up := &fakeCompleter{content: "not much", usage: types.Usage{InputTokens: 10, OutputTokens: 5, TotalTokens: 15}}
	e := newTestEngine(up, cache.NewMemoryStore())
	ctx := context.Background()

	if _, err := e.Ask(ctx, "Hey, what's up?"); err != nil {
		t.Fatal(err)
	}
	snap := e.Stats()
	if snap.RoutedToSmall != 1 || snap.RequestsToUpstream != 1 {
		t.Errorf("after first ask: %+v", snap)
	}

	if _, err := e.Ask(ctx, "Hey, what's up?"); err != nil {
		t.Fatal(err)
	}
	snap = e.Stats()
	if snap.CacheHits != 1 {
		t.Errorf("cache hits = %d, want 1", snap.CacheHits)
	}
	if snap.RequestsToUpstream != 1 {
		t.Errorf("requests to upstream changed: %d", snap.RequestsToUpstream)
	}
}

func TestClearCache(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, cache.NewMemoryStore())
	ctx := context.Background()

	e.Ask(ctx, "one")
	e.Ask(ctx, "two")

	n, err := e.ClearCache(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("cleared %d entries, want 2", n)
	}

	// Next identical call misses again
	e.Ask(ctx, "one")
	if up.calls != 3 {
		t.Errorf("upstream calls = %d, want 3 after clear", up.calls)
	}
}

func TestResetStats(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, nil)
	e.Ask(context.Background(), "hi")

	e.ResetStats()
	snap := e.Stats()
	if snap.RequestsToUpstream != 0 || snap.RoutedToSmall != 0 {
		t.Errorf("expected zeroed stats, got %+v", snap)
	}
}

func TestChat_WhitespaceVariantsCacheSeparately(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, cache.NewMemoryStore())
	ctx := context.Background()

	e.Ask(ctx, "hello")
	e.Ask(ctx, "hello ")

	if up.calls != 2 {
		t.Errorf("whitespace variants must cache separately, upstream calls = %d", up.calls)
	}
}

func TestChat_LongMessageRoutesLarge(t *testing.T) {
	up := &fakeCompleter{content: "answer"}
	e := newTestEngine(up, nil)

	long := strings.Repeat("a", 301)
	resp, err := e.Chat(context.Background(), []types.Message{{Role: types.RoleUser, Content: long}}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Model != "mistral-large-latest" {
		t.Errorf("301-char message should route large, got %s", resp.Model)
	}
}
