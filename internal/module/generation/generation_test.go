package generation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uniedit/videogen/internal/module/kieai"
	"github.com/uniedit/videogen/internal/module/provider"
	apperrors "github.com/uniedit/videogen/internal/shared/errors"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func png(name string) kieai.Asset {
	return kieai.Asset{Name: name, MIMEType: "image/png", Data: pngBytes}
}

// fakeGateway records every network call made by the adapters.
type fakeGateway struct {
	mu        sync.Mutex
	uploads   []string
	creates   []string
	createErr error
}

func (f *fakeGateway) CreateTask(_ context.Context, _, model string, _ any, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, model)
	if f.createErr != nil {
		return "", f.createErr
	}
	return "task-" + model, nil
}

func (f *fakeGateway) CreateVeoTask(_ context.Context, _ string, req kieai.VeoRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, req.Model)
	return "veo-task", f.createErr
}

func (f *fakeGateway) UploadAll(_ context.Context, _ string, assets []kieai.Asset, path string, _ int) ([]*kieai.UploadedAsset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*kieai.UploadedAsset, len(assets))
	for i, a := range assets {
		f.uploads = append(f.uploads, path+"/"+a.Name)
		out[i] = &kieai.UploadedAsset{FileURL: "https://files.example/" + path + "/" + a.Name}
	}
	return out, nil
}

func (f *fakeGateway) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads) + len(f.creates)
}

// fakeQuerier answers recordInfo with a fixed record.
type fakeQuerier struct {
	mu      sync.Mutex
	record  kieai.TaskRecord
	queries int
}

func (f *fakeQuerier) RecordInfo(_ context.Context, _, taskID string) (*kieai.TaskRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	rec := f.record
	rec.TaskID = taskID
	return &rec, nil
}

func (f *fakeQuerier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

// recordingStore remembers every state it saw per run.
type recordingStore struct {
	*MemoryStore
	mu     sync.Mutex
	states map[string][]State
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: NewMemoryStore(0), states: make(map[string][]State)}
}

func (s *recordingStore) Save(ctx context.Context, st Status) error {
	s.mu.Lock()
	seen := s.states[st.RunID]
	if len(seen) == 0 || seen[len(seen)-1] != st.State {
		s.states[st.RunID] = append(seen, st.State)
	}
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, st)
}

func (s *recordingStore) seen(runID string) []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.states[runID]...)
}

type harness struct {
	svc     *Service
	gateway *fakeGateway
	querier *fakeQuerier
	store   *recordingStore
}

func newHarness(t *testing.T, record kieai.TaskRecord, cfg Config) *harness {
	t.Helper()
	h := &harness{
		gateway: &fakeGateway{},
		querier: &fakeQuerier{record: record},
		store:   newRecordingStore(),
	}
	poller := kieai.NewPoller(h.querier, kieai.PollerConfig{Interval: 2 * time.Millisecond, MaxAttempts: 10000})
	registry := provider.NewRegistry(h.gateway, poller)
	h.svc = NewService(registry, cfg, WithStore(h.store))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = h.svc.Shutdown(ctx)
	})
	return h
}

func succeeded(url string) kieai.TaskRecord {
	return kieai.TaskRecord{State: kieai.StateSuccess, ResultJSON: `{"resultUrls":["` + url + `"]}`}
}

func waiting() kieai.TaskRecord {
	return kieai.TaskRecord{State: kieai.StateWaiting}
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StateIdle, StateValidating, true},
		{StateValidating, StateUploading, true},
		{StateValidating, StateSubmitting, true},
		{StateUploading, StateSubmitting, true},
		{StateSubmitting, StatePolling, true},
		{StatePolling, StateSucceeded, true},
		{StatePolling, StateFailed, true},
		{StatePolling, StateCancelled, true},
		{StateIdle, StatePolling, false},
		{StateSubmitting, StateUploading, false},
		{StateSucceeded, StateFailed, false},
		{StateFailed, StateSucceeded, false},
		{StateCancelled, StatePolling, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestTerminalStateIsFinal(t *testing.T) {
	v := provider.Catalog()[0]
	r := newRun(v, time.Now)
	require.NoError(t, r.advance(StateValidating))
	require.NoError(t, r.advance(StateSubmitting))
	require.NoError(t, r.advance(StatePolling))
	require.NoError(t, r.succeed(kieai.Result{Kind: kieai.ResultVideo, URL: "https://cdn/v.mp4"}))

	assert.Error(t, r.finish(StateFailed, errors.New("late")))
	assert.Error(t, r.advance(StateCancelled))
	assert.False(t, r.setMessage("late message"))

	st := r.Status()
	assert.Equal(t, StateSucceeded, st.State)
	assert.Nil(t, st.Error)
	assert.NotNil(t, st.FinishedAt)
	select {
	case <-r.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestValidationPrecedesNetwork(t *testing.T) {
	tests := []struct {
		name    string
		variant string
		payload string
		images  []kieai.Asset
		want    string
	}{
		{"short prompt", provider.VariantSeedance, `{"prompt":"hi"}`, nil, "prompt must be at least 3 characters"},
		{"missing image", provider.VariantHailuoPro, `{"prompt":"a cat"}`, nil, "exactly 1 image is required"},
		{"bad option", provider.VariantWanT2V, `{"prompt":"a cat","duration":"7"}`, nil, "duration must be one of"},
		{"reference needs fast", provider.VariantVeo, `{"prompt":"a cat","model":"veo3","generation_type":"REFERENCE_2_VIDEO"}`, []kieai.Asset{png("a.png")}, "veo3_fast"},
		{"grok both sources", provider.VariantGrokI2V, `{"task_id":"t1","index":0}`, []kieai.Asset{png("a.png")}, "not both"},
		{"storyboard sum", provider.VariantSoraProStoryboard, `{"n_frames":"15","shots":[{"scene":"a","duration":5}]}`, nil, "add up to"},
		{"bad json", provider.VariantKlingT2V, `{"prompt":`, nil, "invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, succeeded("https://cdn/v.mp4"), DefaultConfig())

			st, err := h.svc.Run(context.Background(), Request{
				Variant: tt.variant,
				APIKey:  "key",
				Payload: []byte(tt.payload),
				Images:  tt.images,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
			assert.Contains(t, err.Error(), tt.want)

			assert.Zero(t, h.gateway.calls())
			assert.Zero(t, h.querier.count())

			assert.Equal(t, StateFailed, st.State)
			require.NotNil(t, st.Error)
			assert.Equal(t, "VALIDATION_ERROR", st.Error.Code)
			assert.Equal(t, []State{StateValidating, StateFailed}, h.store.seen(st.RunID))
		})
	}
}

func TestRunRequiresKeyAndVariant(t *testing.T) {
	h := newHarness(t, succeeded("https://cdn/v.mp4"), DefaultConfig())

	_, err := h.svc.Run(context.Background(), Request{Variant: provider.VariantSeedance, APIKey: "  ", Payload: []byte(`{"prompt":"a cat"}`)})
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))

	_, err = h.svc.Run(context.Background(), Request{Variant: "nope", APIKey: "key"})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	assert.Zero(t, h.gateway.calls())
}

func TestRunSucceeds(t *testing.T) {
	h := newHarness(t, succeeded("https://cdn/v.mp4"), DefaultConfig())

	st, err := h.svc.Run(context.Background(), Request{
		Variant: provider.VariantHailuoPro,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
		Images:  []kieai.Asset{png("cat.png")},
	})
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, st.State)
	require.NotNil(t, st.Result)
	assert.Equal(t, "https://cdn/v.mp4", st.Result.URL)
	assert.Equal(t, "task-hailuo/2-3-image-to-video-pro", st.TaskID)
	assert.Empty(t, st.Message)

	assert.Equal(t, []string{"hailuo-input-image/cat.png"}, h.gateway.uploads)
	assert.Equal(t, 1, h.querier.count())
	assert.Equal(t,
		[]State{StateValidating, StateUploading, StateSubmitting, StatePolling, StateSucceeded},
		h.store.seen(st.RunID))

	stored, err := h.svc.Get(context.Background(), st.RunID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, stored.State)
}

func TestRunSkipsUploadWithoutFiles(t *testing.T) {
	h := newHarness(t, succeeded("https://cdn/v.mp4"), DefaultConfig())

	st, err := h.svc.Run(context.Background(), Request{
		Variant: provider.VariantSeedance,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
	})
	require.NoError(t, err)
	assert.Empty(t, h.gateway.uploads)
	assert.Equal(t, []State{StateValidating, StateSubmitting, StatePolling, StateSucceeded}, h.store.seen(st.RunID))
}

// slowStore holds each write open long enough for message rotation to race it.
type slowStore struct {
	*MemoryStore
	mu       sync.Mutex
	inFlight int
	overlaps int
	states   []State
}

func (s *slowStore) Save(ctx context.Context, st Status) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > 1 {
		s.overlaps++
	}
	s.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.states = append(s.states, st.State)
	s.mu.Unlock()
	return s.MemoryStore.Save(ctx, st)
}

func TestRunSavesInOrderDuringRotation(t *testing.T) {
	store := &slowStore{MemoryStore: NewMemoryStore(0)}
	querier := &fakeQuerier{record: succeeded("https://cdn/v.mp4")}
	poller := kieai.NewPoller(querier, kieai.PollerConfig{Interval: 2 * time.Millisecond, MaxAttempts: 100})
	cfg := DefaultConfig()
	cfg.RotationInterval = time.Millisecond
	svc := NewService(provider.NewRegistry(&fakeGateway{}, poller), cfg, WithStore(store))

	st, err := svc.Run(context.Background(), Request{
		Variant: provider.VariantHailuoPro,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
		Images:  []kieai.Asset{png("cat.png")},
	})
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, st.State)

	rank := map[State]int{
		StateValidating: 1, StateUploading: 2, StateSubmitting: 3, StatePolling: 4, StateSucceeded: 5,
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Zero(t, store.overlaps)
	for i := 1; i < len(store.states); i++ {
		assert.GreaterOrEqual(t, rank[store.states[i]], rank[store.states[i-1]],
			"state went from %s back to %s", store.states[i-1], store.states[i])
	}

	stored, err := svc.Get(context.Background(), st.RunID)
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, stored.State)
}

func TestRunRecordsRemoteFailure(t *testing.T) {
	h := newHarness(t, kieai.TaskRecord{State: kieai.StateFail, FailMsg: "quota exceeded"}, DefaultConfig())

	st, err := h.svc.Run(context.Background(), Request{
		Variant: provider.VariantSeedance,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrRemoteFailed))

	assert.Equal(t, StateFailed, st.State)
	require.NotNil(t, st.Error)
	assert.Equal(t, "REMOTE_FAILED", st.Error.Code)
	assert.Equal(t, provider.VariantSeedance+": quota exceeded", st.Error.Message)
	assert.Nil(t, st.Result)
}

func TestRunRecordsSubmitRejection(t *testing.T) {
	h := newHarness(t, succeeded("https://cdn/v.mp4"), DefaultConfig())
	h.gateway.createErr = apperrors.RemoteRejected("create task: bad model")

	st, err := h.svc.Run(context.Background(), Request{
		Variant: provider.VariantKlingT2V,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
	})
	require.Error(t, err)
	assert.Equal(t, "REMOTE_REJECTED", st.Error.Code)
	assert.Zero(t, h.querier.count())
}

func TestRunTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RunTimeout = 30 * time.Millisecond
	h := newHarness(t, waiting(), cfg)

	st, err := h.svc.Run(context.Background(), Request{
		Variant: provider.VariantSeedance,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTimeout))
	assert.Equal(t, StateFailed, st.State)
	assert.Equal(t, "TIMEOUT", st.Error.Code)
}

func startWaiting(t *testing.T, h *harness, variant string) Status {
	t.Helper()
	st, err := h.svc.Start(context.Background(), Request{
		Variant: variant,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat surfing"}`),
	})
	require.NoError(t, err)
	require.NotEmpty(t, st.RunID)
	require.Eventually(t, func() bool {
		cur, err := h.svc.Get(context.Background(), st.RunID)
		return err == nil && cur.State == StatePolling
	}, 2*time.Second, 5*time.Millisecond)
	return st
}

func TestStartAndCancel(t *testing.T) {
	h := newHarness(t, waiting(), DefaultConfig())
	st := startWaiting(t, h, provider.VariantSeedance)

	cur, err := h.svc.Get(context.Background(), st.RunID)
	require.NoError(t, err)
	assert.NotEmpty(t, cur.Message)

	cancelled, err := h.svc.Cancel(context.Background(), st.RunID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, cancelled.State)
	assert.Equal(t, "CANCELLED", cancelled.Error.Code)

	require.Eventually(t, func() bool {
		cur, err := h.store.Get(context.Background(), st.RunID)
		return err == nil && cur.State == StateCancelled
	}, time.Second, 5*time.Millisecond)

	again, err := h.svc.Cancel(context.Background(), st.RunID)
	require.NoError(t, err)
	assert.Equal(t, StateCancelled, again.State)

	_, err = h.svc.Cancel(context.Background(), "missing")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestControllerCancelsPreviousRun(t *testing.T) {
	h := newHarness(t, waiting(), DefaultConfig())

	first := startWaiting(t, h, provider.VariantSoraT2V)
	other := startWaiting(t, h, provider.VariantSeedance)
	second := startWaiting(t, h, provider.VariantSoraProT2V)

	require.Eventually(t, func() bool {
		cur, err := h.svc.Get(context.Background(), first.RunID)
		return err == nil && cur.State == StateCancelled
	}, time.Second, 5*time.Millisecond)

	cur, ok := h.svc.Controller(provider.FamilySora).Current()
	require.True(t, ok)
	assert.Equal(t, second.RunID, cur.ID())

	st, err := h.svc.Get(context.Background(), other.RunID)
	require.NoError(t, err)
	assert.Equal(t, StatePolling, st.State)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.svc.Shutdown(ctx))

	for _, id := range []string{other.RunID, second.RunID} {
		st, err := h.svc.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, StateCancelled, st.State)
	}
	_, ok = h.svc.Controller(provider.FamilySora).Current()
	assert.False(t, ok)
}

func TestStartReturnsValidationErrors(t *testing.T) {
	h := newHarness(t, waiting(), DefaultConfig())

	st, err := h.svc.Start(context.Background(), Request{
		Variant: provider.VariantKlingI2V,
		APIKey:  "key",
		Payload: []byte(`{"prompt":"a cat"}`),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, StateFailed, st.State)
	assert.Zero(t, h.gateway.calls())

	_, ok := h.svc.Controller(provider.FamilyKling).Current()
	assert.False(t, ok)
}

func TestRotation(t *testing.T) {
	var (
		mu      sync.Mutex
		changes []string
	)
	r := StartRotation([]string{"a", "b", "c"}, 5*time.Millisecond, func(msg string) {
		mu.Lock()
		changes = append(changes, msg)
		mu.Unlock()
	})
	assert.Equal(t, "a", r.Current())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(changes) >= 3
	}, time.Second, time.Millisecond)

	r.Stop()
	r.Stop()

	mu.Lock()
	got := append([]string(nil), changes...)
	mu.Unlock()
	assert.Equal(t, []string{"b", "c", "a"}, got[:3])

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Len(t, changes, len(got))
	mu.Unlock()
}

func TestRotationWithoutTicker(t *testing.T) {
	single := StartRotation([]string{"only"}, time.Millisecond, nil)
	assert.Equal(t, "only", single.Current())
	single.Stop()

	empty := StartRotation(nil, time.Millisecond, nil)
	assert.Empty(t, empty.Current())
	empty.Stop()

	paused := StartRotation([]string{"a", "b"}, 0, nil)
	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, "a", paused.Current())
	paused.Stop()
}

func TestLoadingMessages(t *testing.T) {
	for _, v := range provider.Catalog() {
		assert.GreaterOrEqual(t, len(LoadingMessages(v.Family)), 2, v.Family)
	}
	assert.NotEmpty(t, LoadingMessages("unknown"))
}

func TestMemoryStoreExpiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.Save(context.Background(), Status{RunID: "r1", State: StatePolling}))
	got, err := s.Get(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, StatePolling, got.State)

	now = now.Add(2 * time.Minute)
	_, err = s.Get(context.Background(), "r1")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, s.Save(context.Background(), Status{RunID: "r2"}))
	assert.Len(t, s.entries, 1)
}
