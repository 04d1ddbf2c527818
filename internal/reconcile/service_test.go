package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"mediahub/internal/content"
	"mediahub/internal/kv"
	"mediahub/internal/mediaclient"
	"mediahub/pkg/domain"
)

var errRefused = errors.New("dial tcp 127.0.0.1:4000: connect: connection refused")

type fakeRemote struct {
	mu      sync.Mutex
	down    bool
	calls   int
	seq     int
	now     time.Time
	items   map[string]domain.MediaItem
	uploads []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{items: make(map[string]domain.MediaItem), now: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeRemote) enter() error {
	f.mu.Lock()
	f.calls++
	if f.down {
		f.mu.Unlock()
		return errRefused
	}
	return nil
}

func (f *fakeRemote) put(item domain.MediaItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[item.ID] = item
}

func (f *fakeRemote) setDown(down bool) {
	f.mu.Lock()
	f.down = down
	f.mu.Unlock()
}

func (f *fakeRemote) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeRemote) List(ctx context.Context) ([]domain.MediaItem, error) {
	if err := f.enter(); err != nil {
		return nil, err
	}
	defer f.mu.Unlock()
	out := make([]domain.MediaItem, 0, len(f.items))
	for _, item := range f.items {
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRemote) Get(ctx context.Context, id string) (domain.MediaItem, error) {
	if err := f.enter(); err != nil {
		return domain.MediaItem{}, err
	}
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.MediaItem{}, &mediaclient.APIError{Status: 404, Message: "Media not found"}
	}
	return item, nil
}

func (f *fakeRemote) Create(ctx context.Context, item domain.MediaItem, file *mediaclient.File, progress mediaclient.ProgressFunc) (domain.MediaItem, error) {
	if err := f.enter(); err != nil {
		return domain.MediaItem{}, err
	}
	defer f.mu.Unlock()
	f.seq++
	item.ID = fmt.Sprintf("remote-%d", f.seq)
	item.CreatedAt = f.now
	item.UpdatedAt = f.now
	if file != nil {
		data, _ := io.ReadAll(file.Reader)
		f.uploads = append(f.uploads, file.Name+":"+string(data))
		item.SourceURL = "http://localhost:4000/uploads/" + file.Name
	}
	if item.SourceURL == "" {
		return domain.MediaItem{}, &mediaclient.APIError{Status: 400, Message: "sourceUrl is required"}
	}
	f.items[item.ID] = item
	if progress != nil {
		progress(100)
	}
	return item, nil
}

func (f *fakeRemote) Update(ctx context.Context, id string, patch domain.MediaPatch, file *mediaclient.File, progress mediaclient.ProgressFunc) (domain.MediaItem, error) {
	if err := f.enter(); err != nil {
		return domain.MediaItem{}, err
	}
	defer f.mu.Unlock()
	item, ok := f.items[id]
	if !ok {
		return domain.MediaItem{}, &mediaclient.APIError{Status: 404, Message: "Media not found"}
	}
	item = patch.Apply(item)
	item.UpdatedAt = f.now
	f.items[id] = item
	return item, nil
}

func (f *fakeRemote) Delete(ctx context.Context, id string) error {
	if err := f.enter(); err != nil {
		return err
	}
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return &mediaclient.APIError{Status: 404, Message: "Media not found"}
	}
	delete(f.items, id)
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

type fixture struct {
	remote  *fakeRemote
	local   *content.Store
	clock   *clock
	svc     *Service
	storage *kv.MemoryStorage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := &clock{now: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	storage := kv.NewMemoryStorage()
	local := content.Open(storage, content.Options{Logger: logger, Now: c.Now})
	remote := newFakeRemote()
	svc := New(remote, local, Config{Logger: logger, Storage: storage, FailureThreshold: 100})
	return &fixture{remote: remote, local: local, clock: c, svc: svc, storage: storage}
}

func TestListPrefersRemote(t *testing.T) {
	f := newFixture(t)
	f.remote.put(domain.MediaItem{ID: "r1", Title: "remote"})

	res, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Source != SourceRemote || len(res.Value) != 1 || res.RemoteErr != nil {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestListFallsBackWhenRemoteDown(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)

	res, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.Source != SourceLocal || !errors.Is(res.RemoteErr, errRefused) {
		t.Fatalf("expected local fallback, got %+v", res)
	}
	if len(res.Value) != 12 {
		t.Fatalf("expected seeded local media, got %d", len(res.Value))
	}
}

func TestGetServesLocalOnlyItemsWhileRemoteUp(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Get(context.Background(), "seed-0")
	if err != nil {
		t.Fatalf("get seed-0: %v", err)
	}
	if res.Source != SourceLocal || res.Value.ID != "seed-0" {
		t.Fatalf("expected local seed item, got %+v", res)
	}
	var apiErr *mediaclient.APIError
	if !errors.As(res.RemoteErr, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected remote 404 recorded, got %v", res.RemoteErr)
	}

	_, err = f.svc.Get(context.Background(), "missing")
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected remote 404 when both miss, got %v", err)
	}
}

func TestGetFindsPendingCreateAfterRecovery(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	created, err := f.svc.Create(context.Background(), domain.MediaItem{
		UserID: "u1", Title: "Queued", SourceURL: "https://cdn/q.mp4", MediaType: domain.MediaVideo, CreatorName: "Lexi",
	}, nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.remote.setDown(false)

	res, err := f.svc.Get(context.Background(), created.Value.ID)
	if err != nil || res.Source != SourceLocal || res.Value.Title != "Queued" {
		t.Fatalf("expected pending item served locally, got %+v %v", res, err)
	}
}

func TestClientErrorsOnWritesDoNotFallBack(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Delete(context.Background(), "seed-0")
	var apiErr *mediaclient.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 404 {
		t.Fatalf("expected remote 404 surfaced, got %v", err)
	}
	if _, ok := f.local.GetMediaByID("seed-0"); !ok {
		t.Fatalf("local item should be untouched")
	}
	if len(f.svc.Pending()) != 0 {
		t.Fatalf("nothing should be journalled")
	}
}

func TestRemoteCreateIsMirroredFirst(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Create(context.Background(), domain.MediaItem{
		UserID: "u1", Title: "Fresh", SourceURL: "https://cdn/f.mp4", MediaType: domain.MediaVideo,
		UploadedAt: "2026-03-01T00:00:00Z",
	}, nil, nil)
	if err != nil || res.Source != SourceRemote {
		t.Fatalf("create: %+v %v", res, err)
	}
	f.remote.setDown(true)
	list, err := f.svc.List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if list.Value[0].ID != res.Value.ID {
		t.Fatalf("expected mirrored create first, got %s", list.Value[0].ID)
	}
}

func TestReconciledCreateKeepsCommentsAndFeatured(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	res, err := f.svc.Create(context.Background(), domain.MediaItem{
		UserID: "u1", Title: "Offline", SourceURL: "https://cdn/o.mp4", MediaType: domain.MediaVideo, CreatorName: "Lexi",
	}, nil, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	localID := res.Value.ID
	f.local.AddComment(domain.Comment{MediaID: localID, UserID: "u2", UserName: "Fan", Text: "first"})
	f.local.UpdateSiteSettings(domain.SettingsPatch{FeaturedMediaID: &localID})

	f.remote.setDown(false)
	if _, err := f.svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if got := f.local.GetComments("remote-1"); len(got) != 1 || got[0].Text != "first" {
		t.Fatalf("expected comment moved to remote id, got %+v", got)
	}
	if got := f.local.GetComments(localID); len(got) != 0 {
		t.Fatalf("expected no comments left on local id, got %d", len(got))
	}
	featured := f.local.GetSiteSettings().FeaturedMediaID
	if featured == nil || *featured != "remote-1" {
		t.Fatalf("expected featured id rekeyed, got %v", featured)
	}
}

func TestGetFallbackNotFound(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	res, err := f.svc.Get(context.Background(), "seed-1")
	if err != nil || res.Source != SourceLocal || res.Value.ID != "seed-1" {
		t.Fatalf("unexpected local get: %+v %v", res, err)
	}
	if _, err := f.svc.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCanceledContextDoesNotFallBack(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.List(ctx); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}

func TestCreateDuringOutageIsReconciled(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)

	var progress []int
	res, err := f.svc.Create(context.Background(), domain.MediaItem{
		UserID:      "u1",
		Title:       "Offline clip",
		SourceURL:   "https://cdn/clip.mp4",
		MediaType:   domain.MediaVideo,
		CreatorName: "Lexi",
	}, nil, func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if res.Source != SourceLocal || res.Value.ID == "" {
		t.Fatalf("unexpected create result %+v", res)
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("expected completion progress, got %v", progress)
	}
	localID := res.Value.ID
	if pending := f.svc.Pending(); len(pending) != 1 || pending[0].Op != OpCreate {
		t.Fatalf("expected pending create, got %+v", pending)
	}

	f.remote.setDown(false)
	report, err := f.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Pushed != 1 || report.Failed != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if _, ok := f.local.GetMediaByID(localID); ok {
		t.Fatalf("expected local placeholder replaced by remote item")
	}
	if _, ok := f.local.GetMediaByID("remote-1"); !ok {
		t.Fatalf("expected remote item mirrored locally")
	}
	if len(f.svc.Pending()) != 0 {
		t.Fatalf("expected journal drained")
	}
}

func TestCreateFromPathUploadsOnReconcile(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	path := filepath.Join(t.TempDir(), "holiday clip.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	res, err := f.svc.Create(context.Background(), domain.MediaItem{Title: "From disk", MediaType: domain.MediaVideo}, &File{Path: path}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(res.Value.SourceURL, fileScheme) || res.Value.FileName != "holiday clip.mp4" {
		t.Fatalf("expected file handle recorded, got %+v", res.Value)
	}

	f.remote.setDown(false)
	if _, err := f.svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(f.remote.uploads) != 1 || f.remote.uploads[0] != "holiday clip.mp4:frames" {
		t.Fatalf("expected file uploaded on reconcile, got %v", f.remote.uploads)
	}
}

func TestBlobOnlyCreateIsDroppedWhenRejected(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	res, err := f.svc.Create(context.Background(), domain.MediaItem{Title: "memory only", MediaType: domain.MediaVideo},
		&File{Name: "clip.mp4", Reader: strings.NewReader("x")}, nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !res.Value.IsEphemeral() {
		t.Fatalf("expected blob handle, got %q", res.Value.SourceURL)
	}

	// Simulate a restart: the blob handle is gone once persisted.
	f.local.ImportMedia(nil)
	f.remote.setDown(false)
	reopened := content.Open(f.storage.Reopen(), content.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	svc := New(f.remote, reopened, Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Storage: f.storage.Reopen()})
	report, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Dropped != 1 || len(svc.Pending()) != 0 {
		t.Fatalf("expected rejected create dropped, got %+v", report)
	}
}

func TestUpdateConflictLastWriteWins(t *testing.T) {
	cases := []struct {
		name       string
		remoteAt   time.Time
		wantTitle  string
		wantRemote string
	}{
		{name: "remote newer", remoteAt: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC), wantTitle: "remote edit", wantRemote: "remote edit"},
		{name: "local newer", remoteAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC), wantTitle: "local edit", wantRemote: "local edit"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			base := domain.MediaItem{ID: "r1", Title: "original", SourceURL: "https://cdn/a.mp4", MediaType: domain.MediaVideo,
				UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
			f.remote.put(base)
			f.local.ImportMedia([]domain.MediaItem{base})

			f.remote.setDown(true)
			f.clock.Set(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC))
			title := "local edit"
			res, err := f.svc.Update(context.Background(), "r1", domain.MediaPatch{Title: &title}, nil, nil)
			if err != nil || res.Source != SourceLocal {
				t.Fatalf("update: %+v %v", res, err)
			}

			remoteEdit := base
			remoteEdit.Title = "remote edit"
			remoteEdit.UpdatedAt = tc.remoteAt
			f.remote.put(remoteEdit)
			f.remote.now = time.Date(2026, 2, 4, 0, 0, 0, 0, time.UTC)
			f.remote.setDown(false)

			if _, err := f.svc.Reconcile(context.Background()); err != nil {
				t.Fatalf("reconcile: %v", err)
			}
			got, _ := f.local.GetMediaByID("r1")
			if got.Title != tc.wantTitle {
				t.Fatalf("expected local title %q, got %q", tc.wantTitle, got.Title)
			}
			if f.remote.items["r1"].Title != tc.wantRemote {
				t.Fatalf("expected remote title %q, got %q", tc.wantRemote, f.remote.items["r1"].Title)
			}
		})
	}
}

func TestDeleteDuringOutageIsReplayed(t *testing.T) {
	f := newFixture(t)
	item := domain.MediaItem{ID: "r1", Title: "doomed", SourceURL: "https://cdn/a.mp4"}
	f.remote.put(item)
	f.local.ImportMedia([]domain.MediaItem{item})

	f.remote.setDown(true)
	res, err := f.svc.Delete(context.Background(), "r1")
	if err != nil || res.Source != SourceLocal {
		t.Fatalf("delete: %+v %v", res, err)
	}
	if _, err := f.svc.Delete(context.Background(), "r1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected second local delete not found, got %v", err)
	}

	f.remote.setDown(false)
	if _, err := f.svc.Reconcile(context.Background()); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if _, ok := f.remote.items["r1"]; ok {
		t.Fatalf("expected remote delete replayed")
	}
	if _, ok := f.local.GetMediaByID("r1"); ok {
		t.Fatalf("expected pull not to resurrect deleted item")
	}
}

func TestCreateThenDeleteCancelsOut(t *testing.T) {
	f := newFixture(t)
	f.remote.setDown(true)
	res, _ := f.svc.Create(context.Background(), domain.MediaItem{Title: "tmp", SourceURL: "https://cdn/x"}, nil, nil)
	if _, err := f.svc.Delete(context.Background(), res.Value.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if pending := f.svc.Pending(); len(pending) != 0 {
		t.Fatalf("expected empty journal, got %+v", pending)
	}
}

func TestReconcilePullsNewerRemoteItems(t *testing.T) {
	f := newFixture(t)
	f.remote.put(domain.MediaItem{ID: "seed-0", Title: "remote seed", UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)})
	f.remote.put(domain.MediaItem{ID: "r9", Title: "remote only"})

	report, err := f.svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if report.Pulled != 2 {
		t.Fatalf("expected 2 pulled, got %+v", report)
	}
	got, _ := f.local.GetMediaByID("seed-0")
	if got.Title != "remote seed" {
		t.Fatalf("expected newer remote seed pulled, got %q", got.Title)
	}
	report, _ = f.svc.Reconcile(context.Background())
	if report.Pulled != 0 {
		t.Fatalf("expected second pass to pull nothing, got %+v", report)
	}
}

func TestBreakerShortCircuitsRemote(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	remote := newFakeRemote()
	remote.setDown(true)
	local := content.Open(kv.NewMemoryStorage(), content.Options{Logger: logger})
	svc := New(remote, local, Config{Logger: logger, FailureThreshold: 2, OpenTimeout: time.Hour})

	for i := 0; i < 5; i++ {
		res, err := svc.List(context.Background())
		if err != nil || res.Source != SourceLocal {
			t.Fatalf("list %d: %+v %v", i, res, err)
		}
	}
	if got := remote.callCount(); got != 2 {
		t.Fatalf("expected breaker to stop remote calls after 2, got %d", got)
	}
	if !svc.BreakerOpen() {
		t.Fatalf("expected breaker open")
	}
	if _, err := svc.Reconcile(context.Background()); !errors.Is(err, ErrRemoteUnavailable) {
		t.Fatalf("expected ErrRemoteUnavailable, got %v", err)
	}
}

func TestJournalSurvivesRestart(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	storage := kv.NewMemoryStorage()
	j := openJournal(storage, logger)
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	j.record("a", OpCreate, at)
	j.record("a", OpUpdate, at.Add(time.Minute))
	j.record("b", OpUpdate, at)
	j.record("b", OpDelete, at.Add(time.Minute))

	reopened := openJournal(storage, logger)
	entries := reopened.snapshot()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	byID := map[string]Entry{}
	for _, e := range entries {
		byID[e.MediaID] = e
	}
	if byID["a"].Op != OpCreate || byID["b"].Op != OpDelete {
		t.Fatalf("unexpected collapsed ops %+v", byID)
	}

	stale := byID["a"]
	reopened.record("a", OpUpdate, at.Add(time.Hour))
	reopened.done(stale)
	if !reopened.pending("a") {
		t.Fatalf("expected newer write to survive completion of stale entry")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.svc.Run(ctx, 10*time.Millisecond)
		close(done)
	}()
	time.Sleep(30 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected Run to return after cancel")
	}
}
