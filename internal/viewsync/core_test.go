package viewsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/repository"
	"branchdesk-server/internal/service"
	"branchdesk-server/pkg/sanitize"
)

type recordingRenderer struct {
	mu       sync.Mutex
	latest   map[domain.Collection]Snapshot
	renders  int
	themes   []string
	sessions []Session
	notices  []Notice
	catalog  []string
}

func newRecordingRenderer() *recordingRenderer {
	return &recordingRenderer{latest: make(map[domain.Collection]Snapshot)}
}

func (r *recordingRenderer) Render(snapshot Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.latest[snapshot.Collection] = snapshot
	r.renders++
}

func (r *recordingRenderer) SetTheme(theme string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.themes = append(r.themes, theme)
}

func (r *recordingRenderer) SetSession(session Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = append(r.sessions, session)
}

func (r *recordingRenderer) Catalog(items []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = items
}

func (r *recordingRenderer) Notify(notice Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, notice)
}

func (r *recordingRenderer) snapshot(c domain.Collection) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.latest[c]
	return s, ok
}

type fakeIdentity struct {
	mu        sync.Mutex
	user      *User
	signInErr error
	signIns   int
	listeners []func(*User)
}

func (f *fakeIdentity) OnAuthStateChange(fn func(*User)) {
	f.mu.Lock()
	f.listeners = append(f.listeners, fn)
	user := f.user
	f.mu.Unlock()
	fn(user)
}

func (f *fakeIdentity) SignInAnonymously(ctx context.Context) error {
	f.mu.Lock()
	f.signIns++
	if f.signInErr != nil {
		err := f.signInErr
		f.mu.Unlock()
		return err
	}
	f.user = &User{ID: "anon-test", Token: "token"}
	user := f.user
	listeners := append([]func(*User){}, f.listeners...)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(user)
	}
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type harness struct {
	gateway  *repository.MemoryGateway
	data     *service.DataService
	prefs    *repository.MemoryPreferenceStore
	identity *fakeIdentity
	renderer *recordingRenderer
	clock    *testClock
	core     *Core
}

func newHarness(t *testing.T, user *User) *harness {
	t.Helper()

	h := &harness{
		gateway:  repository.NewMemoryGateway(),
		prefs:    repository.NewMemoryPreferenceStore(),
		identity: &fakeIdentity{user: user},
		renderer: newRecordingRenderer(),
		clock:    &testClock{now: time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)},
	}
	h.data = service.NewDataService(h.gateway, repository.NewMemoryObjectStorage("http://files.test"), "")
	h.data.SetClock(h.clock.Now)
	h.core = h.newCore()
	t.Cleanup(h.core.Close)
	return h
}

func (h *harness) newCore() *Core {
	return NewCore(h.data, h.identity, DevicePreferences(h.prefs, "device-1"), h.renderer, Options{
		Branches:      []string{"centro", "ejemplares"},
		DefaultBranch: "centro",
		Location:      time.UTC,
		Now:           h.clock.Now,
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	waitForWithin(t, what, 2*time.Second, cond)
}

func waitForWithin(t *testing.T, what string, within time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(within)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (h *harness) addTask(t *testing.T, text, branch string) string {
	t.Helper()

	id, err := h.data.Add(context.Background(), domain.CollectionTasks, sanitize.Fields{
		"text":     text,
		"priority": "medium",
		"cycle":    "none",
		"status":   "pending",
		"branch":   branch,
	})
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	return id
}

func TestCore_BootstrapWithExistingUser(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1", Token: "t1"})

	if err := h.core.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if got := h.core.Session().State; got != StateAuthenticated {
		t.Fatalf("State = %q, want authenticated", got)
	}
	if h.identity.signIns != 0 {
		t.Errorf("signIns = %d, want 0", h.identity.signIns)
	}
	if got := h.core.SubscriptionCount(); got != len(domain.Collections) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(domain.Collections))
	}
	waitFor(t, "initial tasks snapshot", func() bool {
		_, ok := h.renderer.snapshot(domain.CollectionTasks)
		return ok
	})
}

func TestCore_BootstrapSignsInAnonymously(t *testing.T) {
	h := newHarness(t, nil)

	h.core.Start(context.Background())

	if h.identity.signIns != 1 {
		t.Errorf("signIns = %d, want 1", h.identity.signIns)
	}

	h.renderer.mu.Lock()
	var states []SessionState
	for _, s := range h.renderer.sessions {
		states = append(states, s.State)
	}
	h.renderer.mu.Unlock()

	want := []SessionState{StateUninitialized, StateAwaitingAuth, StateAuthenticated}
	if len(states) != len(want) {
		t.Fatalf("session states = %v, want %v", states, want)
	}
	for i := range want {
		if states[i] != want[i] {
			t.Errorf("state[%d] = %q, want %q", i, states[i], want[i])
		}
	}
	if got := h.core.Session(); got.UserID != "anon-test" || got.Token != "token" {
		t.Errorf("Session() = %+v", got)
	}
}

func TestCore_SignInFailureDegrades(t *testing.T) {
	h := newHarness(t, nil)
	h.identity.signInErr = errors.New("network unreachable")

	h.core.Start(context.Background())

	session := h.core.Session()
	if session.State != StateAwaitingAuth || !session.Degraded {
		t.Fatalf("Session() = %+v, want degraded awaiting_auth", session)
	}
	if h.core.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", h.core.SubscriptionCount())
	}
	h.renderer.mu.Lock()
	notices := len(h.renderer.notices)
	h.renderer.mu.Unlock()
	if notices != 1 {
		t.Errorf("notices = %d, want 1", notices)
	}

	h.identity.mu.Lock()
	h.identity.signInErr = nil
	h.identity.mu.Unlock()

	if err := h.core.SignIn(context.Background()); err != nil {
		t.Fatalf("SignIn() retry error = %v", err)
	}
	if got := h.core.Session(); got.State != StateAuthenticated || got.Degraded {
		t.Errorf("Session() after retry = %+v", got)
	}
}

func TestCore_BranchSwitchIsExclusive(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	h.addTask(t, "centro task", "centro")
	h.addTask(t, "ejemplares task", "ejemplares")
	h.core.Start(context.Background())

	branches := []string{"ejemplares", "centro", "ejemplares", "ejemplares", "centro", "ejemplares"}
	for _, branch := range branches {
		if err := h.core.SetBranch(context.Background(), branch); err != nil {
			t.Fatalf("SetBranch(%s) error = %v", branch, err)
		}

		for _, c := range domain.Collections {
			if n := h.gateway.SubscriberCount(c); n != 1 {
				t.Errorf("after switch to %s: %d subscriptions on %s, want 1", branch, n, c)
			}
		}
		if n := h.core.SubscriptionCount(); n != len(domain.Collections) {
			t.Errorf("SubscriptionCount() = %d", n)
		}

		for _, item := range h.core.View(domain.CollectionTasks) {
			if got := item.(domain.TaskView).Branch; got != branch {
				t.Errorf("view on %s shows task from %s", branch, got)
			}
		}
	}

	final := branches[len(branches)-1]
	waitFor(t, "tasks render on final branch", func() bool {
		s, ok := h.renderer.snapshot(domain.CollectionTasks)
		return ok && s.Branch == final && len(s.Items) == 1
	})
	s, _ := h.renderer.snapshot(domain.CollectionTasks)
	if got := s.Items[0].(domain.TaskView).Branch; got != final {
		t.Errorf("rendered task from %s on %s", got, final)
	}
}

func TestCore_BranchPreferencesSurviveRestart(t *testing.T) {
	h := newHarness(t, nil)
	h.core.Start(context.Background())

	if err := h.core.SetBranch(context.Background(), "ejemplares"); err != nil {
		t.Fatalf("SetBranch() error = %v", err)
	}
	h.core.SetUserName(context.Background(), "  Ana ")

	if err := h.core.SetBranch(context.Background(), "norte"); !errors.Is(err, ErrUnknownBranch) {
		t.Errorf("SetBranch(norte) error = %v, want ErrUnknownBranch", err)
	}

	h.core.Close()
	restarted := h.newCore()
	defer restarted.Close()
	restarted.Start(context.Background())

	if got := restarted.Branch(); got != "ejemplares" {
		t.Errorf("Branch() after restart = %q, want ejemplares", got)
	}
	if got := restarted.UserName(); got != "Ana" {
		t.Errorf("UserName() after restart = %q, want Ana", got)
	}

	h.renderer.mu.Lock()
	lastTheme := h.renderer.themes[len(h.renderer.themes)-1]
	h.renderer.mu.Unlock()
	if lastTheme != "ejemplares" {
		t.Errorf("theme = %q, want ejemplares", lastTheme)
	}
}

func TestCore_SetBranchBeforeAuthDoesNotSubscribe(t *testing.T) {
	h := newHarness(t, nil)
	h.identity.signInErr = errors.New("offline")
	h.core.Start(context.Background())

	h.core.SetBranch(context.Background(), "ejemplares")

	if n := h.core.SubscriptionCount(); n != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", n)
	}
}

func TestCore_SetView(t *testing.T) {
	h := newHarness(t, nil)
	h.core.Start(context.Background())

	if err := h.core.SetView("deliveries"); err != nil {
		t.Errorf("SetView(deliveries) error = %v", err)
	}
	if got := h.core.ActiveView(); got != "deliveries" {
		t.Errorf("ActiveView() = %q", got)
	}
	if err := h.core.SetView("reports"); !errors.Is(err, ErrUnknownView) {
		t.Errorf("SetView(reports) error = %v, want ErrUnknownView", err)
	}
}

func TestCore_LoadsCatalogAfterAuth(t *testing.T) {
	stock := filepath.Join(t.TempDir(), "stock.json")
	os.WriteFile(stock, []byte(`{"items":["rice","beans"]}`), 0o644)

	h := newHarness(t, &User{ID: "anon-1"})
	h.data = service.NewDataService(h.gateway, repository.NewMemoryObjectStorage(""), stock)
	h.core = h.newCore()
	defer h.core.Close()

	h.core.Start(context.Background())

	waitFor(t, "catalog", func() bool {
		h.renderer.mu.Lock()
		defer h.renderer.mu.Unlock()
		return len(h.renderer.catalog) == 2
	})
}

func TestCore_CloseDisposesSubscriptions(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	h.core.Start(context.Background())

	h.core.Close()

	for _, c := range domain.Collections {
		if n := h.gateway.SubscriberCount(c); n != 0 {
			t.Errorf("%d subscriptions left on %s", n, c)
		}
	}
	if err := h.core.SetBranch(context.Background(), "centro"); !errors.Is(err, ErrClosed) {
		t.Errorf("SetBranch() after Close error = %v, want ErrClosed", err)
	}
}

func TestCore_RecurringTaskRollsOverAtMidnight(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	tasks := service.NewTaskService(h.data, time.UTC)
	ctx := context.Background()
	h.core.Start(ctx)

	id, err := tasks.Create(ctx, &domain.CreateTaskRequest{
		Text:     "Water plants",
		Priority: domain.PriorityHigh,
		Cycle:    domain.CycleDaily,
		Branch:   "centro",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	display := func() domain.TaskStatus {
		s, ok := h.renderer.snapshot(domain.CollectionTasks)
		if !ok || len(s.Items) != 1 {
			return ""
		}
		return s.Items[0].(domain.TaskView).Display
	}

	waitFor(t, "task rendered pending", func() bool { return display() == domain.TaskPending })

	if err := tasks.Complete(ctx, id); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	waitFor(t, "task rendered done", func() bool { return display() == domain.TaskDone })

	s, _ := h.renderer.snapshot(domain.CollectionTasks)
	view := s.Items[0].(domain.TaskView)
	if view.LastDone == nil || !view.LastDone.Equal(h.clock.Now()) {
		t.Errorf("LastDone = %v, want %v", view.LastDone, h.clock.Now())
	}

	h.clock.Advance(24 * time.Hour)
	h.core.Refresh()

	if got := display(); got != domain.TaskPending {
		t.Errorf("Display after rollover = %q, want pending", got)
	}
	s, _ = h.renderer.snapshot(domain.CollectionTasks)
	if got := s.Items[0].(domain.TaskView).Status; got != domain.TaskDone {
		t.Errorf("stored Status after rollover = %q, want done", got)
	}
}

// heldSource records every subscription callback so a test can fire it
// whenever it likes, including after the subscription was disposed.
type heldSource struct {
	mu        sync.Mutex
	callbacks map[domain.Collection][]func([]domain.Record)
}

func newHeldSource() *heldSource {
	return &heldSource{callbacks: make(map[domain.Collection][]func([]domain.Record))}
}

func (s *heldSource) Subscribe(ctx context.Context, c domain.Collection, orderField string, onSnapshot func([]domain.Record)) (service.Unsubscribe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks[c] = append(s.callbacks[c], onSnapshot)
	return func() {}, nil
}

func (s *heldSource) FetchStockList(ctx context.Context) []string {
	return []string{}
}

func (s *heldSource) callback(c domain.Collection, i int) func([]domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callbacks[c][i]
}

func TestCore_StaleGenerationSnapshotIsDropped(t *testing.T) {
	source := newHeldSource()
	renderer := newRecordingRenderer()
	core := NewCore(source, &fakeIdentity{user: &User{ID: "anon-1"}}, DevicePreferences(repository.NewMemoryPreferenceStore(), "device-1"), renderer, Options{
		Branches: []string{"centro", "ejemplares"},
		Location: time.UTC,
	})
	defer core.Close()

	core.Start(context.Background())
	if err := core.SetBranch(context.Background(), "ejemplares"); err != nil {
		t.Fatalf("SetBranch() error = %v", err)
	}

	created := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)
	fresh := []domain.Record{
		&domain.Task{ID: "t2", Text: "fresh", Priority: domain.PriorityLow, Cycle: domain.CycleNone, Status: domain.TaskPending, Branch: "ejemplares", CreatedAt: created},
	}
	stale := []domain.Record{
		&domain.Task{ID: "t1", Text: "stale", Priority: domain.PriorityHigh, Cycle: domain.CycleNone, Status: domain.TaskPending, Branch: "ejemplares", CreatedAt: created},
		&domain.Task{ID: "t3", Text: "centro", Priority: domain.PriorityHigh, Cycle: domain.CycleNone, Status: domain.TaskPending, Branch: "centro", CreatedAt: created},
	}

	source.callback(domain.CollectionTasks, 1)(fresh)
	// the disposed first-generation subscription delivers late
	source.callback(domain.CollectionTasks, 0)(stale)

	view := core.View(domain.CollectionTasks)
	if len(view) != 1 || view[0].(domain.TaskView).Text != "fresh" {
		t.Fatalf("View() = %+v, want only the fresh task", view)
	}
	s, ok := renderer.snapshot(domain.CollectionTasks)
	if !ok || len(s.Items) != 1 || s.Items[0].(domain.TaskView).Text != "fresh" {
		t.Errorf("last render = %+v, want only the fresh task", s)
	}
}

func TestCore_SubscriptionErrorKeepsLastRender(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	h.core.Start(context.Background())
	h.addTask(t, "Count register", "centro")

	waitFor(t, "first task rendered", func() bool {
		s, ok := h.renderer.snapshot(domain.CollectionTasks)
		return ok && len(s.Items) == 1
	})

	h.gateway.FailReads(domain.CollectionTasks, errors.New("permission denied"))
	h.addTask(t, "Sweep", "centro")
	time.Sleep(100 * time.Millisecond)

	if s, _ := h.renderer.snapshot(domain.CollectionTasks); len(s.Items) != 1 {
		t.Errorf("render after failure has %d items, want the last good 1", len(s.Items))
	}
	if n := len(h.core.View(domain.CollectionTasks)); n != 1 {
		t.Errorf("View() after failure has %d items, want 1", n)
	}

	h.gateway.FailReads(domain.CollectionTasks, nil)
	h.addTask(t, "Close till", "centro")

	waitFor(t, "render resumes after recovery", func() bool {
		s, ok := h.renderer.snapshot(domain.CollectionTasks)
		return ok && len(s.Items) == 3
	})
}

// runningClock starts at a chosen instant and advances with real time.
type runningClock struct {
	start time.Time
	began time.Time
}

func (c *runningClock) Now() time.Time {
	return c.start.Add(time.Since(c.began))
}

func TestCore_WatchDayRolloverFlipsAtMidnight(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	clock := &runningClock{
		start: time.Date(2024, 5, 10, 23, 59, 58, 0, time.UTC),
		began: time.Now(),
	}
	h.data.SetClock(clock.Now)
	core := NewCore(h.data, h.identity, DevicePreferences(h.prefs, "device-1"), h.renderer, Options{
		Branches: []string{"centro", "ejemplares"},
		Location: time.UTC,
		Now:      clock.Now,
	})
	defer core.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	core.Start(ctx)

	tasks := service.NewTaskService(h.data, time.UTC)
	id, err := tasks.Create(ctx, &domain.CreateTaskRequest{
		Text:     "Water plants",
		Priority: domain.PriorityHigh,
		Cycle:    domain.CycleDaily,
		Branch:   "centro",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := tasks.Complete(ctx, id); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	display := func() domain.TaskStatus {
		s, ok := h.renderer.snapshot(domain.CollectionTasks)
		if !ok || len(s.Items) != 1 {
			return ""
		}
		return s.Items[0].(domain.TaskView).Display
	}
	waitFor(t, "task rendered done before midnight", func() bool { return display() == domain.TaskDone })

	done := make(chan struct{})
	go func() {
		core.WatchDayRollover(ctx)
		close(done)
	}()

	waitForWithin(t, "rollover to pending", 6*time.Second, func() bool { return display() == domain.TaskPending })

	rec, err := h.data.Get(ctx, domain.CollectionTasks, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := rec.(*domain.Task).Status; got != domain.TaskDone {
		t.Errorf("stored Status = %q, want done with no write", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("WatchDayRollover did not stop on cancel")
	}
}

// blockingPrefs holds every Set until released.
type blockingPrefs struct {
	entered chan struct{}
	release chan struct{}
}

func (p *blockingPrefs) Get(ctx context.Context, key string) (string, bool, error) {
	return "", false, nil
}

func (p *blockingPrefs) Set(ctx context.Context, key, value string) error {
	p.entered <- struct{}{}
	<-p.release
	return nil
}

func TestCore_PreferenceWriteDoesNotBlockRenders(t *testing.T) {
	h := newHarness(t, &User{ID: "anon-1"})
	prefs := &blockingPrefs{entered: make(chan struct{}, 1), release: make(chan struct{})}
	core := NewCore(h.data, h.identity, prefs, h.renderer, Options{
		Branches: []string{"centro", "ejemplares"},
		Location: time.UTC,
		Now:      h.clock.Now,
	})
	defer core.Close()
	core.Start(context.Background())

	switched := make(chan error, 1)
	go func() { switched <- core.SetBranch(context.Background(), "ejemplares") }()
	<-prefs.entered

	rendered := make(chan struct{})
	go func() {
		core.Refresh()
		core.View(domain.CollectionTasks)
		close(rendered)
	}()

	select {
	case <-rendered:
	case <-time.After(time.Second):
		t.Fatal("render blocked behind a preference write")
	}

	close(prefs.release)
	if err := <-switched; err != nil {
		t.Fatalf("SetBranch() error = %v", err)
	}
	if got := core.Branch(); got != "ejemplares" {
		t.Errorf("Branch() = %q, want ejemplares", got)
	}
}
