package viewsync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"branchdesk-server/internal/domain"
	"branchdesk-server/internal/service"
)

var (
	ErrUnknownBranch = errors.New("unknown branch")
	ErrUnknownView   = errors.New("unknown view")
	ErrClosed        = errors.New("view sync closed")
)

// ViewHome is the landing view; every collection name is also a view.
const ViewHome = "home"

// DataSource is the part of the data access layer the core reads from.
type DataSource interface {
	Subscribe(ctx context.Context, c domain.Collection, orderField string, onSnapshot func([]domain.Record)) (service.Unsubscribe, error)
	FetchStockList(ctx context.Context) []string
}

// Snapshot is one rendered collection: filtered to the branch, sorted and
// with display state derived.
type Snapshot struct {
	Collection domain.Collection `json:"collection"`
	Branch     string            `json:"branch"`
	Items      []interface{}     `json:"items"`
}

type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Renderer consumes core output. Calls are made with the core's lock held,
// so implementations must not call back into the core.
type Renderer interface {
	Render(snapshot Snapshot)
	SetTheme(theme string)
	SetSession(session Session)
	Catalog(items []string)
	Notify(notice Notice)
}

type Options struct {
	Branches      []string
	DefaultBranch string
	Location      *time.Location
	Now           func() time.Time
}

// Core owns the state of one dashboard: active branch, user name, view,
// live subscriptions and the last snapshot of every collection. All state
// changes and renders are serialised by mu.
type Core struct {
	mu sync.Mutex

	data     DataSource
	identity IdentityProvider
	prefs    Preferences
	renderer Renderer

	branches []string
	loc      *time.Location
	now      func() time.Time

	branch     string
	userName   string
	activeView string
	session    Session

	subscriptions map[domain.Collection]service.Unsubscribe
	cache         map[domain.Collection][]domain.Record
	catalog       []string
	generation    uint64

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

func NewCore(data DataSource, identity IdentityProvider, prefs Preferences, renderer Renderer, opts Options) *Core {
	branches := opts.Branches
	if len(branches) == 0 {
		branches = []string{"centro", "ejemplares"}
	}
	defaultBranch := opts.DefaultBranch
	if defaultBranch == "" {
		defaultBranch = branches[0]
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Core{
		data:          data,
		identity:      identity,
		prefs:         prefs,
		renderer:      renderer,
		branches:      branches,
		loc:           loc,
		now:           now,
		branch:        defaultBranch,
		activeView:    ViewHome,
		session:       Session{State: StateUninitialized},
		subscriptions: make(map[domain.Collection]service.Unsubscribe),
		cache:         make(map[domain.Collection][]domain.Record),
		catalog:       []string{},
	}
}

// Start restores preferences, applies the branch theme and registers for
// identity changes. Subscriptions start once a session is authenticated.
func (c *Core) Start(ctx context.Context) error {
	name, hasName, nameErr := c.prefs.Get(ctx, prefUserName)
	branch, hasBranch, branchErr := c.prefs.Get(ctx, prefBranch)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.ctx != nil {
		c.mu.Unlock()
		return errors.New("view sync already started")
	}
	c.ctx, c.cancel = context.WithCancel(ctx)

	if nameErr == nil && hasName {
		c.userName = name
	}
	if branchErr == nil && hasBranch && c.knownBranch(branch) {
		c.branch = branch
	}

	c.renderer.SetTheme(c.branch)
	c.renderer.SetSession(c.session)
	c.mu.Unlock()

	c.identity.OnAuthStateChange(c.onAuthState)
	return nil
}

func (c *Core) onAuthState(user *User) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}

	switch c.session.State {
	case StateUninitialized:
		if user != nil {
			c.authenticateLocked(user)
			c.mu.Unlock()
			return
		}
		c.session = Session{State: StateAwaitingAuth}
		c.renderer.SetSession(c.session)
		ctx := c.ctx
		c.mu.Unlock()

		c.signIn(ctx)
		return

	case StateAwaitingAuth:
		if user != nil {
			c.authenticateLocked(user)
		}

	case StateAuthenticated:
		if user != nil && user.Token != c.session.Token {
			c.session.Token = user.Token
			c.renderer.SetSession(c.session)
		}
	}
	c.mu.Unlock()
}

func (c *Core) authenticateLocked(user *User) {
	c.session = Session{State: StateAuthenticated, UserID: user.ID, Token: user.Token}
	c.renderer.SetSession(c.session)
	log.Printf("[ViewSync] session %s authenticated on branch %s", user.ID, c.branch)

	c.resubscribeLocked()
	go c.loadCatalog(c.ctx)
}

// SignIn asks the identity provider for an anonymous session. A failure is
// reported to the user and leaves the core degraded until the next attempt.
func (c *Core) SignIn(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.session.State == StateAuthenticated {
		c.mu.Unlock()
		return nil
	}
	if c.session.State == StateUninitialized {
		c.session = Session{State: StateAwaitingAuth}
		c.renderer.SetSession(c.session)
	}
	c.mu.Unlock()

	return c.signIn(ctx)
}

func (c *Core) signIn(ctx context.Context) error {
	err := c.identity.SignInAnonymously(ctx)
	if err == nil {
		return nil
	}

	log.Printf("[ViewSync] anonymous sign-in failed: %v", err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.session.State == StateAuthenticated {
		return err
	}
	c.session.Degraded = true
	c.renderer.SetSession(c.session)
	c.renderer.Notify(Notice{Level: "error", Message: "Could not connect. Check your connection and try again."})
	return err
}

// SetBranch switches the active branch. The choice is persisted and the
// theme follows it; with a live session every subscription is torn down and
// re-established before the call returns.
func (c *Core) SetBranch(ctx context.Context, branch string) error {
	branch = strings.TrimSpace(branch)
	if !c.knownBranch(branch) {
		return fmt.Errorf("%w: %q", ErrUnknownBranch, branch)
	}
	if c.isClosed() {
		return ErrClosed
	}

	if err := c.prefs.Set(ctx, prefBranch, branch); err != nil {
		log.Printf("[ViewSync] could not persist branch %s: %v", branch, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.branch = branch
	c.renderer.SetTheme(branch)

	if c.session.State != StateAuthenticated {
		return nil
	}

	c.resubscribeLocked()
	for _, coll := range domain.Collections {
		if _, ok := c.cache[coll]; ok {
			c.renderLocked(coll)
		}
	}
	return nil
}

func (c *Core) SetUserName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.userName = name
	c.mu.Unlock()

	if err := c.prefs.Set(ctx, prefUserName, name); err != nil {
		log.Printf("[ViewSync] could not persist user name: %v", err)
		return err
	}
	return nil
}

// SetView selects the visible view and re-renders it from cache.
func (c *Core) SetView(view string) error {
	coll, isCollection := domain.ParseCollection(view)
	if view != ViewHome && !isCollection {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.activeView = view
	if _, ok := c.cache[coll]; isCollection && ok {
		c.renderLocked(coll)
	}
	return nil
}

// View returns the current rendered items of c.
func (c *Core) View(coll domain.Collection) []interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Pipeline(coll, c.cache[coll], c.branch, c.now(), c.loc)
}

// Refresh re-renders every cached collection without touching the store.
func (c *Core) Refresh() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	for _, coll := range domain.Collections {
		if _, ok := c.cache[coll]; ok {
			c.renderLocked(coll)
		}
	}
}

func (c *Core) Branch() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.branch
}

func (c *Core) UserName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userName
}

func (c *Core) ActiveView() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeView
}

func (c *Core) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// SubscriptionCount reports the live subscriptions held by the core.
func (c *Core) SubscriptionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subscriptions)
}

// Close disposes every subscription. The core cannot be restarted.
func (c *Core) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	c.closed = true
	c.disposeLocked()
	if c.cancel != nil {
		c.cancel()
	}
}

// resubscribeLocked replaces every subscription. Old disposers run before
// any new subscription is issued, and the generation bump makes callbacks
// still in flight from the old set drop their snapshot.
func (c *Core) resubscribeLocked() {
	c.disposeLocked()
	c.generation++
	gen := c.generation

	for _, coll := range domain.Collections {
		coll := coll
		unsubscribe, err := c.data.Subscribe(c.ctx, coll, domain.FieldCreatedAt, func(records []domain.Record) {
			c.onSnapshot(gen, coll, records)
		})
		if err != nil {
			log.Printf("[ViewSync] failed to subscribe to %s: %v", coll, err)
			continue
		}
		c.subscriptions[coll] = unsubscribe
	}
}

func (c *Core) disposeLocked() {
	for coll, unsubscribe := range c.subscriptions {
		unsubscribe()
		delete(c.subscriptions, coll)
	}
}

func (c *Core) onSnapshot(gen uint64, coll domain.Collection, records []domain.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		return
	}

	c.cache[coll] = records
	c.renderLocked(coll)
}

func (c *Core) renderLocked(coll domain.Collection) {
	c.renderer.Render(Snapshot{
		Collection: coll,
		Branch:     c.branch,
		Items:      Pipeline(coll, c.cache[coll], c.branch, c.now(), c.loc),
	})
}

func (c *Core) loadCatalog(ctx context.Context) {
	items := c.data.FetchStockList(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.catalog = items
	c.renderer.Catalog(items)
}

func (c *Core) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// knownBranch reads only the immutable branch list.
func (c *Core) knownBranch(branch string) bool {
	for _, b := range c.branches {
		if b == branch {
			return true
		}
	}
	return false
}
