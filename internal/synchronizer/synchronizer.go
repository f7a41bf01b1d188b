// Package synchronizer owns the local copies of the six entity collections and
// keeps them consistent with the remote store. Every write goes to the store
// first and is followed by a full re-read of the affected collection; pushed
// change notifications replace collections the same way.
package synchronizer

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/usagereg/usagereg/internal/catalog"
	"github.com/usagereg/usagereg/internal/remote"
	"github.com/usagereg/usagereg/internal/shared"
)

// State is a step of the startup sequence.
type State string

const (
	StateIdle           State = "idle"
	StateCheckingConfig State = "checking-config"
	StateConnecting     State = "connecting"
	StateConnected      State = "connected"
	StateDegraded       State = "degraded"
)

// ErrAlreadyStarted is returned by a second call to Start.
var ErrAlreadyStarted = errors.New("synchronizer: already started")

// Confirmer asks the operator a blocking yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool { return f(ctx, prompt) }

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm = ConfirmFunc(func(context.Context, string) bool { return true })

// AccountCreator creates login accounts for new users.
type AccountCreator interface {
	CreateAccount(ctx context.Context, email, password, displayName string, level catalog.Role) error
}

// Recorder receives instrumentation events. A nil Recorder is ignored.
type Recorder interface {
	ObserveWrite(entity catalog.Entity, op string, err error)
	ObserveRefresh(entity catalog.Entity, source string, err error)
	ObservePush(entity catalog.Entity)
	ObserveState(state string)
}

// Options configures a Synchronizer.
type Options struct {
	// Store is the remote store. Nil means no credentials are configured.
	Store    remote.Store
	Seed     catalog.Seed
	Accounts AccountCreator
	Confirm  Confirmer
	Logger   *slog.Logger
	Recorder Recorder
	Now      func() time.Time
	// Display is the zone registration times are shown in.
	Display *time.Location
}

// Synchronizer is the single owner of the local collections. It is created
// once per process and shared by every component that needs entity data.
type Synchronizer struct {
	store    remote.Store
	seed     catalog.Seed
	accounts AccountCreator
	confirm  Confirmer
	logger   *slog.Logger
	recorder Recorder
	now      func() time.Time
	display  *time.Location

	users         collection[catalog.User]
	products      collection[catalog.Product]
	categories    collection[catalog.Category]
	locations     collection[catalog.Location]
	purposes      collection[catalog.Purpose]
	registrations collection[catalog.Registration]

	mu         sync.Mutex
	state      State
	reason     error
	started    bool
	closed     bool
	subCancel  context.CancelFunc
	unsubs     []remote.Unsubscribe
	subWG      sync.WaitGroup
	pushFlight singleflight.Group
}

// New builds a synchronizer in StateIdle with empty collections.
func New(opts Options) *Synchronizer {
	s := &Synchronizer{
		store:    opts.Store,
		seed:     opts.Seed,
		accounts: opts.Accounts,
		confirm:  opts.Confirm,
		logger:   opts.Logger,
		recorder: opts.Recorder,
		now:      opts.Now,
		display:  opts.Display,
		state:    StateIdle,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.confirm == nil {
		s.confirm = AlwaysConfirm
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.display == nil {
		s.display = time.UTC
	}
	return s
}

// State returns the current startup state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// DegradedReason explains why the session runs on seed data, nil otherwise.
func (s *Synchronizer) DegradedReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Subscriptions reports the number of live push subscriptions.
func (s *Synchronizer) Subscriptions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.unsubs)
}

func (s *Synchronizer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.logger.Info("synchronizer state", slog.String("state", string(state)))
	if s.recorder != nil {
		s.recorder.ObserveState(string(state))
	}
}

type startupLoad struct {
	users         []catalog.User
	products      []catalog.Product
	categories    []catalog.Category
	locations     []catalog.Location
	purposes      []catalog.Purpose
	registrations []catalog.Registration
}

// Start runs the startup sequence once: check configuration, probe the store,
// load all collections concurrently and subscribe to changes. Any failure of
// the probe or of the users, products or categories load ends in
// StateDegraded with seed data. Failures of the other three loads are
// tolerated as empty collections.
func (s *Synchronizer) Start(ctx context.Context) (State, error) {
	s.mu.Lock()
	if s.started {
		state := s.state
		s.mu.Unlock()
		return state, ErrAlreadyStarted
	}
	s.started = true
	s.mu.Unlock()

	s.setState(StateCheckingConfig)
	if s.store == nil {
		return s.degrade(shared.ErrNotConfigured), nil
	}

	s.setState(StateConnecting)
	if !s.store.TestConnection(ctx) {
		return s.degrade(shared.E(shared.KindConnectivity, "probe", "", errors.New("connection test failed"))), nil
	}

	var (
		load startupLoad
		g    errgroup.Group
	)
	g.Go(func() error {
		users, err := s.fetchUsers(ctx)
		load.users = users
		return err
	})
	g.Go(func() error {
		products, err := s.store.Products().List(ctx)
		load.products = products
		return err
	})
	g.Go(func() error {
		categories, err := s.store.Categories().List(ctx)
		load.categories = categories
		return err
	})
	g.Go(func() error {
		load.locations = optionalList(ctx, s, catalog.EntityLocations, func(ctx context.Context) ([]catalog.Location, error) {
			return s.store.Locations().List(ctx)
		})
		return nil
	})
	g.Go(func() error {
		load.purposes = optionalList(ctx, s, catalog.EntityPurposes, func(ctx context.Context) ([]catalog.Purpose, error) {
			return s.store.Purposes().List(ctx)
		})
		return nil
	})
	g.Go(func() error {
		load.registrations = optionalList(ctx, s, catalog.EntityRegistrations, func(ctx context.Context) ([]catalog.Registration, error) {
			return s.store.Registrations().List(ctx)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return s.degrade(err), nil
	}

	s.users.reset(load.users)
	s.products.reset(load.products)
	s.categories.reset(load.categories)
	s.locations.reset(load.locations)
	s.purposes.reset(load.purposes)
	s.registrations.reset(load.registrations)
	s.setState(StateConnected)

	s.subscribeAll()
	return StateConnected, nil
}

// optionalList loads a collection whose failure must not degrade the session.
func optionalList[T any](ctx context.Context, s *Synchronizer, entity catalog.Entity, list func(context.Context) ([]T, error)) []T {
	items, err := list(ctx)
	if err != nil {
		s.logger.Warn("optional collection unavailable, using empty list",
			slog.String("entity", string(entity)), slog.Any("error", err))
		return nil
	}
	return items
}

// degrade installs the seed data and ends the startup sequence.
func (s *Synchronizer) degrade(reason error) State {
	seed := s.seed
	s.users.reset(append([]catalog.User(nil), seed.Users...))
	s.products.reset(append([]catalog.Product(nil), seed.Products...))
	s.categories.reset(append([]catalog.Category(nil), seed.Categories...))
	s.locations.reset(append([]catalog.Location(nil), seed.Locations...))
	s.purposes.reset(append([]catalog.Purpose(nil), seed.Purposes...))
	s.registrations.reset(append([]catalog.Registration(nil), seed.Registrations...))

	s.mu.Lock()
	s.reason = reason
	s.mu.Unlock()
	s.logger.Warn("remote store unavailable, running on seed data", slog.Any("error", reason))
	s.setState(StateDegraded)
	return StateDegraded
}

// Close tears down push subscriptions. It is safe to call more than once.
func (s *Synchronizer) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	cancel := s.subCancel
	unsubs := s.unsubs
	s.unsubs = nil
	s.mu.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}
	if cancel != nil {
		cancel()
	}
	s.subWG.Wait()
	return nil
}
