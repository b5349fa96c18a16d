// Package ledger keeps the signed-in user's transactions in memory, mirrors every
// mutation to a Remote Store and derives balance, summaries and categories.
//
// Nothing is applied locally until the remote call succeeds. Every remote failure
// raises an error notification and returns a *RemoteError; the ledger is left as
// it was before the call. Mutations are serialized so results apply in issue
// order, and results that arrive after a session change are discarded.
package ledger

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"savings/internal/core"
	"savings/internal/log"
	"savings/internal/session"
	"savings/internal/store"
)

type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateLoaded     State = "loaded"
	StateLoadFailed State = "load-failed"
)

const DefaultTimeout = 10 * time.Second

type Option func(*Ledger)

// WithNotifier sets the notifier used when the context carries none.
func WithNotifier(n Notifier) Option {
	return func(l *Ledger) {
		if n != nil {
			l.notifier = n
		}
	}
}

// WithTimeout bounds every remote call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) { l.timeout = d }
}

// WithClock overrides the source of "today" for defaulted dates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.logger = log.NewStructuredLogger(logger) }
}

type Ledger struct {
	store    store.Store
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
	logger   *log.StructuredLogger
	group    singleflight.Group

	// writeMu serializes remote-affecting operations.
	writeMu sync.Mutex

	mu         sync.RWMutex
	txs        []core.Transaction
	state      State
	loading    bool
	session    session.Session
	generation uint64
	categories []string
}

func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		notifier: discard{},
		timeout:  DefaultTimeout,
		now:      time.Now,
		state:    StateIdle,
	}
	for _, o := range opts {
		o(l)
	}
	if l.logger == nil {
		l.logger = log.NewStructuredLogger(log.New(log.DefaultConfig()).WithComponent(log.ComponentLedger))
	}
	return l
}

// OnSessionChange adopts s. Signing out clears the ledger; a different user
// clears it and loads that user's transactions. It matches session.Listener.
func (l *Ledger) OnSessionChange(ctx context.Context, s session.Session) {
	l.mu.Lock()
	prev := l.session
	l.session = s
	switchedUser := !s.Valid() || prev.UserID != s.UserID || !prev.Valid()
	if switchedUser {
		l.resetLocked()
	}
	l.mu.Unlock()

	if switchedUser && s.Valid() {
		// failures are already notified
		_ = l.Load(ctx, s.UserID)
	}
}

// Session returns the session the ledger is bound to.
func (l *Ledger) Session() session.Session {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.session
}

// Load replaces the ledger with userID's transactions, most recent first.
// Concurrent loads for the same user share one remote call.
func (l *Ledger) Load(ctx context.Context, userID string) error {
	s, gen, err := l.current()
	if err != nil {
		return err
	}
	if s.UserID != userID {
		return ErrSessionMismatch
	}
	key := fmt.Sprintf("%s/%d", userID, gen)
	_, err, _ = l.group.Do(key, func() (any, error) {
		return nil, l.load(ctx, userID)
	})
	return err
}

func (l *Ledger) load(ctx context.Context, userID string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	l.mu.Lock()
	s, gen := l.session, l.generation
	if !s.Valid() || s.UserID != userID {
		l.mu.Unlock()
		return ErrSessionChanged
	}
	l.loading = true
	l.state = StateLoading
	l.mu.Unlock()

	rctx, cancel := l.remoteContext(ctx, s)
	rows, err := l.store.List(rctx, s.UserID)
	cancel()

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return ErrSessionChanged
	}
	l.loading = false
	if err != nil {
		l.state = StateLoadFailed
		l.mu.Unlock()
		return l.remoteFailure(ctx, OpLoad, s.UserID, "", err)
	}
	owned := make([]core.Transaction, 0, len(rows))
	for _, t := range rows {
		if t.UserID == s.UserID {
			owned = append(owned, t)
		}
	}
	l.txs = owned
	l.state = StateLoaded
	l.mu.Unlock()

	l.logger.LogLedgerOperation(ctx, OpLoad, s.UserID, "", nil)
	return nil
}

// Add inserts t for the current user. UserID is always the session user, ID is
// assigned by the store and a zero Date defaults to today. The server record is
// prepended without re-sorting.
func (l *Ledger) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	s, gen, err := l.current()
	if err != nil {
		return core.Transaction{}, err
	}
	t.ID = ""
	t.UserID = s.UserID
	if t.Date.IsZero() {
		t.Date = core.DateOf(l.now())
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	rctx, cancel := l.remoteContext(ctx, s)
	created, err := l.store.Insert(rctx, t)
	cancel()

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return core.Transaction{}, ErrSessionChanged
	}
	if err != nil {
		l.mu.Unlock()
		return core.Transaction{}, l.remoteFailure(ctx, OpAdd, s.UserID, "", err)
	}
	l.txs = append([]core.Transaction{created}, l.txs...)
	l.mu.Unlock()

	l.logger.LogLedgerOperation(ctx, OpAdd, s.UserID, created.ID, nil)
	l.notify(ctx, success("transaction added"))
	return created, nil
}

// Update applies p to the transaction id and stores the server's record.
func (l *Ledger) Update(ctx context.Context, id string, p core.Patch) (core.Transaction, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	s, gen, err := l.current()
	if err != nil {
		return core.Transaction{}, err
	}
	if err := p.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if !l.has(id) {
		return core.Transaction{}, ErrUnknownTransaction
	}

	rctx, cancel := l.remoteContext(ctx, s)
	updated, err := l.store.Update(rctx, id, p)
	cancel()

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return core.Transaction{}, ErrSessionChanged
	}
	if err != nil {
		l.mu.Unlock()
		return core.Transaction{}, l.remoteFailure(ctx, OpUpdate, s.UserID, id, err)
	}
	for i := range l.txs {
		if l.txs[i].ID == id {
			l.txs[i] = updated
			break
		}
	}
	l.mu.Unlock()

	l.logger.LogLedgerOperation(ctx, OpUpdate, s.UserID, id, nil)
	l.notify(ctx, success("transaction updated"))
	return updated, nil
}

// Remove deletes the transaction id.
func (l *Ledger) Remove(ctx context.Context, id string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	s, gen, err := l.current()
	if err != nil {
		return err
	}
	if !l.has(id) {
		return ErrUnknownTransaction
	}

	rctx, cancel := l.remoteContext(ctx, s)
	err = l.store.Delete(rctx, id)
	cancel()

	l.mu.Lock()
	if l.generation != gen {
		l.mu.Unlock()
		return ErrSessionChanged
	}
	if err != nil {
		l.mu.Unlock()
		return l.remoteFailure(ctx, OpRemove, s.UserID, id, err)
	}
	for i := range l.txs {
		if l.txs[i].ID == id {
			l.txs = append(l.txs[:i:i], l.txs[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	l.logger.LogLedgerOperation(ctx, OpRemove, s.UserID, id, nil)
	l.notify(ctx, success("transaction removed"))
	return nil
}

// Clear drops every cached transaction and ad-hoc category. In-flight results
// are discarded.
func (l *Ledger) Clear() {
	l.mu.Lock()
	l.resetLocked()
	l.mu.Unlock()
}

func (l *Ledger) resetLocked() {
	l.txs = nil
	l.categories = nil
	l.state = StateIdle
	l.loading = false
	l.generation++
}

// Transactions returns a copy of the ledger in display order.
func (l *Ledger) Transactions() []core.Transaction {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]core.Transaction{}, l.txs...)
}

// Search returns transactions whose description or category contains term,
// ignoring case. An empty term matches everything.
func (l *Ledger) Search(term string) []core.Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := []core.Transaction{}
	for _, t := range l.txs {
		if term == "" ||
			strings.Contains(strings.ToLower(t.Description), term) ||
			strings.Contains(strings.ToLower(t.Category), term) {
			out = append(out, t)
		}
	}
	return out
}

func (l *Ledger) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// Loading reports whether a load is in flight.
func (l *Ledger) Loading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

func (l *Ledger) Balance() decimal.Decimal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.Balance(l.txs)
}

func (l *Ledger) MonthlySummary(year int, month time.Month) core.MonthlySummary {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.Monthly(l.txs, year, month)
}

func (l *Ledger) CategoryBreakdown() []core.CategoryTotal {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return core.Breakdown(l.txs)
}

// Categories is the sorted union of the base vocabulary, the categories in use
// and the ad-hoc ones added this session.
func (l *Ledger) Categories() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	used := make([]string, 0, len(l.txs))
	for _, t := range l.txs {
		used = append(used, t.Category)
	}
	return core.MergeCategories(core.BaseCategories, used, l.categories)
}

// AddCategory offers name in Categories until the session ends.
func (l *Ledger) AddCategory(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.ErrEmptyCategory
	}
	l.mu.Lock()
	l.categories = append(l.categories, name)
	l.mu.Unlock()
	return nil
}

func (l *Ledger) has(id string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.txs {
		if t.ID == id {
			return true
		}
	}
	return false
}

// current returns the bound session and its generation.
func (l *Ledger) current() (session.Session, uint64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.session.Valid() {
		return session.Session{}, 0, ErrNotAuthenticated
	}
	return l.session, l.generation, nil
}

func (l *Ledger) remoteContext(ctx context.Context, s session.Session) (context.Context, context.CancelFunc) {
	ctx = session.ContextWithSession(ctx, s)
	if l.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.timeout)
}

func (l *Ledger) remoteFailure(ctx context.Context, op, userID, id string, err error) error {
	rerr := &RemoteError{Op: op, Err: err}
	l.logger.LogLedgerOperation(ctx, op, userID, id, err)
	l.notify(ctx, failure(op))
	return rerr
}

func (l *Ledger) notify(ctx context.Context, n Notification) {
	notifierFrom(ctx, l.notifier).Notify(ctx, n)
}
