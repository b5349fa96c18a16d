package http

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"savings/internal/board"
	"savings/internal/cache"
	"savings/internal/ledger"
	"savings/internal/session"
	"savings/internal/store"
)

// Workspace is the per-session bundle served to one client.
type Workspace struct {
	Session *session.Provider
	Ledger  *ledger.Ledger
	Board   *board.Board
}

func newWorkspace(s store.Store, opts ...ledger.Option) *Workspace {
	ws := &Workspace{
		Session: session.NewProvider(),
		Ledger:  ledger.New(s, opts...),
		Board:   board.New(),
	}
	ws.Session.Subscribe(ws.Ledger.OnSessionChange)
	ws.Session.Subscribe(func(_ context.Context, s session.Session) {
		if !s.Valid() {
			ws.Board.Reset()
			return
		}
		ws.syncBoard()
	})
	return ws
}

// syncBoard mirrors the ledger's expenses onto the board.
func (ws *Workspace) syncBoard() {
	ws.Board.Sync(ws.Ledger.Transactions())
}

// workspaces resolves bearer tokens to sessions and keeps one workspace per
// token. Both lookups are cached; an evicted workspace is rebuilt and reloaded
// on the next request.
type workspaces struct {
	store    store.Store
	tokens   session.TokenStore
	sessions *cache.LRUCache[session.Session]
	active   *cache.LRUCache[*Workspace]
	group    singleflight.Group
	opts     []ledger.Option
}

type workspaceConfig struct {
	MaxWorkspaces int
	SessionTTL    time.Duration
	LookupTTL     time.Duration
	LedgerOptions []ledger.Option
}

func newWorkspaces(s store.Store, tokens session.TokenStore, cfg workspaceConfig) *workspaces {
	if cfg.MaxWorkspaces <= 0 {
		cfg.MaxWorkspaces = 1000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.LookupTTL <= 0 {
		cfg.LookupTTL = time.Minute
	}
	return &workspaces{
		store:    s,
		tokens:   tokens,
		sessions: cache.NewLRUCache[session.Session](cfg.MaxWorkspaces, cfg.LookupTTL),
		active:   cache.NewLRUCache[*Workspace](cfg.MaxWorkspaces, cfg.SessionTTL),
		opts:     cfg.LedgerOptions,
	}
}

// signIn creates a token for a verified session and opens its workspace,
// which loads the ledger.
func (w *workspaces) signIn(ctx context.Context, s session.Session) (session.Session, *Workspace, error) {
	if !s.Valid() {
		return session.Session{}, nil, ledger.ErrNotAuthenticated
	}
	created, err := w.tokens.Create(ctx, s)
	if err != nil {
		return session.Session{}, nil, err
	}
	w.sessions.Set(created.Token, created)
	return created, w.open(ctx, created), nil
}

// resolve returns the session behind token.
func (w *workspaces) resolve(ctx context.Context, token string) (session.Session, error) {
	if s, ok := w.sessions.Get(token); ok {
		return s, nil
	}
	s, err := w.tokens.Get(ctx, token)
	if err != nil {
		return session.Session{}, err
	}
	w.sessions.Set(token, s)
	return s, nil
}

// open returns the workspace for s, creating and loading it on first use.
func (w *workspaces) open(ctx context.Context, s session.Session) *Workspace {
	if ws, ok := w.active.Get(s.Token); ok {
		return ws
	}
	v, _, _ := w.group.Do(s.Token, func() (any, error) {
		if ws, ok := w.active.Get(s.Token); ok {
			return ws, nil
		}
		ws := newWorkspace(w.store, w.opts...)
		ws.Session.Login(ctx, s)
		w.active.Set(s.Token, ws)
		return ws, nil
	})
	return v.(*Workspace)
}

// signOut clears the workspace and forgets the token.
func (w *workspaces) signOut(ctx context.Context, token string) error {
	if ws, ok := w.active.Get(token); ok {
		ws.Session.Logout(ctx)
	}
	w.active.Delete(token)
	w.sessions.Delete(token)
	return w.tokens.Delete(ctx, token)
}

func (w *workspaces) caches() []cache.Cleaner {
	return []cache.Cleaner{w.sessions, w.active}
}
