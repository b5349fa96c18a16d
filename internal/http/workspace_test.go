package http

import (
	"context"
	"testing"

	"savings/internal/session"
	"savings/internal/store/memory"
)

func cardCount(ws *Workspace) int {
	n := 0
	for _, col := range ws.Board.Columns() {
		n += len(col.Cards)
	}
	return n
}

func TestWorkspaceBoardFollowsSession(t *testing.T) {
	ctx := context.Background()
	ws := newWorkspace(memory.New(
		seed("u1", "expense", "80", "Luz", "2024-01-10"),
		seed("u1", "expense", "60", "Internet", "2024-01-11"),
		seed("u1", "income", "900", "Salário", "2024-01-05"),
	))

	ws.Session.Login(ctx, session.Session{UserID: "u1", Authenticated: true})
	if got := cardCount(ws); got != 2 {
		t.Fatalf("expected 2 expense cards after sign in, got %d", got)
	}

	ws.Session.Logout(ctx)
	if got := cardCount(ws); got != 0 {
		t.Fatalf("board kept %d cards after sign out", got)
	}
}
