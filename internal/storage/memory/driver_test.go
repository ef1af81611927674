package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/zeladoria/portal-gateway/internal/attempt"
	"github.com/zeladoria/portal-gateway/internal/session"
	"github.com/zeladoria/portal-gateway/internal/user"
)

func newTestDriver(t *testing.T) *Driver {
	t.Helper()
	driver := New()
	if err := driver.Initialize(context.Background()); err != nil {
		t.Fatalf("could not initialize the driver: %v", err)
	}
	return driver
}

func testSession(userID string, expires int64) *session.Session {
	return &session.Session{
		UserID: userID,
		User: user.User{
			ID:     userID,
			Name:   "João da Silva",
			Active: true,
			Flags:  user.AccessFlags{Municipe: true},
		},
		AccessToken:          "access-1",
		RefreshToken:         "refresh-1",
		AccessTokenExpiresAt: time.Now().Add(time.Hour).Unix(),
		Expires:              expires,
	}
}

func TestSessionRoundTrip(t *testing.T) {
	driver := newTestDriver(t)
	repo := driver.Sessions()
	ctx := context.Background()

	rawToken, err := repo.Create(ctx, testSession("42", time.Now().Add(time.Hour).Unix()))
	if err != nil {
		t.Fatalf("could not create the session: %v", err)
	}

	ses, err := repo.GetByRawToken(ctx, rawToken)
	if err != nil {
		t.Fatalf("could not retrieve the session: %v", err)
	}
	if ses == nil || ses.UserID != "42" || ses.AccessToken != "access-1" {
		t.Fatalf("unexpected session: %+v", ses)
	}
	if ses.Token != session.HashToken(rawToken) {
		t.Error("the stored token has to be the hash of the raw token")
	}

	// Mutations on the returned copy must not leak into the store before an Update
	ses.AccessToken = "mutated"
	again, _ := repo.GetByRawToken(ctx, rawToken)
	if again.AccessToken != "access-1" {
		t.Error("the repository handed out a shared session instance")
	}

	ses.AccessToken = "access-2"
	if err := repo.Update(ctx, ses); err != nil {
		t.Fatalf("could not update the session: %v", err)
	}
	updated, _ := repo.GetByRawToken(ctx, rawToken)
	if updated.AccessToken != "access-2" {
		t.Errorf("expected the update to be persisted, got %q", updated.AccessToken)
	}
}

func TestSessionTermination(t *testing.T) {
	driver := newTestDriver(t)
	repo := driver.Sessions()
	ctx := context.Background()

	first, _ := repo.Create(ctx, testSession("42", time.Now().Add(time.Hour).Unix()))
	second, _ := repo.Create(ctx, testSession("42", time.Now().Add(time.Hour).Unix()))
	other, _ := repo.Create(ctx, testSession("43", time.Now().Add(time.Hour).Unix()))

	if err := repo.TerminateByToken(ctx, first); err != nil {
		t.Fatalf("could not terminate the session: %v", err)
	}
	if ses, _ := repo.GetByRawToken(ctx, first); ses != nil {
		t.Error("expected the session to be terminated")
	}

	if err := repo.TerminateByUserID(ctx, "42"); err != nil {
		t.Fatalf("could not terminate the user's sessions: %v", err)
	}
	if ses, _ := repo.GetByRawToken(ctx, second); ses != nil {
		t.Error("expected all sessions of the user to be terminated")
	}
	if ses, _ := repo.GetByRawToken(ctx, other); ses == nil {
		t.Error("expected the other user's session to survive")
	}
}

func TestSessionTerminateExpired(t *testing.T) {
	driver := newTestDriver(t)
	repo := driver.Sessions()
	ctx := context.Background()

	expired, _ := repo.Create(ctx, testSession("42", time.Now().Add(-time.Minute).Unix()))
	alive, _ := repo.Create(ctx, testSession("43", time.Now().Add(time.Hour).Unix()))

	n, err := repo.TerminateExpired(ctx)
	if err != nil {
		t.Fatalf("could not terminate expired sessions: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 terminated session, got %d", n)
	}
	if ses, _ := repo.GetByRawToken(ctx, expired); ses != nil {
		t.Error("expected the expired session to be gone")
	}
	if ses, _ := repo.GetByRawToken(ctx, alive); ses == nil {
		t.Error("expected the live session to survive")
	}
}

func TestAttemptPagination(t *testing.T) {
	driver := newTestDriver(t)
	repo := driver.LoginAttempts()
	ctx := context.Background()

	base := time.Now().Unix()
	for i := 0; i < 5; i++ {
		err := repo.Create(ctx, &attempt.Attempt{
			ID:         uuid.New(),
			Identifier: "municipe@exemplo.com",
			Success:    i%2 == 0,
			RemoteAddr: "127.0.0.1:1234",
			CreatedAt:  base + int64(i),
		})
		if err != nil {
			t.Fatalf("could not record the attempt: %v", err)
		}
	}

	attempts, total, err := repo.Get(ctx, 0, 3)
	if err != nil {
		t.Fatalf("could not retrieve the attempts: %v", err)
	}
	if total != 5 {
		t.Errorf("expected a total of 5, got %d", total)
	}
	if len(attempts) != 3 {
		t.Fatalf("expected 3 attempts, got %d", len(attempts))
	}
	if attempts[0].CreatedAt != base+4 {
		t.Errorf("expected newest-first ordering, got first timestamp %d", attempts[0].CreatedAt)
	}

	rest, _, err := repo.Get(ctx, 3, 10)
	if err != nil {
		t.Fatalf("could not retrieve the remaining attempts: %v", err)
	}
	if len(rest) != 2 {
		t.Errorf("expected the remaining 2 attempts, got %d", len(rest))
	}
}
