package service

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/gtechsltn/alexa-london-travel-site/internal/testutil"
)

func activeLines(ids ...string) []domain.LineInfo {
	lines := make([]domain.LineInfo, len(ids))
	for i, id := range ids {
		lines[i] = domain.LineInfo{ID: id, Name: id}
	}
	return lines
}

func TestUpdateFavoriteLines_Applied(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central", "district", "victoria")}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central"}})
	etag := user.ETag

	outcome, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"victoria", "district"}, etag)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != UpdateApplied {
		t.Fatalf("Expected UpdateApplied, got %v", outcome)
	}

	// Persisted sorted in ordinal order
	stored := store.Stored(user.ID)
	if !slices.Equal(stored.FavoriteLines, []string{"district", "victoria"}) {
		t.Errorf("Expected sorted lines, got %v", stored.FavoriteLines)
	}

	// In-memory record tracks the new revision
	if user.ETag == etag {
		t.Error("Expected the etag to change after the update")
	}
	if user.ETag != stored.ETag {
		t.Errorf("Expected in-memory etag %s to match stored %s", user.ETag, stored.ETag)
	}
}

func TestUpdateFavoriteLines_MissingETag(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central")}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central"}})

	for _, etag := range []string{"", "   "} {
		_, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"central"}, etag)
		if !errors.Is(err, domain.ErrETagRequired) {
			t.Errorf("Expected ErrETagRequired for etag %q, got %v", etag, err)
		}
	}
	if lines.Calls != 0 {
		t.Errorf("Expected no line validation before the etag check, got %d calls", lines.Calls)
	}
}

func TestUpdateFavoriteLines_UnchangedNotAttempted(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central")}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central", "district"}})

	// Even a stale etag reports "not attempted": the short-circuit happens
	// before any store access.
	outcome, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"central", "district"}, "stale-etag")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != UpdateNotAttempted {
		t.Errorf("Expected UpdateNotAttempted, got %v", outcome)
	}
	if lines.Calls != 0 {
		t.Errorf("Expected no line validation for a no-op update, got %d calls", lines.Calls)
	}
}

func TestUpdateFavoriteLines_ReorderIsAChange(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central", "district")}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central", "district"}})

	// Same multiset, different sequence: counts as a change and normalizes
	// back to sorted order.
	outcome, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"district", "central"}, user.ETag)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != UpdateApplied {
		t.Errorf("Expected UpdateApplied, got %v", outcome)
	}
}

func TestUpdateFavoriteLines_InvalidLine(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central", "district")}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central"}})

	_, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"central", "not-a-real-line"}, user.ETag)
	if !errors.Is(err, domain.ErrInvalidLines) {
		t.Fatalf("Expected ErrInvalidLines, got %v", err)
	}

	stored := store.Stored(user.ID)
	if !slices.Equal(stored.FavoriteLines, []string{"central"}) {
		t.Errorf("Expected stored lines unchanged, got %v", stored.FavoriteLines)
	}
}

func TestUpdateFavoriteLines_LineDataUnavailable(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Err: domain.ErrLineDataUnavailable}
	prefs := NewPreferencesService(store, lines)

	user := store.AddUser(&domain.User{FavoriteLines: []string{"central"}})

	_, err := prefs.UpdateFavoriteLines(context.Background(), user, []string{"district"}, user.ETag)
	if !errors.Is(err, domain.ErrLineDataUnavailable) {
		t.Fatalf("Expected ErrLineDataUnavailable, got %v", err)
	}

	stored := store.Stored(user.ID)
	if !slices.Equal(stored.FavoriteLines, []string{"central"}) {
		t.Errorf("Expected stored lines unchanged, got %v", stored.FavoriteLines)
	}
}

func TestUpdateFavoriteLines_ConflictRoundTrip(t *testing.T) {
	store := testutil.NewMockUserStore()
	lines := &testutil.MockLineService{Lines: activeLines("central", "district", "victoria")}
	prefs := NewPreferencesService(store, lines)

	seeded := store.AddUser(&domain.User{FavoriteLines: []string{"central"}})
	startETag := seeded.ETag

	// Two writers read the same revision.
	first, _ := store.Get(context.Background(), seeded.ID)
	second, _ := store.Get(context.Background(), seeded.ID)

	outcome, err := prefs.UpdateFavoriteLines(context.Background(), first, []string{"district"}, startETag)
	if err != nil || outcome != UpdateApplied {
		t.Fatalf("Expected the first writer to succeed, got outcome %v err %v", outcome, err)
	}

	outcome, err = prefs.UpdateFavoriteLines(context.Background(), second, []string{"victoria"}, startETag)
	if err != nil {
		t.Fatalf("Expected no error for the second writer, got %v", err)
	}
	if outcome != UpdateConflict {
		t.Fatalf("Expected UpdateConflict for the second writer, got %v", outcome)
	}

	// The store reflects exactly the first writer's value.
	stored := store.Stored(seeded.ID)
	if !slices.Equal(stored.FavoriteLines, []string{"district"}) {
		t.Errorf("Expected the first writer's value, got %v", stored.FavoriteLines)
	}
}

func TestLinkLogin(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{
		Logins: []domain.ExternalLogin{{LoginProvider: "google", ProviderKey: "g1"}},
	})

	login := domain.ExternalLogin{LoginProvider: "github", ProviderKey: "gh1", ProviderDisplayName: "GitHub"}
	if err := prefs.LinkLogin(context.Background(), user, login); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := store.Stored(user.ID)
	if len(stored.Logins) != 2 || !stored.HasLogin("github", "gh1") {
		t.Errorf("Expected the login to be persisted, got %v", stored.Logins)
	}

	// Duplicate (provider, key) is rejected before any store access.
	err := prefs.LinkLogin(context.Background(), user, login)
	if !errors.Is(err, domain.ErrLoginAlreadyExists) {
		t.Errorf("Expected ErrLoginAlreadyExists, got %v", err)
	}
}

func TestSyncRoleClaims(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	existing := domain.RoleClaim{ClaimType: "email", Issuer: "google", Value: "a@example.com", ValueType: "string"}
	user := store.AddUser(&domain.User{RoleClaims: []domain.RoleClaim{existing}})
	etag := user.ETag

	// Nothing missing: no write happens.
	if err := prefs.SyncRoleClaims(context.Background(), user, []domain.RoleClaim{existing}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if user.ETag != etag {
		t.Error("Expected no write when all claims are present")
	}

	added := domain.RoleClaim{ClaimType: "name", Issuer: "google", Value: "Alice", ValueType: "string"}
	if err := prefs.SyncRoleClaims(context.Background(), user, []domain.RoleClaim{existing, added}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := store.Stored(user.ID)
	if len(stored.RoleClaims) != 2 || !stored.HasClaim(added) {
		t.Errorf("Expected the new claim to be added, got %v", stored.RoleClaims)
	}
	if !stored.HasClaim(existing) {
		t.Error("Expected existing claims to be retained")
	}
}

func TestRemoveLogin(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{
		Logins: []domain.ExternalLogin{
			{LoginProvider: "google", ProviderKey: "g1"},
			{LoginProvider: "github", ProviderKey: "gh1"},
		},
	})

	if err := prefs.RemoveLogin(context.Background(), user, "google", "g1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	stored := store.Stored(user.ID)
	if len(stored.Logins) != 1 || stored.HasLogin("google", "g1") {
		t.Errorf("Expected the login to be removed, got %v", stored.Logins)
	}

	err := prefs.RemoveLogin(context.Background(), user, "amazon", "a1")
	if !errors.Is(err, domain.ErrLoginNotFound) {
		t.Errorf("Expected ErrLoginNotFound, got %v", err)
	}
}

func TestRemoveAlexaLink(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{AlexaToken: "token123"})

	outcome, err := prefs.RemoveAlexaLink(context.Background(), user, user.ETag)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != UpdateApplied {
		t.Fatalf("Expected UpdateApplied, got %v", outcome)
	}

	stored := store.Stored(user.ID)
	if stored.AlexaToken != "" {
		t.Errorf("Expected the token to be cleared, got %q", stored.AlexaToken)
	}
}

func TestRemoveAlexaLink_Conflict(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{AlexaToken: "token123"})

	outcome, err := prefs.RemoveAlexaLink(context.Background(), user, "stale-etag")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if outcome != UpdateConflict {
		t.Fatalf("Expected UpdateConflict, got %v", outcome)
	}

	stored := store.Stored(user.ID)
	if stored.AlexaToken != "token123" {
		t.Errorf("Expected the token to be retained on conflict, got %q", stored.AlexaToken)
	}
}

func TestRemoveAlexaLink_MissingETag(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{AlexaToken: "token123"})

	_, err := prefs.RemoveAlexaLink(context.Background(), user, "")
	if !errors.Is(err, domain.ErrETagRequired) {
		t.Errorf("Expected ErrETagRequired, got %v", err)
	}
}

func TestDeleteAccount(t *testing.T) {
	store := testutil.NewMockUserStore()
	prefs := NewPreferencesService(store, &testutil.MockLineService{})

	user := store.AddUser(&domain.User{Email: "gone@example.com"})

	if err := prefs.DeleteAccount(context.Background(), user); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if store.Stored(user.ID) != nil {
		t.Error("Expected the document to be deleted")
	}

	// Deleting again reports the missing document.
	err := prefs.DeleteAccount(context.Background(), user)
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
