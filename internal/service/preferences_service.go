package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
	"github.com/rs/zerolog/log"
)

// UpdateOutcome is the terminal state of an etag-guarded update.
type UpdateOutcome int

const (
	// UpdateApplied means the new value was persisted.
	UpdateApplied UpdateOutcome = iota
	// UpdateNotAttempted means the requested value equaled the stored value
	// and no write was made. Distinct from success.
	UpdateNotAttempted
	// UpdateConflict means the supplied etag no longer matched the stored
	// revision. The caller must re-fetch and resubmit; nothing is retried.
	UpdateConflict
)

// PreferencesService applies favorite-line updates, external-login changes
// and account deletion against the user document store. Writes racing on the
// same etag are serialized by the store's conditional replace: exactly one
// succeeds, the rest observe a conflict.
type PreferencesService struct {
	store domain.UserStore
	lines domain.LineService
}

// NewPreferencesService creates a new PreferencesService
func NewPreferencesService(store domain.UserStore, lines domain.LineService) *PreferencesService {
	return &PreferencesService{store: store, lines: lines}
}

// UpdateFavoriteLines validates and persists a new favorite-line list using
// the caller-supplied etag, which asserts the revision the caller believes
// is current. The list is sorted ordinally before persisting. A request
// identical to the stored sequence performs no write and no line validation.
func (s *PreferencesService) UpdateFavoriteLines(ctx context.Context, user *domain.User, lines []string, etag string) (UpdateOutcome, error) {
	if strings.TrimSpace(etag) == "" {
		return 0, domain.ErrETagRequired
	}

	// Do not bother updating the preferences if they are the same.
	if slices.Equal(lines, user.FavoriteLines) {
		return UpdateNotAttempted, nil
	}

	if err := s.validateLines(ctx, lines); err != nil {
		return 0, err
	}

	normalized := make([]string, len(lines))
	copy(normalized, lines)
	sort.Strings(normalized)

	updated := *user
	updated.FavoriteLines = normalized

	replaced, err := s.store.Replace(ctx, &updated, etag)
	if err != nil {
		return 0, err
	}
	if replaced == nil {
		log.Warn().Str("user_id", user.ID).Str("etag", etag).Msg("Favorite line update rejected by write conflict")
		return UpdateConflict, nil
	}

	user.FavoriteLines = replaced.FavoriteLines
	user.ETag = replaced.ETag

	log.Info().Str("user_id", user.ID).Msg("Updated line preferences")
	return UpdateApplied, nil
}

// LinkLogin adds an external login to the user. The write uses the record's
// own last-read etag (last write wins); a duplicate (provider, key) pair is
// rejected before any store access.
func (s *PreferencesService) LinkLogin(ctx context.Context, user *domain.User, login domain.ExternalLogin) error {
	if user.HasLogin(login.LoginProvider, login.ProviderKey) {
		return domain.ErrLoginAlreadyExists
	}

	updated := *user
	updated.Logins = append(slices.Clone(user.Logins), login)

	if err := s.replaceOwn(ctx, user, &updated); err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID).Str("provider", login.LoginProvider).Msg("Added external login")
	return nil
}

// SyncRoleClaims adds any claim not already held, matching by the exact
// 4-tuple. Claims are never removed here; stale claims only disappear with
// the account. A failure does not roll back a previously committed login add.
func (s *PreferencesService) SyncRoleClaims(ctx context.Context, user *domain.User, claims []domain.RoleClaim) error {
	missing := make([]domain.RoleClaim, 0, len(claims))
	for _, claim := range claims {
		if !user.HasClaim(claim) && !slices.Contains(missing, claim) {
			missing = append(missing, claim)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	updated := *user
	updated.RoleClaims = append(slices.Clone(user.RoleClaims), missing...)

	if err := s.replaceOwn(ctx, user, &updated); err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID).Int("claims", len(missing)).Msg("Updated user claims")
	return nil
}

// RemoveLogin removes the external login with the exact (provider, key) pair.
func (s *PreferencesService) RemoveLogin(ctx context.Context, user *domain.User, provider, key string) error {
	if !user.HasLogin(provider, key) {
		return domain.ErrLoginNotFound
	}

	updated := *user
	updated.Logins = slices.DeleteFunc(slices.Clone(user.Logins), func(l domain.ExternalLogin) bool {
		return l.LoginProvider == provider && l.ProviderKey == key
	})

	if err := s.replaceOwn(ctx, user, &updated); err != nil {
		return err
	}

	log.Info().Str("user_id", user.ID).Str("provider", provider).Msg("Removed external login")
	return nil
}

// RemoveAlexaLink clears the Alexa access token using the caller-supplied
// etag, with the same optimistic-concurrency semantics as favorite lines.
func (s *PreferencesService) RemoveAlexaLink(ctx context.Context, user *domain.User, etag string) (UpdateOutcome, error) {
	if strings.TrimSpace(etag) == "" {
		return 0, domain.ErrETagRequired
	}

	updated := *user
	updated.AlexaToken = ""

	replaced, err := s.store.Replace(ctx, &updated, etag)
	if err != nil {
		return 0, err
	}
	if replaced == nil {
		log.Warn().Str("user_id", user.ID).Msg("Alexa unlink rejected by write conflict")
		return UpdateConflict, nil
	}

	user.AlexaToken = ""
	user.ETag = replaced.ETag

	log.Info().Str("user_id", user.ID).Msg("Removed Alexa link")
	return UpdateApplied, nil
}

// DeleteAccount removes the user document unconditionally (no etag check).
// The caller is responsible for terminating the user's sessions afterwards.
func (s *PreferencesService) DeleteAccount(ctx context.Context, user *domain.User) error {
	deleted, err := s.store.Delete(ctx, user.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrUserNotFound
	}

	log.Info().Str("user_id", user.ID).Msg("Deleted user account")
	return nil
}

// validateLines cross-checks every requested id against the canonical active
// line set. A failed fetch is a validation-unavailable condition, never an
// implicit pass.
func (s *PreferencesService) validateLines(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}

	active, err := s.lines.GetLines(ctx)
	if err != nil {
		return err
	}

	valid := make(map[string]struct{}, len(active))
	for _, line := range active {
		valid[line.ID] = struct{}{}
	}

	for _, id := range lines {
		if _, ok := valid[id]; !ok {
			return fmt.Errorf("%w: %q", domain.ErrInvalidLines, id)
		}
	}
	return nil
}

// replaceOwn persists a plain update against the record's own last-read
// etag and refreshes the in-memory record on success.
func (s *PreferencesService) replaceOwn(ctx context.Context, user, updated *domain.User) error {
	replaced, err := s.store.Replace(ctx, updated, user.ETag)
	if err != nil {
		return err
	}
	if replaced == nil {
		return domain.ErrWriteConflict
	}
	*user = *replaced
	return nil
}
