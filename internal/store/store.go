// Package store owns the client-side copy of the account collection and the
// in-flight operation state every other component reads. All mutation goes
// through AccountStore; the remote service stays the source of truth and any
// divergence is healed by the next refresh.
package store

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/l11223/kiro-ai-gateway/internal/models"
	"github.com/l11223/kiro-ai-gateway/internal/remote"
)

// QuotaRecorder persists quota snapshots after successful refreshes.
// Recording is best-effort; failures are logged and never surfaced.
type QuotaRecorder interface {
	Record(ctx context.Context, account models.Account) error
}

// State is a point-in-time copy of the store's observable state.
type State struct {
	Accounts []models.Account
	Current  *models.Account
	Loading  bool
	Err      string
}

// AccountStore is the single writer of the account collection.
//
// The mutex guards state reads and writes only; it is never held across a
// remote call, so concurrently issued operations interleave freely and the
// last one to resolve wins. That matches the backend-as-source-of-truth
// contract and is intentionally not a queue.
type AccountStore struct {
	svc      remote.Service
	recorder QuotaRecorder

	mu       sync.Mutex
	accounts []models.Account
	current  *models.Account
	loading  bool
	err      string
}

// New constructs an AccountStore over the given remote service. The recorder
// may be nil to disable quota history.
func New(svc remote.Service, recorder QuotaRecorder) *AccountStore {
	return &AccountStore{svc: svc, recorder: recorder}
}

// Snapshot returns a deep copy of the current state.
func (s *AccountStore) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	state := State{
		Accounts: models.CloneAccounts(s.accounts),
		Loading:  s.loading,
		Err:      s.err,
	}
	if s.current != nil {
		current := s.current.Clone()
		state.Current = &current
	}
	return state
}

// Accounts returns a deep copy of the account collection.
func (s *AccountStore) Accounts() []models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneAccounts(s.accounts)
}

// CurrentAccount returns a copy of the active account, nil when none.
func (s *AccountStore) CurrentAccount() *models.Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	current := s.current.Clone()
	return &current
}

// Loading reports whether an operation is in flight.
func (s *AccountStore) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Err returns the last stored failure description, empty when none.
func (s *AccountStore) Err() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// begin marks an operation start: loading set, error cleared.
func (s *AccountStore) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
}

// finish clears the loading flag, recording the failure text when non-nil.
func (s *AccountStore) finish(err error) {
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = err.Error()
	}
	s.mu.Unlock()
}

// ── Refresh-and-replace operations ──────────────────────────────────

// RefreshAccounts reloads the account list. Failures are absorbed into the
// error state; this operation never reports an error to the caller.
func (s *AccountStore) RefreshAccounts(ctx context.Context) {
	s.begin()
	s.finish(s.fetchAccounts(ctx))
}

// RefreshCurrentAccount reloads the active-account pointer. Failures are
// absorbed into the error state.
func (s *AccountStore) RefreshCurrentAccount(ctx context.Context) {
	s.begin()
	s.finish(s.fetchCurrent(ctx))
}

// fetchAccounts replaces the collection wholesale on success.
func (s *AccountStore) fetchAccounts(ctx context.Context) error {
	accounts, errList := s.svc.ListAccounts(ctx)
	if errList != nil {
		return errList
	}
	s.mu.Lock()
	s.accounts = accounts
	s.mu.Unlock()
	return nil
}

// fetchCurrent replaces the active-account pointer wholesale on success.
func (s *AccountStore) fetchCurrent(ctx context.Context) error {
	current, errGet := s.svc.GetCurrentAccount(ctx)
	if errGet != nil {
		return errGet
	}
	s.mu.Lock()
	s.current = current
	s.mu.Unlock()
	return nil
}

// resync runs the given refreshes concurrently and joins them before the
// caller clears the loading flag. The first failure is returned; state
// fields touched by successful refreshes are already replaced.
func (s *AccountStore) resync(ctx context.Context, refreshes ...func(context.Context) error) error {
	errs := make([]error, len(refreshes))
	var wg sync.WaitGroup
	for i, refresh := range refreshes {
		wg.Add(1)
		go func(i int, refresh func(context.Context) error) {
			defer wg.Done()
			errs[i] = refresh(ctx)
		}(i, refresh)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// ── Command-then-refresh operations ─────────────────────────────────

// command runs a remote command and, on success, the given refreshes.
// Command failures are stored and returned; refresh failures after a
// successful command are absorbed into the error state only.
func (s *AccountStore) command(ctx context.Context, run func(context.Context) error, refreshes ...func(context.Context) error) error {
	s.begin()
	if errRun := run(ctx); errRun != nil {
		s.finish(errRun)
		return errRun
	}
	s.finish(s.resync(ctx, refreshes...))
	return nil
}

// AddAccount registers a new account, then resynchronizes the list.
func (s *AccountStore) AddAccount(ctx context.Context, email, refreshToken string) error {
	return s.command(ctx, func(ctx context.Context) error {
		return s.svc.AddAccount(ctx, email, refreshToken)
	}, s.fetchAccounts)
}

// DeleteAccount removes one account. Both the list and the active-account
// pointer are refreshed, since deleting the active account changes both.
func (s *AccountStore) DeleteAccount(ctx context.Context, id string) error {
	return s.command(ctx, func(ctx context.Context) error {
		return s.svc.DeleteAccount(ctx, id)
	}, s.fetchAccounts, s.fetchCurrent)
}

// DeleteAccounts removes a batch of accounts, refreshing list and current.
func (s *AccountStore) DeleteAccounts(ctx context.Context, ids []string) error {
	return s.command(ctx, func(ctx context.Context) error {
		return s.svc.DeleteAccounts(ctx, ids)
	}, s.fetchAccounts, s.fetchCurrent)
}

// SwitchAccount makes the given account current. The backend touches the
// switched account's last-used stamp, so the list is refreshed alongside
// the pointer.
func (s *AccountStore) SwitchAccount(ctx context.Context, id string) error {
	return s.command(ctx, func(ctx context.Context) error {
		return s.svc.SwitchAccount(ctx, id)
	}, s.fetchCurrent, s.fetchAccounts)
}

// FetchAccountQuota refreshes one account's quota server-side, then
// resynchronizes the list and records the new snapshot.
func (s *AccountStore) FetchAccountQuota(ctx context.Context, id string) error {
	errCmd := s.command(ctx, func(ctx context.Context) error {
		return s.svc.FetchAccountQuota(ctx, id)
	}, s.fetchAccounts)
	if errCmd == nil {
		s.recordQuota(ctx, id)
	}
	return errCmd
}

// RefreshAllQuotas refreshes every quota server-side and returns stats.
func (s *AccountStore) RefreshAllQuotas(ctx context.Context) (models.RefreshStats, error) {
	var stats models.RefreshStats
	errCmd := s.command(ctx, func(ctx context.Context) error {
		var errRefresh error
		stats, errRefresh = s.svc.RefreshAllQuotas(ctx)
		return errRefresh
	}, s.fetchAccounts)
	if errCmd != nil {
		return models.RefreshStats{}, errCmd
	}
	s.recordQuotas(ctx)
	return stats, nil
}

// StartOAuthLogin begins an interactive OAuth flow, then resynchronizes.
func (s *AccountStore) StartOAuthLogin(ctx context.Context) error {
	return s.command(ctx, s.svc.StartOAuthLogin, s.fetchAccounts)
}

// CompleteOAuthLogin finalizes a pending OAuth flow, then resynchronizes.
func (s *AccountStore) CompleteOAuthLogin(ctx context.Context) error {
	return s.command(ctx, s.svc.CompleteOAuthLogin, s.fetchAccounts)
}

// ImportV1Accounts imports accounts from the legacy layout.
func (s *AccountStore) ImportV1Accounts(ctx context.Context) (models.ImportResult, error) {
	var result models.ImportResult
	errCmd := s.command(ctx, func(ctx context.Context) error {
		var errImport error
		result, errImport = s.svc.ImportV1Accounts(ctx)
		return errImport
	}, s.fetchAccounts)
	if errCmd != nil {
		return models.ImportResult{}, errCmd
	}
	return result, nil
}

// ImportFromDB imports the account found in the editor's default database.
func (s *AccountStore) ImportFromDB(ctx context.Context) (*models.Account, error) {
	return s.importAccount(ctx, s.svc.ImportFromDB)
}

// ImportFromCustomDB imports the account found in a database at path.
func (s *AccountStore) ImportFromCustomDB(ctx context.Context, path string) (*models.Account, error) {
	return s.importAccount(ctx, func(ctx context.Context) (*models.Account, error) {
		return s.svc.ImportFromCustomDB(ctx, path)
	})
}

func (s *AccountStore) importAccount(ctx context.Context, run func(context.Context) (*models.Account, error)) (*models.Account, error) {
	var imported *models.Account
	errCmd := s.command(ctx, func(ctx context.Context) error {
		var errImport error
		imported, errImport = run(ctx)
		return errImport
	}, s.fetchAccounts)
	if errCmd != nil {
		return nil, errCmd
	}
	return imported, nil
}

// ── Optimistic operation ────────────────────────────────────────────

// ReorderAccounts applies the requested ordering locally before asking the
// backend to confirm it. The new order is the requested ids (unknown ids
// dropped, order preserved) followed by every unmentioned account in its
// prior relative order. On confirmation failure the pre-operation collection
// is restored exactly and the failure is returned.
func (s *AccountStore) ReorderAccounts(ctx context.Context, ids []string) error {
	s.mu.Lock()
	snapshot := s.accounts
	s.accounts = reorder(s.accounts, ids)
	s.mu.Unlock()

	if errReorder := s.svc.ReorderAccounts(ctx, ids); errReorder != nil {
		s.mu.Lock()
		s.accounts = snapshot
		s.mu.Unlock()
		return errReorder
	}
	return nil
}

// reorder computes the optimistic ordering without mutating its input.
func reorder(accounts []models.Account, ids []string) []models.Account {
	byID := make(map[string]int, len(accounts))
	for i, account := range accounts {
		byID[account.ID] = i
	}

	out := make([]models.Account, 0, len(accounts))
	mentioned := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if i, ok := byID[id]; ok {
			out = append(out, accounts[i])
			mentioned[id] = struct{}{}
		}
	}
	for _, account := range accounts {
		if _, ok := mentioned[account.ID]; !ok {
			out = append(out, account)
		}
	}
	return out
}

// ── Best-effort operations ──────────────────────────────────────────

// CancelOAuthLogin aborts a pending OAuth flow. Failures are logged only;
// cancellation is advisory and must never block the operator.
func (s *AccountStore) CancelOAuthLogin(ctx context.Context) {
	if errCancel := s.svc.CancelOAuthLogin(ctx); errCancel != nil {
		log.WithError(errCancel).Warn("account store: cancel oauth login failed")
	}
}

// SyncAccountFromDB re-reads the external database. Failures are logged
// only; a successful sync resynchronizes the list.
func (s *AccountStore) SyncAccountFromDB(ctx context.Context) {
	if _, errSync := s.svc.SyncAccountFromDB(ctx); errSync != nil {
		log.WithError(errSync).Warn("account store: sync from external db failed")
		return
	}
	if errFetch := s.fetchAccounts(ctx); errFetch != nil {
		log.WithError(errFetch).Warn("account store: refresh after sync failed")
	}
}

// ToggleProxyStatus flips an account's proxy participation. The failure is
// logged and returned; no local state changes until the next refresh.
func (s *AccountStore) ToggleProxyStatus(ctx context.Context, id string, enable bool, reason string) error {
	if errToggle := s.svc.ToggleProxyStatus(ctx, id, enable, reason); errToggle != nil {
		log.WithError(errToggle).WithField("account_id", id).Warn("account store: toggle proxy status failed")
		return errToggle
	}
	return nil
}

// UpdateAccountLabel sets one account's operator label. After remote
// confirmation only the affected account's label is patched locally; a full
// refresh is unnecessary for a single scalar field.
func (s *AccountStore) UpdateAccountLabel(ctx context.Context, id, label string) error {
	if errUpdate := s.svc.UpdateAccountLabel(ctx, id, label); errUpdate != nil {
		log.WithError(errUpdate).WithField("account_id", id).Warn("account store: update label failed")
		return errUpdate
	}
	s.mu.Lock()
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			s.accounts[i].CustomLabel = label
			break
		}
	}
	if s.current != nil && s.current.ID == id {
		s.current.CustomLabel = label
	}
	s.mu.Unlock()
	return nil
}

// ── Pass-through operations ─────────────────────────────────────────

// WarmUpAllAccounts triggers model warmup for every eligible account and
// returns the backend's textual result.
func (s *AccountStore) WarmUpAllAccounts(ctx context.Context) (string, error) {
	return s.svc.WarmUpAllAccounts(ctx)
}

// WarmUpAccount triggers model warmup for one account.
func (s *AccountStore) WarmUpAccount(ctx context.Context, id string) (string, error) {
	return s.svc.WarmUpAccount(ctx, id)
}

// ExportAccounts returns email/refresh-token pairs for backup.
func (s *AccountStore) ExportAccounts(ctx context.Context, ids []string) ([]models.ExportedAccount, error) {
	return s.svc.ExportAccounts(ctx, ids)
}

// ── Quota history recording ─────────────────────────────────────────

// recordQuota records the refreshed snapshot of one account, best-effort.
func (s *AccountStore) recordQuota(ctx context.Context, id string) {
	if s.recorder == nil {
		return
	}
	s.mu.Lock()
	var found *models.Account
	for i := range s.accounts {
		if s.accounts[i].ID == id {
			account := s.accounts[i].Clone()
			found = &account
			break
		}
	}
	s.mu.Unlock()
	if found == nil || found.Quota == nil {
		return
	}
	if errRecord := s.recorder.Record(ctx, *found); errRecord != nil {
		log.WithError(errRecord).WithField("account_id", id).Warn("account store: record quota history failed")
	}
}

// recordQuotas records every account that carries a snapshot, best-effort.
func (s *AccountStore) recordQuotas(ctx context.Context) {
	if s.recorder == nil {
		return
	}
	for _, account := range s.Accounts() {
		if account.Quota == nil {
			continue
		}
		if errRecord := s.recorder.Record(ctx, account); errRecord != nil {
			log.WithError(errRecord).WithField("account_id", account.ID).Warn("account store: record quota history failed")
		}
	}
}
