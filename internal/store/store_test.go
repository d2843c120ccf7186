package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/l11223/kiro-ai-gateway/internal/models"
)

// fakeService is a scriptable remote.Service for store tests.
type fakeService struct {
	accounts []models.Account
	current  *models.Account

	listErr    error
	currentErr error

	addErr     error
	deleteErr  error
	switchErr  error
	reorderErr error
	quotaErr   error
	toggleErr  error
	labelErr   error
	cancelErr  error
	syncErr    error

	reorderedIDs []string
	deletedIDs   []string
	switchedID   string
	labeled      map[string]string
	cancelCalls  int
	syncCalls    int
}

func (f *fakeService) ListAccounts(ctx context.Context) ([]models.Account, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return models.CloneAccounts(f.accounts), nil
}

func (f *fakeService) GetCurrentAccount(ctx context.Context) (*models.Account, error) {
	if f.currentErr != nil {
		return nil, f.currentErr
	}
	if f.current == nil {
		return nil, nil
	}
	current := f.current.Clone()
	return &current, nil
}

func (f *fakeService) AddAccount(ctx context.Context, email, refreshToken string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.accounts = append(f.accounts, models.Account{ID: "new-" + email, Email: email})
	return nil
}

func (f *fakeService) DeleteAccount(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	kept := f.accounts[:0]
	for _, account := range f.accounts {
		if account.ID != id {
			kept = append(kept, account)
		}
	}
	f.accounts = kept
	if f.current != nil && f.current.ID == id {
		f.current = nil
	}
	return nil
}

func (f *fakeService) DeleteAccounts(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if errDelete := f.DeleteAccount(ctx, id); errDelete != nil {
			return errDelete
		}
	}
	return nil
}

func (f *fakeService) SwitchAccount(ctx context.Context, id string) error {
	if f.switchErr != nil {
		return f.switchErr
	}
	f.switchedID = id
	for i := range f.accounts {
		if f.accounts[i].ID == id {
			current := f.accounts[i].Clone()
			f.current = &current
			return nil
		}
	}
	return errors.New("account not found")
}

func (f *fakeService) FetchAccountQuota(ctx context.Context, id string) error { return f.quotaErr }

func (f *fakeService) RefreshAllQuotas(ctx context.Context) (models.RefreshStats, error) {
	if f.quotaErr != nil {
		return models.RefreshStats{}, f.quotaErr
	}
	return models.RefreshStats{Total: len(f.accounts), Refreshed: len(f.accounts)}, nil
}

func (f *fakeService) ReorderAccounts(ctx context.Context, ids []string) error {
	if f.reorderErr != nil {
		return f.reorderErr
	}
	f.reorderedIDs = append([]string(nil), ids...)
	return nil
}

func (f *fakeService) StartOAuthLogin(ctx context.Context) error    { return nil }
func (f *fakeService) CompleteOAuthLogin(ctx context.Context) error { return nil }

func (f *fakeService) CancelOAuthLogin(ctx context.Context) error {
	f.cancelCalls++
	return f.cancelErr
}

func (f *fakeService) ImportV1Accounts(ctx context.Context) (models.ImportResult, error) {
	return models.ImportResult{}, nil
}
func (f *fakeService) ImportFromDB(ctx context.Context) (*models.Account, error) { return nil, nil }
func (f *fakeService) ImportFromCustomDB(ctx context.Context, path string) (*models.Account, error) {
	return nil, nil
}

func (f *fakeService) SyncAccountFromDB(ctx context.Context) (*models.Account, error) {
	f.syncCalls++
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return nil, nil
}

func (f *fakeService) ToggleProxyStatus(ctx context.Context, id string, enable bool, reason string) error {
	return f.toggleErr
}

func (f *fakeService) UpdateAccountLabel(ctx context.Context, id, label string) error {
	if f.labelErr != nil {
		return f.labelErr
	}
	if f.labeled == nil {
		f.labeled = map[string]string{}
	}
	f.labeled[id] = label
	return nil
}

func (f *fakeService) WarmUpAllAccounts(ctx context.Context) (string, error) { return "ok", nil }
func (f *fakeService) WarmUpAccount(ctx context.Context, id string) (string, error) {
	return "ok", nil
}

func (f *fakeService) ExportAccounts(ctx context.Context, ids []string) ([]models.ExportedAccount, error) {
	return nil, nil
}

func testAccounts() []models.Account {
	return []models.Account{
		{ID: "a", Email: "a@example.com", CustomLabel: "primary", Quota: &models.QuotaSnapshot{
			SubscriptionTier: "pro",
			Models:           []models.ModelQuota{{Name: "gemini-3-pro-high", Percentage: 80, ResetTime: "2026-01-01T00:00:00Z"}},
		}},
		{ID: "b", Email: "b@example.com", ProtectedModels: []string{"claude"}},
		{ID: "c", Email: "c@example.com", Disabled: true},
	}
}

func newTestStore(svc *fakeService) *AccountStore {
	return New(svc, nil)
}

func TestRefreshAccountsReplacesCollection(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)

	s.RefreshAccounts(context.Background())

	state := s.Snapshot()
	if state.Loading {
		t.Fatal("loading should clear after refresh")
	}
	if state.Err != "" {
		t.Fatalf("unexpected error state: %q", state.Err)
	}
	if len(state.Accounts) != 3 || state.Accounts[0].ID != "a" {
		t.Fatalf("unexpected accounts: %+v", state.Accounts)
	}
}

func TestRefreshAccountsAbsorbsFailure(t *testing.T) {
	svc := &fakeService{listErr: errors.New("backend unavailable")}
	s := newTestStore(svc)

	s.RefreshAccounts(context.Background())

	state := s.Snapshot()
	if state.Loading {
		t.Fatal("loading should clear after failed refresh")
	}
	if state.Err != "backend unavailable" {
		t.Fatalf("expected failure text in state, got %q", state.Err)
	}
	if len(state.Accounts) != 0 {
		t.Fatalf("collection must stay empty on failure, got %+v", state.Accounts)
	}
}

func TestReorderComputedOrder(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())

	// Requested subset: c then a, with a bogus id that must be dropped.
	// Unmentioned b keeps its relative position after the explicit ones.
	if errReorder := s.ReorderAccounts(context.Background(), []string{"c", "missing", "a"}); errReorder != nil {
		t.Fatalf("reorder: %v", errReorder)
	}

	got := idsOf(s.Accounts())
	want := []string{"c", "a", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected order %v, got %v", want, got)
	}
	if !reflect.DeepEqual(svc.reorderedIDs, []string{"c", "missing", "a"}) {
		t.Fatalf("remote must receive the raw request, got %v", svc.reorderedIDs)
	}
}

func TestReorderRollbackRestoresSnapshot(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())
	before := s.Snapshot().Accounts

	svc.reorderErr = errors.New("reorder rejected")
	errReorder := s.ReorderAccounts(context.Background(), []string{"c", "b", "a"})
	if errReorder == nil {
		t.Fatal("reorder must re-raise the remote failure")
	}

	after := s.Snapshot().Accounts
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("rollback must restore the pre-operation collection\nbefore: %+v\nafter:  %+v", before, after)
	}
}

func TestUpdateLabelPatchesSingleField(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())
	before := s.Snapshot().Accounts

	if errUpdate := s.UpdateAccountLabel(context.Background(), "a", "work"); errUpdate != nil {
		t.Fatalf("update label: %v", errUpdate)
	}

	after := s.Snapshot().Accounts
	for i := range after {
		if after[i].ID != "a" {
			if !reflect.DeepEqual(before[i], after[i]) {
				t.Fatalf("unrelated account %s changed: %+v", after[i].ID, after[i])
			}
			continue
		}
		if after[i].CustomLabel != "work" {
			t.Fatalf("expected patched label, got %q", after[i].CustomLabel)
		}
		patched := after[i]
		patched.CustomLabel = before[i].CustomLabel
		if !reflect.DeepEqual(before[i], patched) {
			t.Fatalf("fields other than the label changed: %+v", after[i])
		}
	}
	if svc.labeled["a"] != "work" {
		t.Fatal("remote label update not invoked")
	}
}

func TestUpdateLabelFailureReRaised(t *testing.T) {
	svc := &fakeService{accounts: testAccounts(), labelErr: errors.New("denied")}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())

	if errUpdate := s.UpdateAccountLabel(context.Background(), "a", "work"); errUpdate == nil {
		t.Fatal("label failure must be returned to the caller")
	}
	if got := s.Accounts()[0].CustomLabel; got != "primary" {
		t.Fatalf("label must stay unchanged on failure, got %q", got)
	}
}

func TestDeleteCurrentAccountRefreshesBoth(t *testing.T) {
	accounts := testAccounts()
	current := accounts[0].Clone()
	svc := &fakeService{accounts: accounts, current: &current}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())
	s.RefreshCurrentAccount(context.Background())

	if errDelete := s.DeleteAccount(context.Background(), "a"); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}

	state := s.Snapshot()
	if state.Loading {
		t.Fatal("loading must clear after both refreshes settle")
	}
	if got := idsOf(state.Accounts); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("expected post-delete list [b c], got %v", got)
	}
	if state.Current != nil {
		t.Fatalf("current must reflect the service's post-delete view, got %+v", state.Current)
	}
}

func TestSwitchFailureLeavesStateUntouched(t *testing.T) {
	accounts := testAccounts()
	current := accounts[0].Clone()
	svc := &fakeService{accounts: accounts, current: &current}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())
	s.RefreshCurrentAccount(context.Background())
	before := s.Snapshot()

	svc.switchErr = errors.New("switch rejected")
	errSwitch := s.SwitchAccount(context.Background(), "b")
	if errSwitch == nil {
		t.Fatal("switch failure must be returned")
	}

	state := s.Snapshot()
	if state.Loading {
		t.Fatal("loading must be false after the operation settles")
	}
	if state.Err != "switch rejected" {
		t.Fatalf("expected failure text in state, got %q", state.Err)
	}
	if !reflect.DeepEqual(before.Accounts, state.Accounts) {
		t.Fatal("accounts must be unchanged on switch failure")
	}
	if !reflect.DeepEqual(before.Current, state.Current) {
		t.Fatal("current must be unchanged on switch failure")
	}
}

func TestSwitchSuccessUpdatesCurrent(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())

	if errSwitch := s.SwitchAccount(context.Background(), "b"); errSwitch != nil {
		t.Fatalf("switch: %v", errSwitch)
	}
	current := s.CurrentAccount()
	if current == nil || current.ID != "b" {
		t.Fatalf("expected current b, got %+v", current)
	}
}

func TestAddAccountRefreshesList(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())

	if errAdd := s.AddAccount(context.Background(), "d@example.com", "token"); errAdd != nil {
		t.Fatalf("add: %v", errAdd)
	}
	if got := len(s.Accounts()); got != 4 {
		t.Fatalf("expected 4 accounts after add, got %d", got)
	}
}

func TestCommandFailureSetsErrorAndReturns(t *testing.T) {
	svc := &fakeService{accounts: testAccounts(), addErr: errors.New("invalid token")}
	s := newTestStore(svc)

	errAdd := s.AddAccount(context.Background(), "d@example.com", "bad")
	if errAdd == nil || errAdd.Error() != "invalid token" {
		t.Fatalf("expected command failure to be re-raised, got %v", errAdd)
	}
	if s.Loading() {
		t.Fatal("loading must be false after failure")
	}
	if s.Err() != "invalid token" {
		t.Fatalf("expected error state, got %q", s.Err())
	}
}

func TestCancelOAuthSwallowsFailure(t *testing.T) {
	svc := &fakeService{cancelErr: errors.New("no pending flow")}
	s := newTestStore(svc)

	s.CancelOAuthLogin(context.Background())

	if svc.cancelCalls != 1 {
		t.Fatalf("expected one cancel call, got %d", svc.cancelCalls)
	}
	if s.Err() != "" {
		t.Fatalf("advisory failure must not reach error state, got %q", s.Err())
	}
}

func TestSyncFromDBSwallowsFailure(t *testing.T) {
	svc := &fakeService{syncErr: errors.New("db locked")}
	s := newTestStore(svc)

	s.SyncAccountFromDB(context.Background())

	if svc.syncCalls != 1 {
		t.Fatalf("expected one sync call, got %d", svc.syncCalls)
	}
	if s.Err() != "" {
		t.Fatalf("advisory failure must not reach error state, got %q", s.Err())
	}
}

func TestToggleProxyStatusReRaises(t *testing.T) {
	svc := &fakeService{toggleErr: errors.New("not allowed")}
	s := newTestStore(svc)

	if errToggle := s.ToggleProxyStatus(context.Background(), "a", false, "manual"); errToggle == nil {
		t.Fatal("toggle failure must be returned")
	}
}

func TestRefreshAllQuotasReturnsStats(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)

	stats, errRefresh := s.RefreshAllQuotas(context.Background())
	if errRefresh != nil {
		t.Fatalf("refresh all quotas: %v", errRefresh)
	}
	if stats.Total != 3 || stats.Refreshed != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if got := len(s.Accounts()); got != 3 {
		t.Fatal("list must be resynchronized after quota refresh")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	svc := &fakeService{accounts: testAccounts()}
	s := newTestStore(svc)
	s.RefreshAccounts(context.Background())

	state := s.Snapshot()
	state.Accounts[0].CustomLabel = "mutated"
	state.Accounts[0].Quota.Models[0].Percentage = 1

	fresh := s.Snapshot()
	if fresh.Accounts[0].CustomLabel != "primary" {
		t.Fatal("snapshot mutation leaked into the store")
	}
	if fresh.Accounts[0].Quota.Models[0].Percentage != 80 {
		t.Fatal("snapshot quota mutation leaked into the store")
	}
}

func idsOf(accounts []models.Account) []string {
	ids := make([]string, len(accounts))
	for i, account := range accounts {
		ids[i] = account.ID
	}
	return ids
}
