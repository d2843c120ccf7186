package models

import "strings"

// Account represents one managed provider identity.
type Account struct {
	ID    string `json:"id"`    // Opaque stable identifier, unique, never reused.
	Email string `json:"email"` // Display identity.

	CustomLabel string `json:"custom_label,omitempty"` // Operator-assigned free text.

	Disabled          bool `json:"disabled"`           // Excluded from use entirely.
	ProxyDisabled     bool `json:"proxy_disabled"`     // Excluded from proxy rotation only.
	ValidationBlocked bool `json:"validation_blocked"` // Backend rejected the account.

	ProtectedModels []string `json:"protected_models,omitempty"` // Capability names pinned against automatic consumption.

	Quota *QuotaSnapshot `json:"quota,omitempty"` // Last known usage snapshot, nil when never fetched.

	CreatedAt int64 `json:"created_at"` // Unix seconds.
	LastUsed  int64 `json:"last_used"`  // Unix seconds.
}

// QuotaSnapshot is the last known usage snapshot for an account.
type QuotaSnapshot struct {
	SubscriptionTier string       `json:"subscription_tier,omitempty"` // free/pro/ultra classification.
	IsForbidden      bool         `json:"is_forbidden"`                // Quota endpoint returned forbidden.
	Models           []ModelQuota `json:"models"`                      // Display order, not semantic.
}

// ModelQuota is the remaining usage for one capability. An unknown quota is
// represented by the absence of an entry, never by a zero percentage: zero
// means exhausted.
type ModelQuota struct {
	Name       string `json:"name"`                 // Capability identifier, matched case-insensitively.
	Percentage int    `json:"percentage"`           // Remaining fraction, 0-100.
	ResetTime  string `json:"reset_time,omitempty"` // Replenish timestamp, empty if unknown.
}

// PercentageFor returns the percentage for an exact capability name match,
// ignoring case. The second result reports whether an entry was found.
func (q *QuotaSnapshot) PercentageFor(name string) (int, bool) {
	if q == nil {
		return 0, false
	}
	for _, m := range q.Models {
		if strings.EqualFold(m.Name, name) {
			return m.Percentage, true
		}
	}
	return 0, false
}

// PercentageContaining returns the percentage of the first entry whose name
// contains the given fragment, ignoring case.
func (q *QuotaSnapshot) PercentageContaining(fragment string) (int, bool) {
	if q == nil {
		return 0, false
	}
	fragment = strings.ToLower(fragment)
	for _, m := range q.Models {
		if strings.Contains(strings.ToLower(m.Name), fragment) {
			return m.Percentage, true
		}
	}
	return 0, false
}

// Clone returns a deep copy of the account.
func (a Account) Clone() Account {
	out := a
	if a.ProtectedModels != nil {
		out.ProtectedModels = append([]string(nil), a.ProtectedModels...)
	}
	if a.Quota != nil {
		quota := *a.Quota
		quota.Models = append([]ModelQuota(nil), a.Quota.Models...)
		out.Quota = &quota
	}
	return out
}

// CloneAccounts returns a deep copy of an account slice.
func CloneAccounts(accounts []Account) []Account {
	if accounts == nil {
		return nil
	}
	out := make([]Account, len(accounts))
	for i := range accounts {
		out[i] = accounts[i].Clone()
	}
	return out
}

// RefreshStats summarizes a bulk quota refresh.
type RefreshStats struct {
	Total     int `json:"total"`     // Accounts considered.
	Refreshed int `json:"refreshed"` // Snapshots fetched successfully.
	Failed    int `json:"failed"`    // Fetch failures.
	Forbidden int `json:"forbidden"` // Accounts whose quota is inaccessible.
}

// ExportedAccount is one account in a backup export.
type ExportedAccount struct {
	Email        string `json:"email"`
	RefreshToken string `json:"refresh_token"`
}

// ImportResult summarizes a batch import.
type ImportResult struct {
	Imported int      `json:"imported"` // Accounts created.
	Skipped  int      `json:"skipped"`  // Duplicates left untouched.
	Errors   []string `json:"errors,omitempty"`
}
