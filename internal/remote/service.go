// Package remote defines the boundary to the gateway backend that owns
// OAuth, proxying, and account persistence. The store consumes this surface
// and nothing else; every failure crossing it is plain descriptive text.
package remote

import (
	"context"

	"github.com/l11223/kiro-ai-gateway/internal/models"
)

// Service is the remote account service consumed by the account store.
type Service interface {
	ListAccounts(ctx context.Context) ([]models.Account, error)
	GetCurrentAccount(ctx context.Context) (*models.Account, error)

	AddAccount(ctx context.Context, email, refreshToken string) error
	DeleteAccount(ctx context.Context, id string) error
	DeleteAccounts(ctx context.Context, ids []string) error
	SwitchAccount(ctx context.Context, id string) error

	FetchAccountQuota(ctx context.Context, id string) error
	RefreshAllQuotas(ctx context.Context) (models.RefreshStats, error)

	ReorderAccounts(ctx context.Context, ids []string) error

	StartOAuthLogin(ctx context.Context) error
	CompleteOAuthLogin(ctx context.Context) error
	CancelOAuthLogin(ctx context.Context) error

	ImportV1Accounts(ctx context.Context) (models.ImportResult, error)
	ImportFromDB(ctx context.Context) (*models.Account, error)
	ImportFromCustomDB(ctx context.Context, path string) (*models.Account, error)
	SyncAccountFromDB(ctx context.Context) (*models.Account, error)

	ToggleProxyStatus(ctx context.Context, id string, enable bool, reason string) error
	UpdateAccountLabel(ctx context.Context, id, label string) error

	WarmUpAllAccounts(ctx context.Context) (string, error)
	WarmUpAccount(ctx context.Context, id string) (string, error)

	ExportAccounts(ctx context.Context, ids []string) ([]models.ExportedAccount, error)
}
