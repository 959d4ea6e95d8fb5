package core

import "context"

type (
	// Account is the identity-provider record created for a portal user.
	Account struct {
		ExternalID string // local entity ID, stored on the provider side
		Name       string
		Username   string
		Email      string
		Password   string
		Role       string
		School     string // tenant code
	}

	// AccountService is any service that can manage hosted identity-provider
	// accounts. Entity creation flows call CreateAccount after the local row
	// exists and compensate with a local delete when it fails; DeleteAccount
	// is best-effort cleanup.
	AccountService interface {
		CreateAccount(ctx context.Context, acc Account) error
		DeleteAccount(ctx context.Context, externalID string) error
	}
)
