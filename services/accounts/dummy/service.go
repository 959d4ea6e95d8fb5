package dummyaccounts

import (
	"context"
	"sync"

	"github.com/trezcool/shule/core"
)

// Service records account calls in memory for tests.
type Service struct {
	mu       sync.Mutex
	accounts map[string]core.Account

	// FailCreate makes the next CreateAccount calls fail; tests use it to
	// exercise compensation paths.
	FailCreate error
}

var _ core.AccountService = (*Service)(nil)

func NewService() *Service {
	return &Service{accounts: make(map[string]core.Account)}
}

func (svc *Service) CreateAccount(_ context.Context, acct core.Account) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if svc.FailCreate != nil {
		return svc.FailCreate
	}
	svc.accounts[acct.ExternalID] = acct
	return nil
}

func (svc *Service) DeleteAccount(_ context.Context, externalID string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	delete(svc.accounts, externalID)
	return nil
}

// Created returns the accounts currently provisioned.
func (svc *Service) Created() []core.Account {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	out := make([]core.Account, 0, len(svc.accounts))
	for _, a := range svc.accounts {
		out = append(out, a)
	}
	return out
}

// Has reports whether an account exists for the external ID.
func (svc *Service) Has(externalID string) bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	_, ok := svc.accounts[externalID]
	return ok
}
