package auth

import (
	"os"
	"time"
)

// Environment variables read by EnvironmentStore
const (
	TokenEnv  = "VKGEO_ACCESS_TOKEN"
	UserIDEnv = "VKGEO_USER_ID"
)

// EnvironmentStore is a read-only store exposing VKGEO_ACCESS_TOKEN as the
// default account
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment token for the default account
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	token := os.Getenv(TokenEnv)
	if token == "" || (name != "" && name != DefaultAccount) {
		return nil, ErrCredentialsNotFound
	}
	return &Account{
		Name:         DefaultAccount,
		AccessToken:  token,
		UserID:       os.Getenv(UserIDEnv),
		LastModified: time.Time{},
	}, nil
}

// List returns the environment account when the token is set
func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment token is set
func (e *EnvironmentStore) Exists(name string) bool {
	_, err := e.Retrieve(name)
	return err == nil
}
