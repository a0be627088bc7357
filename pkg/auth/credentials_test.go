package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// memoryStore is an in-memory CredentialStore with error injection
type memoryStore struct {
	mu         sync.Mutex
	accounts   map[string]Account
	storeError error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{accounts: make(map[string]Account)}
}

func (m *memoryStore) Store(account *Account) error {
	if m.storeError != nil {
		return m.storeError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[account.Name] = *account
	return nil
}

func (m *memoryStore) Retrieve(name string) (*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	account, ok := m.accounts[name]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

func (m *memoryStore) List() ([]*Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var list []*Account
	for _, account := range m.accounts {
		acc := account
		list = append(list, &acc)
	}
	return list, nil
}

func (m *memoryStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[name]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, name)
	return nil
}

func (m *memoryStore) Exists(name string) bool {
	_, err := m.Retrieve(name)
	return err == nil
}

func TestManagerStoreRetrieveDelete(t *testing.T) {
	store := newMemoryStore()
	manager := NewManagerWithStores(store)

	require.NoError(t, manager.Store(&Account{AccessToken: "vk1.a.token-value-1234"}))

	account, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, DefaultAccount, account.Name)
	assert.False(t, account.LastModified.IsZero())

	token, err := manager.Token("")
	require.NoError(t, err)
	assert.Equal(t, "vk1.a.token-value-1234", token)

	require.NoError(t, manager.Delete(DefaultAccount))
	_, err = manager.Retrieve(DefaultAccount)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Error(t, manager.Delete(DefaultAccount))
}

func TestManagerRequiresToken(t *testing.T) {
	manager := NewManagerWithStores(newMemoryStore())
	assert.Error(t, manager.Store(&Account{Name: "work"}))
	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := newMemoryStore()
	broken.storeError = errors.New("keychain locked")
	fallback := newMemoryStore()
	manager := NewManagerWithStores(broken, fallback)

	require.NoError(t, manager.Store(&Account{Name: "work", AccessToken: "tok"}))
	assert.True(t, fallback.Exists("work"))
	assert.False(t, broken.Exists("work"))
}

func TestManagerTokenPrefersNewest(t *testing.T) {
	store := newMemoryStore()
	store.accounts["old"] = Account{Name: "old", AccessToken: "old-token", LastModified: time.Now().Add(-time.Hour)}
	store.accounts["new"] = Account{Name: "new", AccessToken: "new-token", LastModified: time.Now()}
	manager := NewManagerWithStores(store)

	token, err := manager.Token("")
	require.NoError(t, err)
	assert.Equal(t, "new-token", token)

	token, err = manager.Token("old")
	require.NoError(t, err)
	assert.Equal(t, "old-token", token)

	_, err = NewManagerWithStores(newMemoryStore()).Token("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestSanitizeAccount(t *testing.T) {
	account := &Account{Name: "work", AccessToken: "vk1.a.abcdefghijklmnop"}
	sanitized := SanitizeAccount(account)
	assert.Equal(t, "vk1....mnop", sanitized.AccessToken)
	assert.Equal(t, "work", sanitized.Name)
	assert.Equal(t, "vk1.a.abcdefghijklmnop", account.AccessToken, "original is untouched")
	assert.Equal(t, "********", MaskToken("short"))
	assert.Nil(t, SanitizeAccount(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Name: "work", AccessToken: "secret-token-value"}))
	require.NoError(t, store.Store(&Account{Name: "home", AccessToken: "other-token"}))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "secret-token-value"), "token must not be stored in clear text")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	account, err := reopened.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "secret-token-value", account.AccessToken)

	list, err := reopened.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	require.NoError(t, reopened.Delete("work"))
	require.NoError(t, reopened.Delete("home"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with the last account")
	assert.ErrorIs(t, reopened.Delete("home"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Name: "work", AccessToken: "tok"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("work")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()
	t.Setenv(TokenEnv, "")
	assert.False(t, store.Exists(""))

	t.Setenv(TokenEnv, "env-token")
	t.Setenv(UserIDEnv, "42")
	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", account.AccessToken)
	assert.Equal(t, "42", account.UserID)

	_, err = store.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Account{Name: "work", AccessToken: "tok-1"}))
	require.NoError(t, store.Store(&Account{Name: "home", AccessToken: "tok-2"}))
	require.NoError(t, store.Store(&Account{Name: "work", AccessToken: "tok-3"}))

	list, err := store.List()
	require.NoError(t, err)
	assert.Len(t, list, 2)

	account, err := store.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, "tok-3", account.AccessToken)

	require.NoError(t, store.Delete("work"))
	assert.False(t, store.Exists("work"))
	assert.ErrorIs(t, store.Delete("work"), ErrCredentialsNotFound)

	list, err = store.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestShowTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowTokenGuide(&buf)
	assert.Contains(t, buf.String(), "oauth.vk.com/authorize")

	buf.Reset()
	ShowQuickTokenGuide(&buf)
	assert.Contains(t, buf.String(), "VKGEO_ACCESS_TOKEN")
}
