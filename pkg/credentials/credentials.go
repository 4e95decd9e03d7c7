package credentials

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"chatdump/pkg/config"
)

// Platforms that accept stored credentials
const (
	Telegram = "telegram"
	Discord  = "discord"
)

// Credential is the login material for one platform. Telegram uses the
// application id and hash; Discord uses browser session headers.
type Credential struct {
	Platform     string            `json:"platform"`
	APIID        int               `json:"api_id,omitempty"`
	APIHash      string            `json:"api_hash,omitempty"`
	Headers      map[string]string `json:"headers,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Validate checks that the fields the platform needs are present
func (c *Credential) Validate() error {
	if c == nil {
		return ErrInvalidCredentials
	}
	switch c.Platform {
	case Telegram:
		if c.APIID <= 0 {
			return errors.New("telegram api_id is required")
		}
		if c.APIHash == "" {
			return errors.New("telegram api_hash is required")
		}
	case Discord:
		if len(c.Headers) == 0 {
			return errors.New("discord headers are required")
		}
	default:
		return fmt.Errorf("unknown platform %q", c.Platform)
	}
	return nil
}

// Store is the interface for storing and retrieving credentials
type Store interface {
	// Store saves the credential for its platform
	Store(cred *Credential) error

	// Retrieve gets the credential for a platform
	Retrieve(platform string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a platform
	Delete(platform string) error

	// Exists checks if a credential exists for a platform
	Exists(platform string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []Store
}

// NewManager chains the system keyring, an encrypted file under the XDG
// config directory and the environment
func NewManager() (*Manager, error) {
	var stores []Store

	// Try keyring first (system keychain)
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	path, err := xdg.ConfigFile(config.AppName + "/credentials.enc")
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	// Add environment store as last resort
	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a Manager over explicit stores
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

// Store saves a credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if err := cred.Validate(); err != nil {
		return err
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return errors.New("no available credential stores")
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(platform string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(platform); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for platform: %s", ErrCredentialsNotFound, platform)
}

// List returns the newest credential per platform across all stores
func (m *Manager) List() ([]*Credential, error) {
	byPlatform := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byPlatform[cred.Platform]; !ok || cred.LastModified.After(existing.LastModified) {
				byPlatform[cred.Platform] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byPlatform))
	for _, cred := range byPlatform {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Platform < result[j].Platform })

	return result, nil
}

// Delete removes a platform's credential from all stores
func (m *Manager) Delete(platform string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(platform); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil && !errors.Is(lastErr, ErrCredentialsNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w for platform: %s", ErrCredentialsNotFound, platform)
	}

	return nil
}

// Sanitize creates a copy of the credential with secrets masked
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}

	out := &Credential{
		Platform:     cred.Platform,
		APIID:        cred.APIID,
		APIHash:      maskString(cred.APIHash),
		LastModified: cred.LastModified,
	}
	if cred.APIHash == "" {
		out.APIHash = ""
	}
	if cred.Headers != nil {
		out.Headers = make(map[string]string, len(cred.Headers))
		for k, v := range cred.Headers {
			if isSecretHeader(k) {
				v = maskString(v)
			}
			out.Headers[k] = v
		}
	}
	return out
}

func isSecretHeader(name string) bool {
	switch strings.ToLower(name) {
	case "authorization", "cookie", "x-super-properties":
		return true
	}
	return false
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
