package credentials

import (
	"os"
	"strconv"
	"time"

	"chatdump/pkg/discord"
)

// EnvironmentStore implements Store over API_ID, API_HASH and AUTH_FILE.
// It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve builds a credential from the environment
func (e *EnvironmentStore) Retrieve(platform string) (*Credential, error) {
	switch platform {
	case Telegram:
		id, err := strconv.Atoi(os.Getenv("API_ID"))
		hash := os.Getenv("API_HASH")
		if err != nil || id <= 0 || hash == "" {
			return nil, ErrCredentialsNotFound
		}
		return &Credential{Platform: Telegram, APIID: id, APIHash: hash, LastModified: time.Now()}, nil
	case Discord:
		path := os.Getenv("AUTH_FILE")
		if path == "" {
			return nil, ErrCredentialsNotFound
		}
		headers, err := discord.LoadHeaderFile(path)
		if err != nil {
			return nil, err
		}
		return &Credential{Platform: Discord, Headers: headers, LastModified: time.Now()}, nil
	default:
		return nil, ErrInvalidCredentials
	}
}

// List returns the credentials the environment provides
func (e *EnvironmentStore) List() ([]*Credential, error) {
	var creds []*Credential
	for _, platform := range []string{Telegram, Discord} {
		if cred, err := e.Retrieve(platform); err == nil {
			creds = append(creds, cred)
		}
	}
	return creds, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(platform string) error {
	return ErrStoreUnavailable
}

// Exists checks if the environment provides a credential
func (e *EnvironmentStore) Exists(platform string) bool {
	cred, err := e.Retrieve(platform)
	return err == nil && cred != nil
}
