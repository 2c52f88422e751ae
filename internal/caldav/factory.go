package caldav

import (
	"fmt"
	"time"

	"github.com/mealsync/server/internal/crypto"
	"github.com/mealsync/server/internal/models"
)

// ClientFactory builds Clients for stored accounts, decrypting the
// credential on the way out.
type ClientFactory interface {
	ClientFor(account *models.CaldavAccount) (Client, error)
}

type clientFactory struct {
	cipher  *crypto.Cipher
	timeout time.Duration
}

// NewClientFactory creates a ClientFactory using the given credential
// cipher and per-request timeout.
func NewClientFactory(cipher *crypto.Cipher, timeout time.Duration) ClientFactory {
	return &clientFactory{cipher: cipher, timeout: timeout}
}

func (f *clientFactory) ClientFor(account *models.CaldavAccount) (Client, error) {
	password, err := f.cipher.Decrypt(account.PasswordEnc)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt stored credential: %w", err)
	}
	return NewClient(account.ServerURL, account.Username, password, f.timeout)
}
