package vault

import (
	"context"

	"github.com/finchsec/magpie/internal/sops"
)

// Crypter encrypts and decrypts vault files at rest. The production
// implementation delegates to the sops shim; tests substitute a fake.
type Crypter interface {
	Encrypt(ctx context.Context, path string) error
	Decrypt(ctx context.Context, path string) ([]byte, error)
	IsEncrypted(path string) bool
}

// sopsCrypter adapts the sops shim to the Crypter interface, closing
// over the configured key groups.
type sopsCrypter struct {
	shim   *sops.Shim
	groups sops.KeyGroups
}

// NewSopsCrypter returns a Crypter backed by the sops shim.
func NewSopsCrypter(shim *sops.Shim, groups sops.KeyGroups) Crypter {
	return &sopsCrypter{shim: shim, groups: groups}
}

func (c *sopsCrypter) Encrypt(ctx context.Context, path string) error {
	return c.shim.Encrypt(ctx, path, c.groups)
}

func (c *sopsCrypter) Decrypt(ctx context.Context, path string) ([]byte, error) {
	return c.shim.Decrypt(ctx, path)
}

func (c *sopsCrypter) IsEncrypted(path string) bool {
	return c.shim.IsEncrypted(path)
}
