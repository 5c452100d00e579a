package vault

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
)

// sealbox wraps an age x25519 device identity used to keep the vault
// encrypted at rest. The identity lives in a 0600 key file beside the
// vault; it is generated on first use and reused afterwards.
type sealbox struct {
	identity  *age.X25519Identity
	recipient *age.X25519Recipient
}

func openSealbox(keyPath string) (*sealbox, error) {
	raw, err := os.ReadFile(keyPath)
	switch {
	case err == nil:
		identity, err := age.ParseX25519Identity(strings.TrimSpace(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("parse device key: %w", err)
		}
		return &sealbox{identity: identity, recipient: identity.Recipient()}, nil

	case os.IsNotExist(err):
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, fmt.Errorf("generate device key: %w", err)
		}
		if err := os.WriteFile(keyPath, []byte(identity.String()+"\n"), 0o600); err != nil {
			return nil, fmt.Errorf("write device key: %w", err)
		}
		return &sealbox{identity: identity, recipient: identity.Recipient()}, nil

	default:
		return nil, fmt.Errorf("read device key: %w", err)
	}
}

// seal encrypts plaintext to the device recipient.
func (b *sealbox) seal(plaintext []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, b.recipient)
	if err != nil {
		return nil, fmt.Errorf("seal vault: %w", err)
	}
	if _, err := w.Write(plaintext); err != nil {
		return nil, fmt.Errorf("seal vault: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("seal vault: %w", err)
	}
	return buf.Bytes(), nil
}

// open decrypts ciphertext with the device identity.
func (b *sealbox) open(ciphertext []byte) ([]byte, error) {
	r, err := age.Decrypt(bytes.NewReader(ciphertext), b.identity)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	return plain, nil
}
