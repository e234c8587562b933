// Package keyvault generates custodial wallet keys and seals their private keys at rest.
package keyvault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/stellar/go-stellar-sdk/keypair"
	"golang.org/x/crypto/hkdf"

	"github.com/impactsmiles/smiles-wallet/internal/entities"
)

const (
	keyBytes = 32
	hkdfInfo = "smiles-wallet/private-key-encryption/v1"
)

var ErrEmptyMasterKey = errors.New("master key cannot be empty")

type KeyVault interface {
	GenerateKeyPair() (*keypair.Full, error)
	Encrypt(privateKey, publicKey string) (string, error)
	Decrypt(ciphertext, publicKey string) (*keypair.Full, error)
}

type aesGCMKeyVault struct {
	aead cipher.AEAD
}

var _ KeyVault = (*aesGCMKeyVault)(nil)

// NewKeyVault derives an AES-256-GCM key from the process-wide master key.
func NewKeyVault(masterKey string) (*aesGCMKeyVault, error) {
	if strings.TrimSpace(masterKey) == "" {
		return nil, fmt.Errorf("%w: %w", entities.ErrConfiguration, ErrEmptyMasterKey)
	}

	key := make([]byte, keyBytes)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(masterKey), nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("deriving encryption key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}

	gcmCipher, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating gcm: %w", err)
	}

	return &aesGCMKeyVault{aead: gcmCipher}, nil
}

func (v *aesGCMKeyVault) GenerateKeyPair() (*keypair.Full, error) {
	kp, err := keypair.Random()
	if err != nil {
		return nil, fmt.Errorf("generating random keypair: %w", err)
	}
	return kp, nil
}

// Encrypt seals the private key with the public key as additional data, so a ciphertext only opens for the
// wallet it was created for.
func (v *aesGCMKeyVault) Encrypt(privateKey, publicKey string) (string, error) {
	if privateKey == "" {
		return "", fmt.Errorf("private key cannot be empty")
	}

	nonce := make([]byte, v.aead.NonceSize())
	lenRead, err := rand.Read(nonce)
	if err != nil {
		return "", fmt.Errorf("error while generating random nonce: %w", err)
	}
	if lenRead != v.aead.NonceSize() {
		return "", fmt.Errorf("length of generated nonce %d different from expected length %d", lenRead, v.aead.NonceSize())
	}

	cipheredText := v.aead.Seal(nonce, nonce, []byte(privateKey), []byte(publicKey))
	return base64.StdEncoding.EncodeToString(cipheredText), nil
}

// Decrypt opens a sealed private key and checks it belongs to publicKey. Every failure is ErrDecryptionFailed.
func (v *aesGCMKeyVault) Decrypt(ciphertext, publicKey string) (*keypair.Full, error) {
	decodedMsg, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding ciphertext: %w", entities.ErrDecryptionFailed, err)
	}

	nonceSize := v.aead.NonceSize()
	if len(decodedMsg) < nonceSize {
		return nil, fmt.Errorf("%w: ciphertext shorter than nonce", entities.ErrDecryptionFailed)
	}
	nonce, cipheredText := decodedMsg[:nonceSize], decodedMsg[nonceSize:]

	plainText, err := v.aead.Open(nil, nonce, cipheredText, []byte(publicKey))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", entities.ErrDecryptionFailed, err)
	}

	kp, err := keypair.ParseFull(string(plainText))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing private key: %w", entities.ErrDecryptionFailed, err)
	}
	if kp.Address() != publicKey {
		return nil, fmt.Errorf("%w: private key does not match public key %s", entities.ErrDecryptionFailed, publicKey)
	}

	return kp, nil
}
