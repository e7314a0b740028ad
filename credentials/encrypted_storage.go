package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	saltLength = 16

	// scrypt parameters per the package's recommended interactive-login cost.
	scryptN = 32768
	scryptR = 8
	scryptP = 1
)

// EncryptedStorage persists the pair encrypted at rest. The file layout is
// salt || nonce || ciphertext, where the key is derived from the passphrase
// with scrypt and the payload is sealed with XChaCha20-Poly1305.
type EncryptedStorage struct {
	path       string
	passphrase []byte
	ttl        time.Duration
	lock       sync.Mutex
}

var _ Storage = (*EncryptedStorage)(nil)

// EncryptedStorageOption modifies an EncryptedStorage.
type EncryptedStorageOption func(*EncryptedStorage)

// WithEncryptedTTL overrides the default seven day expiry.
func WithEncryptedTTL(ttl time.Duration) EncryptedStorageOption {
	return func(es *EncryptedStorage) {
		es.ttl = ttl
	}
}

// NewEncryptedStorage creates an EncryptedStorage writing to path, sealing
// with a key derived from passphrase.
func NewEncryptedStorage(path, passphrase string, options ...EncryptedStorageOption) (*EncryptedStorage, error) {
	if passphrase == "" {
		return nil, errors.New("[NewEncryptedStorage] passphrase is required")
	}
	es := &EncryptedStorage{
		path:       path,
		passphrase: []byte(passphrase),
		ttl:        DefaultTTL,
	}
	for _, opt := range options {
		opt(es)
	}
	return es, nil
}

func (es *EncryptedStorage) Get() (*Pair, error) {
	es.lock.Lock()
	defer es.lock.Unlock()

	data, err := os.ReadFile(es.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[EncryptedStorage.Get] read")
	}
	if len(data) < saltLength+chacha20poly1305.NonceSizeX {
		return nil, errors.New("[EncryptedStorage.Get] file too short")
	}

	salt := data[:saltLength]
	nonce := data[saltLength : saltLength+chacha20poly1305.NonceSizeX]
	ciphertext := data[saltLength+chacha20poly1305.NonceSizeX:]

	aead, err := es.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.Wrap(err, "[EncryptedStorage.Get] decrypt")
	}

	var stored storedPair
	if err := json.Unmarshal(plaintext, &stored); err != nil {
		return nil, errors.Wrap(err, "[EncryptedStorage.Get] unmarshal")
	}
	if NowTimeFunc().Sub(stored.SavedAt) > es.ttl {
		return nil, nil
	}
	return &Pair{AccessToken: stored.AccessToken, RefreshToken: stored.RefreshToken}, nil
}

func (es *EncryptedStorage) Set(pair *Pair) error {
	es.lock.Lock()
	defer es.lock.Unlock()

	plaintext, err := json.Marshal(storedPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		SavedAt:      NowTimeFunc(),
	})
	if err != nil {
		return errors.Wrap(err, "[EncryptedStorage.Set] marshal")
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return errors.Wrap(err, "[EncryptedStorage.Set] salt")
	}
	aead, err := es.aead(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "[EncryptedStorage.Set] nonce")
	}

	data := append(salt, nonce...)
	data = aead.Seal(data, nonce, plaintext, nil)

	if err := os.MkdirAll(filepath.Dir(es.path), 0o700); err != nil {
		return errors.Wrap(err, "[EncryptedStorage.Set] mkdir")
	}
	if err := os.WriteFile(es.path, data, 0o600); err != nil {
		return errors.Wrap(err, "[EncryptedStorage.Set] write")
	}
	return nil
}

func (es *EncryptedStorage) Clear() error {
	es.lock.Lock()
	defer es.lock.Unlock()

	if err := os.Remove(es.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[EncryptedStorage.Clear] remove")
	}
	return nil
}

func (es *EncryptedStorage) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(es.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, errors.Wrap(err, "[EncryptedStorage] derive key")
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, errors.Wrap(err, "[EncryptedStorage] new cipher")
	}
	return aead, nil
}
