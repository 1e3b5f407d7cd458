package clients

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// ErrKeypairMissing the keypair file does not exist.
var ErrKeypairMissing = errors.New("keypair file not found")

// Wallet exposes the public address of the acting account.
type Wallet interface {
	PublicKey() solana.PublicKey
}

// Signer is a wallet that can also sign transactions.
type Signer interface {
	Wallet
	SignTransaction(tx *solana.Transaction) error
}

// KeypairWallet signs with a local Solana CLI keypair.
type KeypairWallet struct {
	key solana.PrivateKey
}

// NewKeypairWallet wraps an already loaded private key.
func NewKeypairWallet(key solana.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// LoadKeypairWallet reads a keypair file in solana-keygen JSON format.
func LoadKeypairWallet(path string) (*KeypairWallet, error) {
	path, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrKeypairMissing, "load keypair %s", path)
		}
		return nil, errors.Wrapf(err, "load keypair %s", path)
	}
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "load keypair %s", path)
	}
	return &KeypairWallet{key: key}, nil
}

func (w *KeypairWallet) PublicKey() solana.PublicKey {
	return w.key.PublicKey()
}

// SignTransaction adds the wallet signature to tx.
func (w *KeypairWallet) SignTransaction(tx *solana.Transaction) error {
	pub := w.key.PublicKey()
	_, err := tx.Sign(func(k solana.PublicKey) *solana.PrivateKey {
		if k.Equals(pub) {
			return &w.key
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "sign transaction")
	}
	return nil
}

// WatchWallet is a read-only wallet: it knows an address but cannot sign.
type WatchWallet struct {
	address solana.PublicKey
}

// NewWatchWallet creates a wallet for address.
func NewWatchWallet(address solana.PublicKey) *WatchWallet {
	return &WatchWallet{address: address}
}

func (w *WatchWallet) PublicKey() solana.PublicKey {
	return w.address
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "resolve home dir")
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
