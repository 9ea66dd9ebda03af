// Package keyfile stores key halves as small JSON documents.
//
// The public key file holds {"n": ..., "e": ...} and the private key file
// {"n": ..., "d": ...}, both with the integers as plain JSON numbers and two
// spaces of indentation.
package keyfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"

	rsatext "github.com/BanPerm/RSA-test-implementation"
	"github.com/BanPerm/RSA-test-implementation/internal/logging"
	"github.com/BanPerm/RSA-test-implementation/keygen"
	"github.com/BanPerm/RSA-test-implementation/utils"
)

// Default file names inside a key directory.
const (
	PublicKeyFile  = "rsa_public"
	PrivateKeyFile = "rsa_secret"
)

// ErrInvalidKeyFile is returned when a key file is not valid JSON or lacks a
// positive integer field.
var ErrInvalidKeyFile = errors.New("invalid key file")

type publicDoc struct {
	N *big.Int `json:"n"`
	E *big.Int `json:"e"`
}

type privateDoc struct {
	N *big.Int `json:"n"`
	D *big.Int `json:"d"`
}

// MarshalPublicKey encodes pub in key file form.
func MarshalPublicKey(pub rsatext.PublicKey) ([]byte, error) {
	if err := checkFields(map[string]*big.Int{"n": pub.N, "e": pub.E}); err != nil {
		return nil, err
	}
	return json.MarshalIndent(publicDoc{N: pub.N, E: pub.E}, "", "  ")
}

// MarshalPrivateKey encodes priv in key file form.
func MarshalPrivateKey(priv rsatext.PrivateKey) ([]byte, error) {
	if err := checkFields(map[string]*big.Int{"n": priv.N, "d": priv.D}); err != nil {
		return nil, err
	}
	return json.MarshalIndent(privateDoc{N: priv.N, D: priv.D}, "", "  ")
}

// UnmarshalPublicKey decodes a public key file.
func UnmarshalPublicKey(data []byte) (rsatext.PublicKey, error) {
	var doc publicDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return rsatext.PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if err := checkFields(map[string]*big.Int{"n": doc.N, "e": doc.E}); err != nil {
		return rsatext.PublicKey{}, err
	}
	return rsatext.PublicKey{E: doc.E, N: doc.N}, nil
}

// UnmarshalPrivateKey decodes a private key file.
func UnmarshalPrivateKey(data []byte) (rsatext.PrivateKey, error) {
	var doc privateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return rsatext.PrivateKey{}, fmt.Errorf("%w: %v", ErrInvalidKeyFile, err)
	}
	if err := checkFields(map[string]*big.Int{"n": doc.N, "d": doc.D}); err != nil {
		return rsatext.PrivateKey{}, err
	}
	return rsatext.PrivateKey{D: doc.D, N: doc.N}, nil
}

func checkFields(fields map[string]*big.Int) error {
	for name, v := range fields {
		if v == nil {
			return fmt.Errorf("%w: missing %q", ErrInvalidKeyFile, name)
		}
		if v.Sign() <= 0 {
			return fmt.Errorf("%w: %q must be positive", ErrInvalidKeyFile, name)
		}
	}
	return nil
}

// SavePublicKey writes pub to path with owner-only permissions.
func SavePublicKey(path string, pub rsatext.PublicKey) error {
	data, err := MarshalPublicKey(pub)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// SavePrivateKey writes priv to path with owner-only permissions.
func SavePrivateKey(path string, priv rsatext.PrivateKey) error {
	data, err := MarshalPrivateKey(priv)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// LoadPublicKey reads a public key file. A missing file yields an error
// matching fs.ErrNotExist.
func LoadPublicKey(path string) (rsatext.PublicKey, error) {
	data, err := readFile(path)
	if err != nil {
		return rsatext.PublicKey{}, err
	}
	pub, err := UnmarshalPublicKey(data)
	if err != nil {
		return rsatext.PublicKey{}, fmt.Errorf("%s: %w", path, err)
	}
	return pub, nil
}

// LoadPrivateKey reads a private key file. A missing file yields an error
// matching fs.ErrNotExist.
func LoadPrivateKey(path string) (rsatext.PrivateKey, error) {
	data, err := readFile(path)
	if err != nil {
		return rsatext.PrivateKey{}, err
	}
	priv, err := UnmarshalPrivateKey(data)
	if err != nil {
		return rsatext.PrivateKey{}, fmt.Errorf("%s: %w", path, err)
	}
	return priv, nil
}

// SaveKeyPair writes both halves of kp into dir.
func SaveKeyPair(dir string, kp *rsatext.KeyPair) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}
	if err := SavePublicKey(filepath.Join(dir, PublicKeyFile), kp.Public()); err != nil {
		return err
	}
	return SavePrivateKey(filepath.Join(dir, PrivateKeyFile), kp.Private())
}

// LoadKeyPair reads both halves from dir. The moduli must agree.
func LoadKeyPair(dir string) (*rsatext.KeyPair, error) {
	pub, err := LoadPublicKey(filepath.Join(dir, PublicKeyFile))
	if err != nil {
		return nil, err
	}
	priv, err := LoadPrivateKey(filepath.Join(dir, PrivateKeyFile))
	if err != nil {
		return nil, err
	}
	if pub.N.Cmp(priv.N) != 0 {
		return nil, fmt.Errorf("%w: public and private moduli differ", ErrInvalidKeyFile)
	}
	return &rsatext.KeyPair{
		PublicExponent:  pub.E,
		PrivateExponent: priv.D,
		Modulus:         pub.N,
	}, nil
}

// LoadOrGenerate returns the key pair stored in dir. If either file is
// missing or unreadable as a key, a new pair with bits-long primes is
// generated and written over both files. generated reports which path was
// taken.
func LoadOrGenerate(dir string, bits int) (kp *rsatext.KeyPair, generated bool, err error) {
	kp, err = LoadKeyPair(dir)
	if err == nil {
		return kp, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, ErrInvalidKeyFile) {
		return nil, false, err
	}
	if errors.Is(err, ErrInvalidKeyFile) {
		logging.Warnf("replacing unusable key files in %s: %v", dir, err)
	}

	kp, err = keygen.GenerateKeyPair(bits)
	if err != nil {
		return nil, false, err
	}
	if err := SaveKeyPair(dir, kp); err != nil {
		return nil, false, err
	}
	logging.Infof("generated new key pair in %s (fingerprint %s)", dir, kp.Fingerprint())
	return kp, true, nil
}

func readFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, utils.MaxKeyFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > utils.MaxKeyFileSize {
		return nil, fmt.Errorf("%s: key file larger than %d bytes: %w", path, utils.MaxKeyFileSize, utils.ErrExceedsLimit)
	}
	return data, nil
}

// writeFile replaces path atomically. The temporary file is created 0600,
// and the mode is enforced again in case the file already existed with
// looser permissions.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create key file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set key file permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace key file: %w", err)
	}
	return nil
}
