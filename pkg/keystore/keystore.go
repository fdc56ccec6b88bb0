// Package keystore loads and memoizes the cryptographic key material and
// GPS traces vehicles need: ECDSA P-256 signing and certificate keys,
// Falcon-512 signing and verifying keys, and recorded position traces
// (spec.md §4.7).
//
// The original simulator reloads and re-parses ECDSA keys from disk on
// every single verification call. This implementation instead memoizes
// every key kind per vehicle for the run's lifetime (DESIGN.md, open
// question "key handle ownership"), extending the original's existing
// Falcon-public-key cache to ECDSA, certificate, and Falcon secret keys
// too.
package keystore

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/csv"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/pornin/go-fn-dsa/fndsa"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
	"github.com/twardokus/v2verifier/pkg/bsm"
)

// KeyStore loads and caches key material and traces for vehicles.
type KeyStore interface {
	// ECDSAPrivateKey returns the regular P-256 signing key for vehicle.
	ECDSAPrivateKey(vehicleID int) (*ecdsa.PrivateKey, error)

	// CertPrivateKey returns the certificate's P-256 signing key for
	// vehicle, used to sign the vehicle's embedded certificate.
	CertPrivateKey(vehicleID int) (*ecdsa.PrivateKey, error)

	// FalconSecretKey returns the decoded Falcon-512 signing key for
	// vehicle.
	FalconSecretKey(vehicleID int) ([]byte, error)

	// FalconPublicKey returns the decoded Falcon-512 verifying key for
	// vehicle.
	FalconPublicKey(vehicleID int) ([]byte, error)

	// Trace returns the recorded GPS trace for vehicle.
	Trace(vehicleID int) ([]bsm.TraceSample, error)
}

// FileKeyStore loads key material and traces from a directory tree laid
// out the way the original simulator expects:
//
//	<base>/keys/<n>/p256.key             PEM ECDSA private key
//	<base>/cert_keys/<n>/p256.key        PEM ECDSA private key
//	<base>/falcon_keys/<n>/falcon.key    hex-encoded Falcon secret key
//	<base>/falcon_keys/<n>/falcon.pub    hex-encoded Falcon public key
//	<base>/trace_files/<n>.csv           "lat,lon,elevation" per line
type FileKeyStore struct {
	baseDir string

	mu            sync.Mutex
	ecdsaKeys     map[int]*ecdsa.PrivateKey
	certKeys      map[int]*ecdsa.PrivateKey
	falconSecrets map[int][]byte
	falconPublics map[int][]byte
	traces        map[int][]bsm.TraceSample
}

// NewFileKeyStore creates a KeyStore rooted at baseDir.
func NewFileKeyStore(baseDir string) *FileKeyStore {
	return &FileKeyStore{
		baseDir:       baseDir,
		ecdsaKeys:     make(map[int]*ecdsa.PrivateKey),
		certKeys:      make(map[int]*ecdsa.PrivateKey),
		falconSecrets: make(map[int][]byte),
		falconPublics: make(map[int][]byte),
		traces:        make(map[int][]bsm.TraceSample),
	}
}

func (ks *FileKeyStore) ECDSAPrivateKey(vehicleID int) (*ecdsa.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if key, ok := ks.ecdsaKeys[vehicleID]; ok {
		return key, nil
	}
	path := filepath.Join(ks.baseDir, "keys", strconv.Itoa(vehicleID), "p256.key")
	key, err := loadECDSAKey(path)
	if err != nil {
		return nil, verrors.NewKeyError(vehicleID, "ecdsa", err)
	}
	ks.ecdsaKeys[vehicleID] = key
	return key, nil
}

func (ks *FileKeyStore) CertPrivateKey(vehicleID int) (*ecdsa.PrivateKey, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if key, ok := ks.certKeys[vehicleID]; ok {
		return key, nil
	}
	path := filepath.Join(ks.baseDir, "cert_keys", strconv.Itoa(vehicleID), "p256.key")
	key, err := loadECDSAKey(path)
	if err != nil {
		return nil, verrors.NewKeyError(vehicleID, "cert", err)
	}
	ks.certKeys[vehicleID] = key
	return key, nil
}

func (ks *FileKeyStore) FalconSecretKey(vehicleID int) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if key, ok := ks.falconSecrets[vehicleID]; ok {
		return key, nil
	}
	path := filepath.Join(ks.baseDir, "falcon_keys", strconv.Itoa(vehicleID), "falcon.key")
	key, err := loadFalconKey(path, fndsa.SigningKeySize(constants.FalconLogN))
	if err != nil {
		return nil, verrors.NewKeyError(vehicleID, "falcon-secret", err)
	}
	ks.falconSecrets[vehicleID] = key
	return key, nil
}

func (ks *FileKeyStore) FalconPublicKey(vehicleID int) ([]byte, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if key, ok := ks.falconPublics[vehicleID]; ok {
		return key, nil
	}
	path := filepath.Join(ks.baseDir, "falcon_keys", strconv.Itoa(vehicleID), "falcon.pub")
	key, err := loadFalconKey(path, fndsa.VerifyingKeySize(constants.FalconLogN))
	if err != nil {
		return nil, verrors.NewKeyError(vehicleID, "falcon-public", err)
	}
	ks.falconPublics[vehicleID] = key
	return key, nil
}

func (ks *FileKeyStore) Trace(vehicleID int) ([]bsm.TraceSample, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if trace, ok := ks.traces[vehicleID]; ok {
		return trace, nil
	}
	path := filepath.Join(ks.baseDir, "trace_files", strconv.Itoa(vehicleID)+".csv")
	trace, err := loadTrace(path)
	if err != nil {
		return nil, verrors.NewKeyError(vehicleID, "trace", err)
	}
	ks.traces[vehicleID] = trace
	return trace, nil
}

func loadECDSAKey(path string) (*ecdsa.PrivateKey, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verrors.ErrKeyNotFound, path)
		}
		return nil, err
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block in %s", verrors.ErrKeyMalformed, path)
	}

	var key *ecdsa.PrivateKey
	switch block.Type {
	case "EC PRIVATE KEY":
		key, err = x509.ParseECPrivateKey(block.Bytes)
	case "PRIVATE KEY":
		var parsed any
		parsed, err = x509.ParsePKCS8PrivateKey(block.Bytes)
		if err == nil {
			ecKey, ok := parsed.(*ecdsa.PrivateKey)
			if !ok {
				return nil, fmt.Errorf("%w: %s is not an EC key", verrors.ErrKeyMalformed, path)
			}
			key = ecKey
		}
	default:
		return nil, fmt.Errorf("%w: unsupported PEM block type %q in %s", verrors.ErrKeyMalformed, block.Type, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrKeyMalformed, err)
	}

	if key.Curve != elliptic.P256() {
		return nil, fmt.Errorf("%w: %s", verrors.ErrKeyWrongCurve, path)
	}

	return key, nil
}

func loadFalconKey(path string, wantSize int) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verrors.ErrKeyNotFound, path)
		}
		return nil, err
	}

	decoded, err := hex.DecodeString(string(trimTrailingNewline(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrKeyMalformed, err)
	}
	if len(decoded) != wantSize {
		return nil, fmt.Errorf("%w: %s has %d bytes, want %d", verrors.ErrFalconKeySize, path, len(decoded), wantSize)
	}
	return decoded, nil
}

func trimTrailingNewline(raw []byte) []byte {
	for len(raw) > 0 && (raw[len(raw)-1] == '\n' || raw[len(raw)-1] == '\r') {
		raw = raw[:len(raw)-1]
	}
	return raw
}

func loadTrace(path string) ([]bsm.TraceSample, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", verrors.ErrTraceNotFound, path)
		}
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	var samples []bsm.TraceSample
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: %s: %v", verrors.ErrTraceMalformed, path, err)
		}
		if len(row) < 3 {
			return nil, fmt.Errorf("%w: %s has a row with fewer than 3 columns", verrors.ErrTraceMalformed, path)
		}
		lat, err1 := strconv.ParseFloat(row[0], 64)
		lon, err2 := strconv.ParseFloat(row[1], 64)
		elev, err3 := strconv.ParseFloat(row[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%w: %s", verrors.ErrTraceMalformed, path)
		}
		samples = append(samples, bsm.TraceSample{Latitude: lat, Longitude: lon, Elevation: elev})
	}

	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: %s contains no usable rows", verrors.ErrTraceMalformed, path)
	}

	return samples, nil
}
