// Package verify checks a reassembled SPDU's certificate signature,
// payload signature, and freshness (spec.md §4.6).
package verify

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/sha256"
	"time"

	"github.com/pornin/go-fn-dsa/fndsa"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
	"github.com/twardokus/v2verifier/pkg/keystore"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// Result reports the three independent checks a verification performs and
// their conjunction. Staleness, a bad certificate, and a bad payload
// signature are deliberately indistinguishable in Valid — only the
// individual fields tell them apart (spec.md §7).
type Result struct {
	CertOK bool
	SigOK  bool
	Recent bool
	Valid  bool
}

// Verifier checks reassembled SPDUs against the sending vehicle's key
// material, which it loads the same way the sender did (this is a
// simulation: the receiver has access to every vehicle's keys).
type Verifier struct {
	keys keystore.KeyStore
}

// NewVerifier creates a Verifier backed by keys.
func NewVerifier(keys keystore.KeyStore) *Verifier {
	return &Verifier{keys: keys}
}

// Verify checks template's certificate and signature against the
// reassembled signature bytes, using receivedAt as the freshness
// reference (spec.md §4.6).
func (v *Verifier) Verify(vehicleID int, scheme constants.SchemeTag, data wire.SignedData, signature []byte, receivedAt time.Time) (Result, error) {
	var result Result

	certOK, err := v.verifyCertificate(vehicleID, data)
	if err != nil {
		return result, err
	}
	result.CertOK = certOK

	sigOK, err := v.verifySignature(vehicleID, scheme, data, signature)
	if err != nil {
		return result, err
	}
	result.SigOK = sigOK

	ageMillis := receivedAt.Sub(time.UnixMicro(data.TBSData.Header.TimestampMicros)).Milliseconds()
	result.Recent = ageMillis < constants.RecencyWindowMillis

	result.Valid = result.CertOK && result.SigOK && result.Recent
	return result, nil
}

func (v *Verifier) verifyCertificate(vehicleID int, data wire.SignedData) (bool, error) {
	certKey, err := v.keys.CertPrivateKey(vehicleID)
	if err != nil {
		return false, err
	}
	digest := sha256.Sum256(data.Cert[:])
	return ecdsa.VerifyASN1(&certKey.PublicKey, digest[:], data.CertSignature[:data.CertSignatureLength]), nil
}

func (v *Verifier) verifySignature(vehicleID int, scheme constants.SchemeTag, data wire.SignedData, signature []byte) (bool, error) {
	switch scheme {
	case constants.SchemeECDSA:
		key, err := v.keys.ECDSAPrivateKey(vehicleID)
		if err != nil {
			return false, err
		}
		digest := sha256.Sum256(wire.EncodeTBSData(data.TBSData))
		return ecdsa.VerifyASN1(&key.PublicKey, digest[:], signature), nil
	case constants.SchemeFalcon:
		publicKey, err := v.keys.FalconPublicKey(vehicleID)
		if err != nil {
			return false, err
		}
		message := wire.EncodeTBSData(data.TBSData)
		return fndsa.Verify(publicKey, fndsa.DOMAIN_NONE, crypto.Hash(0), message, signature), nil
	default:
		return false, verrors.ErrUnknownSchemeTag
	}
}
