// Package spdu builds and signs Signed Protocol Data Units: the BSM plus
// header timestamp, embedded certificate, and certificate signature that
// a vehicle broadcasts every timestep (spec.md §3, §4.2).
package spdu

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
	"github.com/twardokus/v2verifier/pkg/bsm"
	"github.com/twardokus/v2verifier/pkg/keystore"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// Builder assembles the SignedData a vehicle broadcasts: a BSM wrapped in
// tbsData, the vehicle's embedded certificate, and that certificate's
// one-time-per-SPDU ECDSA signature (spec.md §4.2, §4.5 — the certificate
// signature is always ECDSA, independent of the message signature scheme).
type Builder struct {
	keys keystore.KeyStore
}

// NewBuilder creates a Builder backed by keys.
func NewBuilder(keys keystore.KeyStore) *Builder {
	return &Builder{keys: keys}
}

// Build produces the SignedData for vehicleID at trace index timestep,
// stamped with timestampMicros (microseconds since the Unix epoch).
func (b *Builder) Build(vehicleID int, trace []bsm.TraceSample, timestep int, timestampMicros int64) (wire.SignedData, error) {
	var data wire.SignedData

	data.TBSData.BSM = bsm.Generate(trace, timestep)
	data.TBSData.Header.TimestampMicros = timestampMicros

	cert, err := b.certificate(vehicleID)
	if err != nil {
		return data, err
	}
	data.Cert = cert

	certSig, certSigLen, err := b.signCertificate(vehicleID, cert)
	if err != nil {
		return data, err
	}
	data.CertSignature = certSig
	data.CertSignatureLength = certSigLen

	return data, nil
}

// certificate derives the vehicle's certificate from its certificate key's
// public point: an uncompressed P-256 point, zero-padded out to
// CertificateSize bytes.
func (b *Builder) certificate(vehicleID int) (wire.Certificate, error) {
	var cert wire.Certificate

	certKey, err := b.keys.CertPrivateKey(vehicleID)
	if err != nil {
		return cert, err
	}

	point := elliptic.Marshal(certKey.Curve, certKey.X, certKey.Y)
	if len(point) > len(cert) {
		return cert, fmt.Errorf("%w: certificate point is %d bytes, exceeds %d", verrors.ErrKeyMalformed, len(point), len(cert))
	}
	copy(cert[:], point)
	return cert, nil
}

// signCertificate signs the SHA-256 digest of cert with vehicleID's
// certificate private key, producing a variable-length ASN.1 DER ECDSA
// signature padded into the fixed CertSignature buffer (spec.md §4.2).
func (b *Builder) signCertificate(vehicleID int, cert wire.Certificate) ([constants.MaxCertSignature]byte, uint32, error) {
	var buf [constants.MaxCertSignature]byte

	certKey, err := b.keys.CertPrivateKey(vehicleID)
	if err != nil {
		return buf, 0, err
	}

	digest := sha256.Sum256(cert[:])
	sig, err := ecdsa.SignASN1(rand.Reader, certKey, digest[:])
	if err != nil {
		return buf, 0, fmt.Errorf("%w: %v", verrors.ErrSignFailed, err)
	}
	if len(sig) > len(buf) {
		return buf, 0, verrors.ErrCertSignatureTooLarge
	}
	copy(buf[:], sig)
	return buf, uint32(len(sig)), nil
}
