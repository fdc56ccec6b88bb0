package spdu

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/pornin/go-fn-dsa/fndsa"

	"github.com/twardokus/v2verifier/internal/constants"
	verrors "github.com/twardokus/v2verifier/internal/errors"
	"github.com/twardokus/v2verifier/pkg/keystore"
	"github.com/twardokus/v2verifier/pkg/wire"
)

// Signer signs a SignedData payload and splits the resulting signature
// across one or more wire.Fragment values (spec.md §4.3).
type Signer struct {
	keys         keystore.KeyStore
	fragmentSize int
}

// NewSigner creates a Signer that splits Falcon signatures into chunks of
// at most fragmentSize bytes (clamped by the caller via
// config.ClampFragmentSize before construction).
func NewSigner(keys keystore.KeyStore, fragmentSize int) *Signer {
	return &Signer{keys: keys, fragmentSize: fragmentSize}
}

// Sign produces the ordered fragments carrying data's signature under
// scheme, for vehicleID's sequenceNumber-th SPDU.
func (s *Signer) Sign(vehicleID int, scheme constants.SchemeTag, sequenceNumber uint32, data wire.SignedData) ([]*wire.Fragment, error) {
	switch scheme {
	case constants.SchemeECDSA:
		return s.signECDSA(vehicleID, sequenceNumber, data)
	case constants.SchemeFalcon:
		return s.signFalcon(vehicleID, sequenceNumber, data)
	default:
		return nil, verrors.ErrUnknownScheme
	}
}

func (s *Signer) signECDSA(vehicleID int, sequenceNumber uint32, data wire.SignedData) ([]*wire.Fragment, error) {
	key, err := s.keys.ECDSAPrivateKey(vehicleID)
	if err != nil {
		return nil, err
	}

	digest := sha256.Sum256(wire.EncodeTBSData(data.TBSData))
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrSignFailed, err)
	}
	if len(sig) > constants.MaxFragment {
		return nil, verrors.ErrSignatureTooLarge
	}

	fragment := baseFragment(vehicleID, sequenceNumber, constants.SchemeECDSA, data)
	fragment.FragmentIndex = 0
	fragment.FragmentCount = 1
	fragment.SignatureBufferLength = uint32(len(sig))
	fragment.SignatureOffset = 0
	fragment.FragmentLength = uint32(len(sig))
	copy(fragment.SignatureFragment[:], sig)

	return []*wire.Fragment{fragment}, nil
}

func (s *Signer) signFalcon(vehicleID int, sequenceNumber uint32, data wire.SignedData) ([]*wire.Fragment, error) {
	secretKey, err := s.keys.FalconSecretKey(vehicleID)
	if err != nil {
		return nil, err
	}

	message := wire.EncodeTBSData(data.TBSData)
	sig, err := fndsa.Sign(rand.Reader, secretKey, fndsa.DOMAIN_NONE, crypto.Hash(0), message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", verrors.ErrSignFailed, err)
	}
	if len(sig) > constants.MaxSignatureTotal {
		return nil, verrors.ErrSignatureTooLarge
	}

	fragmentSize := s.fragmentSize
	if fragmentSize <= 0 || fragmentSize > constants.MaxFragment {
		fragmentSize = constants.MaxFragment
	}
	fragmentCount := (len(sig) + fragmentSize - 1) / fragmentSize

	fragments := make([]*wire.Fragment, fragmentCount)
	for idx := 0; idx < fragmentCount; idx++ {
		fragment := baseFragment(vehicleID, sequenceNumber, constants.SchemeFalcon, data)
		fragment.FragmentIndex = uint16(idx)
		fragment.FragmentCount = uint16(fragmentCount)
		fragment.SignatureBufferLength = uint32(len(sig))

		offset := idx * fragmentSize
		remaining := len(sig) - offset
		length := fragmentSize
		if remaining < length {
			length = remaining
		}

		fragment.SignatureOffset = uint32(offset)
		fragment.FragmentLength = uint32(length)
		copy(fragment.SignatureFragment[:], sig[offset:offset+length])

		fragments[idx] = fragment
	}

	return fragments, nil
}

// baseFragment fills in the fields replicated verbatim across every
// fragment of the same SPDU: identity, LLC/WSMP framing, and the signed
// payload itself.
func baseFragment(vehicleID int, sequenceNumber uint32, scheme constants.SchemeTag, data wire.SignedData) *wire.Fragment {
	return &wire.Fragment{
		VehicleID:                 uint8(vehicleID),
		SequenceNumber:            sequenceNumber,
		LLCDsapSsap:               constants.LLCDsapSsap,
		LLCControl:                constants.LLCControl,
		LLCType:                   constants.LLCType,
		WSMPNSubtypeOptVersion:    constants.WSMPNSubtypeOptVersion,
		WSMPNTPID:                 constants.WSMPNTPID,
		WSMPTHeaderLengthAndPSID:  constants.WSMPTHeaderLengthAndPSID,
		WSMPTLength:               constants.WSMPTLength,
		Scheme:                    scheme,
		CertSignatureBufferLength: data.CertSignatureLength,
		Data:                      data,
	}
}
