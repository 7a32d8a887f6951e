package object

import "fmt"

// SignatureType represents the type of a cryptographic signature, as
// exposed on a VerificationResult.
type SignatureType int8

const (
	// SignatureTypeUnknown represents an unknown or unrecognized signature format.
	SignatureTypeUnknown SignatureType = iota
	// SignatureTypeOpenPGP represents an OpenPGP signature.
	SignatureTypeOpenPGP
	// SignatureTypeX509 represents an X509 (S/MIME) signature.
	SignatureTypeX509
	// SignatureTypeSSH represents an SSH signature.
	SignatureTypeSSH
)

// String returns the string representation of the signature type.
func (t SignatureType) String() string {
	switch t {
	case SignatureTypeOpenPGP:
		return "openpgp"
	case SignatureTypeX509:
		return "x509"
	case SignatureTypeSSH:
		return "ssh"
	default:
		return "unknown"
	}
}

// VerificationResult carries the outcome of verifying a cryptographic
// signature attached to a commit or tag.
type VerificationResult struct {
	// Type is the format of the signature that was verified.
	Type SignatureType
	// Valid reports whether the signature matches the signed content.
	Valid bool
	// TrustLevel is the trust level of the key that produced the signature.
	TrustLevel TrustLevel
	// KeyID is the identifier of the key that produced the signature.
	KeyID string
	// PrimaryKeyFingerprint is the fingerprint of the primary key backing
	// the signing (sub)key.
	PrimaryKeyFingerprint string
	// Signer identifies the entity that produced the signature, e.g. a
	// "Name <email>" string extracted from the key's identity.
	Signer string
	// Error holds any error encountered while verifying the signature.
	Error error
}

// IsValid reports whether the signature was verified successfully and no
// error occurred in the process.
func (v *VerificationResult) IsValid() bool {
	return v.Valid && v.Error == nil
}

// IsTrusted reports whether the signature is valid and was produced by a
// key trusted at least as much as minTrust.
func (v *VerificationResult) IsTrusted(minTrust TrustLevel) bool {
	return v.Valid && v.Error == nil && v.TrustLevel.AtLeast(minTrust)
}

// String returns a human-readable summary of the verification result.
func (v *VerificationResult) String() string {
	validity := "valid"
	if !v.IsValid() {
		validity = "invalid"
	}

	return fmt.Sprintf(
		"%s signature (%s, trust: %s) key=%s signer=%q",
		v.Type, validity, v.TrustLevel, v.KeyID, v.Signer,
	)
}

// TrustLevel represents the trust level of a signing key.
// The levels follow Git's trust model, from lowest to highest.
type TrustLevel int8

const (
	// TrustUndefined indicates the trust level is not set or unknown.
	TrustUndefined TrustLevel = iota
	// TrustNever indicates the key should never be trusted.
	TrustNever
	// TrustMarginal indicates marginal trust in the key.
	TrustMarginal
	// TrustFull indicates full trust in the key.
	TrustFull
	// TrustUltimate indicates ultimate trust (typically for own keys).
	TrustUltimate
)

// String returns the string representation of the trust level.
func (t TrustLevel) String() string {
	switch t {
	case TrustNever:
		return "never"
	case TrustMarginal:
		return "marginal"
	case TrustFull:
		return "full"
	case TrustUltimate:
		return "ultimate"
	default:
		return "undefined"
	}
}

// AtLeast returns true if this trust level meets or exceeds the required level.
func (t TrustLevel) AtLeast(required TrustLevel) bool {
	return t >= required
}
