package messaging

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// TLSMode selects one of the Mozilla recommended cipher configurations, the
// same enumeration the original client_parameters exposes for --tls-mode.
type TLSMode int

const (
	TLSUndefined TLSMode = iota
	TLSMozillaOld
	TLSMozillaIntermediate
	TLSMozillaModern
)

// ParseTLSMode parses the --tls-mode flag / config value.
func ParseTLSMode(s string) (TLSMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "undefined":
		return TLSUndefined, nil
	case "mozilla_old":
		return TLSMozillaOld, nil
	case "mozilla_intermediate":
		return TLSMozillaIntermediate, nil
	case "mozilla_modern":
		return TLSMozillaModern, nil
	default:
		return TLSUndefined, fmt.Errorf("%w: unknown tls mode %q", ErrConfigMismatch, s)
	}
}

func (m TLSMode) String() string {
	switch m {
	case TLSMozillaOld:
		return "mozilla_old"
	case TLSMozillaIntermediate:
		return "mozilla_intermediate"
	case TLSMozillaModern:
		return "mozilla_modern"
	default:
		return "undefined"
	}
}

// NewTLSConfig builds a *tls.Config for the given mode. The cipher suite
// selection follows the Mozilla SSL configuration generator tiers; "modern"
// is TLS 1.3 only, "intermediate" allows TLS 1.2+ with a curated AEAD
// cipher list, and "old" allows TLS 1.0+ with a wider (but still non-RC4)
// list for legacy interoperability.
func NewTLSConfig(mode TLSMode) (*tls.Config, error) {
	switch mode {
	case TLSMozillaModern:
		return &tls.Config{MinVersion: tls.VersionTLS13}, nil
	case TLSMozillaIntermediate:
		return &tls.Config{
			MinVersion: tls.VersionTLS12,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
				tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			},
		}, nil
	case TLSMozillaOld:
		return &tls.Config{
			MinVersion: tls.VersionTLS10,
			CipherSuites: []uint16{
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
				tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA,
				tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA,
				tls.TLS_RSA_WITH_AES_128_GCM_SHA256,
				tls.TLS_RSA_WITH_AES_256_GCM_SHA384,
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: TLS mode is undefined", ErrConfigMismatch)
	}
}

// CheckSchemeAgreement validates that a ws/wss URI scheme agrees with
// whether a TLS mode was configured, per spec.md §4.1.
func CheckSchemeAgreement(scheme string, mode TLSMode) error {
	isWSS := strings.EqualFold(scheme, "wss")
	isTLS := mode != TLSUndefined
	if isWSS != isTLS {
		return fmt.Errorf("%w: scheme %q with tls mode %q", ErrConfigMismatch, scheme, mode)
	}
	return nil
}
