package transport

import (
	"errors"
	"fmt"
	"strings"
)

type SecurityMode string

const (
	SecurityModeDevelopment SecurityMode = "development"
	SecurityModeProduction  SecurityMode = "production"

	// Z85 encodes a 32-byte CURVE key as 40 characters.
	curveKeyLen = 40
	z85Alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ.-:+=^!/*?&<>()[]{}@%$#"
)

var (
	ErrInvalidSecurityMode = errors.New("transport: invalid security mode")
	ErrCurveRequired       = errors.New("transport: curve required")
	ErrCurveKeyRequired    = errors.New("transport: curve key required")
	ErrCurveKeyInvalid     = errors.New("transport: curve key invalid")
)

// CurveConfig holds Z85 encoded CURVE keys for client sockets.
type CurveConfig struct {
	Enabled         bool
	ServerPublicKey string
	ClientPublicKey string
	ClientSecretKey string
}

// Security selects how client sockets authenticate to the server.
type Security struct {
	Mode  SecurityMode
	Curve CurveConfig
}

func NormalizeSecurityMode(mode SecurityMode) SecurityMode {
	if strings.TrimSpace(string(mode)) == "" {
		return SecurityModeDevelopment
	}
	return SecurityMode(strings.ToLower(strings.TrimSpace(string(mode))))
}

// Validate checks the client side of the security settings. Production
// mode requires CURVE.
func (s Security) Validate() error {
	mode := NormalizeSecurityMode(s.Mode)
	switch mode {
	case SecurityModeDevelopment, SecurityModeProduction:
	default:
		return fmt.Errorf("%w: %q", ErrInvalidSecurityMode, s.Mode)
	}
	if mode == SecurityModeProduction && !s.Curve.Enabled {
		return ErrCurveRequired
	}
	if !s.Curve.Enabled {
		return nil
	}
	for _, k := range []struct{ name, value string }{
		{"server_public_key", s.Curve.ServerPublicKey},
		{"client_public_key", s.Curve.ClientPublicKey},
		{"client_secret_key", s.Curve.ClientSecretKey},
	} {
		if err := validateCurveKey(k.name, k.value); err != nil {
			return err
		}
	}
	return nil
}

func validateCurveKey(name, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("%w: %s", ErrCurveKeyRequired, name)
	}
	if len(key) != curveKeyLen {
		return fmt.Errorf("%w: %s has %d characters, want %d", ErrCurveKeyInvalid, name, len(key), curveKeyLen)
	}
	for i, r := range key {
		if !strings.ContainsRune(z85Alphabet, r) {
			return fmt.Errorf("%w: %s has non-Z85 character at %d", ErrCurveKeyInvalid, name, i)
		}
	}
	return nil
}
