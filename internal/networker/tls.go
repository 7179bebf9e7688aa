package networker

import "crypto/tls"

// TLSPolicy decides how much the fetcher trusts remote TLS endpoints.
type TLSPolicy struct {
	InsecureSkipVerify   bool
	MinVersion           uint16
	AllowInsecureCiphers bool
}

// CompatibilityTLSPolicy accepts any certificate and legacy cipher suites.
// Metadata hosts in the wild still run expired or self-signed certificates and old stacks.
func CompatibilityTLSPolicy() TLSPolicy {
	return TLSPolicy{
		InsecureSkipVerify:   true,
		MinVersion:           tls.VersionTLS10,
		AllowInsecureCiphers: true,
	}
}

func StrictTLSPolicy() TLSPolicy {
	return TLSPolicy{
		MinVersion: tls.VersionTLS12,
	}
}

func (p TLSPolicy) Config() *tls.Config {
	cfg := &tls.Config{
		InsecureSkipVerify: p.InsecureSkipVerify, //nolint:gosec // opt-in compatibility policy
		MinVersion:         p.MinVersion,
	}

	if p.AllowInsecureCiphers {
		suites := append(tls.CipherSuites(), tls.InsecureCipherSuites()...)
		ids := make([]uint16, 0, len(suites))
		for _, suite := range suites {
			ids = append(ids, suite.ID)
		}
		cfg.CipherSuites = ids
	}

	return cfg
}
