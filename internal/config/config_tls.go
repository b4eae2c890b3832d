package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}

	switch tls.Mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", tls.Mode)
	}
	if tls.CertFile != "" && tls.CertContent != "" {
		return fmt.Errorf("cannot specify both certFile and certContent - choose one")
	}
	if tls.KeyFile != "" && tls.KeyContent != "" {
		return fmt.Errorf("cannot specify both keyFile and keyContent - choose one")
	}

	if tls.Mode != "mutual" {
		return nil
	}

	if tls.CAFile == "" && tls.CAContent == "" {
		return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}
	if tls.CAFile != "" && tls.CAContent != "" {
		return fmt.Errorf("cannot specify both caFile and caContent - choose one")
	}
	switch tls.ClientAuthPolicy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
	}
}

// CertFiles returns the certificate files to watch for reloads.
func (t TLSConfig) CertFiles() []string {
	var files []string
	for _, f := range []string{t.CertFile, t.KeyFile, t.CAFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}
