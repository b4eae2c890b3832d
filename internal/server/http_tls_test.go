package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"careercoach/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSelfSigned writes a certificate valid for validFor and its key to dir
func writeSelfSigned(t *testing.T, dir, cn string, validFor time.Duration) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		Subject:               pkix.Name{CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(validFor),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{"localhost"},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestCertReloaderStatus(t *testing.T) {
	tests := []struct {
		name     string
		validFor time.Duration
		healthy  bool
	}{
		{"valid for a year", 365 * 24 * time.Hour, true},
		{"expiring soon", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			certFile, keyFile := writeSelfSigned(t, t.TempDir(), "careercoach", tt.validFor)
			c, err := newCertReloader(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}, nil, nil)
			require.NoError(t, err)

			status := c.Status()
			assert.Equal(t, tt.healthy, status["healthy"])
			assert.Equal(t, "careercoach", status["subject"])
		})
	}
}

func TestCertReloaderReload(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "first", 24*time.Hour*30)
	c, err := newCertReloader(config.TLSConfig{Mode: "server", CertFile: certFile, KeyFile: keyFile}, nil, nil)
	require.NoError(t, err)

	writeSelfSigned(t, dir, "second", 24*time.Hour*30)
	c.reload([]string{certFile})
	assert.Equal(t, "second", c.Status()["subject"])
	assert.Equal(t, 1, c.Status()["reloads"])

	// A broken file keeps the previous certificate
	require.NoError(t, os.WriteFile(certFile, []byte("not a certificate"), 0o600))
	c.reload([]string{certFile})
	status := c.Status()
	assert.Equal(t, "second", status["subject"])
	assert.Equal(t, 1, status["failures"])
	assert.Contains(t, status, "last_error")

	cert, err := c.getCertificate(nil)
	require.NoError(t, err)
	assert.NotNil(t, cert)
}

func TestCertReloaderTLSConfig(t *testing.T) {
	dir := t.TempDir()
	certFile, keyFile := writeSelfSigned(t, dir, "mtls", 24*time.Hour*30)

	c, err := newCertReloader(config.TLSConfig{
		Mode:             "mutual",
		CertFile:         certFile,
		KeyFile:          keyFile,
		CAFile:           certFile,
		MinVersion:       "1.3",
		ClientAuthPolicy: "verify",
	}, nil, nil)
	require.NoError(t, err)

	cfg := c.tlsConfig()
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
	assert.Equal(t, tls.VerifyClientCertIfGiven, cfg.ClientAuth)
	require.NotNil(t, cfg.GetConfigForClient)

	perConn, err := cfg.GetConfigForClient(&tls.ClientHelloInfo{})
	require.NoError(t, err)
	assert.NotNil(t, perConn.ClientCAs)

	_, err = newCertReloader(config.TLSConfig{Mode: "mutual", CertFile: certFile, KeyFile: keyFile}, nil, nil)
	assert.Error(t, err)
}

func TestCertReloaderNilStatus(t *testing.T) {
	var c *certReloader
	assert.Equal(t, true, c.Status()["healthy"])
}
