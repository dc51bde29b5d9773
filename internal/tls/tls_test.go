package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeCert creates a self-signed certificate for 127.0.0.1 and returns the
// certificate and key paths.
func writeCert(t *testing.T) (string, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "127.0.0.1"},
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile := filepath.Join(dir, "cert.pem")
	keyFile := filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func TestPlainServer(t *testing.T) {
	cfg := &TLSConfig{}
	srv, err := cfg.CreateHTTPServer(http.NotFoundHandler(), ":0", 5*time.Second)
	require.NoError(t, err)
	assert.Nil(t, srv.TLSConfig)
	assert.Equal(t, 5*time.Second, srv.WriteTimeout)
}

func TestMissingCertificate(t *testing.T) {
	_, err := (&TLSConfig{Enabled: true}).CreateTLSConfig()
	assert.Error(t, err)

	_, err = (&TLSConfig{Enabled: true, CertFile: "/nope.pem", KeyFile: "/nope.key"}).CreateTLSConfig()
	assert.Error(t, err)
}

func TestServeTLS(t *testing.T) {
	certFile, keyFile := writeCert(t)
	cfg := &TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "secure")
	})
	srv, err := cfg.CreateHTTPServer(handler, "127.0.0.1:0", 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, srv.TLSConfig)
	assert.Equal(t, uint16(0x0303), srv.TLSConfig.MinVersion)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() { _ = Serve(srv, ln) }()
	defer srv.Close()

	client, err := CreateHTTPClient(certFile, 5*time.Second)
	require.NoError(t, err)

	resp, err := client.Get("https://" + ln.Addr().String() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(body))
}
