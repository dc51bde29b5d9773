package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"job-portal/internal/config"
	"job-portal/internal/logger"
)

type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

func NewTLSConfig(cfg *config.SecurityConfig) *TLSConfig {
	return &TLSConfig{
		Enabled:  cfg.TLSEnabled,
		CertFile: cfg.CertFile,
		KeyFile:  cfg.KeyFile,
	}
}

func (t *TLSConfig) CreateTLSConfig() (*tls.Config, error) {
	if !t.Enabled {
		return nil, nil
	}
	if t.CertFile == "" || t.KeyFile == "" {
		return nil, errors.New("TLS enabled but TLS_CERT_FILE or TLS_KEY_FILE is empty")
	}

	cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load TLS certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		},
	}

	return tlsConfig, nil
}

// CreateHTTPServer builds the API server. timeout bounds reading a request
// and writing its response.
func (t *TLSConfig) CreateHTTPServer(handler http.Handler, addr string, timeout time.Duration) (*http.Server, error) {
	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}
	if !t.Enabled {
		return server, nil
	}

	tlsConfig, err := t.CreateTLSConfig()
	if err != nil {
		return nil, err
	}
	server.TLSConfig = tlsConfig

	logger.WithField("addr", addr).Info("TLS enabled for HTTP server")
	return server, nil
}

// Serve accepts connections on ln, over TLS when the server carries a TLS
// config.
func Serve(server *http.Server, ln net.Listener) error {
	if server.TLSConfig != nil {
		return server.ServeTLS(ln, "", "")
	}
	return server.Serve(ln)
}

// CreateHTTPClient returns a client for calling the API. caCertFile adds a
// trusted root, typically for a self-signed development certificate.
func CreateHTTPClient(caCertFile string, timeout time.Duration) (*http.Client, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if caCertFile != "" {
		caCert, err := os.ReadFile(caCertFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA certificate: %w", err)
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("failed to parse CA certificate")
		}

		tlsConfig.RootCAs = caCertPool
	}

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: tlsConfig,
		},
	}, nil
}
