// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/oliverandrich/registro/internal/config"
	"golang.org/x/crypto/acme/autocert"
)

// TLSMode represents the resolved TLS mode.
type TLSMode string

const (
	TLSModeOff        TLSMode = "off"
	TLSModeACME       TLSMode = "acme"
	TLSModeSelfSigned TLSMode = "selfsigned"
	TLSModeManual     TLSMode = "manual"
)

// TLSResult contains the resolved TLS configuration.
type TLSResult struct {
	TLSConfig   *tls.Config
	HTTPHandler http.Handler // HTTP→HTTPS redirect (ACME only)
	Mode        TLSMode
}

// SetupTLS configures TLS based on the configuration.
func SetupTLS(cfg *config.Config) (*TLSResult, error) {
	switch resolveTLSMode(cfg) {
	case TLSModeOff:
		slog.Info("TLS mode: off")
		return &TLSResult{Mode: TLSModeOff}, nil

	case TLSModeACME:
		if cfg.TLS.Email == "" {
			return nil, fmt.Errorf("ACME mode requires TLS_EMAIL to be set")
		}
		slog.Info("TLS mode: acme (Let's Encrypt)", "host", cfg.Server.Host, "email", cfg.TLS.Email)
		return setupACME(cfg)

	case TLSModeSelfSigned:
		slog.Info("TLS mode: selfsigned")
		return setupSelfSigned(cfg)

	case TLSModeManual:
		slog.Info("TLS mode: manual", "cert", cfg.TLS.CertFile, "key", cfg.TLS.KeyFile)
		cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load certificate: %w", err)
		}
		logCertFingerprint(&cert)
		return &TLSResult{Mode: TLSModeManual, TLSConfig: createTLSConfig(&cert)}, nil
	}

	return nil, fmt.Errorf("unknown TLS mode: %s", cfg.TLS.Mode)
}

// resolveTLSMode determines the TLS mode from configuration and environment.
// In auto mode a public host always gets TLS: ACME when possible, a
// self-signed certificate otherwise. Only localhost falls back to plain HTTP.
func resolveTLSMode(cfg *config.Config) TLSMode {
	host := cfg.Server.Host

	switch strings.ToLower(cfg.TLS.Mode) {
	case "off":
		return TLSModeOff
	case "acme":
		return TLSModeACME
	case "selfsigned":
		return TLSModeSelfSigned
	case "manual":
		return TLSModeManual
	case "auto", "":
		// Fall through to auto-detection
	default:
		slog.Warn("unknown TLS mode, using auto", "mode", cfg.TLS.Mode)
	}

	if config.IsLocalhost(host) {
		return TLSModeOff
	}
	if cfg.TLS.CertFile != "" && cfg.TLS.KeyFile != "" {
		return TLSModeManual
	}
	if canUseACME(cfg) {
		return TLSModeACME
	}
	return TLSModeSelfSigned
}

// canUseACME checks whether ACME auto-detection is possible: a real
// domain, an email to register with, and ports 80/443 free.
func canUseACME(cfg *config.Config) bool {
	if net.ParseIP(cfg.Server.Host) != nil {
		slog.Debug("ACME disabled: host is an IP address")
		return false
	}
	if cfg.TLS.Email == "" {
		slog.Debug("ACME disabled: no email configured")
		return false
	}
	if !isPortAvailable(80) || !isPortAvailable(443) {
		slog.Debug("ACME disabled: port 80 or 443 not available")
		return false
	}
	return true
}

// isPortAvailable checks if a port is available for binding.
func isPortAvailable(port int) bool {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}

// setupACME configures Let's Encrypt with autocert.
func setupACME(cfg *config.Config) (*TLSResult, error) {
	certDir := filepath.Join(cfg.TLS.CertDir, "acme")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create ACME cert directory: %w", err)
	}

	manager := &autocert.Manager{
		Prompt:     autocert.AcceptTOS,
		Email:      cfg.TLS.Email,
		Cache:      autocert.DirCache(certDir),
		HostPolicy: autocert.HostWhitelist(cfg.Server.Host),
	}

	tlsConfig := manager.TLSConfig()
	tlsConfig.MinVersion = tls.VersionTLS12

	return &TLSResult{
		Mode:        TLSModeACME,
		TLSConfig:   tlsConfig,
		HTTPHandler: manager.HTTPHandler(nil),
	}, nil
}

// setupSelfSigned generates or reuses a self-signed certificate under
// the cert directory. Visitors have to accept it in the browser once.
func setupSelfSigned(cfg *config.Config) (*TLSResult, error) {
	certDir := filepath.Join(cfg.TLS.CertDir, "selfsigned")
	if err := os.MkdirAll(certDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create self-signed cert directory: %w", err)
	}

	certFile := filepath.Join(certDir, "cert.pem")
	keyFile := filepath.Join(certDir, "key.pem")

	if certExists(certFile, keyFile) {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err == nil && !isCertExpiringSoon(&cert) {
			slog.Info("Using existing self-signed certificate")
			logCertFingerprint(&cert)
			return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: createTLSConfig(&cert)}, nil
		}
		if err != nil {
			slog.Warn("existing certificate invalid, generating new one", "error", err)
		} else {
			slog.Info("existing certificate expiring soon, generating new one")
		}
	}

	slog.Info("Generating new self-signed certificate")
	cert, err := generateSelfSignedCert(cfg.Server.Host, certFile, keyFile)
	if err != nil {
		return nil, err
	}

	logCertFingerprint(cert)
	slog.Warn("Accept the certificate in your browser on first visit")

	return &TLSResult{Mode: TLSModeSelfSigned, TLSConfig: createTLSConfig(cert)}, nil
}

// generateSelfSignedCert creates a new self-signed certificate with ECDSA P-256.
func generateSelfSignedCert(host, certFile, keyFile string) (*tls.Certificate, error) {
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serialNumber,
		Subject: pkix.Name{
			Organization: []string{"Self-Signed"},
			CommonName:   host,
		},
		NotBefore:             now,
		NotAfter:              now.Add(365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	if ip := net.ParseIP(host); ip != nil {
		template.IPAddresses = []net.IP{ip}
	} else {
		template.DNSNames = []string{host}
	}

	// Also cover local access
	template.DNSNames = append(template.DNSNames, "localhost")
	template.IPAddresses = append(template.IPAddresses, net.ParseIP("127.0.0.1"), net.ParseIP("::1"))

	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &privateKey.PublicKey, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER})
	if writeErr := os.WriteFile(certFile, certPEM, 0o600); writeErr != nil {
		return nil, fmt.Errorf("failed to write cert file: %w", writeErr)
	}

	keyDER, err := x509.MarshalECPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if writeErr := os.WriteFile(keyFile, keyPEM, 0o600); writeErr != nil {
		return nil, fmt.Errorf("failed to write key file: %w", writeErr)
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load generated cert: %w", err)
	}
	return &cert, nil
}

// certExists checks if both cert and key files exist.
func certExists(certFile, keyFile string) bool {
	_, certErr := os.Stat(certFile)
	_, keyErr := os.Stat(keyFile)
	return certErr == nil && keyErr == nil
}

// isCertExpiringSoon checks if the certificate expires within 30 days.
func isCertExpiringSoon(cert *tls.Certificate) bool {
	if len(cert.Certificate) == 0 {
		return true
	}
	x509Cert, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return true
	}
	return time.Until(x509Cert.NotAfter) < 30*24*time.Hour
}

// logCertFingerprint logs the SHA256 fingerprint of the certificate.
func logCertFingerprint(cert *tls.Certificate) {
	if len(cert.Certificate) == 0 {
		return
	}
	fingerprint := sha256.Sum256(cert.Certificate[0])
	hexParts := make([]string, len(fingerprint))
	for i, b := range fingerprint {
		hexParts[i] = fmt.Sprintf("%02X", b)
	}
	slog.Info("Certificate fingerprint", "sha256", strings.Join(hexParts, ":"))
}

// createTLSConfig creates a TLS config with the given certificate.
func createTLSConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{*cert},
		MinVersion:   tls.VersionTLS12,
	}
}
