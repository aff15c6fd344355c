// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"path/filepath"
	"testing"

	"codeberg.org/oliverandrich/registro/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveTLSMode(t *testing.T) {
	tests := []struct {
		name     string
		cfg      *config.Config
		expected TLSMode
	}{
		{
			name: "explicit off",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "off"},
			},
			expected: TLSModeOff,
		},
		{
			name: "explicit acme",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "acme"},
			},
			expected: TLSModeACME,
		},
		{
			name: "explicit selfsigned",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "selfsigned"},
			},
			expected: TLSModeSelfSigned,
		},
		{
			name: "explicit manual",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "manual"},
			},
			expected: TLSModeManual,
		},
		{
			name: "auto with localhost",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "localhost"},
				TLS:    config.TLSConfig{Mode: "auto"},
			},
			expected: TLSModeOff,
		},
		{
			name: "auto with cert files",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "auto", CertFile: "cert.pem", KeyFile: "key.pem"},
			},
			expected: TLSModeManual,
		},
		{
			// No ACME email, so a public host without certs must still get
			// TLS via a self-signed certificate, never plain HTTP.
			name: "auto with public host falls back to selfsigned",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "example.com"},
				TLS:    config.TLSConfig{Mode: "auto"},
			},
			expected: TLSModeSelfSigned,
		},
		{
			name: "unknown mode treated as auto",
			cfg: &config.Config{
				Server: config.ServerConfig{Host: "localhost"},
				TLS:    config.TLSConfig{Mode: "bogus"},
			},
			expected: TLSModeOff,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveTLSMode(tt.cfg))
		})
	}
}

func TestSetupTLS_Off(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "localhost"},
		TLS:    config.TLSConfig{Mode: "off"},
	}

	result, err := SetupTLS(cfg)

	require.NoError(t, err)
	assert.Equal(t, TLSModeOff, result.Mode)
	assert.Nil(t, result.TLSConfig)
}

func TestSetupTLS_SelfSigned(t *testing.T) {
	certDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "example.com"},
		TLS:    config.TLSConfig{Mode: "selfsigned", CertDir: certDir},
	}

	result, err := SetupTLS(cfg)

	require.NoError(t, err)
	assert.Equal(t, TLSModeSelfSigned, result.Mode)
	require.NotNil(t, result.TLSConfig)
	assert.NotEmpty(t, result.TLSConfig.Certificates)
	assert.FileExists(t, filepath.Join(certDir, "selfsigned", "cert.pem"))
	assert.FileExists(t, filepath.Join(certDir, "selfsigned", "key.pem"))
}

func TestSetupTLS_SelfSignedReusesCertificate(t *testing.T) {
	certDir := t.TempDir()
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "example.com"},
		TLS:    config.TLSConfig{Mode: "selfsigned", CertDir: certDir},
	}

	first, err := SetupTLS(cfg)
	require.NoError(t, err)

	second, err := SetupTLS(cfg)
	require.NoError(t, err)

	require.NotEmpty(t, first.TLSConfig.Certificates)
	require.NotEmpty(t, second.TLSConfig.Certificates)
	assert.Equal(t,
		first.TLSConfig.Certificates[0].Certificate,
		second.TLSConfig.Certificates[0].Certificate,
	)
}

func TestSetupTLS_ACMERequiresEmail(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "example.com"},
		TLS:    config.TLSConfig{Mode: "acme"},
	}

	_, err := SetupTLS(cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "TLS_EMAIL")
}

func TestSetupTLS_ManualMissingFiles(t *testing.T) {
	cfg := &config.Config{
		Server: config.ServerConfig{Host: "example.com"},
		TLS: config.TLSConfig{
			Mode:     "manual",
			CertFile: filepath.Join(t.TempDir(), "missing-cert.pem"),
			KeyFile:  filepath.Join(t.TempDir(), "missing-key.pem"),
		},
	}

	_, err := SetupTLS(cfg)

	require.Error(t, err)
}
