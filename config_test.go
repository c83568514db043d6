package main

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		bind:              "0.0.0.0",
		port:              8080,
		highlightDuration: 3 * time.Second,
		title:             "Student Rankings",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected defaults to validate, got: %v", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	for _, port := range []int{0, -1, 65536} {
		cfg := validConfig()
		cfg.port = port
		if err := cfg.validate(); err == nil {
			t.Fatalf("expected port %d to be rejected", port)
		}
	}
}

func TestValidateRequiresTLSPair(t *testing.T) {
	cfg := validConfig()
	cfg.tlsCert = "cert.pem"
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected lone --tls-cert to be rejected")
	}

	cfg.tlsKey = "key.pem"
	if err := cfg.validate(); err != nil {
		t.Fatalf("expected full TLS pair to validate, got: %v", err)
	}
}

func TestValidateRejectsBadHighlightDuration(t *testing.T) {
	cfg := validConfig()
	cfg.highlightDuration = 0
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected zero highlight duration to be rejected")
	}
}

func TestValidateRejectsEmptyTitle(t *testing.T) {
	cfg := validConfig()
	cfg.title = "   "
	if err := cfg.validate(); err == nil {
		t.Fatalf("expected whitespace-only title to be rejected")
	}
}
