package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/GophIntake/internal/certgen"
)

func TestNewHTTPClient_SystemRoots(t *testing.T) {
	c, err := NewHTTPClient("", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if c.Timeout == 0 {
		t.Error("expected a timeout")
	}
}

func TestNewHTTPClient_Errors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pem")
	if err := os.WriteFile(garbage, []byte("nope"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewHTTPClient(filepath.Join(dir, "missing.crt"), "", ""); err == nil || !strings.Contains(err.Error(), "failed to read CA cert") {
		t.Errorf("expected read error, got %v", err)
	}
	if _, err := NewHTTPClient(garbage, "", ""); err == nil || !strings.Contains(err.Error(), "failed to parse CA cert") {
		t.Errorf("expected parse error, got %v", err)
	}
	if _, err := NewHTTPClient("", garbage, garbage); err == nil || !strings.Contains(err.Error(), "failed to load client cert/key") {
		t.Errorf("expected key pair error, got %v", err)
	}
}

func TestNewHTTPClient_ReviewerCertificate(t *testing.T) {
	dir := t.TempDir()
	caPEM, caKeyPEM, err := certgen.NewCA("Test CA", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	ca, caKey, err := certgen.ParseCA(caPEM, caKeyPEM)
	if err != nil {
		t.Fatal(err)
	}
	certPEM, keyPEM, err := certgen.IssueReviewerCertificate("ana", ca, caKey)
	if err != nil {
		t.Fatal(err)
	}
	caPath := filepath.Join(dir, "ca.crt")
	certPath := filepath.Join(dir, "ana.crt")
	keyPath := filepath.Join(dir, "ana.key")
	for p, data := range map[string][]byte{caPath: caPEM, certPath: certPEM, keyPath: keyPEM} {
		if err := os.WriteFile(p, data, 0600); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := NewHTTPClient(caPath, certPath, keyPath); err != nil {
		t.Fatalf("NewHTTPClient: %v", err)
	}
}
