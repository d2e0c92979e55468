package certgen

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestCA(t *testing.T) ([]byte, []byte) {
	t.Helper()
	certPEM, keyPEM, err := NewCA("Intake Test CA", 24*time.Hour)
	if err != nil {
		t.Fatalf("NewCA: %v", err)
	}
	return certPEM, keyPEM
}

func parseCert(t *testing.T, certPEM []byte) *x509.Certificate {
	t.Helper()
	block, _ := pem.Decode(certPEM)
	if block == nil {
		t.Fatal("no PEM block")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		t.Fatalf("parse cert: %v", err)
	}
	return cert
}

func TestNewCA(t *testing.T) {
	certPEM, _ := newTestCA(t)
	ca := parseCert(t, certPEM)
	if !ca.IsCA || !ca.BasicConstraintsValid {
		t.Error("CA certificate must be a CA")
	}
	if ca.KeyUsage&x509.KeyUsageCertSign == 0 {
		t.Error("CA must be able to sign certificates")
	}
}

func TestLoadCACredentials_Success(t *testing.T) {
	certPEM, keyPEM := newTestCA(t)
	dir := t.TempDir()
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")
	if err := os.WriteFile(certPath, certPEM, 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0600); err != nil {
		t.Fatal(err)
	}

	ca, key, err := LoadCACredentials(certPath, keyPath)
	if err != nil {
		t.Fatalf("LoadCACredentials error: %v", err)
	}
	if ca.Subject.CommonName != "Intake Test CA" || key == nil {
		t.Errorf("unexpected CA %q", ca.Subject.CommonName)
	}
}

func TestLoadCACredentials_Errors(t *testing.T) {
	certPEM, keyPEM := newTestCA(t)
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data, 0600); err != nil {
			t.Fatal(err)
		}
		return p
	}
	goodCert := write("ca.crt", certPEM)
	goodKey := write("ca.key", keyPEM)
	garbage := write("garbage.pem", []byte("not pem"))
	unknownKey := write("unknown.key", pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: []byte{1}}))

	tests := []struct {
		name, cert, key, substr string
	}{
		{"missing cert", filepath.Join(dir, "nope"), goodKey, "read ca cert"},
		{"missing key", goodCert, filepath.Join(dir, "nope"), "read ca key"},
		{"bad cert", garbage, goodKey, "invalid CA cert PEM"},
		{"bad key", goodCert, garbage, "invalid CA key PEM"},
		{"unknown key type", goodCert, unknownKey, "unsupported key type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadCACredentials(tt.cert, tt.key)
			if err == nil || !strings.Contains(err.Error(), tt.substr) {
				t.Errorf("expected %q, got %v", tt.substr, err)
			}
		})
	}
}

func TestIssueReviewerCertificate_VerifiesAgainstCA(t *testing.T) {
	caPEM, caKeyPEM := newTestCA(t)
	ca, caKey, err := ParseCA(caPEM, caKeyPEM)
	if err != nil {
		t.Fatal(err)
	}

	certPEM, keyPEM, err := IssueReviewerCertificate("mentor-ops", ca, caKey)
	if err != nil {
		t.Fatalf("IssueReviewerCertificate: %v", err)
	}
	if _, err := tls.X509KeyPair(certPEM, keyPEM); err != nil {
		t.Fatalf("cert and key do not match: %v", err)
	}

	cert := parseCert(t, certPEM)
	if cert.Subject.CommonName != "mentor-ops" {
		t.Errorf("CommonName = %q", cert.Subject.CommonName)
	}
	pool := x509.NewCertPool()
	pool.AddCert(ca)
	if _, err := cert.Verify(x509.VerifyOptions{Roots: pool, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}}); err != nil {
		t.Errorf("reviewer cert does not verify: %v", err)
	}
}

func TestIssueReviewerCertificate_EmptyName(t *testing.T) {
	caPEM, caKeyPEM := newTestCA(t)
	ca, caKey, _ := ParseCA(caPEM, caKeyPEM)
	if _, _, err := IssueReviewerCertificate("", ca, caKey); err == nil {
		t.Error("expected error for empty reviewer")
	}
}

func TestIssueServerCertificate(t *testing.T) {
	caPEM, caKeyPEM := newTestCA(t)
	ca, caKey, _ := ParseCA(caPEM, caKeyPEM)

	certPEM, _, err := IssueServerCertificate("localhost", ca, caKey)
	if err != nil {
		t.Fatal(err)
	}
	cert := parseCert(t, certPEM)
	if len(cert.DNSNames) != 1 || cert.DNSNames[0] != "localhost" {
		t.Errorf("DNSNames = %v", cert.DNSNames)
	}

	certPEM, _, err = IssueServerCertificate("127.0.0.1", ca, caKey)
	if err != nil {
		t.Fatal(err)
	}
	if ips := parseCert(t, certPEM).IPAddresses; len(ips) != 1 || ips[0].String() != "127.0.0.1" {
		t.Errorf("IPAddresses = %v", ips)
	}
}
