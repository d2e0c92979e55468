// Package main generates the certificates that protect the review endpoint:
// a CA (reused when it already exists), a server certificate, and one client
// certificate per reviewer, all written under -dir.
package main

import (
	"crypto"
	"crypto/x509"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atinyakov/GophIntake/internal/certgen"
)

func main() {
	dir := flag.String("dir", "certs", "output directory")
	host := flag.String("host", "localhost", "server host name or IP")
	reviewers := flag.String("reviewers", "", "comma-separated reviewer names")
	flag.Parse()

	if err := run(*dir, *host, splitNames(*reviewers)); err != nil {
		fmt.Fprintln(os.Stderr, "certgen:", err)
		os.Exit(1)
	}
	fmt.Printf("Certificates generated into ./%s\n", *dir)
}

func splitNames(s string) []string {
	var out []string
	for _, n := range strings.Split(s, ",") {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func run(dir, host string, reviewers []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	ca, caKey, err := loadOrCreateCA(dir)
	if err != nil {
		return err
	}

	certPEM, keyPEM, err := certgen.IssueServerCertificate(host, ca, caKey)
	if err != nil {
		return fmt.Errorf("server cert: %w", err)
	}
	if err := writePair(dir, "server", certPEM, keyPEM); err != nil {
		return err
	}

	for _, name := range reviewers {
		certPEM, keyPEM, err := certgen.IssueReviewerCertificate(name, ca, caKey)
		if err != nil {
			return fmt.Errorf("reviewer %s: %w", name, err)
		}
		if err := writePair(dir, "reviewer-"+name, certPEM, keyPEM); err != nil {
			return err
		}
	}
	return nil
}

func loadOrCreateCA(dir string) (*x509.Certificate, crypto.Signer, error) {
	certPath := filepath.Join(dir, "ca.crt")
	keyPath := filepath.Join(dir, "ca.key")
	if _, err := os.Stat(certPath); err == nil {
		return certgen.LoadCACredentials(certPath, keyPath)
	}

	certPEM, keyPEM, err := certgen.NewCA("GophIntake CA", 10*365*24*time.Hour)
	if err != nil {
		return nil, nil, err
	}
	if err := writePair(dir, "ca", certPEM, keyPEM); err != nil {
		return nil, nil, err
	}
	return certgen.ParseCA(certPEM, keyPEM)
}

func writePair(dir, name string, certPEM, keyPEM []byte) error {
	if err := os.WriteFile(filepath.Join(dir, name+".crt"), certPEM, 0o644); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name+".key"), keyPEM, 0o600)
}
