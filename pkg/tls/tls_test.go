package tls

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
)

// writeCerts creates a CA and a leaf certificate signed by it in dir.
func writeCerts(t *testing.T, dir string) Config {
	t.Helper()

	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	caTmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
	}
	caDER, err := x509.CreateCertificate(rand.Reader, caTmpl, caTmpl, &caKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}

	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	leafTmpl := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "localhost"},
		DNSNames:     []string{"localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
	}
	leafDER, err := x509.CreateCertificate(rand.Reader, leafTmpl, caTmpl, &leafKey.PublicKey, caKey)
	if err != nil {
		t.Fatal(err)
	}
	keyDER, err := x509.MarshalECPrivateKey(leafKey)
	if err != nil {
		t.Fatal(err)
	}

	cfg := Config{
		Enabled:  true,
		CertFile: filepath.Join(dir, "tls.crt"),
		KeyFile:  filepath.Join(dir, "tls.key"),
		CAFile:   filepath.Join(dir, "ca.crt"),
	}
	writePEM(t, cfg.CAFile, "CERTIFICATE", caDER)
	writePEM(t, cfg.CertFile, "CERTIFICATE", leafDER)
	writePEM(t, cfg.KeyFile, "EC PRIVATE KEY", keyDER)
	return cfg
}

func writePEM(t *testing.T, path, typ string, der []byte) {
	t.Helper()
	if err := os.WriteFile(path, pem.EncodeToMemory(&pem.Block{Type: typ, Bytes: der}), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestConfig_Validate(t *testing.T) {
	dir := t.TempDir()
	valid := writeCerts(t, dir)

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "disabled", cfg: Config{}},
		{name: "valid", cfg: valid},
		{name: "missing key", cfg: Config{Enabled: true, CertFile: valid.CertFile, CAFile: valid.CAFile}, wantErr: true},
		{name: "nonexistent file", cfg: Config{Enabled: true, CertFile: valid.CertFile, KeyFile: valid.KeyFile, CAFile: filepath.Join(dir, "nope")}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ServerAndClient(t *testing.T) {
	cfg := writeCerts(t, t.TempDir())

	server, err := cfg.ServerConfig()
	if err != nil {
		t.Fatalf("ServerConfig() error = %v", err)
	}
	if server.ClientAuth != tls.RequireAndVerifyClientCert || server.MinVersion != tls.VersionTLS13 {
		t.Errorf("unexpected server config: auth=%v min=%x", server.ClientAuth, server.MinVersion)
	}
	if len(server.Certificates) != 1 || server.ClientCAs == nil {
		t.Error("server config missing certificate or client CA pool")
	}

	client, err := cfg.ClientConfig()
	if err != nil {
		t.Fatalf("ClientConfig() error = %v", err)
	}
	if client.RootCAs == nil || len(client.Certificates) != 1 {
		t.Error("client config missing root CA pool or certificate")
	}
}

func TestConfig_Disabled(t *testing.T) {
	server, err := Config{}.ServerConfig()
	if err != nil || server != nil {
		t.Errorf("ServerConfig() = %v, %v; want nil, nil", server, err)
	}
	client, err := Config{}.ClientConfig()
	if err != nil || client != nil {
		t.Errorf("ClientConfig() = %v, %v; want nil, nil", client, err)
	}
}

func TestConfig_BadCA(t *testing.T) {
	cfg := writeCerts(t, t.TempDir())
	if err := os.WriteFile(cfg.CAFile, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.ClientConfig(); err == nil {
		t.Error("expected error for unparsable CA")
	}
}
