package security

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testProvider(t *testing.T) *TokenProvider {
	t.Helper()
	p, err := NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test provider: %v", err)
	}
	return p
}

func TestIssueValidateRoundTrip(t *testing.T) {
	p := testProvider(t)
	id := Identity{TenantID: "tenant-1", Role: "support", DisplayName: "Rudi"}

	token, jti, expiresAt, err := p.IssueAccess(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if jti == "" {
		t.Error("empty jti")
	}
	if remaining := time.Until(expiresAt); remaining < 14*time.Minute || remaining > 16*time.Minute {
		t.Errorf("expiry %v from now", remaining)
	}

	got, err := p.ValidateAccess(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got != id {
		t.Errorf("identity = %+v, want %+v", got, id)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	p := testProvider(t)
	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateAccess(%q) err = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestValidateRejectsWrongIssuerAndAudience(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	p := testProvider(t)
	id := Identity{TenantID: "tenant-1", Role: "support", DisplayName: "Rudi"}

	otherIssuer := NewTokenProvider(signer, pub, "other-issuer", "test-audience", time.Minute)
	token, _, _, err := otherIssuer.IssueAccess(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong issuer accepted: %v", err)
	}

	otherAudience := NewTokenProvider(signer, pub, "test-issuer", "other-audience", time.Minute)
	token, _, _, err = otherAudience.IssueAccess(id)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := p.ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("wrong audience accepted: %v", err)
	}
}

func TestValidateRejectsExpired(t *testing.T) {
	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("parse key: %v", err)
	}
	expired := NewTokenProvider(signer, pub, "test-issuer", "test-audience", -time.Minute)

	token, _, _, err := expired.IssueAccess(Identity{TenantID: "tenant-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := testProvider(t).ValidateAccess(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expired token accepted: %v", err)
	}
}

func TestTokenHash(t *testing.T) {
	hash := HashToken("some-token")
	if hash == "some-token" || len(hash) != 64 {
		t.Errorf("hash = %q", hash)
	}
	if !TokenHashEqual("some-token", hash) {
		t.Error("hash does not match its own token")
	}
	if TokenHashEqual("other-token", hash) {
		t.Error("hash matched a different token")
	}
}

func TestParseKeys(t *testing.T) {
	if _, err := ParsePrivateKey("not pem at all"); err == nil {
		t.Error("ParsePrivateKey accepted garbage")
	}
	if _, err := ParsePublicKey(""); !errors.Is(err, ErrInvalidKey) {
		t.Error("ParsePublicKey accepted empty input")
	}

	signer, err := ParsePrivateKey(testPrivateKeyPEM)
	if err != nil {
		t.Fatalf("parse private: %v", err)
	}
	pub, err := ParsePublicKey(testPublicKeyPEM)
	if err != nil {
		t.Fatalf("parse public: %v", err)
	}
	if alg := KeyAlg(pub); alg != "RS256" {
		t.Errorf("alg = %q, want RS256", alg)
	}
	if signer == nil {
		t.Error("nil signer")
	}
}

func TestParseKeysFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jwt.pem")
	if err := os.WriteFile(path, []byte(testPrivateKeyPEM), 0o600); err != nil {
		t.Fatalf("write key file: %v", err)
	}
	if _, err := ParsePrivateKey(path); err != nil {
		t.Fatalf("parse from file: %v", err)
	}
	if _, err := ParsePrivateKey(filepath.Join(t.TempDir(), "missing.pem")); err == nil {
		t.Error("missing key file accepted")
	}
}
