package crypto

import "testing"

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("secret123")
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if err := CheckPassword(hash, "secret123"); err != nil {
		t.Fatalf("expected password to match")
	}
	if err := CheckPassword(hash, "wrong"); err == nil {
		t.Fatalf("expected password mismatch")
	}
}

func TestRefreshTokenHash(t *testing.T) {
	token, err := IssueRefreshToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	other, err := IssueRefreshToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	if token.Value == other.Value || token.Hash == other.Hash {
		t.Fatalf("expected distinct refresh tokens")
	}
	if token.Hash == token.Value {
		t.Fatalf("hash must not equal the token")
	}
	hash, err := RefreshTokenHash(token.Value)
	if err != nil {
		t.Fatalf("hash error: %v", err)
	}
	if hash != token.Hash {
		t.Fatalf("expected presented token to hash to the issued digest")
	}
}

func TestRefreshTokenHashRejectsMalformed(t *testing.T) {
	token, err := IssueRefreshToken()
	if err != nil {
		t.Fatalf("token error: %v", err)
	}
	cases := map[string]string{
		"empty":     "",
		"short":     token.Value[:20],
		"long":      token.Value + "AA",
		"bad chars": "!" + token.Value[1:],
		"std b64":   "+" + token.Value[1:],
	}
	for name, value := range cases {
		if _, err := RefreshTokenHash(value); err != ErrMalformedRefreshToken {
			t.Fatalf("%s: expected ErrMalformedRefreshToken, got %v", name, err)
		}
	}
}
