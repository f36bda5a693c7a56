package auth

import (
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJWTRoundTrip(t *testing.T) {
	mgr, err := NewJWTManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	userID := uuid.New()
	token, err := mgr.Issue(userID)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := mgr.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got != userID {
		t.Fatalf("Verify() = %v, want %v", got, userID)
	}
}

func TestJWTVerifyFailures(t *testing.T) {
	mgr, _ := NewJWTManager("test-secret", time.Hour)
	other, _ := NewJWTManager("other-secret", time.Hour)
	expired, _ := NewJWTManager("test-secret", -time.Minute)

	userID := uuid.New()
	foreignToken, _ := other.Issue(userID)
	expiredToken, _ := expired.Issue(userID)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-token"},
		{name: "empty", token: ""},
		{name: "wrong key", token: foreignToken},
		{name: "expired", token: expiredToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := mgr.Verify(tt.token); err == nil {
				t.Fatal("Verify() succeeded, want error")
			}
		})
	}
}

func TestNewJWTManagerRequiresSecret(t *testing.T) {
	if _, err := NewJWTManager("", time.Hour); err == nil {
		t.Fatal("expected error for empty secret")
	}
}

func TestGenerateOTP(t *testing.T) {
	for i := 0; i < 200; i++ {
		otp, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP() error = %v", err)
		}
		if len(otp) != 6 {
			t.Fatalf("otp %q length = %d, want 6", otp, len(otp))
		}
		n, err := strconv.Atoi(otp)
		if err != nil {
			t.Fatalf("otp %q is not numeric", otp)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("otp %d out of range", n)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash equals plaintext")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatal("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong password accepted")
	}
}
