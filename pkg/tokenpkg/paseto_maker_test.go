package tokenpkg

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/go-petr/pet-pay/pkg/randompkg"
)

func TestPasetoMaker(t *testing.T) {
	t.Parallel()

	secretKey := randompkg.String(32)

	maker, err := NewPasetoMaker(secretKey)
	if err != nil {
		t.Fatalf("NewPasetoMaker(%v) returned error: %v", secretKey, err)
	}

	accountID := randompkg.IntBetween(1, 1000)
	duration := time.Minute

	token, payload, err := maker.CreateToken("USER", accountID, duration)
	if err != nil {
		t.Errorf("maker.CreateToken(USER, %v, %v) returned error: %v", accountID, duration, err)
	}

	got, err := maker.VerifyToken(token)
	if err != nil {
		t.Errorf("maker.VerifyToken(%v) returned error: %v", token, err)
	}

	want := &Payload{
		Kind:      "USER",
		AccountID: accountID,
		IssuedAt:  time.Now(),
		ExpiredAt: time.Now().Add(duration),
	}

	ignore := cmpopts.IgnoreFields(Payload{}, "ID")
	delta := cmpopts.EquateApproxTime(time.Minute)

	if diff := cmp.Diff(want, payload, ignore, delta); diff != "" {
		t.Errorf("maker.CreateToken() returned unexpected diff: %v", diff)
	}

	if diff := cmp.Diff(want, got, ignore, delta); diff != "" {
		t.Errorf("maker.VerifyToken() returned unexpected diff: %v", diff)
	}
}

func TestExpiredPasetoToken(t *testing.T) {
	t.Parallel()

	maker, err := NewPasetoMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	token, _, err := maker.CreateToken("MERCHANT", 1, -time.Minute)
	if err != nil {
		t.Errorf("maker.CreateToken() returned error: %v", err)
	}

	_, err = maker.VerifyToken(token)
	if err != ErrExpiredToken {
		t.Errorf("maker.VerifyToken(%v) returned unexpected error: %v", token, err)
	}
}

func TestPasetoTokenWrongKey(t *testing.T) {
	t.Parallel()

	maker1, err := NewPasetoMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	maker2, err := NewPasetoMaker(randompkg.String(32))
	if err != nil {
		t.Fatalf("NewPasetoMaker() returned error: %v", err)
	}

	token, _, err := maker1.CreateToken("USER", 1, time.Minute)
	if err != nil {
		t.Fatalf("maker.CreateToken() returned error: %v", err)
	}

	if _, err := maker2.VerifyToken(token); err != ErrInvalidToken {
		t.Errorf("maker2.VerifyToken() returned %v, want %v", err, ErrInvalidToken)
	}
}

func TestNewPasetoMakerKeySize(t *testing.T) {
	t.Parallel()

	if _, err := NewPasetoMaker(randompkg.String(31)); err == nil {
		t.Errorf("NewPasetoMaker() with a 31 byte key returned nil error")
	}
}
