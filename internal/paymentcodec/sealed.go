package paymentcodec

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/go-petr/pet-pay/internal/domain"
)

// Sealed is an authenticated codec built on XChaCha20-Poly1305.
//
// Wire format: base64url(nonce[24] || seal(len-prefixed fields)). Any modification of
// the payload fails authentication, and fields may contain any character.
type Sealed struct {
	key  []byte
	rand io.Reader
}

// NewSealed returns a Sealed codec for a base64 encoded 32 byte key.
func NewSealed(encodedKey string) (*Sealed, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode payload key: %w", err)
	}

	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("invalid payload key: must be %d bytes", chacha20poly1305.KeySize)
	}

	return &Sealed{key: key, rand: rand.Reader}, nil
}

// Encode seals the intent under a fresh random nonce.
func (s *Sealed) Encode(intent domain.PaymentIntent) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+256)
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	var plain []byte
	for _, f := range []string{
		intent.Amount.String(),
		intent.Currency,
		intent.MerchantAccountNumber,
		intent.Description,
		strconv.FormatInt(intent.PayerAccountID, 10),
	} {
		plain = binary.AppendUvarint(plain, uint64(len(f)))
		plain = append(plain, f...)
	}

	out := aead.Seal(nonce, nonce, plain, nil)

	return base64.RawURLEncoding.EncodeToString(out), nil
}

// Decode opens and parses the payload. Every failure is reported as domain.ErrPayloadDecode.
func (s *Sealed) Decode(payload string) (domain.PaymentIntent, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return domain.PaymentIntent{}, err
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return domain.PaymentIntent{}, decodeErr("base64: %v", err)
	}

	if len(raw) < aead.NonceSize()+aead.Overhead() {
		return domain.PaymentIntent{}, decodeErr("bad length %d", len(raw))
	}

	nonce, sealed := raw[:aead.NonceSize()], raw[aead.NonceSize():]

	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return domain.PaymentIntent{}, decodeErr("authentication failed")
	}

	fields := make([]string, 0, fieldCount)

	for len(plain) > 0 {
		n, k := binary.Uvarint(plain)
		if k <= 0 || uint64(len(plain)-k) < n {
			return domain.PaymentIntent{}, decodeErr("bad field length")
		}

		fields = append(fields, string(plain[k:k+int(n)]))
		plain = plain[k+int(n):]
	}

	if len(fields) != fieldCount {
		return domain.PaymentIntent{}, decodeErr("want %d fields, got %d", fieldCount, len(fields))
	}

	return parseFields(fields[0], fields[1], fields[2], fields[3], fields[4])
}

// New returns the codec selected by mode, "cbc" or "sealed".
func New(mode, encodedKey string) (Codec, error) {
	switch mode {
	case "", "cbc":
		c, err := NewCBC(encodedKey)
		if err != nil {
			return nil, err
		}

		return c, nil
	case "sealed":
		c, err := NewSealed(encodedKey)
		if err != nil {
			return nil, err
		}

		return c, nil
	}

	return nil, fmt.Errorf("unsupported payload codec %q", mode)
}
