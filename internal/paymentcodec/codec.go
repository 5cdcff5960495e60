// Package paymentcodec turns a payment intent into an opaque string that can travel
// through an untrusted channel such as a scanned code, and back.
package paymentcodec

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/go-petr/pet-pay/internal/domain"
	"github.com/go-petr/pet-pay/pkg/currencypkg"
)

const (
	fieldSeparator = ","
	fieldCount     = 5
)

// Codec encodes and decodes payment intents.
type Codec interface {
	Encode(intent domain.PaymentIntent) (string, error)
	Decode(payload string) (domain.PaymentIntent, error)
}

// CBC is the AES-CBC codec.
//
// Wire format: base64(IV || AES-CBC-PKCS5(amount,currency,merchantAccountNumber,description,payerAccountId)).
// It provides confidentiality only. Tampering is detected by the strict parsing of the
// decrypted record, not cryptographically; see Sealed for an authenticated variant.
type CBC struct {
	block cipher.Block
	rand  io.Reader
}

// NewCBC returns a CBC codec for a base64 encoded AES key of 16, 24 or 32 bytes.
func NewCBC(encodedKey string) (*CBC, error) {
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode payload key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("invalid payload key: %w", err)
	}

	return &CBC{block: block, rand: rand.Reader}, nil
}

// Encode encrypts the intent under a fresh random IV.
func (c *CBC) Encode(intent domain.PaymentIntent) (string, error) {
	plain, err := joinFields(intent)
	if err != nil {
		return "", err
	}

	padded := pkcs7Pad([]byte(plain), aes.BlockSize)

	out := make([]byte, aes.BlockSize+len(padded))
	iv := out[:aes.BlockSize]

	if _, err := io.ReadFull(c.rand, iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out[aes.BlockSize:], padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decode reverses Encode. Every failure is reported as domain.ErrPayloadDecode.
func (c *CBC) Decode(payload string) (domain.PaymentIntent, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return domain.PaymentIntent{}, decodeErr("base64: %v", err)
	}

	if len(raw) < 2*aes.BlockSize || len(raw)%aes.BlockSize != 0 {
		return domain.PaymentIntent{}, decodeErr("bad length %d", len(raw))
	}

	iv, body := raw[:aes.BlockSize], raw[aes.BlockSize:]

	plain := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, body)

	plain, err = pkcs7Unpad(plain, aes.BlockSize)
	if err != nil {
		return domain.PaymentIntent{}, decodeErr("%v", err)
	}

	return splitFields(plain)
}

func decodeErr(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrPayloadDecode}, args...)...)
}

func joinFields(intent domain.PaymentIntent) (string, error) {
	fields := []string{
		intent.Amount.String(),
		intent.Currency,
		intent.MerchantAccountNumber,
		intent.Description,
		strconv.FormatInt(intent.PayerAccountID, 10),
	}

	for _, f := range fields {
		if strings.Contains(f, fieldSeparator) {
			return "", domain.ErrPayloadDelimiter
		}
	}

	return strings.Join(fields, fieldSeparator), nil
}

func splitFields(plain []byte) (domain.PaymentIntent, error) {
	var intent domain.PaymentIntent

	if !utf8.Valid(plain) {
		return intent, decodeErr("plaintext is not utf-8")
	}

	fields := strings.Split(string(plain), fieldSeparator)
	if len(fields) != fieldCount {
		return intent, decodeErr("want %d fields, got %d", fieldCount, len(fields))
	}

	return parseFields(fields[0], fields[1], fields[2], fields[3], fields[4])
}

func parseFields(amount, currency, merchant, description, payer string) (domain.PaymentIntent, error) {
	var intent domain.PaymentIntent

	a, err := decimal.NewFromString(amount)
	if err != nil || !a.IsPositive() || !domain.FitsAmountScale(a) {
		return intent, decodeErr("bad amount %q", amount)
	}

	if !currencypkg.IsSupportedCurrency(currency) {
		return intent, decodeErr("bad currency %q", currency)
	}

	if merchant == "" {
		return intent, decodeErr("empty merchant account number")
	}

	payerID, err := strconv.ParseInt(payer, 10, 64)
	if err != nil || payerID <= 0 {
		return intent, decodeErr("bad payer id %q", payer)
	}

	intent = domain.PaymentIntent{
		Amount:                a,
		Currency:              currency,
		MerchantAccountNumber: merchant,
		Description:           description,
		PayerAccountID:        payerID,
	}

	return intent, nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size

	out := make([]byte, len(b), len(b)+n)
	copy(out, b)

	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}

	return out
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, fmt.Errorf("bad padded length %d", len(b))
	}

	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, fmt.Errorf("bad padding")
	}

	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, fmt.Errorf("bad padding")
		}
	}

	return b[:len(b)-n], nil
}
