// Package payment authenticates payment gateway callbacks.
package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/khoa21023/salebot-telegram/services/api/internal/domain"
)

// Callback is the gateway payload as received. Amount keeps the exact text
// the gateway signed.
type Callback struct {
	Reference string
	Amount    string
	Status    string
	Signature string
}

// Verifier checks HMAC-SHA256 signatures over the callback's canonical
// form "amount=<a>&reference=<r>&status=<s>".
type Verifier struct {
	key []byte
}

// NewVerifier returns a verifier for the shared checksum key. An empty key
// disables signature checks, which is only meant for local runs.
func NewVerifier(key string) *Verifier {
	return &Verifier{key: []byte(key)}
}

func (v *Verifier) Enabled() bool {
	return len(v.key) > 0
}

// Sign returns the hex signature the gateway is expected to send.
func (v *Verifier) Sign(c Callback) string {
	mac := hmac.New(sha256.New, v.key)
	mac.Write([]byte(canonical(c)))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify authenticates the callback and converts it into a payment event.
func (v *Verifier) Verify(c Callback) (domain.PaymentEvent, error) {
	if v.Enabled() {
		got, err := hex.DecodeString(strings.TrimSpace(c.Signature))
		if err != nil {
			return domain.PaymentEvent{}, domain.ErrInvalidSignature
		}
		mac := hmac.New(sha256.New, v.key)
		mac.Write([]byte(canonical(c)))
		if !hmac.Equal(got, mac.Sum(nil)) {
			return domain.PaymentEvent{}, domain.ErrInvalidSignature
		}
	}

	if strings.TrimSpace(c.Reference) == "" {
		return domain.PaymentEvent{}, fmt.Errorf("%w: missing reference", ErrMalformed)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(c.Amount))
	if err != nil {
		return domain.PaymentEvent{}, fmt.Errorf("%w: amount %q", ErrMalformed, c.Amount)
	}
	return domain.PaymentEvent{
		Reference:  strings.TrimSpace(c.Reference),
		AmountPaid: amount,
		Status:     domain.PaymentStatus(strings.ToUpper(strings.TrimSpace(c.Status))),
	}, nil
}

func canonical(c Callback) string {
	return "amount=" + c.Amount + "&reference=" + c.Reference + "&status=" + c.Status
}
