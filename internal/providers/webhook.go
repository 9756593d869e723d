package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Webhook verification is defined over the exact wire bytes: every helper
// here takes the raw body as delivered, before any JSON parsing. Comparison
// is constant-time via hmac.Equal.

func hmacSHA256(secret string, data []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(data)
	return mac.Sum(nil)
}

// verifyHexHMAC checks a lowercase-hex HMAC-SHA256 of the body, the scheme
// GoCardless and PayPlug use.
func verifyHexHMAC(secret string, body []byte, signature string) bool {
	expected, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, hmacSHA256(secret, body))
}

// verifyBase64HMAC checks a base64 HMAC-SHA256 of the body, the scheme the
// PayPal transmission signature uses.
func verifyBase64HMAC(secret string, body []byte, signature string) bool {
	expected, err := base64.StdEncoding.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	return hmac.Equal(expected, hmacSHA256(secret, body))
}

// verifyPrefixedHexHMAC checks a "sha256=<hex>" signature, the scheme Mollie
// uses.
func verifyPrefixedHexHMAC(secret string, body []byte, signature string) bool {
	sig, ok := strings.CutPrefix(strings.TrimSpace(signature), "sha256=")
	if !ok {
		return false
	}
	return verifyHexHMAC(secret, body, sig)
}

// stripeSignatureTolerance bounds how old a Stripe-style timestamped
// signature may be before replay is assumed.
const stripeSignatureTolerance = 5 * time.Minute

// verifyTimestampedHMAC checks a Stripe-style "t=<unix>,v1=<hex>" header: the
// HMAC is computed over "<timestamp>.<body>" and the timestamp must be within
// tolerance of now. Multiple v1 entries are accepted if any verifies, since
// Stripe includes old signatures during secret rolls.
func verifyTimestampedHMAC(secret string, body []byte, header string, now time.Time) bool {
	var timestamp string
	var candidates []string

	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return false
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > stripeSignatureTolerance || age < -stripeSignatureTolerance {
		return false
	}

	signed := fmt.Sprintf("%s.%s", timestamp, body)
	expected := hmacSHA256(secret, []byte(signed))
	for _, candidate := range candidates {
		got, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(expected, got) {
			return true
		}
	}
	return false
}
