package providers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func signBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func signStripe(secret string, body []byte, at time.Time) string {
	ts := at.Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyHexHMAC(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)

	assert.True(t, verifyHexHMAC("whsec_1", body, signHex("whsec_1", body)))
	assert.False(t, verifyHexHMAC("whsec_1", body, signHex("other", body)))
	assert.False(t, verifyHexHMAC("whsec_1", body, "not-hex!!"))
	assert.False(t, verifyHexHMAC("whsec_1", []byte("tampered"), signHex("whsec_1", body)))
}

func TestVerifyBase64HMAC(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)

	assert.True(t, verifyBase64HMAC("secret", body, signBase64("secret", body)))
	assert.False(t, verifyBase64HMAC("secret", body, signBase64("wrong", body)))
	assert.False(t, verifyBase64HMAC("secret", body, "%%%"))
}

func TestVerifyPrefixedHexHMAC(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	sig := "sha256=" + signHex("secret", body)

	assert.True(t, verifyPrefixedHexHMAC("secret", body, sig))
	assert.False(t, verifyPrefixedHexHMAC("secret", body, signHex("secret", body))) // missing prefix
	assert.False(t, verifyPrefixedHexHMAC("wrong", body, sig))
}

func TestVerifyTimestampedHMAC(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now()

	assert.True(t, verifyTimestampedHMAC("whsec_1", body, signStripe("whsec_1", body, now), now))
	assert.False(t, verifyTimestampedHMAC("other", body, signStripe("whsec_1", body, now), now))
	assert.False(t, verifyTimestampedHMAC("whsec_1", []byte("x"), signStripe("whsec_1", body, now), now))
}

func TestVerifyTimestampedHMAC_StaleTimestamp(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	old := now.Add(-10 * time.Minute)

	assert.False(t, verifyTimestampedHMAC("whsec_1", body, signStripe("whsec_1", body, old), now))
}

func TestVerifyTimestampedHMAC_Malformed(t *testing.T) {
	body := []byte(`{}`)
	now := time.Now()

	assert.False(t, verifyTimestampedHMAC("s", body, "", now))
	assert.False(t, verifyTimestampedHMAC("s", body, "t=abc,v1=00", now))
	assert.False(t, verifyTimestampedHMAC("s", body, "v1=00", now))
	assert.False(t, verifyTimestampedHMAC("s", body, fmt.Sprintf("t=%d", now.Unix()), now))
}

func TestVerifyTimestampedHMAC_MultipleCandidates(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	good := signStripe("whsec_1", body, now)
	// Prepend a stale v1 candidate from an old secret; any valid one passes.
	header := good + ",v1=" + signHex("rolled-secret", body)

	assert.True(t, verifyTimestampedHMAC("whsec_1", body, header, now))
}
