package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SignPayload returns the hex HMAC-SHA256 of payload under secret, the value
// terminals send in the X-Signature header.
func SignPayload(secret string, payload []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// verifySignature compares in constant time. An optional "sha256=" prefix is
// accepted.
func verifySignature(secret string, payload []byte, signature string) error {
	signature = strings.TrimPrefix(strings.TrimSpace(signature), "sha256=")
	got, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not hex", ErrInvalidSignature)
	}

	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	if !hmac.Equal(got, h.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// deriveExternalID names an event that arrived without an id: the terminal's
// transaction_id when the payload has one, otherwise a digest of the body.
func deriveExternalID(payload []byte) string {
	var probe struct {
		TransactionID string `json:"transaction_id"`
	}
	if err := json.Unmarshal(payload, &probe); err == nil && strings.TrimSpace(probe.TransactionID) != "" {
		return strings.TrimSpace(probe.TransactionID)
	}
	sum := sha256.Sum256(payload)
	return "sha256:" + hex.EncodeToString(sum[:])
}
