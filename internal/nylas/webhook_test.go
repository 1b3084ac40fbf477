package nylas

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifyWebhookSignature(t *testing.T) {
	secret := "test-webhook-secret"
	body := []byte(`{"type":"message.created","data":{"object":{"id":"msg-1"}}}`)

	sign := func(key string, payload []byte) string {
		h := hmac.New(sha256.New, []byte(key))
		h.Write(payload)
		return hex.EncodeToString(h.Sum(nil))
	}

	t.Run("正确签名通过校验", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(secret, sign(secret, body), body))
	})

	t.Run("密钥不符校验失败", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(secret, sign("wrong-secret", body), body))
	})

	t.Run("请求体被篡改校验失败", func(t *testing.T) {
		tampered := append([]byte{}, body...)
		tampered[len(tampered)-2] = '2'
		assert.False(t, VerifyWebhookSignature(secret, sign(secret, body), tampered))
	})

	t.Run("空签名校验失败", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(secret, "", body))
	})

	t.Run("签名与计算值一致", func(t *testing.T) {
		assert.Equal(t, sign(secret, body), ComputeWebhookSignature(secret, body))
	})
}
