package nylas

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader webhook 签名请求头
const SignatureHeader = "X-Nylas-Signature"

// ComputeWebhookSignature 计算请求体的 HMAC-SHA256 十六进制摘要
func ComputeWebhookSignature(secret string, body []byte) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyWebhookSignature 用常量时间比较校验 webhook 签名
//
// 签名为空或与计算值不符时返回 false。
func VerifyWebhookSignature(secret, signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	expected := ComputeWebhookSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(signature))
}
