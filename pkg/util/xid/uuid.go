package xid

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// DefaultShortIDLength ShortID 的默认长度。
const DefaultShortIDLength = 8

// maxShortIDLength 一个 UUID 的十六进制字符数。
const maxShortIDLength = 32

// NewUUID 返回随机 UUID 的规范字符串形式（36 字符，小写）。
func NewUUID() string {
	return uuid.NewString()
}

// ShortID 返回 n 个小写十六进制字符组成的随机标识。
//
// n <= 0 时使用 [DefaultShortIDLength]，超过 32 时截断为 32。
// 字符取自一个随机 UUID 的十六进制形式（不含连字符）。
func ShortID(n int) string {
	if n <= 0 {
		n = DefaultShortIDLength
	}
	n = min(n, maxShortIDLength)

	u := uuid.New()
	var buf [maxShortIDLength]byte
	hex.Encode(buf[:], u[:])
	return string(buf[:n])
}
