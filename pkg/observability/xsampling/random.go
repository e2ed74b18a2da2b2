package xsampling

import (
	"crypto/rand"
	"encoding/binary"
)

const floatScale = 1.0 / (1 << 53)

// randomFloat64 返回 [0.0, 1.0) 内的随机数。
// crypto/rand 失败意味着系统熵源不可用，此时直接 panic。
func randomFloat64() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("xsampling: crypto/rand.Read failed: " + err.Error())
	}
	return float64(binary.LittleEndian.Uint64(buf[:])>>11) * floatScale
}
