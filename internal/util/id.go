package util

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

func NewID(prefix string) string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	if prefix == "" {
		return hex.EncodeToString(bytes)
	}
	return prefix + "_" + hex.EncodeToString(bytes)
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// RandomSuffix returns n random lowercase base-36 characters.
func RandomSuffix(n int) string {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			out[i] = base36[0]
			continue
		}
		out[i] = base36[idx.Int64()]
	}
	return string(out)
}
