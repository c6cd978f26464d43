package security

import (
	"crypto/rand"
	"io"
)

// RandomBytes генерирует криптостойкие байты
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := io.ReadFull(rand.Reader, b)
	return b, err
}
