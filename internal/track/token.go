package track

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
)

// NewToken returns a fresh 128-bit tracking token, hex encoded.
func NewToken() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// pixelGIF is a 1x1 transparent GIF, small enough to stay invisible in
// any mail client.
const pixelGIF = "R0lGODlhAQABAIAAAAAAAP///yH5BAEAAAAALAAAAAABAAEAAAIBRAA7"

// Image returns the fixed tracking image bytes served on every pixel fetch.
func Image() []byte {
	img, err := base64.StdEncoding.DecodeString(pixelGIF)
	if err != nil {
		panic(err)
	}
	return img
}
