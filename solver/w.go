package solver

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

// deriveW computes the response token for a challenge. The token is the
// base64 AES-CBC encryption of a kind-specific payload under an MD5
// expansion of key, concatenated with an MD5 signature over the
// challenge components. Pure: fixed inputs always derive the same w.
func deriveW(key, gt, challenge string, c []byte, s string, kind VerifyType) (string, error) {
	if key == "" {
		return "", errors.New("generate_w: key is required")
	}
	if gt == "" || challenge == "" {
		return "", errors.New("generate_w: gt and challenge are required")
	}
	if len(c) == 0 || s == "" {
		return "", errors.New("generate_w: missing challenge components c and s")
	}

	payload, err := wPayload(gt, challenge, c, s, kind)
	if err != nil {
		return "", errors.Wrap(err, "generate_w")
	}

	aesKey := md5.Sum([]byte(key))
	block, err := aes.NewCipher(aesKey[:])
	if err != nil {
		return "", errors.Wrap(err, "generate_w")
	}
	iv := md5.Sum([]byte(s + gt))
	padded := pkcs7Pad(payload, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:aes.BlockSize]).CryptBlocks(out, padded)

	sig := md5.Sum([]byte(gt + challenge + s))
	return base64.StdEncoding.EncodeToString(out) + hex.EncodeToString(sig[:]), nil
}

// wPayload builds the plaintext the service expects: slide solutions
// report a trace distance, click solutions a point list. Both are
// derived from the challenge components rather than live interaction,
// which keeps derivation deterministic.
func wPayload(gt, challenge string, c []byte, s string, kind VerifyType) ([]byte, error) {
	seed := md5.Sum(append([]byte(gt+challenge+s), c...))
	passtime := 400 + int(seed[0])<<2

	if kind == TypeSlide {
		return json.Marshal(struct {
			Gt        string `json:"gt"`
			Challenge string `json:"challenge"`
			S         string `json:"s"`
			Distance  int    `json:"distance"`
			Passtime  int    `json:"passtime"`
		}{gt, challenge, s, int(seed[1]) % 260, passtime})
	}

	points := make([][2]int, 3)
	for i := range points {
		points[i] = [2]int{int(seed[2*i+2]), int(seed[2*i+3])}
	}
	return json.Marshal(struct {
		Gt        string   `json:"gt"`
		Challenge string   `json:"challenge"`
		S         string   `json:"s"`
		Points    [][2]int `json:"a"`
		Passtime  int      `json:"passtime"`
	}{gt, challenge, s, points, passtime})
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	padded := make([]byte, len(b)+n)
	copy(padded, b)
	for i := len(b); i < len(padded); i++ {
		padded[i] = byte(n)
	}
	return padded
}
