package blob

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// Presigned URL query parameter names.
const (
	ParamExpires     = "expires"
	ParamContentType = "content-type"
	ParamSignature   = "signature"
)

// signer issues and verifies HMAC-SHA256 signatures over the tuple
// (method, key, content type, expiry). The signature covers everything a
// presigned request is allowed to do, so a URL for one key or method
// cannot be replayed against another.
type signer struct {
	secret []byte
}

func newSigner(secret string) *signer {
	return &signer{secret: []byte(secret)}
}

func (s *signer) sign(method, key, contentType string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s\n%s\n%s\n%d", method, key, contentType, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *signer) verify(method, key, contentType string, expires int64, signature string, now time.Time) error {
	expected := s.sign(method, key, contentType, expires)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	if now.Unix() > expires {
		return ErrExpired
	}
	return nil
}

func (s *signer) signedURL(baseURL, method, key, contentType string, expires int64) string {
	values := url.Values{}
	values.Set(ParamExpires, strconv.FormatInt(expires, 10))
	if contentType != "" {
		values.Set(ParamContentType, contentType)
	}
	values.Set(ParamSignature, s.sign(method, key, contentType, expires))

	return fmt.Sprintf("%s/blob/%s?%s", baseURL, key, values.Encode())
}
