// Package privacy derives the personal data the consent log is allowed to keep.
package privacy

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// MaxKeySize is the longest IP hash key BLAKE2b accepts, in bytes.
const MaxKeySize = blake2b.Size

// ValidateKey reports whether key can key the IP digest.
func ValidateKey(key string) error {
	if len(key) > MaxKeySize {
		return fmt.Errorf("ip hash key is %d bytes; at most %d are allowed", len(key), MaxKeySize)
	}
	return nil
}

// HashIP returns the hex-encoded BLAKE2b-256 digest of ip, keyed with key
// when one is configured. An empty ip hashes to "".
func HashIP(ip, key string) (string, error) {
	if ip == "" {
		return "", nil
	}
	var k []byte
	if key != "" {
		k = []byte(key)
	}
	h, err := blake2b.New256(k)
	if err != nil {
		return "", fmt.Errorf("failed to create ip hasher: %w", err)
	}
	h.Write([]byte(ip))
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HeaderGetter reads a request header by name. http.Header satisfies it.
type HeaderGetter interface {
	Get(key string) string
}

// PlainHeaders is a header set held as a plain map, looked up without regard to case.
type PlainHeaders map[string]string

func (h PlainHeaders) Get(key string) string {
	if v, ok := h[key]; ok {
		return v
	}
	for k, v := range h {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

// ClientIP picks the caller's address: the first X-Forwarded-For entry, then
// X-Real-IP, then the host part of remoteAddr.
func ClientIP(headers HeaderGetter, remoteAddr string) string {
	if headers != nil {
		if fwd := headers.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
		if realIP := strings.TrimSpace(headers.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}
	if remoteAddr == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}

// UserAgent returns the User-Agent header, if any.
func UserAgent(headers HeaderGetter) string {
	if headers == nil {
		return ""
	}
	return headers.Get("User-Agent")
}
