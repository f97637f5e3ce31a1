package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrInvalidInitData = errors.New("invalid or stale telegram data")
	errNoHash          = fmt.Errorf("%w: hash missing", ErrInvalidInitData)
	errBadSignature    = fmt.Errorf("%w: signature mismatch", ErrInvalidInitData)
	errStale           = fmt.Errorf("%w: auth_date out of range", ErrInvalidInitData)
)

const (
	maxAge  = time.Hour
	maxSkew = 5 * time.Minute
)

// Authenticate checks the init data signature against botToken and returns
// the user it carries.
func Authenticate(initData, botToken string) (*WebAppUser, error) {
	values, err := Verify(initData, botToken, time.Now())
	if err != nil {
		return nil, err
	}
	return userFrom(values)
}

// Verify checks the WebApp init data HMAC and that auth_date lies within
// the last hour (with a little clock skew). The returned values no longer
// contain the hash.
func Verify(initData, botToken string, now time.Time) (url.Values, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	provided, err := hex.DecodeString(values.Get("hash"))
	if err != nil || len(provided) == 0 {
		return nil, errNoHash
	}
	values.Del("hash")

	if !hmac.Equal(signature(values, botToken), provided) {
		return nil, errBadSignature
	}

	authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
	if err != nil {
		return nil, errStale
	}
	age := now.Sub(time.Unix(authDate, 0))
	if age > maxAge || age < -maxSkew {
		return nil, errStale
	}
	return values, nil
}

// signature is HMAC-SHA256 over the sorted "key=value" lines, keyed by the
// SHA-256 of the bot token.
func signature(values url.Values, botToken string) []byte {
	lines := make([]string, 0, len(values))
	for k, v := range values {
		lines = append(lines, k+"="+strings.Join(v, ""))
	}
	sort.Strings(lines)

	secret := sha256.Sum256([]byte(botToken))
	h := hmac.New(sha256.New, secret[:])
	h.Write([]byte(strings.Join(lines, "\n")))
	return h.Sum(nil)
}
