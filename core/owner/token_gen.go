package owner

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/nae-imUam/coaching-app-api/core"
)

var (
	salt    = []byte("coaching.core.owner.token_gen")
	nowFunc = time.Now // mockable

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

	// errors
	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

// makeToken generates a password reset token for a given Owner.
// The token is invalidated by any change of password or login.
func makeToken(o Owner) (string, error) {
	return makeTokenWithTimestamp(o, numSecondsSince2001(nowFunc()))
}

// verifyToken checks that a password reset token for a given Owner is valid.
func verifyToken(o Owner, token string) error {
	if token == "" {
		return errInvalidToken
	}

	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidToken
	}

	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	ts, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return errInvalidToken
	}

	// check that token has not been tampered with
	newToken, err := makeTokenWithTimestamp(o, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(newToken), []byte(token)) == 0 {
		return errInvalidToken
	}

	// check that the timestamp is within limit
	if (numSecondsSince2001(nowFunc()) - ts) > int64(core.Conf.PasswordResetTimeoutDelta/time.Second) {
		return errTokenExpired
	}
	return nil
}

func makeTokenWithTimestamp(o Owner, ts int64) (string, error) {
	tsB32 := b32.EncodeToString([]byte(strconv.FormatInt(ts, 10)))
	sig, err := sign(hashValue(o, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", tsB32, sig), nil
}

func numSecondsSince2001(t time.Time) int64 {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int64(t.Sub(ref) / time.Second)
}

func sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, core.Conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func hashValue(o Owner, ts int64) []byte {
	var val bytes.Buffer
	val.WriteString(o.ID)
	val.Write(o.PasswordHash)
	if !o.LastLogin.IsZero() {
		val.WriteString(o.LastLogin.UTC().Truncate(time.Microsecond).String())
	}
	val.WriteString(strconv.FormatInt(ts, 10))
	return val.Bytes()
}
