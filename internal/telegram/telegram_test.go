package telegram

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initData(botToken string, authDate time.Time, user string) string {
	values := url.Values{}
	values.Set("user", user)
	values.Set("auth_date", strconv.FormatInt(authDate.Unix(), 10))
	values.Set("hash", hex.EncodeToString(signature(values, botToken)))
	return values.Encode()
}

func TestAuthenticate(t *testing.T) {
	data := initData("bot-token", time.Now(), `{"id":77,"first_name":"Ann"}`)

	u, err := Authenticate(data, "bot-token")
	require.NoError(t, err)
	assert.Equal(t, int64(77), u.ID)
	assert.Equal(t, "tg77", u.Handle())

	_, err = Authenticate(data, "other-token")
	assert.ErrorIs(t, err, ErrInvalidInitData)
}

func TestVerify(t *testing.T) {
	now := time.Now()
	user := `{"id":1,"username":"u","first_name":"F"}`

	cases := []struct {
		name string
		data string
		err  error
	}{
		{"valid", initData("tok", now, user), nil},
		{"tampered", initData("tok", now, user) + "&x=1", errBadSignature},
		{"no hash", "auth_date=1&user=%7B%7D", errNoHash},
		{"too old", initData("tok", now.Add(-2*time.Hour), user), errStale},
		{"from the future", initData("tok", now.Add(time.Hour), user), errStale},
		{"small skew", initData("tok", now.Add(time.Minute), user), nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := Verify(tc.data, "tok", now)
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.ErrorIs(t, err, ErrInvalidInitData)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, user, values.Get("user"))
			assert.Empty(t, values.Get("hash"))
		})
	}
}

func TestParseUser(t *testing.T) {
	u, err := ParseUser(`user={"id":42,"username":"neo"}`)
	require.NoError(t, err)
	assert.Equal(t, "neo", u.Handle())

	_, err = ParseUser("auth_date=1")
	assert.ErrorIs(t, err, ErrNoUser)

	_, err = ParseUser("user=nope")
	assert.Error(t, err)
}
