package telegram

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
)

var ErrNoUser = errors.New("user not found in init data")

type WebAppUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
}

// Handle is the username the player is known by in games. Telegram
// accounts without a public username get a stable synthetic one.
func (u *WebAppUser) Handle() string {
	if u.Username != "" {
		return u.Username
	}
	return fmt.Sprintf("tg%d", u.ID)
}

// ParseUser reads the user object out of init data without checking the
// signature.
func ParseUser(initData string) (*WebAppUser, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return nil, err
	}
	return userFrom(values)
}

func userFrom(values url.Values) (*WebAppUser, error) {
	raw := values.Get("user")
	if raw == "" {
		return nil, ErrNoUser
	}
	var user WebAppUser
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("invalid user json: %w", err)
	}
	return &user, nil
}
