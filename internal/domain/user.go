package domain

import "time"

// User - зарегистрированная личность. Username служит идентификатором в партиях.
type User struct {
	ID        int64     `db:"id"`
	TgID      int64     `db:"tg_id"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	CreatedAt time.Time `db:"created_at"`
}
