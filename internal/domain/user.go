package domain

type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Confirmed bool   `json:"confirmed"`
	Blocked   bool   `json:"blocked"`
}

// AuthResponse is what the remote API returns from register and login.
type AuthResponse struct {
	JWT  string `json:"jwt"`
	User *User  `json:"user"`
}

type Session struct {
	Token string `json:"-"`
	User  *User  `json:"user"`
}

// IsAuthenticated reports whether a user is loaded; a token alone may
// still be rejected by the API.
func (s Session) IsAuthenticated() bool {
	return s.User != nil
}
