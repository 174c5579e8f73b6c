package domain

// User is an authenticated admin account, as returned by the gateway.
type User struct {
	ID        string
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// DisplayName returns the name recorded on activities this user performs.
func (u *User) DisplayName() string {
	if u == nil {
		return SystemActor
	}
	if u.FirstName != "" {
		if u.LastName != "" {
			return u.FirstName + " " + u.LastName
		}
		return u.FirstName
	}
	if u.Username != "" {
		return u.Username
	}
	return SystemActor
}
