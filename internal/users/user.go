package users

// User is a registered principal, capable of owning blogs.
// The password hash stays server-side, it is never serialized.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Name         string `json:"name"`
	PasswordHash string `json:"-"`
	// BlogIDs is the denormalized list of owned blog ids, in creation order.
	// The blogs table user_id column is the source of truth for ownership.
	BlogIDs []string `json:"blogs"`
}

// Summary is the subset of user fields safe to embed in a blog response
type Summary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

func (u *User) Summary() Summary {
	return Summary{
		ID:       u.ID,
		Username: u.Username,
		Name:     u.Name,
	}
}
