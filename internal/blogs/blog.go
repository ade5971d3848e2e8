package blogs

import "github.com/heksidee/blogAppPipeline/internal/users"

// Blog is a single blog post. OwnerID mirrors the user_id column and is
// the authoritative ownership reference; User is the embeddable owner
// summary resolved on reads.
type Blog struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Author   string         `json:"author"`
	URL      string         `json:"url"`
	Likes    int            `json:"likes"`
	Comments []string       `json:"comments"`
	OwnerID  string         `json:"-"`
	User     *users.Summary `json:"user,omitempty"`
}
