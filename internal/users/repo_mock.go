package users

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var _ usersRepo = (*RepoMock)(nil)

// RepoMock is an in-memory users store, used by unit tests
// here and in the auth and blogs packages
type RepoMock struct {
	mutex sync.Mutex
	Users map[string]*User
}

func NewRepoMock() *RepoMock {
	return &RepoMock{
		Users: make(map[string]*User),
	}
}

func (r *RepoMock) UsersCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Users)
}

func (r *RepoMock) Create(_ context.Context, user *User) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == user.Username {
			return ErrUsernameTaken
		}
	}

	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.BlogIDs == nil {
		user.BlogIDs = []string{}
	}

	r.Users[user.ID] = user
	return nil
}

func (r *RepoMock) GetByID(_ context.Context, id string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (r *RepoMock) GetByUsername(_ context.Context, username string) (*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, u := range r.Users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, ErrUserNotFound
}

func (r *RepoMock) All(_ context.Context) ([]*User, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var all []*User
	for id := range r.Users {
		all = append(all, r.Users[id])
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Username < all[j].Username
	})
	return all, nil
}

func (r *RepoMock) Count(_ context.Context) (int, error) {
	return r.UsersCount(), nil
}

func (r *RepoMock) AddBlogRef(_ context.Context, ownerID, blogID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[ownerID]
	if !ok {
		return ErrUserNotFound
	}
	user.BlogIDs = append(user.BlogIDs, blogID)
	return nil
}

func (r *RepoMock) RemoveBlogRef(_ context.Context, ownerID, blogID string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	user, ok := r.Users[ownerID]
	if !ok {
		return ErrUserNotFound
	}

	kept := user.BlogIDs[:0]
	for _, id := range user.BlogIDs {
		if id != blogID {
			kept = append(kept, id)
		}
	}
	user.BlogIDs = kept
	return nil
}
