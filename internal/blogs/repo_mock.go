package blogs

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

var _ blogsRepo = (*RepoMock)(nil)

// RepoMock is an in-memory blogs store, used by unit tests
type RepoMock struct {
	mutex sync.Mutex
	Blogs map[string]*Blog
}

func NewRepoMock() *RepoMock {
	return &RepoMock{
		Blogs: make(map[string]*Blog),
	}
}

func (r *RepoMock) BlogsCount() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return len(r.Blogs)
}

func (r *RepoMock) Add(_ context.Context, blog *Blog) (*Blog, error) {
	if blog.Title == "" || blog.URL == "" {
		return nil, ErrTitleOrURLEmpty
	}
	if blog.Likes < 0 {
		return nil, ErrNegativeLikes
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if blog.ID == "" {
		blog.ID = uuid.NewString()
	}
	if blog.Comments == nil {
		blog.Comments = []string{}
	}

	r.Blogs[blog.ID] = blog
	return blog, nil
}

func (r *RepoMock) Get(_ context.Context, id string) (*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return nil, ErrBlogNotFound
	}
	return blog, nil
}

func (r *RepoMock) All(_ context.Context) ([]*Blog, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var all []*Blog
	for id := range r.Blogs {
		all = append(all, r.Blogs[id])
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].Title < all[j].Title
	})
	return all, nil
}

func (r *RepoMock) UpdateFields(_ context.Context, id, title, author, url string) (*Blog, error) {
	if title == "" || url == "" {
		return nil, ErrTitleOrURLEmpty
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return nil, ErrBlogNotFound
	}

	blog.Title = title
	blog.Author = author
	blog.URL = url
	return blog, nil
}

func (r *RepoMock) UpdateLikes(_ context.Context, id string, likes int) (*Blog, error) {
	if likes < 0 {
		return nil, ErrNegativeLikes
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return nil, ErrBlogNotFound
	}

	blog.Likes = likes
	return blog, nil
}

func (r *RepoMock) AppendComment(_ context.Context, id, comment string) (*Blog, error) {
	if comment == "" {
		return nil, ErrCommentEmpty
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	blog, ok := r.Blogs[id]
	if !ok {
		return nil, ErrBlogNotFound
	}

	blog.Comments = append(blog.Comments, comment)
	return blog, nil
}

func (r *RepoMock) Delete(_ context.Context, id string) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, ok := r.Blogs[id]; !ok {
		return ErrBlogNotFound
	}

	delete(r.Blogs, id)
	return nil
}
