package blogs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/heksidee/blogAppPipeline/internal/auth"
	"github.com/heksidee/blogAppPipeline/internal/telemetry/metrics"
	"github.com/heksidee/blogAppPipeline/pkg"
)

type createBlogRequest struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	URL    string `json:"url"`
	Likes  int    `json:"likes"`
}

// updateBlogRequest uses pointers so that an absent field can be told
// apart from an explicit zero value
type updateBlogRequest struct {
	Title  *string `json:"title"`
	Author *string `json:"author"`
	URL    *string `json:"url"`
	Likes  *int    `json:"likes"`
}

type addCommentRequest struct {
	Comment string `json:"comment"`
}

type blogsRepo interface {
	Add(ctx context.Context, blog *Blog) (*Blog, error)
	Get(ctx context.Context, id string) (*Blog, error)
	All(ctx context.Context) ([]*Blog, error)
	UpdateFields(ctx context.Context, id, title, author, url string) (*Blog, error)
	UpdateLikes(ctx context.Context, id string, likes int) (*Blog, error)
	AppendComment(ctx context.Context, id, comment string) (*Blog, error)
	Delete(ctx context.Context, id string) error
}

// ownerIndex keeps users' blog id lists in step with blog writes
type ownerIndex interface {
	AddBlogRef(ctx context.Context, ownerID, blogID string) error
	RemoveBlogRef(ctx context.Context, ownerID, blogID string) error
}

type Handler struct {
	repo           blogsRepo
	ownerIndex     ownerIndex
	metricsManager *metrics.Manager
}

func NewHandler(repo blogsRepo, ownerIndex ownerIndex, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		ownerIndex:     ownerIndex,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/blogs", handler.handleList).Methods("GET").Name("list-blogs")
	router.HandleFunc("/api/blogs", handler.handleCreate).Methods("POST", "OPTIONS").Name("create-blog")
	router.HandleFunc("/api/blogs/{id}", handler.handleGet).Methods("GET").Name("get-blog")
	router.HandleFunc("/api/blogs/{id}", handler.handleUpdate).Methods("PUT", "OPTIONS").Name("update-blog")
	router.HandleFunc("/api/blogs/{id}", handler.handleDelete).Methods("DELETE", "OPTIONS").Name("delete-blog")
	router.HandleFunc("/api/blogs/{id}/comments", handler.handleAddComment).Methods("POST", "OPTIONS").Name("add-comment")
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	allBlogs, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all blogs error: %s", err)
		pkg.WriteJSONError(w, "get all blogs error", http.StatusInternalServerError)
		return
	}

	if allBlogs == nil {
		allBlogs = []*Blog{}
	}

	blogsJson, err := json.Marshal(allBlogs)
	if err != nil {
		log.Errorf("marshal all blogs error: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, blogsJson)
}

func (handler *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	blog, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("get blog [%s] error: %s", id, err)
		pkg.WriteJSONError(w, "get blog error", http.StatusInternalServerError)
		return
	}

	writeBlogResponse(w, blog, http.StatusOK)
}

func (handler *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}

	var createReq createBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&createReq); err != nil {
		log.Errorf("create blog, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	blog := &Blog{
		Title:   createReq.Title,
		Author:  createReq.Author,
		URL:     createReq.URL,
		Likes:   createReq.Likes,
		OwnerID: principal.ID,
	}

	addedBlog, err := handler.repo.Add(r.Context(), blog)
	if err != nil {
		if errors.Is(err, ErrTitleOrURLEmpty) || errors.Is(err, ErrNegativeLikes) {
			pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("create blog failed: %s", err)
		pkg.WriteJSONError(w, "create blog failed", http.StatusInternalServerError)
		return
	}

	if err := handler.ownerIndex.AddBlogRef(r.Context(), principal.ID, addedBlog.ID); err != nil {
		log.Errorf("create blog, add blog [%s] ref to user [%s]: %s", addedBlog.ID, principal.ID, err)
		pkg.WriteJSONError(w, "create blog failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("user [%s] created blog [%s]", principal.Username, addedBlog.ID)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterBlogs.Inc()
	}

	writeBlogResponse(w, addedBlog, http.StatusCreated)
}

func (handler *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	var updateReq updateBlogRequest
	if err := json.NewDecoder(r.Body).Decode(&updateReq); err != nil {
		log.Errorf("update blog, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	blog, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("update blog, get blog [%s] error: %s", id, err)
		pkg.WriteJSONError(w, "update blog failed", http.StatusInternalServerError)
		return
	}

	structuralChange := updateReq.Title != nil || updateReq.Author != nil || updateReq.URL != nil
	if structuralChange {
		if err := Authorize(principal.ID, blog, ActionUpdateFields); err != nil {
			pkg.WriteJSONError(w, err.Error(), http.StatusForbidden)
			return
		}

		title, author, url := blog.Title, blog.Author, blog.URL
		if updateReq.Title != nil {
			title = *updateReq.Title
		}
		if updateReq.Author != nil {
			author = *updateReq.Author
		}
		if updateReq.URL != nil {
			url = *updateReq.URL
		}

		blog, err = handler.repo.UpdateFields(r.Context(), id, title, author, url)
		if err != nil {
			handler.writeUpdateError(w, id, err)
			return
		}
	}

	if updateReq.Likes != nil {
		blog, err = handler.repo.UpdateLikes(r.Context(), id, *updateReq.Likes)
		if err != nil {
			handler.writeUpdateError(w, id, err)
			return
		}
	}

	writeBlogResponse(w, blog, http.StatusOK)
}

func (handler *Handler) writeUpdateError(w http.ResponseWriter, id string, err error) {
	switch {
	case errors.Is(err, ErrBlogNotFound):
		pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, ErrTitleOrURLEmpty), errors.Is(err, ErrNegativeLikes):
		pkg.WriteJSONError(w, err.Error(), http.StatusBadRequest)
	default:
		log.Errorf("update blog [%s] failed: %s", id, err)
		pkg.WriteJSONError(w, "update blog failed", http.StatusInternalServerError)
	}
}

func (handler *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}

	vars := mux.Vars(r)
	id := vars["id"]

	blog, err := handler.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("delete blog, get blog [%s] error: %s", id, err)
		pkg.WriteJSONError(w, "delete blog failed", http.StatusInternalServerError)
		return
	}

	if err := Authorize(principal.ID, blog, ActionDelete); err != nil {
		pkg.WriteJSONError(w, err.Error(), http.StatusForbidden)
		return
	}

	if err := handler.repo.Delete(r.Context(), id); err != nil {
		if errors.Is(err, ErrBlogNotFound) {
			pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
			return
		}
		log.Errorf("delete blog [%s] failed: %s", id, err)
		pkg.WriteJSONError(w, "delete blog failed", http.StatusInternalServerError)
		return
	}

	if blog.OwnerID != "" {
		if err := handler.ownerIndex.RemoveBlogRef(r.Context(), blog.OwnerID, id); err != nil {
			log.Errorf("delete blog, remove blog [%s] ref from user [%s]: %s", id, blog.OwnerID, err)
			pkg.WriteJSONError(w, "delete blog failed", http.StatusInternalServerError)
			return
		}
	}

	log.Tracef("user [%s] deleted blog [%s]", principal.Username, id)
	w.WriteHeader(http.StatusNoContent)
}

func (handler *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]

	var commentReq addCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&commentReq); err != nil {
		log.Errorf("add comment, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	blog, err := handler.repo.AppendComment(r.Context(), id, commentReq.Comment)
	if err != nil {
		switch {
		case errors.Is(err, ErrBlogNotFound):
			pkg.WriteJSONError(w, ErrBlogNotFound.Error(), http.StatusNotFound)
		case errors.Is(err, ErrCommentEmpty):
			pkg.WriteJSONError(w, ErrCommentEmpty.Error(), http.StatusBadRequest)
		default:
			log.Errorf("add comment to blog [%s] failed: %s", id, err)
			pkg.WriteJSONError(w, "add comment failed", http.StatusInternalServerError)
		}
		return
	}

	writeBlogResponse(w, blog, http.StatusAccepted)
}

func writeBlogResponse(w http.ResponseWriter, blog *Blog, statusCode int) {
	blogJson, err := json.Marshal(blog)
	if err != nil {
		log.Errorf("marshal blog error: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, blogJson, statusCode)
}
