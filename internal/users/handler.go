package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/heksidee/blogAppPipeline/internal/telemetry/metrics"
	"github.com/heksidee/blogAppPipeline/pkg"
)

const minCredentialLength = 3

type registerRequest struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type usersRepo interface {
	Create(ctx context.Context, user *User) error
	All(ctx context.Context) ([]*User, error)
}

type Handler struct {
	repo           usersRepo
	metricsManager *metrics.Manager
}

func NewHandler(repo usersRepo, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		repo:           repo,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/api/users", handler.handleRegister).Methods("POST", "OPTIONS").Name("register-user")
	router.HandleFunc("/api/users", handler.handleList).Methods("GET").Name("list-users")
}

func (handler *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var registerReq registerRequest
	if err := json.NewDecoder(r.Body).Decode(&registerReq); err != nil {
		log.Errorf("register user, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if len(registerReq.Username) < minCredentialLength {
		pkg.WriteJSONError(w, "username must be at least 3 characters long", http.StatusBadRequest)
		return
	}
	if len(registerReq.Password) < minCredentialLength {
		pkg.WriteJSONError(w, "password must be at least 3 characters long", http.StatusBadRequest)
		return
	}

	passwordHash, err := pkg.HashPassword(registerReq.Password)
	if err != nil {
		log.Errorf("register user, hash password: %s", err)
		pkg.WriteJSONError(w, "register user failed", http.StatusInternalServerError)
		return
	}

	user := &User{
		Username:     registerReq.Username,
		Name:         registerReq.Name,
		PasswordHash: passwordHash,
	}

	if err := handler.repo.Create(r.Context(), user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			pkg.WriteJSONError(w, ErrUsernameTaken.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("register user failed: %s", err)
		pkg.WriteJSONError(w, "register user failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new user [%s] registered", user.Username)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterUsersRegistered.Inc()
	}

	userJson, err := json.Marshal(user)
	if err != nil {
		log.Errorf("marshal registered user error: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, userJson, http.StatusCreated)
}

func (handler *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	allUsers, err := handler.repo.All(r.Context())
	if err != nil {
		log.Errorf("get all users error: %s", err)
		pkg.WriteJSONError(w, "get all users error", http.StatusInternalServerError)
		return
	}

	if allUsers == nil {
		allUsers = []*User{}
	}

	usersJson, err := json.Marshal(allUsers)
	if err != nil {
		log.Errorf("marshal all users error: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, usersJson)
}
