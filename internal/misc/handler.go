package misc

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/heksidee/blogAppPipeline/internal/auth"
	"github.com/heksidee/blogAppPipeline/internal/middleware"
	"github.com/heksidee/blogAppPipeline/internal/telemetry/metrics"
	"github.com/heksidee/blogAppPipeline/internal/telemetry/tracing"
	"github.com/heksidee/blogAppPipeline/pkg"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type Handler struct {
	versionInfo    string
	authService    *auth.Service
	metricsManager *metrics.Manager
}

func NewHandler(
	versionInfo string,
	authService *auth.Service,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		versionInfo:    versionInfo,
		authService:    authService,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(
	mainRouter *mux.Router,
	rateLimiter middleware.RequestRateLimiter,
	loginAllowedPerMin int,
	metricsManager *metrics.Manager,
) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")

	// rate limit the /login and /logout endpoints to prevent abuse
	rateLimited := middleware.RateLimit(rateLimiter, "login", loginAllowedPerMin, metricsManager)
	mainRouter.
		Handle("/api/login", rateLimited(http.HandlerFunc(handler.handleLogin))).
		Methods("POST", "OPTIONS").Name("login")
	mainRouter.
		Handle("/api/logout", rateLimited(http.HandlerFunc(handler.handleLogout))).
		Methods("GET", "OPTIONS").Name("logout")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

func (handler *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.login")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "POST, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	var loginReq loginRequest
	if err := json.NewDecoder(r.Body).Decode(&loginReq); err != nil {
		log.Errorf("login, unmarshal json params: %s", err)
		pkg.WriteJSONError(w, "invalid request", http.StatusBadRequest)
		return
	}

	if loginReq.Username == "" {
		pkg.WriteJSONError(w, "username empty", http.StatusBadRequest)
		return
	}
	if loginReq.Password == "" {
		pkg.WriteJSONError(w, "password empty", http.StatusBadRequest)
		return
	}

	token, user, err := handler.authService.Login(ctx, loginReq.Username, loginReq.Password)
	if err != nil {
		if errors.Is(err, auth.ErrWrongCredentials) {
			log.Tracef("failed login attempt for user: %s", loginReq.Username)
			pkg.WriteJSONError(w, "wrong credentials", http.StatusBadRequest)
			return
		}
		log.Errorf("login failed: %s", err)
		pkg.WriteJSONError(w, "login failed", http.StatusInternalServerError)
		return
	}

	log.Tracef("new login success for [%s]", user.Username)
	if handler.metricsManager != nil {
		handler.metricsManager.CounterLogins.Inc()
	}

	respJson, err := json.Marshal(loginResponse{
		Token:    token,
		Username: user.Username,
		Name:     user.Name,
	})
	if err != nil {
		log.Errorf("marshal login response error: %s", err)
		pkg.WriteJSONError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, respJson)
}

func (handler *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.logout")
	defer span.End()

	if r.Method == http.MethodOptions {
		w.Header().Add("Allow", "GET, OPTIONS")
		w.WriteHeader(http.StatusOK)
		return
	}

	authToken := middleware.BearerToken(r)
	if authToken == "" {
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}

	loggedOut, err := handler.authService.Logout(ctx, authToken)
	if err != nil {
		log.Tracef("logout [%s]: %s", r.URL.Path, err)
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}
	if !loggedOut {
		pkg.WriteJSONError(w, "token missing or invalid", http.StatusUnauthorized)
		return
	}

	log.Tracef("logout success")
	pkg.WriteTextResponseOK(w, "logged-out")
}
