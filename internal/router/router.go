// Package router wires the HTTP surface of the service: the five
// account routes, the health endpoints and the middleware chain. It
// translates the credential handler's error taxonomy into status codes
// and uniform JSON error bodies.
package router

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/usersvc/internal/gzippedhttp"
	"github.com/patric-chuzhbe/usersvc/internal/ipchecker"
	"github.com/patric-chuzhbe/usersvc/internal/logger"
	"github.com/patric-chuzhbe/usersvc/internal/middleware"
	"github.com/patric-chuzhbe/usersvc/internal/models"
	"github.com/patric-chuzhbe/usersvc/internal/service"
)

// TokenHeader is the request header carrying the signed access token.
const TokenHeader = "X-Access-Token"

// Router holds the handlers of the account API.
type Router struct {
	svc       *service.Service
	ipChecker *ipchecker.IPChecker
}

// New assembles the chi mux with the middleware chain and all routes.
func New(svc *service.Service, ipChecker *ipchecker.IPChecker) *chi.Mux {
	theRouter := &Router{
		svc:       svc,
		ipChecker: ipChecker,
	}

	mux := chi.NewRouter()
	mux.Use(logger.WithLoggingHTTPMiddleware)
	mux.Use(middleware.SecurityHeaders)
	mux.Use(middleware.CORS)
	mux.Use(gzippedhttp.UngzipRequest)
	mux.Use(gzippedhttp.GzipResponse)

	mux.Post(`/v1/login`, theRouter.PostLogin)
	mux.Post(`/v1/signup`, theRouter.PostSignup)
	mux.Post(`/v1/me`, theRouter.PostMe)
	mux.Post(`/v1/update`, theRouter.PostUpdate)
	mux.Post(`/v1/delete`, theRouter.PostDelete)
	mux.Get(`/v1/status`, theRouter.GetStatus)
	mux.Get(`/v1/internal/stats`, theRouter.GetInternalStats)
	mux.Get(`/ping`, theRouter.GetPing)

	return mux
}

// PostLogin handles the authenticate operation and returns the access token.
func (theRouter *Router) PostLogin(response http.ResponseWriter, request *http.Request) {
	var authRequest models.AuthRequest
	if !decodeJSONBody(response, request, &authRequest) {
		return
	}

	token, err := theRouter.svc.Authenticate(request.Context(), authRequest.Email, authRequest.Password)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.AuthResponse{AccessToken: token})
}

// PostSignup handles account creation.
func (theRouter *Router) PostSignup(response http.ResponseWriter, request *http.Request) {
	var signupRequest models.SignupRequest
	if !decodeJSONBody(response, request, &signupRequest) {
		return
	}

	err := theRouter.svc.Create(
		request.Context(),
		signupRequest.Name,
		signupRequest.Email,
		signupRequest.Password,
	)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SuccessResponse{Success: true})
}

// PostMe returns the sanitized profile of the token's user.
func (theRouter *Router) PostMe(response http.ResponseWriter, request *http.Request) {
	profile, err := theRouter.svc.Read(request.Context(), request.Header.Get(TokenHeader))
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, profile)
}

// PostUpdate applies a partial profile update and returns the committed profile.
func (theRouter *Router) PostUpdate(response http.ResponseWriter, request *http.Request) {
	var updateRequest models.UpdateRequest
	if !decodeJSONBody(response, request, &updateRequest) {
		return
	}

	profile, err := theRouter.svc.Update(
		request.Context(),
		request.Header.Get(TokenHeader),
		updateRequest.Name,
		updateRequest.Email,
	)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, profile)
}

// PostDelete removes the token's account after re-confirming the credentials.
func (theRouter *Router) PostDelete(response http.ResponseWriter, request *http.Request) {
	var deleteRequest models.DeleteRequest
	if !decodeJSONBody(response, request, &deleteRequest) {
		return
	}

	err := theRouter.svc.Delete(
		request.Context(),
		request.Header.Get(TokenHeader),
		deleteRequest.Email,
		deleteRequest.Password,
	)
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, models.SuccessResponse{Success: true})
}

// GetStatus returns a fixed success signal with no body.
func (theRouter *Router) GetStatus(response http.ResponseWriter, request *http.Request) {
	response.WriteHeader(http.StatusOK)
}

// GetPing checks connectivity with the storage layer.
func (theRouter *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := theRouter.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorln("storage ping failed:", err)
		writeJSON(
			response,
			http.StatusInternalServerError,
			models.ErrorResponse{Code: models.ErrCodeInternal, Message: "internal error"},
		)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats returns aggregate account numbers. The route is only
// served to clients inside the configured trusted subnet.
func (theRouter *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	if theRouter.ipChecker.IsTrustedSubnetEmpty() {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	clientIP, err := theRouter.ipChecker.GetClientIP(request)
	if err != nil {
		logger.Log.Debugln("unable to extract the client IP:", err)
		response.WriteHeader(http.StatusForbidden)
		return
	}

	if !theRouter.ipChecker.Check(clientIP) {
		response.WriteHeader(http.StatusForbidden)
		return
	}

	stats, err := theRouter.svc.GetStats(request.Context())
	if err != nil {
		writeServiceError(response, err)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

// decodeJSONBody decodes the request body into target. On failure it
// answers with the missing-fields error and reports false.
func decodeJSONBody(response http.ResponseWriter, request *http.Request, target interface{}) bool {
	if err := json.NewDecoder(request.Body).Decode(target); err != nil {
		writeJSON(
			response,
			http.StatusUnauthorized,
			models.ErrorResponse{Code: models.ErrCodeMissingFields, Message: "missing fields"},
		)
		return false
	}

	return true
}

// writeServiceError maps the credential handler's error taxonomy to
// HTTP status codes. Anything outside the taxonomy is answered with an
// opaque internal error: no internal detail ever reaches the client.
func writeServiceError(response http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeJSON(
			response,
			http.StatusUnauthorized,
			models.ErrorResponse{Code: models.ErrCodeMissingFields, Message: "missing fields"},
		)

	case errors.Is(err, service.ErrInvalidCredentials):
		writeJSON(
			response,
			http.StatusForbidden,
			models.ErrorResponse{Code: models.ErrCodeInvalidCredentials, Message: "invalid credentials"},
		)

	case errors.Is(err, service.ErrInvalidEmail):
		writeJSON(
			response,
			http.StatusBadRequest,
			models.ErrorResponse{Code: models.ErrCodeInvalidEmail, Message: "invalid email address"},
		)

	case errors.Is(err, service.ErrEmailExists):
		writeJSON(
			response,
			http.StatusForbidden,
			models.ErrorResponse{Code: models.ErrCodeEmailExists, Message: "a user with that email already exists"},
		)

	default:
		logger.Log.Errorln("unexpected error reached the transport layer:", err)
		writeJSON(
			response,
			http.StatusInternalServerError,
			models.ErrorResponse{Code: models.ErrCodeInternal, Message: "internal error"},
		)
	}
}

func writeJSON(response http.ResponseWriter, statusCode int, payload interface{}) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)

	if err := json.NewEncoder(response).Encode(payload); err != nil {
		logger.Log.Debugln("error while encoding the response:", err)
	}
}
