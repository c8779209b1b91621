package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chat-gateway/internal/identity"
	"chat-gateway/internal/mocks"
)

func setupAuthRouter(auth identity.Authenticator, resolver identity.Resolver) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AuthMiddleware(auth, resolver), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(UserIDKey))
	})
	return r
}

func doGet(router http.Handler, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddlewareSetsUserID(t *testing.T) {
	auth := new(mocks.AuthenticatorMock)
	resolver := new(mocks.ResolverMock)
	auth.On("Authenticate", "tok").Return(identity.Claims{Subject: "sub-1"}, nil).Once()
	resolver.On("ResolveUser", mock.Anything, "tok").Return("u1", nil).Once()

	rec := doGet(setupAuthRouter(auth, resolver), "/me", map[string]string{"Authorization": "Bearer tok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
	auth.AssertExpectations(t)
	resolver.AssertExpectations(t)
}

func TestAuthMiddlewareRejects(t *testing.T) {
	auth := new(mocks.AuthenticatorMock)
	resolver := new(mocks.ResolverMock)
	router := setupAuthRouter(auth, resolver)

	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", map[string]string{"Authorization": "Token tok"}).Code)

	auth.On("Authenticate", "forged").Return(nil, identity.ErrInvalidToken).Once()
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", map[string]string{"Authorization": "Bearer forged"}).Code)

	resolver.AssertNotCalled(t, "ResolveUser", mock.Anything, mock.Anything)
}

func TestAuthMiddlewareResolverFailures(t *testing.T) {
	auth := new(mocks.AuthenticatorMock)
	resolver := new(mocks.ResolverMock)
	router := setupAuthRouter(auth, resolver)
	auth.On("Authenticate", mock.Anything).Return(identity.Claims{Subject: "sub-1"}, nil)

	resolver.On("ResolveUser", mock.Anything, "revoked").Return("", fmt.Errorf("%w: revoked", identity.ErrInvalidToken)).Once()
	resolver.On("ResolveUser", mock.Anything, "tok").Return("", fmt.Errorf("%w: timeout", identity.ErrLookupFailed)).Once()

	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/me", map[string]string{"Authorization": "Bearer revoked"}).Code)
	assert.Equal(t, http.StatusBadGateway, doGet(router, "/me", map[string]string{"Authorization": "Bearer tok"}).Code)
	resolver.AssertExpectations(t)
}

func TestRelayKeyMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	build := func(key string) *gin.Engine {
		r := gin.New()
		r.GET("/internal", RelayKeyMiddleware(key), func(c *gin.Context) { c.Status(http.StatusNoContent) })
		return r
	}

	assert.Equal(t, http.StatusNotFound, doGet(build(""), "/internal", map[string]string{"X-Relay-Key": ""}).Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(build("secret"), "/internal", map[string]string{"X-Relay-Key": "nope"}).Code)
	assert.Equal(t, http.StatusNoContent, doGet(build("secret"), "/internal", map[string]string{"X-Relay-Key": "secret"}).Code)
}
