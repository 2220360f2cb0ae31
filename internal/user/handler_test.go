package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"user_account_backend/internal/config"
	"user_account_backend/internal/filestorage"
	"user_account_backend/internal/middleware"
	"user_account_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const expiredTestToken = "expired-token"

// fakeIdentityProvider is an in-memory shared.IdentityVerifier.
type fakeIdentityProvider struct {
	mu        sync.Mutex
	passwords map[string]string
	ids       map[string]shared.ExternalID
	tokens    map[string]shared.ExternalID
	next      int
}

func newFakeIdentityProvider() *fakeIdentityProvider {
	return &fakeIdentityProvider{
		passwords: make(map[string]string),
		ids:       make(map[string]shared.ExternalID),
		tokens:    make(map[string]shared.ExternalID),
	}
}

func (f *fakeIdentityProvider) CreateAccount(_ context.Context, email, password string) (shared.ExternalID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.ids[email]; ok {
		return "", shared.ErrDuplicateAccount
	}
	f.next++
	id := shared.ExternalID(fmt.Sprintf("uid-%d", f.next))
	f.ids[email] = id
	f.passwords[email] = password
	return id, nil
}

func (f *fakeIdentityProvider) SignIn(_ context.Context, email, password string) (*shared.SignInResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.ids[email]
	if !ok {
		return nil, shared.ErrUnknownEmail
	}
	if f.passwords[email] != password {
		return nil, shared.ErrInvalidCredentials
	}
	token := "token-" + id.String()
	f.tokens[token] = id
	return &shared.SignInResult{SessionToken: token, ExternalID: id}, nil
}

func (f *fakeIdentityProvider) VerifyToken(_ context.Context, token string) (shared.ExternalID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == expiredTestToken {
		return "", shared.ErrTokenExpired
	}
	id, ok := f.tokens[token]
	if !ok {
		return "", shared.ErrTokenInvalid
	}
	return id, nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo, err := NewGORMRepository(newTestDB(t))
	require.NoError(t, err)
	store, err := filestorage.NewLocalStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	idp := newFakeIdentityProvider()
	cfg := &config.Config{StorageBucket: "account-images", MaxUploadSizeMB: 1}
	handler := NewHandler(NewService(repo, idp, store, cfg, zap.NewNop()), cfg, zap.NewNop())

	router := gin.New()
	router.Use(middleware.ErrorHandler(zap.NewNop()))
	handler.RegisterRoutes(router.Group(""), middleware.AuthMiddleware(idp, nil, zap.NewNop()))
	return router
}

func signupRequest(t *testing.T, fields map[string]string, picture []byte) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if picture != nil {
		part, err := w.CreateFormFile(profilePictureField, "avatar.png")
		require.NoError(t, err)
		_, err = part.Write(picture)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/user/signup/", body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func defaultSignupFields() map[string]string {
	return map[string]string{
		"email":     "a@x.com",
		"password":  "p",
		"username":  "u1",
		"sex":       "f",
		"birthdate": "2000-01-01",
	}
}

func jsonRequest(t *testing.T, method, target string, payload interface{}, token string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}
	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func signin(t *testing.T, router *gin.Engine, email, password string) string {
	t.Helper()
	rr := serve(router, jsonRequest(t, http.MethodPost, "/user/signin/", SigninRequest{Email: email, Password: password}, ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	token, _ := body["access_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestUserAPI_SignupSigninProfilePicture(t *testing.T) {
	router := setupTestRouter(t)
	picture := []byte("\x89PNG fake image bytes")

	rr := serve(router, signupRequest(t, defaultSignupFields(), picture))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "User successfully registered!", decodeBody(t, rr)["message"])

	rr = serve(router, jsonRequest(t, http.MethodPost, "/user/signin/", SigninRequest{Email: "a@x.com", Password: "p"}, ""))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	token := body["access_token"].(string)
	assert.Equal(t, "uid-1", body["data"].(map[string]interface{})["user_id"])

	rr = serve(router, jsonRequest(t, http.MethodGet, "/user/get-profile-picture/", nil, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, picture, rr.Body.Bytes())

	rr = serve(router, jsonRequest(t, http.MethodGet, "/user/get/", nil, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	body = decodeBody(t, rr)
	assert.Equal(t, "User successfully retrieved!", body["message"])
	data := body["data"].(map[string]interface{})
	assert.Equal(t, "uid-1", data["id"])
	assert.Equal(t, "a@x.com", data["email"])
	assert.Equal(t, "u1", data["username"])
	assert.Equal(t, "2000-01-01", data["birthdate"])
	assert.Equal(t, "uid-1/profile_picture/avatar.png", data["profile_picture"])
	assert.Nil(t, data["date_deleted"])
}

func TestUserAPI_SignupConflicts(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)

	rr := serve(router, signupRequest(t, defaultSignupFields(), nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Username already taken.", decodeBody(t, rr)["detail"])

	fields := defaultSignupFields()
	fields["username"] = "u2"
	rr = serve(router, signupRequest(t, fields, []byte("img")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "User with this email already exists.", decodeBody(t, rr)["detail"])
}

func TestUserAPI_SignupValidation(t *testing.T) {
	router := setupTestRouter(t)

	fields := defaultSignupFields()
	delete(fields, "username")
	fields["birthdate"] = "01/01/2000"
	rr := serve(router, signupRequest(t, fields, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	body := decodeBody(t, rr)
	assert.Equal(t, "VALIDATION_ERROR", body["code"])
	assert.Contains(t, body["fields"], "Username")
	assert.Contains(t, body["fields"], "Birthdate")
}

func TestUserAPI_SignupTooLarge(t *testing.T) {
	router := setupTestRouter(t)

	rr := serve(router, signupRequest(t, defaultSignupFields(), bytes.Repeat([]byte("x"), 2<<20)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code, rr.Body.String())
}

func TestUserAPI_SigninErrors(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)

	tests := []struct {
		name       string
		payload    interface{}
		wantStatus int
		wantDetail string
	}{
		{name: "unknown email", payload: SigninRequest{Email: "b@x.com", Password: "p"}, wantStatus: http.StatusBadRequest, wantDetail: "Invalid email."},
		{name: "wrong password", payload: SigninRequest{Email: "a@x.com", Password: "q"}, wantStatus: http.StatusBadRequest, wantDetail: "Invalid password."},
		{name: "malformed email", payload: map[string]string{"email": "nope", "password": "p"}, wantStatus: http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(router, jsonRequest(t, http.MethodPost, "/user/signin/", tt.payload, ""))
			assert.Equal(t, tt.wantStatus, rr.Code, rr.Body.String())
			if tt.wantDetail != "" {
				assert.Equal(t, tt.wantDetail, decodeBody(t, rr)["detail"])
			}
		})
	}
}

func TestUserAPI_Unauthenticated(t *testing.T) {
	router := setupTestRouter(t)

	tests := []struct {
		name       string
		header     string
		wantDetail string
		wantChal   string
	}{
		{name: "missing", wantDetail: "Sign in for access. Requires HTTP Bearer Token.", wantChal: "Bearer"},
		{name: "wrong scheme", header: "Basic abc", wantDetail: "Sign in for access. Requires HTTP Bearer Token.", wantChal: "Bearer"},
		{name: "expired", header: "Bearer " + expiredTestToken, wantDetail: "Expired Token. Sign in again.", wantChal: `Bearer error="invalid_token"`},
		{name: "invalid", header: "Bearer forged", wantDetail: "Invalid authentication credentials.", wantChal: `Bearer error="invalid_token"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/user/get/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(router, req)
			assert.Equal(t, http.StatusUnauthorized, rr.Code)
			assert.Equal(t, tt.wantChal, rr.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.wantDetail, decodeBody(t, rr)["detail"])
		})
	}
}

func TestUserAPI_ProfilePictureMissing(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)
	token := signin(t, router, "a@x.com", "p")

	rr := serve(router, jsonRequest(t, http.MethodGet, "/user/get-profile-picture/", nil, token))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "Profile picture not found.", decodeBody(t, rr)["detail"])
}

func TestUserAPI_Update(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)
	token := signin(t, router, "a@x.com", "p")

	update := map[string]string{"sex": "m", "birthdate": "1999-05-06"}
	first := serve(router, jsonRequest(t, http.MethodPut, "/user/", update, token))
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	second := serve(router, jsonRequest(t, http.MethodPut, "/user/", update, token))
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	data := decodeBody(t, second)["data"].(map[string]interface{})
	assert.Equal(t, "m", data["sex"])
	assert.Equal(t, "1999-05-06", data["birthdate"])
	assert.Equal(t, "u1", data["username"])

	rr := serve(router, jsonRequest(t, http.MethodPut, "/user/", map[string]string{"birthdate": "yesterday"}, token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serve(router, jsonRequest(t, http.MethodPut, "/user/", map[string]string{"profile_picture": "uid-9/profile_picture/x.png"}, token))
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestUserAPI_UpdateUsernameConflict(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)
	fields := defaultSignupFields()
	fields["email"], fields["username"] = "b@x.com", "u2"
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, fields, nil)).Code)
	token := signin(t, router, "b@x.com", "p")

	rr := serve(router, jsonRequest(t, http.MethodPut, "/user/", map[string]string{"username": "u1"}, token))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Email or username already in use.", decodeBody(t, rr)["detail"])
}

func TestUserAPI_Delete(t *testing.T) {
	router := setupTestRouter(t)
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)
	token := signin(t, router, "a@x.com", "p")

	rr := serve(router, jsonRequest(t, http.MethodDelete, "/user/", nil, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "User successfully deleted!", decodeBody(t, rr)["message"])

	rr = serve(router, jsonRequest(t, http.MethodGet, "/user/get/", nil, token))
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "User not found.", decodeBody(t, rr)["detail"])

	rr = serve(router, jsonRequest(t, http.MethodDelete, "/user/", nil, token))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserAPI_UnknownRoute(t *testing.T) {
	router := setupTestRouter(t)

	rr := serve(router, httptest.NewRequest(http.MethodGet, "/user/nope/", strings.NewReader("")))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestUserAPI_BlankValuesRejected(t *testing.T) {
	router := setupTestRouter(t)

	fields := defaultSignupFields()
	fields["sex"] = "   "
	rr := serve(router, signupRequest(t, fields, nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Contains(t, decodeBody(t, rr)["fields"], "Sex")

	// Nothing was registered upstream.
	rr = serve(router, jsonRequest(t, http.MethodPost, "/user/signin/", SigninRequest{Email: "a@x.com", Password: "p"}, ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid email.", decodeBody(t, rr)["detail"])

	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), nil)).Code)
	token := signin(t, router, "a@x.com", "p")

	rr = serve(router, jsonRequest(t, http.MethodPut, "/user/", map[string]string{"username": "  "}, token))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
	assert.Contains(t, decodeBody(t, rr)["fields"], "Username")

	rr = serve(router, jsonRequest(t, http.MethodGet, "/user/get/", nil, token))
	require.Equal(t, http.StatusOK, rr.Code)
	data := decodeBody(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "u1", data["username"])
	assert.Equal(t, "f", data["sex"])
}

func TestUserAPI_UpdateEmptyPicturePathKeepsPicture(t *testing.T) {
	router := setupTestRouter(t)
	picture := []byte("IMG")
	require.Equal(t, http.StatusCreated, serve(router, signupRequest(t, defaultSignupFields(), picture)).Code)
	token := signin(t, router, "a@x.com", "p")

	rr := serve(router, jsonRequest(t, http.MethodPut, "/user/", map[string]string{"profile_picture": ""}, token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	data := decodeBody(t, rr)["data"].(map[string]interface{})
	assert.Equal(t, "uid-1/profile_picture/avatar.png", data["profile_picture"])

	rr = serve(router, jsonRequest(t, http.MethodGet, "/user/get-profile-picture/", nil, token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, picture, rr.Body.Bytes())
}

func TestUserAPI_SignupRequiresMultipart(t *testing.T) {
	router := setupTestRouter(t)

	rr := serve(router, jsonRequest(t, http.MethodPost, "/user/signup/", defaultSignupFields(), ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())

	rr = serve(router, jsonRequest(t, http.MethodPost, "/user/signin/", SigninRequest{Email: "a@x.com", Password: "p"}, ""))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid email.", decodeBody(t, rr)["detail"])
}
