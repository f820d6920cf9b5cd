package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/pkg/database"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testTokens() TokenService {
	return TokenService{Secret: []byte("test-secret"), Issuer: "bookreviews-test", Duration: time.Hour}
}

func TestTokenService_SignAndParse(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "u-1", Name: "Ada", Email: "ada@example.com", TokenVersion: 3}

	raw, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "Ada", claims.Name)
	assert.Equal(t, 3, claims.TokenVersion)
}

func TestTokenService_ParseRejects(t *testing.T) {
	ts := testTokens()
	raw, _, err := ts.Sign(&User{ID: "u-1"})
	require.NoError(t, err)

	other := ts
	other.Secret = []byte("another-secret")
	_, err = other.Parse(raw)
	assert.Error(t, err, "wrong secret")

	other = ts
	other.Issuer = "someone-else"
	_, err = other.Parse(raw)
	assert.Error(t, err, "wrong issuer")

	expired := ts
	expired.Duration = -time.Minute
	old, _, err := expired.Sign(&User{ID: "u-1"})
	require.NoError(t, err)
	_, err = ts.Parse(old)
	assert.Error(t, err, "expired")

	_, err = ts.Parse("not-a-jwt")
	assert.Error(t, err)
}

func TestRepo_CreateAndLookup(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()

	first, err := repo.First(ctx)
	require.NoError(t, err)
	assert.Nil(t, first)

	require.NoError(t, repo.CreateUser(ctx, User{ID: "u-1", Email: "First@Example.com", Role: RoleUser}))
	require.NoError(t, repo.CreateUser(ctx, User{ID: "u-2", Name: "Second"}))

	byEmail, err := repo.GetByEmail(ctx, "first@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, "u-1", byEmail.ID)
	assert.Equal(t, "", byEmail.Name)
	assert.Equal(t, RoleUser, byEmail.Role)

	byID, err := repo.GetByID(ctx, "u-2")
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Second", byID.Name)
	assert.Empty(t, byID.Email)

	missing, err := repo.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	first, err = repo.First(ctx)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "u-1", first.ID)
}

func TestRepo_CreateUserRoles(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{ID: "a", Email: "a@example.com", Role: RoleAdmin}))
	require.NoError(t, repo.CreateUser(ctx, User{ID: "m", Email: "m@example.com", Role: RoleMember}))

	err := repo.CreateUser(ctx, User{ID: "o", Email: "o@example.com", Role: "owner"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown role "owner"`)

	got, err := repo.GetByID(ctx, "o")
	require.NoError(t, err)
	assert.Nil(t, got)

	admin, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.Equal(t, RoleAdmin, admin.Role)
}

func TestRepo_BumpTokenVersion(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	require.NoError(t, repo.CreateUser(ctx, User{ID: "u-1", Email: "a@example.com"}))

	require.NoError(t, repo.BumpTokenVersion(ctx, "u-1"))
	require.NoError(t, repo.UpdatePasswordAndBumpTokenVersion(ctx, "u-1", "hash"))

	u, err := repo.GetByID(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 2, u.TokenVersion)
	assert.Equal(t, "hash", u.PasswordHash)

	assert.Error(t, repo.BumpTokenVersion(ctx, "missing"))
}

func TestAuthenticator_Resolve(t *testing.T) {
	repo := NewRepo(database.OpenTest(t))
	ctx := context.Background()
	u := User{ID: "u-1", Name: "Ada", Email: "ada@example.com"}
	require.NoError(t, repo.CreateUser(ctx, u))

	a := NewAuthenticator(testTokens(), repo)
	raw, _, err := a.Tokens.Sign(&u)
	require.NoError(t, err)

	caller, err := a.Resolve(ctx, raw)
	require.NoError(t, err)
	assert.Equal(t, &Caller{ID: "u-1", Name: "Ada", Email: "ada@example.com"}, caller)
	assert.Equal(t, "Ada", caller.DisplayName())

	require.NoError(t, repo.BumpTokenVersion(ctx, "u-1"))
	_, err = a.Resolve(ctx, raw)
	assert.Error(t, err, "revoked token must not resolve")

	ghost, _, err := a.Tokens.Sign(&User{ID: "ghost"})
	require.NoError(t, err)
	_, err = a.Resolve(ctx, ghost)
	assert.Error(t, err)
}

type failingUsers struct{ err error }

func (f failingUsers) GetByID(context.Context, string) (*User, error) { return nil, f.err }

func TestIdentify_UserStoreFailureIsInternal(t *testing.T) {
	a := NewAuthenticator(testTokens(), failingUsers{err: errors.New("database is locked")})
	raw, _, err := a.Tokens.Sign(&User{ID: "u-1"})
	require.NoError(t, err)

	_, err = a.Resolve(context.Background(), raw)
	assert.ErrorIs(t, err, ErrUserLookup)

	r := gin.New()
	r.Use(Identify(a))
	r.GET("/whoami", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := doJSON(t, r, http.MethodGet, "/whoami", raw, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"INTERNAL_ERROR"`)
	assert.NotContains(t, w.Body.String(), "database is locked")

	w = doJSON(t, r, http.MethodGet, "/whoami", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCaller_DisplayNameFallback(t *testing.T) {
	assert.Equal(t, "ada@example.com", (&Caller{ID: "1", Email: "ada@example.com"}).DisplayName())
	assert.Equal(t, "Anonymous", (&Caller{ID: "1"}).DisplayName())
}

func TestBearerToken(t *testing.T) {
	raw, ok := BearerToken("Bearer abc")
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	raw, ok = BearerToken("bearer   abc ")
	assert.True(t, ok)
	assert.Equal(t, "abc", raw)

	_, ok = BearerToken("Basic abc")
	assert.False(t, ok)
	_, ok = BearerToken("Bearer ")
	assert.False(t, ok)
}

func newAuthRouter(t *testing.T) (*gin.Engine, *Handler) {
	t.Helper()
	h := NewHandler(NewRepo(database.OpenTest(t)), testTokens())

	r := gin.New()
	r.Use(Identify(h.Auth))
	h.RegisterRoutes(r.Group("/auth"))
	r.GET("/whoami", func(c *gin.Context) {
		caller := MustGetCaller(c)
		if caller == nil {
			c.JSON(http.StatusOK, gin.H{"anonymous": true})
			return
		}
		c.JSON(http.StatusOK, gin.H{"id": caller.ID})
	})
	return r, h
}

func doJSON(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type tokenResp struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func TestHandler_RegisterLoginMeLogout(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var reg tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &reg))
	assert.NotEmpty(t, reg.Token)
	assert.Equal(t, "ada@example.com", reg.User.Email)

	w = doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{
		"email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/auth/login", "", gin.H{"email": "ada@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, w.Code)
	var login tokenResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))

	w = doJSON(t, r, http.MethodGet, "/auth/me", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"name":"Ada"`)

	w = doJSON(t, r, http.MethodPost, "/auth/logout", login.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/auth/me", login.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "token revoked by logout")
}

func TestHandler_RegisterValidation(t *testing.T) {
	r, _ := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/auth/register", "", gin.H{"email": "not-an-email", "password": "short"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Error struct {
			Code   string            `json:"code"`
			Fields map[string]string `json:"fields"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "VALIDATION", body.Error.Code)
	assert.Contains(t, body.Error.Fields, "Email")
	assert.Contains(t, body.Error.Fields, "Password")
}

func TestIdentify(t *testing.T) {
	r, h := newAuthRouter(t)
	ctx := context.Background()
	u := User{ID: "u-1", Name: "Ada"}
	require.NoError(t, h.Repo.CreateUser(ctx, u))
	token, _, err := h.Tokens.Sign(&u)
	require.NoError(t, err)

	w := doJSON(t, r, http.MethodGet, "/whoami", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/whoami", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"u-1"}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/whoami", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	w = doJSON(t, r, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
