package reviews

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/internal/auth"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

// asCaller stands in for auth.Identify.
func asCaller(caller *auth.Caller) gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller != nil {
			c.Request = c.Request.WithContext(auth.WithCaller(c.Request.Context(), caller))
		}
		c.Next()
	}
}

func setupRouter(t *testing.T, caller *auth.Caller) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.OpenTest(t)
	seedUsers(t, db, "u-ada")
	h := NewHandler(NewService(NewRepo(db), synchub.NopPublisher{}, nil))

	r := gin.New()
	r.Use(asCaller(caller))
	h.RegisterRoutes(r.Group(""))
	return r
}

func postJSON(r http.Handler, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

type listResp struct {
	Items []models.Review `json:"items"`
}

func TestHandler_CreateAndList(t *testing.T) {
	r := setupRouter(t, &auth.Caller{ID: "u-ada", Name: "Ada"})

	w := postJSON(r, "/reviews", validInput())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = get(r, "/reviews")
	require.Equal(t, http.StatusOK, w.Code)
	var all listResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	require.Len(t, all.Items, 1)
	assert.Equal(t, created.ID, all.Items[0].ID)
	assert.Equal(t, "Ada", all.Items[0].UserName)

	w = get(r, "/reviews/mine")
	require.Equal(t, http.StatusOK, w.Code)
	var mine listResp
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Len(t, mine.Items, 1)

	w = get(r, "/users/u-ada/reviews")
	require.Equal(t, http.StatusOK, w.Code)

	w = get(r, "/reviews/"+created.ID)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"bookTitle":"Dune"`)

	w = get(r, "/reviews/does-not-exist")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_EmptyListIsArray(t *testing.T) {
	r := setupRouter(t, nil)

	w := get(r, "/reviews")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestHandler_CreateRejections(t *testing.T) {
	anon := setupRouter(t, nil)
	w := postJSON(anon, "/reviews", validInput())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHENTICATED")

	w = get(anon, "/reviews/mine")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	authed := setupRouter(t, &auth.Caller{ID: "u-ada"})
	bad := validInput()
	bad.Rating = 6
	w = postJSON(authed, "/reviews", bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Rating must be between 1 and 5")

	req := httptest.NewRequest(http.MethodPost, "/reviews", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	authed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = get(authed, "/reviews")
	assert.JSONEq(t, `{"items":[]}`, w.Body.String(), "rejected creates leave no record")
}
