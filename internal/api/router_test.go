package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookreviews/internal/auth"
	"bookreviews/internal/feedback"
	"bookreviews/internal/reviews"
	synchub "bookreviews/internal/sync"
	"bookreviews/pkg/database"
	"bookreviews/pkg/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *synchub.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := database.OpenTest(t)
	hub := synchub.NewHub(nil)
	reviewRepo := reviews.NewRepo(db)

	r := NewRouter(Deps{
		DB:       db,
		DBPath:   "test.db",
		Hub:      hub,
		Logger:   nil,
		Users:    auth.NewRepo(db),
		Tokens:   auth.TokenService{Secret: []byte("router-test"), Issuer: "test", Duration: time.Hour},
		Reviews:  reviews.NewService(reviewRepo, hub, nil),
		Feedback: feedback.NewService(feedback.NewRepo(db), reviewRepo, hub, nil, nil),
	})
	return r, hub
}

func call(t *testing.T, r http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func register(t *testing.T, r http.Handler, name, email string) string {
	t.Helper()
	w := call(t, r, http.MethodPost, "/auth/register", "", gin.H{"name": name, "email": email, "password": "password123"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.Token
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

type items[T any] struct {
	Items []T `json:"items"`
}

func TestEndToEnd_DuneReviewAndFeedback(t *testing.T) {
	r, _ := newTestRouter(t)
	tokenA := register(t, r, "Ada", "ada@example.com")
	tokenB := register(t, r, "", "bob@example.com")

	w := call(t, r, http.MethodPost, "/reviews", tokenA, gin.H{
		"bookTitle": "Dune", "author": "Frank Herbert", "rating": 5, "comments": "Great",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reviewID := decode[struct {
		ID string `json:"id"`
	}](t, w).ID

	all := decode[items[models.Review]](t, call(t, r, http.MethodGet, "/reviews", "", nil))
	require.Len(t, all.Items, 1)
	assert.Equal(t, reviewID, all.Items[0].ID)
	assert.Equal(t, "Ada", all.Items[0].UserName)

	w = call(t, r, http.MethodPost, "/feedback", tokenB, gin.H{
		"reviewId": reviewID, "message": "Agreed", "type": "comment",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	fb := decode[items[models.Feedback]](t, call(t, r, http.MethodGet, "/reviews/"+reviewID+"/feedback", "", nil))
	require.Len(t, fb.Items, 1)
	assert.Equal(t, "bob@example.com", fb.Items[0].UserName)
	assert.Equal(t, models.FeedbackComment, fb.Items[0].Type)
	assert.Equal(t, "Agreed", fb.Items[0].Message)

	mine := decode[items[models.ReviewFeedback]](t, call(t, r, http.MethodGet, "/feedback/mine", tokenA, nil))
	require.Len(t, mine.Items, 1)
	assert.Equal(t, "Dune", mine.Items[0].ReviewTitle)
	assert.Equal(t, "Agreed", mine.Items[0].Message)

	bobs := decode[items[models.ReviewFeedback]](t, call(t, r, http.MethodGet, "/feedback/mine", tokenB, nil))
	assert.Empty(t, bobs.Items)
}

func TestUnauthenticatedOperations(t *testing.T) {
	r, _ := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com")

	cases := []struct {
		method, path string
		body         any
	}{
		{http.MethodGet, "/reviews/mine", nil},
		{http.MethodPost, "/reviews", gin.H{"bookTitle": "Dune", "author": "F", "rating": 5, "comments": "x"}},
		{http.MethodGet, "/feedback/mine", nil},
		{http.MethodPost, "/feedback", gin.H{"reviewId": "x", "message": "m", "type": "comment"}},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := call(t, r, tc.method, tc.path, "", tc.body)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			body := decode[struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}](t, w)
			assert.Equal(t, "UNAUTHENTICATED", body.Error.Code)

			w = call(t, r, tc.method, tc.path, token, tc.body)
			assert.NotEqual(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestUnauthenticatedBeforeBodyDecoding(t *testing.T) {
	r, _ := newTestRouter(t)

	for path, body := range map[string]any{
		"/reviews":  gin.H{"rating": "five"},
		"/feedback": gin.H{"reviewId": 12},
	} {
		w := call(t, r, http.MethodPost, path, "", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Contains(t, w.Body.String(), `"UNAUTHENTICATED"`, path)
	}
}

func TestRatingBoundsThroughHTTP(t *testing.T) {
	r, _ := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com")

	for _, rating := range []int{0, 6} {
		w := call(t, r, http.MethodPost, "/reviews", token, gin.H{"bookTitle": "B", "author": "A", "rating": rating})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	for rating := 1; rating <= 5; rating++ {
		w := call(t, r, http.MethodPost, "/reviews", token, gin.H{"bookTitle": "B", "author": "A", "rating": rating})
		assert.Equal(t, http.StatusCreated, w.Code)
	}

	mine := decode[items[models.Review]](t, call(t, r, http.MethodGet, "/reviews/mine", token, nil))
	require.Len(t, mine.Items, 5)
	for i, rv := range mine.Items {
		assert.Equal(t, 5-i, rv.Rating, "newest first")
	}
}

func TestFeedbackRejections(t *testing.T) {
	r, _ := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com")

	w := call(t, r, http.MethodPost, "/feedback", token, gin.H{"reviewId": "nope", "message": "m", "type": "comment"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = call(t, r, http.MethodPost, "/feedback", token, gin.H{"reviewId": "nope", "message": "m", "type": "praise"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOpsEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	w := call(t, r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = call(t, r, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ready"`)

	w = call(t, r, http.MethodGet, "/debug", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	call(t, r, http.MethodGet, "/reviews", "", nil)
	w = call(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")

	w = call(t, r, http.MethodGet, "/reviews", "", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreatePublishesEvents(t *testing.T) {
	r, hub := newTestRouter(t)
	token := register(t, r, "Ada", "ada@example.com")

	w := call(t, r, http.MethodPost, "/reviews", token, gin.H{"bookTitle": "Dune", "author": "F", "rating": 5})
	require.Equal(t, http.StatusCreated, w.Code)

	// nothing drains the queue in this test, so the event is still waiting
	assert.Equal(t, 1, hub.Stats().Queued)
}
