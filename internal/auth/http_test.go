package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"karavanCanteen/internal/testutil"
	"karavanCanteen/models"
	"karavanCanteen/repository"

	"github.com/stretchr/testify/assert"
)

func TestHTTPMiddleware(t *testing.T) {
	d := testutil.OpenInMemoryDB(t, "authhttp")
	id := testutil.SeedUser(t, d, "tina", models.RoleTeacher)
	users := repository.NewUserRepository(d, "")

	var got models.Actor
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := HTTPMiddleware(testSecret, users, nil, "/health")(next)

	serve := func(path, header string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, serve("/health", ""))
	assert.Equal(t, http.StatusUnauthorized, serve("/api/orders/1", ""))
	assert.Equal(t, http.StatusUnauthorized, serve("/api/orders/1", "Bearer "+testutil.GenerateJWTHS256(t, testSecret, "nobody")))

	assert.Equal(t, http.StatusNoContent, serve("/api/orders/1", "Bearer "+testutil.GenerateJWTHS256(t, testSecret, "tina")))
	assert.Equal(t, models.Actor{UserID: id, Role: models.RoleTeacher}, got)
}
