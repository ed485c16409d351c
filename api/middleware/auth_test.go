// api/middleware/auth_test.go
package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"example.com/planner/services/calendar/internal/models"
	"example.com/planner/services/calendar/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

// stubTokenRepo overrides only the methods TokenAuth touches; anything else
// panics through the embedded nil interface.
type stubTokenRepo struct {
	repository.Repository

	mu      sync.Mutex
	token   *models.APIToken
	saveErr error
	saved   bool
}

func (s *stubTokenRepo) FindAPIToken(ctx context.Context, token string) (*models.APIToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token == nil || s.token.Token != token {
		return nil, repository.ErrNotFound
	}
	return s.token, nil
}

func (s *stubTokenRepo) SaveAPIToken(ctx context.Context, token *models.APIToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = true
	return s.saveErr
}

func (s *stubTokenRepo) wasSaved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved
}

func activeToken() *models.APIToken {
	user := &models.User{Email: "owner@example.com", Username: "owner", IsActive: true}
	user.ID = 1
	return &models.APIToken{Token: "valid-token", User: user, UserID: user.ID}
}

func runAuth(t *testing.T, repo *stubTokenRepo, log *logrus.Logger, header string) (*httptest.ResponseRecorder, *models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var seen *models.User
	r := gin.New()
	r.Use(TokenAuth(repo, log))
	r.GET("/whoami", func(c *gin.Context) {
		user, err := GetUserFromContext(c)
		require.NoError(t, err)
		seen = user
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, seen
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestTokenAuthResolvesUser(t *testing.T) {
	repo := &stubTokenRepo{token: activeToken()}

	w, seen := runAuth(t, repo, quietLogger(), "Bearer valid-token")

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, seen)
	require.Equal(t, uint(1), seen.ID)

	require.Eventually(t, repo.wasSaved, time.Second, 5*time.Millisecond)
	require.NotNil(t, repo.token.LastUsedAt)
}

func TestTokenAuthRejectsMissingHeader(t *testing.T) {
	repo := &stubTokenRepo{token: activeToken()}

	w, _ := runAuth(t, repo, quietLogger(), "")

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthRejectsMalformedHeader(t *testing.T) {
	repo := &stubTokenRepo{token: activeToken()}

	w, _ := runAuth(t, repo, quietLogger(), "Token valid-token")

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthRejectsUnknownToken(t *testing.T) {
	repo := &stubTokenRepo{token: activeToken()}

	w, _ := runAuth(t, repo, quietLogger(), "Bearer wrong-token")

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthRejectsExpiredToken(t *testing.T) {
	expired := time.Now().Add(-time.Hour)
	token := activeToken()
	token.ExpiresAt = &expired
	repo := &stubTokenRepo{token: token}

	w, _ := runAuth(t, repo, quietLogger(), "Bearer valid-token")

	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenAuthRejectsInactiveUser(t *testing.T) {
	token := activeToken()
	token.User.IsActive = false
	repo := &stubTokenRepo{token: token}

	w, _ := runAuth(t, repo, quietLogger(), "Bearer valid-token")

	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestTokenAuthLogsLastUsedSaveFailure(t *testing.T) {
	repo := &stubTokenRepo{token: activeToken(), saveErr: context.DeadlineExceeded}
	log, hook := test.NewNullLogger()

	w, _ := runAuth(t, repo, log, "Bearer valid-token")

	require.Equal(t, http.StatusOK, w.Code)
	require.Eventually(t, func() bool {
		for _, entry := range hook.AllEntries() {
			if entry.Level == logrus.WarnLevel &&
				strings.Contains(entry.Message, "last-used") {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
}
