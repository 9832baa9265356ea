package auth

import (
	"net/http/httptest"
	"testing"
	"time"

	"threadsntrends_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

func TestTokenRoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	user := models.User{ID: primitive.NewObjectID(), Email: "admin@example.com", Role: models.RoleAdmin}

	token, err := m.Issue(user)
	require.NoError(t, err)

	p, err := m.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), p.UserID)
	assert.Equal(t, "admin@example.com", p.Email)
	assert.True(t, p.IsAdmin())
}

func TestTokenRejectsExpiredAndForeign(t *testing.T) {
	m := NewTokenManager("test-secret", time.Hour)
	token, err := m.Issue(models.User{ID: primitive.NewObjectID(), Role: models.RoleUser})
	require.NoError(t, err)

	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := NewTokenManager("other-secret", time.Hour)
	_, err = other.Parse(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPasswordArgon2(t *testing.T) {
	hash, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("s3cret!", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("wrong", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", "garbage")
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestPasswordLegacyBcrypt(t *testing.T) {
	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := VerifyPassword("old-pass", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrincipalContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Nil(t, FromContext(c))

	WithPrincipal(c, &Principal{UserID: "u1", Role: models.RoleUser})
	p := FromContext(c)
	require.NotNil(t, p)
	assert.False(t, p.IsAdmin())

	var anon *Principal
	assert.False(t, anon.IsAdmin())
}

func TestProviderFromRequest(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/auth/google?provider=google", nil)
	p, err := ProviderFromRequest(req)
	require.NoError(t, err)
	assert.Equal(t, "google", p)

	_, err = ProviderFromRequest(httptest.NewRequest("GET", "/api/auth/", nil))
	assert.Error(t, err)
}
