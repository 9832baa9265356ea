package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noteRequest struct {
	Title string `json:"title" binding:"required,max=20"`
	Stars int    `json:"stars" binding:"gte=1,lte=5"`
}

func bind(body string) (noteRequest, error) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	var req noteRequest
	err := BindJSON(c, &req)
	return req, err
}

func TestBindJSONAcceptsValidBody(t *testing.T) {
	req, err := bind(`{"title":"Parfait","stars":5}`)
	require.NoError(t, err)
	assert.Equal(t, "Parfait", req.Title)
	assert.Equal(t, 5, req.Stars)
}

func TestBindJSONRejectsUnknownField(t *testing.T) {
	_, err := bind(`{"title":"Parfait","stars":5,"totalAmount":1}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownField)
	assert.Contains(t, err.Error(), "totalAmount")
}

func TestBindJSONAppliesBindingTags(t *testing.T) {
	_, err := bind(`{"title":"Parfait","stars":9}`)
	require.Error(t, err)
	assert.Contains(t, ValidationMessage(err), "noteRequest.Stars")
}

func TestBindJSONRejectsEmptyAndOversizedBodies(t *testing.T) {
	_, err := bind(``)
	assert.EqualError(t, err, "corps de requête vide")

	_, err = bind(`{"title":"` + strings.Repeat("a", maxBodyBytes) + `","stars":1}`)
	assert.Error(t, err)
}
