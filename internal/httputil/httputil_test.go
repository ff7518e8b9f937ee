package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"tgads_go/models"
	"tgads_go/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("плохо"), http.StatusBadRequest},
		{apperr.NotFound("заказ", 1), http.StatusNotFound},
		{apperr.Conflict(errors.New("гонка")), http.StatusConflict},
		{&models.TransitionError{From: models.StatusPending, To: models.StatusActive}, http.StatusConflict},
		{apperr.Guard("нет средств"), http.StatusUnprocessableEntity},
		{apperr.External("платёжный сервис", errors.New("timeout")), http.StatusBadGateway},
		{apperr.Forbidden("нет прав"), http.StatusForbidden},
		{fmt.Errorf("обёртка: %w", apperr.Validation("x")), http.StatusBadRequest},
		{errors.New("прочее"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Status(tc.err), tc.err.Error())
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	RespondError(c, apperr.External("платёжный сервис", errors.New("timeout")))

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "external", body["kind"])
	assert.Equal(t, true, body["retry"])

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	RespondError(c, errors.New("pq: secret detail"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "secret")
}
