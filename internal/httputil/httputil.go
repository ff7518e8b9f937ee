package httputil

import (
	"errors"
	"net/http"
	"strconv"

	"tgads_go/models"
	"tgads_go/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// PartyKey: ключ контекста gin с идентификатором вызывающего.
const PartyKey = "party_id"

// Status сопоставляет вид ошибки с кодом HTTP.
func Status(err error) int {
	if errors.Is(err, models.ErrIllegalTransition) {
		return http.StatusConflict
	}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindGuard:
		return http.StatusUnprocessableEntity
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindExternal, apperr.KindAmbiguous:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// RespondError отправляет ошибку в едином формате и прекращает обработку запроса.
// Текст внутренних ошибок наружу не отдаётся.
func RespondError(c *gin.Context, err error) {
	status := Status(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "внутренняя ошибка"
	}
	body := gin.H{"error": msg, "kind": string(apperr.KindOf(err))}
	if apperr.Retryable(err) {
		body["retry"] = true
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, body)
}

// BadRequest отвечает 400 на некорректное тело или параметр.
func BadRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg, "kind": string(apperr.KindValidation)})
}

// IDParam разбирает числовой параметр пути.
func IDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		BadRequest(c, "некорректный "+name)
		return 0, false
	}
	return id, true
}

// Party возвращает идентификатор вызывающего, установленный middleware авторизации.
func Party(c *gin.Context) int64 {
	return c.GetInt64(PartyKey)
}
