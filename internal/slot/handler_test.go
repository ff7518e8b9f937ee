package slot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"tgads_go/internal/httputil"
	"tgads_go/models"
	"tgads_go/pkg/slots"
	"tgads_go/pkg/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type inspector struct{ admin bool }

func (inspector) Resolve(_ context.Context, ref string) (*slots.ChannelInfo, error) {
	if ref != "@news" {
		return nil, slots.ErrChannelNotFound
	}
	return &slots.ChannelInfo{ChannelID: 1001, AccessHash: 5, Title: "Новости", Username: "news"}, nil
}

func (i inspector) IsBotAdmin(context.Context, models.Destination) (bool, error) { return i.admin, nil }

func (inspector) AudienceSize(context.Context, models.Destination) (int, error) { return 10000, nil }

func (inspector) RecentViews(context.Context, models.Destination, int) ([]int, error) {
	return []int{2000, 2100, 1900, 2050, 1950}, nil
}

func do(r http.Handler, party int64, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("X-Party", strconv.FormatInt(party, 10))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSlotRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := storage.NewMemory()
	require.NoError(t, store.InTx(context.Background(), func(tx storage.Tx) error {
		require.NoError(t, tx.UpsertParty(&models.Party{ID: 1}))
		return tx.UpsertParty(&models.Party{ID: 2})
	}))
	r := gin.New()
	SetupRoutes(r.Group("/slots", func(c *gin.Context) {
		id, _ := strconv.ParseInt(c.GetHeader("X-Party"), 10, 64)
		c.Set(httputil.PartyKey, id)
	}), slots.NewService(store, inspector{admin: true}, zap.NewNop()))

	assert.Equal(t, http.StatusBadRequest, do(r, 1, http.MethodPost, "/slots", map[string]string{"channel": "@missing"}).Code)

	w := do(r, 1, http.MethodPost, "/slots", map[string]string{"channel": "@news"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var slot models.Slot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
	path := "/slots/" + strconv.FormatInt(slot.ID, 10)

	assert.Equal(t, http.StatusConflict, do(r, 1, http.MethodPost, "/slots", map[string]string{"channel": "@news"}).Code)

	w = do(r, 2, http.MethodPut, path+"/prices", map[string]string{"standard": "3", "pinned": "6"})
	assert.Equal(t, http.StatusNotFound, w.Code, "чужой канал скрыт")

	w = do(r, 1, http.MethodPut, path+"/prices", map[string]string{"standard": "3", "pinned": "6"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &slot))
	assert.Equal(t, "3", slot.PriceStandard.String())

	w = do(r, 2, http.MethodGet, "/slots", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var catalog map[string][]models.Slot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Len(t, catalog["slots"], 1)

	w = do(r, 2, http.MethodGet, "/slots?mine=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &catalog))
	assert.Empty(t, catalog["slots"])

	assert.Equal(t, http.StatusOK, do(r, 1, http.MethodPost, path+"/refresh", nil).Code)
	assert.Equal(t, http.StatusOK, do(r, 2, http.MethodGet, path, nil).Code)
}
