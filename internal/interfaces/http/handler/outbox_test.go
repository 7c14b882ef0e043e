package handler

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/coopmarket/backend/internal/application/event"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupOutboxRouter() (*gin.Engine, *MockOutboxService) {
	svc := new(MockOutboxService)
	h := NewOutboxHandler(svc)

	r := gin.New()
	r.GET("/admin/outbox/stats", h.GetStats)
	r.GET("/admin/outbox/dead", h.GetDeadLetterEntries)
	r.POST("/admin/outbox/dead/retry-all", h.RetryAllDeadEntries)
	r.GET("/admin/outbox/:id", h.GetEntry)
	r.POST("/admin/outbox/:id/retry", h.RetryDeadEntry)
	return r, svc
}

func TestOutboxHandler_GetDeadLetterEntries(t *testing.T) {
	r, svc := setupOutboxRouter()
	entries := []event.OutboxEntryDTO{{ID: uuid.New(), EventType: "OrderConfirmed", Status: "DEAD", CreatedAt: time.Now()}}
	svc.On("GetDeadLetterEntries", mock.Anything, event.OutboxFilter{Page: 1, PageSize: 10}).
		Return(shared.NewPaginated(entries, 1, 1, 10), nil)

	w := doRequest(r, http.MethodGet, "/admin/outbox/dead?page=1&page_size=10", "", "")

	require.Equal(t, http.StatusOK, w.Code)
	env := decode(t, w.Body.Bytes())
	require.NotNil(t, env.Meta)
	assert.Equal(t, int64(1), env.Meta.Total)
	assert.Contains(t, string(env.Data), "OrderConfirmed")
}

func TestOutboxHandler_Entry(t *testing.T) {
	id := uuid.New()

	t.Run("get", func(t *testing.T) {
		r, svc := setupOutboxRouter()
		svc.On("GetEntry", mock.Anything, id).Return(&event.OutboxEntryDTO{ID: id, Status: "SENT"}, nil)

		w := doRequest(r, http.MethodGet, "/admin/outbox/"+id.String(), "", "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("retry non dead entry", func(t *testing.T) {
		r, svc := setupOutboxRouter()
		svc.On("RetryDeadEntry", mock.Anything, id).Return(nil, shared.ErrInvalidState)

		w := doRequest(r, http.MethodPost, "/admin/outbox/"+id.String()+"/retry", "", "")
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("bad id", func(t *testing.T) {
		r, _ := setupOutboxRouter()
		w := doRequest(r, http.MethodGet, "/admin/outbox/xyz", "", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOutboxHandler_RetryAllAndStats(t *testing.T) {
	r, svc := setupOutboxRouter()
	svc.On("RetryAllDeadEntries", mock.Anything).Return(int64(3), nil)
	svc.On("GetStats", mock.Anything).Return(nil, shared.NewPersistenceError("count outbox", errors.New("db gone")))

	w := doRequest(r, http.MethodPost, "/admin/outbox/dead/retry-all", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":3`)

	w = doRequest(r, http.MethodGet, "/admin/outbox/stats", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.NotContains(t, w.Body.String(), "db gone")
}
