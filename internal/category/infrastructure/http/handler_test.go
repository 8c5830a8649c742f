package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmehra2102/storefront/internal/category/application"
	"github.com/dmehra2102/storefront/internal/category/domain"
	"github.com/dmehra2102/storefront/internal/category/infrastructure/memory"
	"github.com/dmehra2102/storefront/pkg/logging"
)

func send(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
	return rec
}

func create(t *testing.T, h http.Handler, body string) domain.Category {
	t.Helper()
	rec := send(t, h, http.MethodPost, "/", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c domain.Category
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&c))
	return c
}

func TestHandler_TreeEdits(t *testing.T) {
	h := NewHandler(logging.Discard(), application.NewService(logging.Discard(), memory.NewRepository())).Routes()

	a := create(t, h, `{"name":"A","slug":"a"}`)
	b := create(t, h, `{"name":"B","slug":"b","parentId":"`+a.ID+`"}`)
	c := create(t, h, `{"name":"C","slug":"c","parentId":"`+b.ID+`"}`)

	rec := send(t, h, http.MethodPatch, "/"+a.ID, `{"parentId":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "cycle")

	rec = send(t, h, http.MethodPatch, "/"+c.ID, `{"parentId":"`+c.ID+`"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = send(t, h, http.MethodPost, "/", `{"name":"dup","slug":"a"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = send(t, h, http.MethodDelete, "/"+b.ID, "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, "has children")

	rec = send(t, h, http.MethodPatch, "/"+c.ID, `{"clearParent":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"parentId":null`)

	assert.Equal(t, http.StatusNoContent, send(t, h, http.MethodDelete, "/"+b.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, send(t, h, http.MethodGet, "/"+b.ID, "").Code)

	rec = send(t, h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var all []domain.Category
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&all))
	assert.Len(t, all, 2)
}

func TestHandler_Validation(t *testing.T) {
	h := NewHandler(logging.Discard(), application.NewService(logging.Discard(), memory.NewRepository())).Routes()

	assert.Equal(t, http.StatusBadRequest, send(t, h, http.MethodPost, "/", `{"name":"x","slug":"Not A Slug"}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(t, h, http.MethodPost, "/", `{"slug":"x"}`).Code)
	assert.Equal(t, http.StatusBadRequest, send(t, h, http.MethodPost, "/", `{"name":"x","slug":"x","parentId":"00000000-0000-0000-0000-000000000000"}`).Code)
}
