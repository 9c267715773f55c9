//go:build integration

package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/erp/mason/internal/infrastructure/persistence/pgtest"
	"github.com/erp/mason/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_CompanyAndProjectFlow(t *testing.T) {
	tdb := pgtest.New(t)
	env := newTestEnvWithDB(t, tdb.DB)
	token := env.token(t, "project:*")

	w := env.do(http.MethodPost, "/api/v1/companies", token, CompanyCreate{Name: "acme", FullName: "Acme Corporation"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	companyID := decode(t, w)["data"].(map[string]any)["id"].(string)

	w = env.do(http.MethodPost, "/api/v1/companies", token, CompanyCreate{Name: "acme"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, dto.ErrCodeAlreadyExists, errorCode(t, w))

	var ids []float64
	for i := 1; i <= 3; i++ {
		w = env.do(http.MethodPost, "/api/v1/projects", token, map[string]any{
			"company_id": companyID,
			"name":       fmt.Sprintf("project-%d", i),
			"budget":     decimal.NewFromFloat(99.95).Mul(decimal.NewFromInt(int64(i))),
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		ids = append(ids, decode(t, w)["data"].(map[string]any)["id"].(float64))
	}

	t.Run("budget round trips as decimal", func(t *testing.T) {
		w := env.do(http.MethodGet, fmt.Sprintf("/api/v1/projects/%.0f", ids[2]), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "299.85", decode(t, w)["data"].(map[string]any)["budget"])
	})

	t.Run("ordering by budget", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/projects?ordering=-budget&limit=1", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "project-3", body["data"].([]any)[0].(map[string]any)["name"])
		assert.EqualValues(t, 3, body["meta"].(map[string]any)["total"])
	})

	t.Run("cursor feed", func(t *testing.T) {
		w := env.do(http.MethodGet, "/api/v1/projects-feed?size=2", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		meta := decode(t, w)["meta"].(map[string]any)
		require.Equal(t, true, meta["has_next"])

		w = env.do(http.MethodGet, "/api/v1/projects-feed?size=2&cursor="+meta["next_cursor"].(string), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		require.Len(t, body["data"], 1)
		assert.Equal(t, "project-3", body["data"].([]any)[0].(map[string]any)["name"])
	})

	t.Run("stats", func(t *testing.T) {
		w := env.do(http.MethodPost, fmt.Sprintf("/api/v1/projects/%.0f/archive", ids[0]), token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		w = env.do(http.MethodGet, "/api/v1/companies/stats", "", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		row := decode(t, w)["data"].([]any)[0].(map[string]any)
		assert.EqualValues(t, 3, row["project_count"])
		assert.EqualValues(t, 2, row["active_count"])
	})

	t.Run("delete company cascades", func(t *testing.T) {
		w := env.do(http.MethodDelete, "/api/v1/companies/"+companyID, token, nil)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		w = env.do(http.MethodGet, "/api/v1/projects", token, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.EqualValues(t, 0, decode(t, w)["meta"].(map[string]any)["total"])
	})
}
