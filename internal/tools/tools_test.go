package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"siteflow/internal/domain"
)

func TestRegistryInvoke(t *testing.T) {
	r := NewRegistry()
	r.Register(domain.IntentTerrainAnalysis, HandlerFunc(func(_ context.Context, inv Invocation) (Result, error) {
		return Result{Success: true, Data: map[string]any{"lat": inv.Parameters["latitude"]}}, nil
	}))

	res, err := r.Invoke(context.Background(), Invocation{
		Intent:     domain.IntentTerrainAnalysis,
		Parameters: map[string]any{"latitude": 1.5},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1.5, res.Data["lat"])

	_, err = r.Invoke(context.Background(), Invocation{Intent: domain.IntentWakeSimulation})
	assert.ErrorIs(t, err, ErrNoHandler)
	assert.Equal(t, []domain.IntentType{domain.IntentTerrainAnalysis}, r.Intents())
}

func TestParamsTyped(t *testing.T) {
	p := Params(map[string]string{
		"latitude":     "35.067482",
		"num_turbines": "25",
		"wind_speed":   "fast",
		"project_name": "p1",
		"confirm":      "true",
	})
	assert.Equal(t, 35.067482, p["latitude"])
	assert.Equal(t, 25, p["num_turbines"])
	assert.Equal(t, "fast", p["wind_speed"])
	assert.Equal(t, "p1", p["project_name"])
	assert.Equal(t, true, p["confirm"])

	f, ok := Float(p, "num_turbines")
	assert.True(t, ok)
	assert.Equal(t, 25.0, f)
	_, ok = Float(p, "wind_speed")
	assert.False(t, ok)
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Success: true}.Err())
	assert.ErrorIs(t, Result{}.Err(), ErrNoDetail)
	assert.EqualError(t, Fail("solver diverged").Err(), "solver diverged")
}

func TestHTTPInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var inv Invocation
		if err := json.NewDecoder(r.Body).Decode(&inv); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch inv.Intent {
		case domain.IntentTerrainAnalysis:
			_ = json.NewEncoder(w).Encode(Result{Success: true, Data: map[string]any{
				"project": inv.ProjectContext.ProjectName,
				"lat":     inv.Parameters["latitude"],
			}})
		case domain.IntentLayoutOptimization:
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false})
		default:
			http.Error(w, "boom", http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	h := HTTP{URL: srv.URL, Timeout: time.Second}
	res, err := h.Invoke(context.Background(), Invocation{
		Intent:         domain.IntentTerrainAnalysis,
		Parameters:     map[string]any{"latitude": 35.1},
		ProjectContext: domain.ProjectContext{ProjectName: "p1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "p1", res.Data["project"])
	assert.Equal(t, 35.1, res.Data["lat"])

	res, err = h.Invoke(context.Background(), Invocation{Intent: domain.IntentLayoutOptimization})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, ErrNoDetail.Error(), res.Error)

	_, err = h.Invoke(context.Background(), Invocation{Intent: domain.IntentWakeSimulation})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestHTTPTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	_, err := HTTP{URL: srv.URL, Timeout: 50 * time.Millisecond}.Invoke(context.Background(), Invocation{Intent: domain.IntentTerrainAnalysis})
	assert.Error(t, err)
}
