package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHandlerServesCollectors(t *testing.T) {
	r := NewRegistry()
	r.SlotUtilization.Set(0.25)
	r.CollisionsTotal.Add(3)
	r.FramesRxTotal.Inc()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "acoumesh_mac_slot_utilization 0.25")
	assert.Contains(t, body, "acoumesh_mac_collisions_total 3")
	assert.True(t, strings.Contains(body, "acoumesh_engine_frames_rx_total 1"))
}
