package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(PairingPolls.WithLabelValues("pending"))
	PairingPolls.WithLabelValues("pending").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(PairingPolls.WithLabelValues("pending")))
}

func TestHandler(t *testing.T) {
	RelayPolls.WithLabelValues("unauthorized").Inc()

	srv := httptest.NewServer(Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `steamlink_relay_polls_total{outcome="unauthorized"}`)
}
