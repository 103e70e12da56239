package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordResolve(t *testing.T) {
	before := testutil.ToFloat64(sessionResolves.WithLabelValues("anonymous"))
	RecordResolve("anonymous", 10*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(sessionResolves.WithLabelValues("anonymous")))
}

func TestRecordHandshake(t *testing.T) {
	startsBefore := testutil.ToFloat64(handshakeStarts.WithLabelValues("login", "true"))
	pollsBefore := testutil.ToFloat64(handshakePolls.WithLabelValues("login", "pending"))
	resultsBefore := testutil.ToFloat64(handshakeResults.WithLabelValues("login", "success"))

	RecordHandshakeStart("login", true)
	RecordPoll("login", "pending")
	RecordPoll("login", "pending")
	RecordHandshakeResult("login", "success")

	assert.Equal(t, startsBefore+1, testutil.ToFloat64(handshakeStarts.WithLabelValues("login", "true")))
	assert.Equal(t, pollsBefore+2, testutil.ToFloat64(handshakePolls.WithLabelValues("login", "pending")))
	assert.Equal(t, resultsBefore+1, testutil.ToFloat64(handshakeResults.WithLabelValues("login", "success")))
}

func TestMiddlewareLabelsByRouteTemplate(t *testing.T) {
	router := mux.NewRouter()
	router.Use(Middleware)
	router.HandleFunc("/dev/handshakes/{token}/confirm", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}).Methods(http.MethodPost)

	label := httpRequests.WithLabelValues(http.MethodPost, "/dev/handshakes/{token}/confirm", "202")
	before := testutil.ToFloat64(label)

	req := httptest.NewRequest(http.MethodPost, "/dev/handshakes/abc/confirm", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(label))
}

func TestHandlerExposesCollectors(t *testing.T) {
	RecordResolve("authenticated", time.Millisecond)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "miniapp_session_resolves_total"))
}
