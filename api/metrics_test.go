// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func TestRouteLabel(t *testing.T) {
	var got string
	record := func(w http.ResponseWriter, r *http.Request) { got = routeLabel(r) }

	router := mux.NewRouter()
	router.Path("/escrow/{address}").Name("GET /escrow/{address}").HandlerFunc(record)
	router.Path("/anon").HandlerFunc(record)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/escrow/0x01", nil))
	assert.Equal(t, "escrow_address", got)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/anon", nil))
	assert.Equal(t, "unknown", got)
}

func TestMetricsResponseWriter(t *testing.T) {
	rec := httptest.NewRecorder()
	h := metricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
