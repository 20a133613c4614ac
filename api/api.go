// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package api

import (
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/vechain/tokenomics/api/distributors"
	"github.com/vechain/tokenomics/api/escrow"
	"github.com/vechain/tokenomics/api/events"
	"github.com/vechain/tokenomics/api/middleware"
	"github.com/vechain/tokenomics/api/trackers"
	"github.com/vechain/tokenomics/api/vesters"
	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/logdb"
)

var logger = log.WithContext("pkg", "api")

type Options struct {
	AllowedOrigins       string
	EnableMetrics        bool
	EnableReqLogger      *atomic.Bool
	SlowQueriesThreshold time.Duration
	// RateLimit is requests per second per client, zero disables limiting.
	RateLimit   rate.Limit
	RateBurst   int
	EventsLimit uint64
	Clock       clockwork.Clock
}

// New returns the api handler. newSuite must return a suite over a fresh state on each call.
// Without a log db, /events is not served.
func New(newSuite func() *builtin.Suite, logDB *logdb.LogDB, opts Options) (http.Handler, *middleware.RateLimiter) {
	origins := strings.Split(strings.TrimSpace(opts.AllowedOrigins), ",")
	for i, o := range origins {
		origins[i] = strings.ToLower(strings.TrimSpace(o))
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	router := mux.NewRouter()

	escrow.New(newSuite, clock).
		Mount(router, "/escrow")
	trackers.New(newSuite, clock).
		Mount(router, "/trackers")
	distributors.New(newSuite, clock).
		Mount(router, "/distributors")
	vesters.New(newSuite, clock).
		Mount(router, "/vesters")
	if logDB != nil {
		events.New(logDB, opts.EventsLimit).
			Mount(router, "/events")
	}

	if opts.EnableMetrics {
		router.Use(metricsMiddleware)
	}

	handler := handlers.CompressHandler(router)
	handler = handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedHeaders([]string{"content-type"}),
	)(handler)

	if opts.EnableReqLogger != nil {
		handler = middleware.RequestLoggerMiddleware(logger, opts.EnableReqLogger, opts.SlowQueriesThreshold)(handler)
	}

	var limiter *middleware.RateLimiter
	if opts.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(opts.RateLimit, opts.RateBurst, clock)
		handler = limiter.Handler(handler)
	}
	return handler, limiter
}
