// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/tokenomics/api"
	"github.com/vechain/tokenomics/api/admin"
	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/metrics"
	"github.com/vechain/tokenomics/state"
)

const limiterPruneInterval = time.Minute

func serveAction(ctx *cli.Context) error {
	defer func() { logger.Info("exited") }()

	logLevel := initLogger(ctx)
	dataDir, err := makeDataDir(ctx)
	if err != nil {
		return err
	}

	mainDB, err := openMainDB(ctx, dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing main database..."); mainDB.Close() }()

	logDB, err := openLogDB(dataDir)
	if err != nil {
		return err
	}
	defer func() { logger.Info("closing log database..."); logDB.Close() }()

	meta, err := loadSuiteMeta(mainDB)
	if err != nil {
		return err
	}
	if meta == nil {
		return errors.Errorf("no suite in '%v', run replay first", dataDir)
	}
	cfg, err := meta.config()
	if err != nil {
		return err
	}

	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
	}

	cache := newStateCache(ctx)
	if _, err := builtin.NewSuite(state.New(mainDB, cache), meta.Owner, cfg); err != nil {
		return err
	}
	newSuite := func() *builtin.Suite {
		return builtin.MustNewSuite(state.New(mainDB, cache), meta.Owner, cfg)
	}

	enableReqLogger := &atomic.Bool{}
	enableReqLogger.Store(ctx.Bool(apiLogsEnabledFlag.Name))
	handler, limiter := api.New(newSuite, logDB, api.Options{
		AllowedOrigins:       ctx.String(apiCorsFlag.Name),
		EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
		EnableReqLogger:      enableReqLogger,
		SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
		RateLimit:            rate.Limit(ctx.Float64(apiRateLimitFlag.Name)),
		RateBurst:            ctx.Int(apiRateBurstFlag.Name),
		EventsLimit:          ctx.Uint64(apiEventsLimitFlag.Name),
	})

	exitCtx := handleExitSignal()
	g, gctx := errgroup.WithContext(exitCtx)

	servers := []*http.Server{}
	serve := func(name, addr string, h http.Handler) error {
		listener, err := net.Listen("tcp", addr)
		if err != nil {
			return errors.Wrapf(err, "listen %s addr [%v]", name, addr)
		}
		srv := &http.Server{Handler: h, ReadHeaderTimeout: time.Second, ReadTimeout: 5 * time.Second}
		servers = append(servers, srv)
		logger.Info("serving "+name, "url", "http://"+listener.Addr().String())
		g.Go(func() error {
			if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
				return errors.Wrapf(err, "serve %s", name)
			}
			return nil
		})
		return nil
	}

	abort := func(err error) error {
		for _, srv := range servers {
			srv.Close()
		}
		g.Wait()
		return err
	}

	if err := serve("API", ctx.String(apiAddrFlag.Name), handler); err != nil {
		return err
	}
	if ctx.Bool(enableMetricsFlag.Name) {
		router := mux.NewRouter()
		router.PathPrefix("/metrics").Handler(metrics.HTTPHandler())
		if err := serve("metrics", ctx.String(metricsAddrFlag.Name), handlers.CompressHandler(router)); err != nil {
			return abort(err)
		}
	}

	if ctx.Bool(enableAdminFlag.Name) {
		if err := serve("admin", ctx.String(adminAddrFlag.Name), admin.HTTPHandler(logLevel, enableReqLogger)); err != nil {
			return abort(err)
		}
	}

	if limiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterPruneInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := limiter.Prune(); n > 0 {
						logger.Debug("pruned rate limiter", "clients", n)
					}
				}
			}
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("stopping servers...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, srv := range servers {
			srv.Shutdown(shutdownCtx)
		}
		return nil
	})

	return g.Wait()
}
