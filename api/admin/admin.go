// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package admin serves runtime switches of a running server: the log level and
// API request logging.
package admin

import (
	"log/slog"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/api/restutil"
	"github.com/vechain/tokenomics/log"
)

var levels = map[string]slog.Level{
	"trace": log.LevelTrace,
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
	"crit":  log.LevelCrit,
}

type logLevel struct {
	Level string `json:"level"`
}

type apiLogs struct {
	Enabled bool `json:"enabled"`
}

type Admin struct {
	logLevel *slog.LevelVar
	apiLogs  *atomic.Bool
}

func New(logLevel *slog.LevelVar, apiLogs *atomic.Bool) *Admin {
	return &Admin{logLevel, apiLogs}
}

func (a *Admin) getLogLevel(w http.ResponseWriter, _ *http.Request) error {
	return restutil.WriteJSON(w, &logLevel{Level: a.logLevel.Level().String()})
}

func (a *Admin) postLogLevel(w http.ResponseWriter, req *http.Request) error {
	var body logLevel
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	level, ok := levels[body.Level]
	if !ok {
		return restutil.BadRequest(errors.Errorf("invalid verbosity level %q", body.Level))
	}
	a.logLevel.Set(level)
	return a.getLogLevel(w, req)
}

func (a *Admin) getAPILogs(w http.ResponseWriter, _ *http.Request) error {
	return restutil.WriteJSON(w, &apiLogs{Enabled: a.apiLogs.Load()})
}

func (a *Admin) postAPILogs(w http.ResponseWriter, req *http.Request) error {
	var body apiLogs
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	a.apiLogs.Store(body.Enabled)
	return a.getAPILogs(w, req)
}

func (a *Admin) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/loglevel").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(a.getLogLevel))
	sub.Path("/loglevel").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.postLogLevel))
	sub.Path("/apilogs").Methods(http.MethodGet).HandlerFunc(restutil.WrapHandlerFunc(a.getAPILogs))
	sub.Path("/apilogs").Methods(http.MethodPost).HandlerFunc(restutil.WrapHandlerFunc(a.postAPILogs))
}

// HTTPHandler returns the admin routes under /admin.
func HTTPHandler(logLevel *slog.LevelVar, apiLogs *atomic.Bool) http.Handler {
	router := mux.NewRouter()
	New(logLevel, apiLogs).Mount(router, "/admin")
	return handlers.CompressHandler(router)
}
