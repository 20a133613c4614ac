// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"gopkg.in/cheggaaa/pb.v1"
	cli "gopkg.in/urfave/cli.v1"
)

func replayAction(ctx *cli.Context) error {
	initLogger(ctx)
	if ctx.NArg() != 1 {
		return errors.New("replay takes exactly one scenario file")
	}
	sc, err := loadScenario(ctx.Args().First())
	if err != nil {
		return err
	}

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

	runLogger := logger.With("run", uuid.NewRandom().String())

	r, err := newReplayer(mainDB, logDB, newStateCache(ctx), sc)
	if err != nil {
		return err
	}
	runLogger.Info("replaying scenario", "file", ctx.Args().First(), "steps", len(sc.Steps), "first", r.next)

	exit := handleExitSignal()
	bar := pb.New(len(sc.Steps)).
		SetMaxWidth(90).
		Start()
	defer func() { bar.NotPrint = true }()

	for i := range sc.Steps {
		select {
		case <-exit.Done():
			return exit.Err()
		default:
		}
		if err := r.apply(i, &sc.Steps[i]); err != nil {
			runLogger.Error("step failed", "err", err)
			return err
		}
		bar.Increment()
	}
	bar.Finish()
	runLogger.Info("scenario applied", "next", r.next)

	if ctx.Bool(dumpFlag.Name) {
		now := sc.Config.StartTime
		if n := len(sc.Steps); n > 0 {
			now = sc.Steps[n-1].Time
		}
		views, err := r.views(now)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "views at %d\n", now)
		dumper := spew.ConfigState{Indent: "  ", SortKeys: true}
		dumper.Fdump(os.Stdout, views)
	}
	return nil
}
