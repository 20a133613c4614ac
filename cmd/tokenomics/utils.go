// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	cli "gopkg.in/urfave/cli.v1"
	"gopkg.in/yaml.v3"

	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/kv"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/logdb"
	"github.com/vechain/tokenomics/lvldb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

const (
	metaBucket = kv.Bucket("m")
	suiteKey   = "suite"
)

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".tokenomics")
	}
	return ""
}

func initLogger(ctx *cli.Context) *slog.LevelVar {
	level := new(slog.LevelVar)
	level.Set(log.FromLegacyLevel(ctx.Int(verbosityFlag.Name)))

	var handler slog.Handler
	if ctx.Bool(jsonLogsFlag.Name) {
		handler = log.JSONHandlerWithLevel(os.Stderr, level)
	} else {
		useColor := (isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())) && os.Getenv("TERM") != "dumb"
		output := io.Writer(os.Stderr)
		if useColor {
			output = colorable.NewColorableStderr()
		}
		handler = log.NewTerminalHandlerWithLevel(output, level, useColor)
	}
	log.SetDefault(log.NewLogger(handler))
	return level
}

func makeDataDir(ctx *cli.Context) (string, error) {
	dir := ctx.String(dataDirFlag.Name)
	if dir == "" {
		return "", errors.Errorf("unable to infer default data dir, use -%s to specify one", dataDirFlag.Name)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", errors.Wrapf(err, "create data dir at '%v'", dir)
	}
	return dir, nil
}

func openMainDB(ctx *cli.Context, dataDir string) (*lvldb.LevelDB, error) {
	dir := filepath.Join(dataDir, "main.db")
	db, err := lvldb.New(dir, lvldb.Options{
		CacheSize:              ctx.Int(cacheFlag.Name) / 2,
		OpenFilesCacheCapacity: 500,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open main database at '%v'", dir)
	}
	return db, nil
}

func openLogDB(dataDir string) (*logdb.LogDB, error) {
	path := filepath.Join(dataDir, "events.db")
	db, err := logdb.New(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open event database at '%v'", path)
	}
	return db, nil
}

func newStateCache(ctx *cli.Context) *state.Cache {
	return state.NewCache(ctx.Int(cacheFlag.Name) / 2 * 1024 * 1024)
}

// suiteMeta is the wiring a data dir was created with. Views need the same wiring
// to read it back, so it is stored next to the state.
type suiteMeta struct {
	Owner           thor.Address `yaml:"owner"`
	StartTime       uint64       `yaml:"startTime"`
	PoolRewardRate  string       `yaml:"poolRewardRate"`
	RewardWindow    uint64       `yaml:"rewardWindow"`
	VestingDuration uint64       `yaml:"vestingDuration"`
	LiquidityHolder thor.Address `yaml:"liquidityHolder,omitempty"`
}

func newSuiteMeta(owner thor.Address, cfg builtin.Config) *suiteMeta {
	return &suiteMeta{
		Owner:           owner,
		StartTime:       cfg.StartTime,
		PoolRewardRate:  cfg.PoolRewardRate.String(),
		RewardWindow:    cfg.RewardWindow,
		VestingDuration: cfg.VestingDuration,
		LiquidityHolder: cfg.LiquidityHolder,
	}
}

func (m *suiteMeta) config() (builtin.Config, error) {
	rate, ok := new(big.Int).SetString(m.PoolRewardRate, 10)
	if !ok {
		return builtin.Config{}, errors.Errorf("invalid pool reward rate %q", m.PoolRewardRate)
	}
	return builtin.Config{
		StartTime:       m.StartTime,
		PoolRewardRate:  rate,
		RewardWindow:    m.RewardWindow,
		VestingDuration: m.VestingDuration,
		LiquidityHolder: m.LiquidityHolder,
	}, nil
}

func saveSuiteMeta(db kv.Store, m *suiteMeta) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return err
	}
	return metaBucket.NewStore(db).Put([]byte(suiteKey), data)
}

// loadSuiteMeta returns nil if the data dir holds no suite yet.
func loadSuiteMeta(db kv.Store) (*suiteMeta, error) {
	store := metaBucket.NewStore(db)
	data, err := store.Get([]byte(suiteKey))
	if err != nil {
		if store.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	var m suiteMeta
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decode suite meta")
	}
	return &m, nil
}

func handleExitSignal() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		exitSignalCh := make(chan os.Signal, 1)
		signal.Notify(exitSignalCh, os.Interrupt, syscall.SIGTERM)

		sig := <-exitSignalCh
		log.Info("exit signal received", "signal", sig)
		cancel()
	}()
	return ctx
}
