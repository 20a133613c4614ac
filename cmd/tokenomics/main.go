// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"

	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/tokenomics/log"
)

var (
	version   string
	gitCommit string
	gitTag    string

	logger = log.WithContext("pkg", "tokenomics")
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      "tokenomics",
		Usage:     "Staking, vote-escrow and vesting reward engine",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Commands: []cli.Command{
			{
				Name:      "replay",
				Usage:     "apply a scenario file to the data dir",
				ArgsUsage: "<scenario.yaml>",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
					dumpFlag,
				},
				Action: replayAction,
			},
			{
				Name:  "serve",
				Usage: "serve the read API over the data dir",
				Flags: []cli.Flag{
					dataDirFlag,
					cacheFlag,
					verbosityFlag,
					jsonLogsFlag,
					apiAddrFlag,
					apiCorsFlag,
					apiEventsLimitFlag,
					apiRateLimitFlag,
					apiRateBurstFlag,
					apiLogsEnabledFlag,
					apiSlowQueriesThresholdFlag,
					enableMetricsFlag,
					metricsAddrFlag,
					enableAdminFlag,
					adminAddrFlag,
				},
				Action: serveAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
