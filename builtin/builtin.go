// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package builtin

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/vechain/tokenomics/builtin/distributor"
	"github.com/vechain/tokenomics/builtin/params"
	"github.com/vechain/tokenomics/builtin/solidity"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/builtin/tracker"
	"github.com/vechain/tokenomics/builtin/tracker/epochtracker"
	"github.com/vechain/tokenomics/builtin/tracker/pooltracker"
	"github.com/vechain/tokenomics/builtin/vester"
	"github.com/vechain/tokenomics/builtin/votingescrow"
	"github.com/vechain/tokenomics/log"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

var logger = log.WithContext("pkg", "builtin")

// Builtin component addresses.
var (
	ParamsAddress = thor.BytesToAddress([]byte("Params"))

	MUXAddress   = thor.BytesToAddress([]byte("MUX"))
	EsMUXAddress = thor.BytesToAddress([]byte("esMUX"))
	VeMUXAddress = thor.BytesToAddress([]byte("veMUX"))
	MLPAddress   = thor.BytesToAddress([]byte("MLP"))
	WETHAddress  = thor.BytesToAddress([]byte("WETH"))
	ARBAddress   = thor.BytesToAddress([]byte("ARB"))

	FeeDistributorAddress      = thor.BytesToAddress([]byte("FeeDistributor"))
	EmissionDistributorAddress = thor.BytesToAddress([]byte("MuxDistributor"))
	ArbDistributorAddress      = thor.BytesToAddress([]byte("ArbDistributor"))

	FeePoolTrackerAddress      = thor.BytesToAddress([]byte("FeeMlpTracker"))
	FeeVeTrackerAddress        = thor.BytesToAddress([]byte("FeeVeTracker"))
	EmissionPoolTrackerAddress = thor.BytesToAddress([]byte("MuxMlpTracker"))
	EmissionVeTrackerAddress   = thor.BytesToAddress([]byte("MuxVeTracker"))

	MlpVesterAddress = thor.BytesToAddress([]byte("MlpVester"))
	VeVesterAddress  = thor.BytesToAddress([]byte("VeVester"))

	// RouterAddress is the handler that moves MLP through both pool trackers.
	RouterAddress = thor.BytesToAddress([]byte("RewardRouter"))
)

// Config is the immutable wiring of a suite.
type Config struct {
	// StartTime is when the emission starts and the epoch trackers open their first epoch.
	StartTime uint64
	// PoolRewardRate is the pool part of the fee rewards shared with stakers.
	PoolRewardRate *big.Int
	// RewardWindow is how long each fee funding is spread over.
	RewardWindow uint64
	// VestingDuration is how long a vester takes to release a deposit.
	VestingDuration uint64
	// LiquidityHolder, if set, earns ARB on the MLP it holds without staking.
	LiquidityHolder thor.Address
}

// DefaultConfig returns the standard suite setup.
func DefaultConfig() Config {
	return Config{
		PoolRewardRate:  new(big.Int).Div(thor.Precision, big.NewInt(2)),
		RewardWindow:    thor.DefaultRewardWindow,
		VestingDuration: 4 * thor.Year,
	}
}

// Suite is the full set of components bound to one state.
type Suite struct {
	owner thor.Address
	cfg   Config

	Params *params.Params

	MUX   *token.Token
	EsMUX *token.Token
	MLP   *token.Token
	WETH  *token.Token
	ARB   *token.Token

	VotingEscrow *votingescrow.VotingEscrow

	FeeDistributor      *distributor.Window
	EmissionDistributor *distributor.FixedRate
	ArbDistributor      *distributor.Mirror

	// MLP stakes into FeePoolTracker for fMLP, which stakes into
	// EmissionPoolTracker for sMLP.
	FeePoolTracker      *pooltracker.PoolTracker
	FeeVeTracker        *epochtracker.EpochTracker
	EmissionPoolTracker *pooltracker.PoolTracker
	EmissionVeTracker   *epochtracker.EpochTracker

	MlpVester *vester.Vester
	VeVester  *vester.Vester

	router *solidity.Context
}

// NewSuite binds every component to st. Nothing is written until Initialize.
func NewSuite(st *state.State, owner thor.Address, cfg Config) (*Suite, error) {
	ctx := func(addr thor.Address) *solidity.Context {
		return solidity.NewContext(addr, st)
	}
	s := &Suite{owner: owner, cfg: cfg, router: ctx(RouterAddress)}

	s.Params = params.New(ctx(ParamsAddress), owner)
	s.MUX = token.New(ctx(MUXAddress), "MUX", owner)
	s.EsMUX = token.New(ctx(EsMUXAddress), "esMUX", owner)
	s.MLP = token.New(ctx(MLPAddress), "MLP", owner)
	s.WETH = token.New(ctx(WETHAddress), "WETH", owner)
	s.ARB = token.New(ctx(ARBAddress), "ARB", owner)

	s.VotingEscrow = votingescrow.New(ctx(VeMUXAddress), owner, votingescrow.Config{
		Primary:  s.MUX,
		Escrowed: s.EsMUX,
	})

	s.FeeDistributor = distributor.NewWindow(ctx(FeeDistributorAddress), owner, distributor.WindowConfig{
		Token:      s.WETH,
		Manager:    s.Params,
		PoolTarget: FeePoolTrackerAddress,
		VeTarget:   FeeVeTrackerAddress,
		Duration:   cfg.RewardWindow,
	})
	s.EmissionDistributor = distributor.NewFixedRate(ctx(EmissionDistributorAddress), owner, distributor.FixedRateConfig{
		Token:      s.EsMUX,
		Manager:    s.Params,
		PoolTarget: EmissionPoolTrackerAddress,
		VeTarget:   EmissionVeTrackerAddress,
	})

	s.FeePoolTracker = pooltracker.New(ctx(FeePoolTrackerAddress), owner, pooltracker.Config{
		Symbol:      "fMLP",
		RewardToken: s.WETH,
		Distributor: s.FeeDistributor,
		Tokens:      []pooltracker.DepositToken{s.MLP},
	})
	s.EmissionPoolTracker = pooltracker.New(ctx(EmissionPoolTrackerAddress), owner, pooltracker.Config{
		Symbol:      "sMLP",
		RewardToken: s.EsMUX,
		Distributor: s.EmissionDistributor,
		Tokens:      []pooltracker.DepositToken{s.FeePoolTracker},
	})
	s.ArbDistributor = distributor.NewMirror(ctx(ArbDistributorAddress), owner, distributor.MirrorConfig{
		Token:       s.ARB,
		Source:      s.EmissionPoolTracker,
		Holder:      cfg.LiquidityHolder,
		HolderToken: s.MLP,
	})
	s.EmissionPoolTracker.SetListener(s.ArbDistributor)
	s.FeeVeTracker = epochtracker.New(ctx(FeeVeTrackerAddress), owner, epochtracker.Config{
		RewardToken:  s.WETH,
		Distributor:  s.FeeDistributor,
		VotingEscrow: s.VotingEscrow,
		StartTime:    cfg.StartTime,
	})
	s.EmissionVeTracker = epochtracker.New(ctx(EmissionVeTrackerAddress), owner, epochtracker.Config{
		RewardToken:  s.EsMUX,
		Distributor:  s.EmissionDistributor,
		VotingEscrow: s.VotingEscrow,
		StartTime:    cfg.StartTime,
	})

	var err error
	if s.MlpVester, err = vester.New(ctx(MlpVesterAddress), owner, vester.Config{
		VestingDuration: cfg.VestingDuration,
		EscrowedToken:   s.EsMUX,
		ClaimableToken:  s.MUX,
		Source:          s.EmissionPoolTracker,
		PairToken:       s.EmissionPoolTracker,
	}); err != nil {
		return nil, errors.Wrap(err, "mlp vester")
	}
	if s.VeVester, err = vester.New(ctx(VeVesterAddress), owner, vester.Config{
		VestingDuration: cfg.VestingDuration,
		EscrowedToken:   s.EsMUX,
		ClaimableToken:  s.MUX,
		Source:          s.EmissionVeTracker,
		LimitVolume:     true,
	}); err != nil {
		return nil, errors.Wrap(err, "ve vester")
	}
	return s, nil
}

// MustNewSuite is NewSuite for a config known to be valid, panic on error.
func MustNewSuite(st *state.State, owner thor.Address, cfg Config) *Suite {
	s, err := NewSuite(st, owner, cfg)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Suite) Owner() thor.Address {
	return s.owner
}

func (s *Suite) Config() Config {
	return s.cfg
}

// Tokens lists the suite's tokens.
func (s *Suite) Tokens() []*token.Token {
	return []*token.Token{s.MUX, s.EsMUX, s.MLP, s.WETH, s.ARB}
}

// Token looks a token up by symbol.
func (s *Suite) Token(symbol string) (*token.Token, bool) {
	for _, tk := range s.Tokens() {
		if tk.Symbol() == symbol {
			return tk, true
		}
	}
	return nil, false
}

// Trackers lists the reward trackers by name.
func (s *Suite) Trackers() map[string]tracker.Tracker {
	return map[string]tracker.Tracker{
		"fee-pool":      s.FeePoolTracker,
		"fee-ve":        s.FeeVeTracker,
		"emission-pool": s.EmissionPoolTracker,
		"emission-ve":   s.EmissionVeTracker,
		"arb":           s.ArbDistributor,
	}
}

// Vesters lists the vesters by name.
func (s *Suite) Vesters() map[string]*vester.Vester {
	return map[string]*vester.Vester{
		"mlp": s.MlpVester,
		"ve":  s.VeVester,
	}
}

// Initialize writes the initial settings: minter roles, deposit tokens, the fee
// window split and the emission start.
func (s *Suite) Initialize() error {
	for _, tk := range s.Tokens() {
		if err := tk.SetMinter(s.owner, s.owner, true); err != nil {
			return errors.Wrapf(err, "minter of %s", tk.Symbol())
		}
	}
	if err := s.EsMUX.SetMinter(s.owner, EmissionDistributorAddress, true); err != nil {
		return errors.Wrap(err, "emission minter")
	}
	if err := s.FeeDistributor.Initialize(s.owner, s.cfg.PoolRewardRate); err != nil {
		return errors.Wrap(err, "fee distributor")
	}
	if err := s.EmissionDistributor.SetLastDistributionTime(s.owner, s.cfg.StartTime); err != nil {
		return errors.Wrap(err, "emission start")
	}
	if err := s.FeePoolTracker.SetDepositToken(s.owner, MLPAddress, true); err != nil {
		return errors.Wrap(err, "fee deposit token")
	}
	if err := s.EmissionPoolTracker.SetDepositToken(s.owner, FeePoolTrackerAddress, true); err != nil {
		return errors.Wrap(err, "emission deposit token")
	}
	handlers := []struct {
		tr      *pooltracker.PoolTracker
		handler thor.Address
	}{
		{s.FeePoolTracker, EmissionPoolTrackerAddress},
		{s.FeePoolTracker, RouterAddress},
		{s.EmissionPoolTracker, RouterAddress},
		{s.EmissionPoolTracker, MlpVesterAddress},
	}
	for _, h := range handlers {
		if err := h.tr.Authority().SetHandler(s.owner, h.handler, true); err != nil {
			return errors.Wrapf(err, "handler of %s", h.tr.Symbol())
		}
	}
	logger.Info("suite initialized", "owner", s.owner, "start", s.cfg.StartTime)
	return nil
}

// StakeMlp stakes amount of account's MLP through the fee tracker into the
// emission tracker, so one deposit earns both WETH and esMUX.
func (s *Suite) StakeMlp(account thor.Address, amount *big.Int, now uint64) error {
	return s.router.Atomic("router.stakeMlp", func() error {
		if err := s.FeePoolTracker.StakeForAccount(RouterAddress, account, account, MLPAddress, amount, now); err != nil {
			return err
		}
		return s.EmissionPoolTracker.StakeForAccount(RouterAddress, account, account, FeePoolTrackerAddress, amount, now)
	})
}

// UnstakeMlp unwinds StakeMlp and returns amount of MLP to account. Shares the
// MLP vester holds as a pair lock have to be withdrawn first.
func (s *Suite) UnstakeMlp(account thor.Address, amount *big.Int, now uint64) error {
	return s.router.Atomic("router.unstakeMlp", func() error {
		if err := s.EmissionPoolTracker.UnstakeForAccount(RouterAddress, account, FeePoolTrackerAddress, amount, account, now); err != nil {
			return err
		}
		return s.FeePoolTracker.UnstakeForAccount(RouterAddress, account, MLPAddress, amount, account, now)
	})
}
