// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"math/big"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vechain/tokenomics/builtin"
	"github.com/vechain/tokenomics/builtin/reverts"
	"github.com/vechain/tokenomics/builtin/token"
	"github.com/vechain/tokenomics/builtin/tracker/pooltracker"
	"github.com/vechain/tokenomics/builtin/vester"
	"github.com/vechain/tokenomics/kv"
	"github.com/vechain/tokenomics/logdb"
	"github.com/vechain/tokenomics/state"
	"github.com/vechain/tokenomics/thor"
)

// Scenario is a scripted sequence of calls against a suite.
type Scenario struct {
	Owner  string         `yaml:"owner"`
	Config ScenarioConfig `yaml:"config"`
	Steps  []Step         `yaml:"steps"`
}

type ScenarioConfig struct {
	StartTime uint64 `yaml:"startTime"`
	// PoolRewardRate is a fraction such as "0.5".
	PoolRewardRate  string `yaml:"poolRewardRate"`
	RewardWindow    uint64 `yaml:"rewardWindow"`
	VestingDuration uint64 `yaml:"vestingDuration"`
	// LiquidityHolder earns ARB on the MLP it holds.
	LiquidityHolder string `yaml:"liquidityHolder"`
}

// Step is one call. ExpectRevert names the revert kind the call must fail with.
type Step struct {
	Time         uint64            `yaml:"time"`
	Op           string            `yaml:"op"`
	Args         map[string]string `yaml:"args"`
	ExpectRevert string            `yaml:"expectRevert"`
}

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read scenario")
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, errors.Wrap(err, "decode scenario")
	}
	var last uint64
	for i, s := range sc.Steps {
		if _, ok := ops[s.Op]; !ok {
			return nil, errors.Errorf("step %d: unknown op %q", i, s.Op)
		}
		if s.Time < last {
			return nil, errors.Errorf("step %d: time %d goes backwards", i, s.Time)
		}
		last = s.Time
	}
	return &sc, nil
}

func (sc *Scenario) suiteConfig() (builtin.Config, error) {
	cfg := builtin.DefaultConfig()
	cfg.StartTime = sc.Config.StartTime
	if sc.Config.PoolRewardRate != "" {
		rate, err := parseFixed(sc.Config.PoolRewardRate)
		if err != nil {
			return cfg, errors.Wrap(err, "pool reward rate")
		}
		cfg.PoolRewardRate = rate
	}
	if sc.Config.RewardWindow != 0 {
		cfg.RewardWindow = sc.Config.RewardWindow
	}
	if sc.Config.VestingDuration != 0 {
		cfg.VestingDuration = sc.Config.VestingDuration
	}
	if sc.Config.LiquidityHolder != "" {
		holder, _, err := resolveAccount(sc.Config.LiquidityHolder)
		if err != nil {
			return cfg, errors.Wrap(err, "liquidity holder")
		}
		cfg.LiquidityHolder = holder
	}
	return cfg, nil
}

// parseFixed reads a decimal number into an 18 decimals fixed point integer.
func parseFixed(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	d = d.Shift(18)
	if !d.IsInteger() {
		return nil, errors.Errorf("%v has more than 18 decimals", s)
	}
	if d.Sign() < 0 {
		return nil, errors.Errorf("%v is negative", s)
	}
	return d.BigInt(), nil
}

// componentNames maps the names a scenario may use for suite components.
var componentNames = map[string]thor.Address{
	"Params":              builtin.ParamsAddress,
	"MUX":                 builtin.MUXAddress,
	"esMUX":               builtin.EsMUXAddress,
	"veMUX":               builtin.VeMUXAddress,
	"MLP":                 builtin.MLPAddress,
	"WETH":                builtin.WETHAddress,
	"ARB":                 builtin.ARBAddress,
	"FeeDistributor":      builtin.FeeDistributorAddress,
	"EmissionDistributor": builtin.EmissionDistributorAddress,
	"ArbDistributor":      builtin.ArbDistributorAddress,
	"Router":              builtin.RouterAddress,
	"fee-pool":            builtin.FeePoolTrackerAddress,
	"fee-ve":              builtin.FeeVeTrackerAddress,
	"emission-pool":       builtin.EmissionPoolTrackerAddress,
	"emission-ve":         builtin.EmissionVeTrackerAddress,
	"arb":                 builtin.ArbDistributorAddress,
	"mlp":                 builtin.MlpVesterAddress,
	"ve":                  builtin.VeVesterAddress,
}

// resolveAccount accepts a hex address, a component name or any other label,
// which is hashed into an address the same way components are.
func resolveAccount(name string) (addr thor.Address, isComponent bool, err error) {
	if strings.HasPrefix(name, "0x") {
		a, err := thor.ParseAddress(name)
		if err != nil {
			return thor.Address{}, false, err
		}
		return *a, false, nil
	}
	if a, ok := componentNames[name]; ok {
		return a, true, nil
	}
	if name == "" {
		return thor.Address{}, false, errors.New("empty account")
	}
	return thor.BytesToAddress([]byte(name)), false, nil
}

// call carries one step's arguments. The first failed lookup sticks.
type call struct {
	suite *builtin.Suite
	step  *Step
	seen  map[string]thor.Address
	err   error
}

func (c *call) fail(err error) {
	if c.err == nil {
		c.err = err
	}
}

func (c *call) raw(key, def string) string {
	if v, ok := c.step.Args[key]; ok {
		return v
	}
	if def == "" {
		c.fail(errors.Errorf("missing arg %q", key))
	}
	return def
}

func (c *call) account(key, def string) thor.Address {
	name := c.raw(key, def)
	if name == "" {
		return thor.Address{}
	}
	if name == "owner" {
		return c.suite.Owner()
	}
	addr, isComponent, err := resolveAccount(name)
	if err != nil {
		c.fail(errors.Wrapf(err, "arg %q", key))
		return thor.Address{}
	}
	if !isComponent && c.seen != nil {
		c.seen[name] = addr
	}
	return addr
}

func (c *call) amount(key string) *big.Int {
	s := c.raw(key, "")
	if s == "" {
		return new(big.Int)
	}
	v, err := parseFixed(s)
	if err != nil {
		c.fail(errors.Wrapf(err, "arg %q", key))
		return new(big.Int)
	}
	return v
}

// time accepts an absolute time or "+n" relative to the step time.
func (c *call) time(key string) uint64 {
	s := c.raw(key, "")
	if s == "" {
		return 0
	}
	base := uint64(0)
	if strings.HasPrefix(s, "+") {
		base, s = c.step.Time, s[1:]
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		c.fail(errors.Wrapf(err, "arg %q", key))
	}
	return base + v
}

func (c *call) token(key, def string) *token.Token {
	symbol := c.raw(key, def)
	tk, ok := c.suite.Token(symbol)
	if !ok {
		c.fail(errors.Errorf("unknown token %q", symbol))
	}
	return tk
}

func (c *call) poolTracker(key string) *pooltracker.PoolTracker {
	switch name := c.raw(key, "fee-pool"); name {
	case "fee-pool":
		return c.suite.FeePoolTracker
	case "emission-pool":
		return c.suite.EmissionPoolTracker
	default:
		c.fail(errors.Errorf("unknown pool tracker %q", name))
		return nil
	}
}

func (c *call) vester(key string) *vester.Vester {
	name := c.raw(key, "mlp")
	v, ok := c.suite.Vesters()[name]
	if !ok {
		c.fail(errors.Errorf("unknown vester %q", name))
	}
	return v
}

type opFunc func(c *call, now uint64) error

func paramKey(name string) (thor.Bytes32, bool) {
	switch name {
	case "poolOwnedRate":
		return thor.KeyPoolOwnedRate, true
	case "votingEscrowedRate":
		return thor.KeyVotingEscrowedRate, true
	}
	return thor.Bytes32{}, false
}

var ops map[string]opFunc

func init() {
	ops = map[string]opFunc{
		"mint": func(c *call, now uint64) error {
			tk, caller, to, amount := c.token("token", ""), c.account("caller", "owner"), c.account("to", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return tk.Mint(caller, to, amount)
		},
		"approve": func(c *call, now uint64) error {
			tk, owner, spender, amount := c.token("token", ""), c.account("account", ""), c.account("spender", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return tk.Approve(owner, spender, amount)
		},
		"transfer": func(c *call, now uint64) error {
			tk, from, to, amount := c.token("token", ""), c.account("account", ""), c.account("to", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return tk.Transfer(from, to, amount)
		},
		"setParam": func(c *call, now uint64) error {
			name, caller, value := c.raw("key", ""), c.account("caller", "owner"), c.amount("value")
			key, ok := paramKey(name)
			if !ok {
				c.fail(errors.Errorf("unknown param %q", name))
			}
			if c.err != nil {
				return c.err
			}
			return c.suite.Params.Set(caller, key, value)
		},
		"setRewardRate": func(c *call, now uint64) error {
			name, caller, rate := c.raw("distributor", "EmissionDistributor"), c.account("caller", "owner"), c.amount("rate")
			if c.err != nil {
				return c.err
			}
			switch name {
			case "EmissionDistributor":
				return c.suite.EmissionDistributor.SetRewardRate(caller, rate, now)
			case "ArbDistributor":
				return c.suite.ArbDistributor.SetRewardRate(caller, rate, now)
			}
			return errors.Errorf("unknown fixed rate distributor %q", name)
		},
		"notifyReward": func(c *call, now uint64) error {
			caller, amount := c.account("caller", "owner"), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return c.suite.FeeDistributor.NotifyReward(caller, amount, now)
		},
		"stake": func(c *call, now uint64) error {
			tr, account, tok, amount := c.poolTracker("tracker"), c.account("account", ""), c.account("token", "MLP"), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return tr.Stake(account, tok, amount, now)
		},
		"unstake": func(c *call, now uint64) error {
			tr, account, tok, amount := c.poolTracker("tracker"), c.account("account", ""), c.account("token", "MLP"), c.amount("amount")
			receiver := c.account("receiver", c.raw("account", ""))
			if c.err != nil {
				return c.err
			}
			return tr.Unstake(account, tok, amount, receiver, now)
		},
		"stakeMlp": func(c *call, now uint64) error {
			account, amount := c.account("account", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return c.suite.StakeMlp(account, amount, now)
		},
		"unstakeMlp": func(c *call, now uint64) error {
			account, amount := c.account("account", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return c.suite.UnstakeMlp(account, amount, now)
		},
		"claim": func(c *call, now uint64) error {
			name, account := c.raw("tracker", ""), c.account("account", "")
			receiver := c.account("receiver", c.raw("account", ""))
			tr, ok := c.suite.Trackers()[name]
			if !ok {
				c.fail(errors.Errorf("unknown tracker %q", name))
			}
			if c.err != nil {
				return c.err
			}
			amount, err := tr.Claim(account, receiver, now)
			if err == nil {
				logger.Debug("claimed", "tracker", name, "account", account, "amount", amount)
			}
			return err
		},
		"lock": func(c *call, now uint64) error {
			account, tk, amount, unlock := c.account("account", ""), c.token("token", "MUX"), c.amount("amount"), c.time("unlock")
			if c.err != nil {
				return c.err
			}
			return c.suite.VotingEscrow.Deposit(account, tk.Address(), amount, unlock, now)
		},
		"increaseUnlock": func(c *call, now uint64) error {
			account, unlock := c.account("account", ""), c.time("unlock")
			if c.err != nil {
				return c.err
			}
			return c.suite.VotingEscrow.IncreaseUnlockTime(account, unlock, now)
		},
		"withdrawLock": func(c *call, now uint64) error {
			account := c.account("account", "")
			if c.err != nil {
				return c.err
			}
			return c.suite.VotingEscrow.Withdraw(account, now)
		},
		"vest": func(c *call, now uint64) error {
			v, account, amount := c.vester("vester"), c.account("account", ""), c.amount("amount")
			if c.err != nil {
				return c.err
			}
			return v.Deposit(account, amount, now)
		},
		"claimVested": func(c *call, now uint64) error {
			v, account := c.vester("vester"), c.account("account", "")
			receiver := c.account("receiver", c.raw("account", ""))
			if c.err != nil {
				return c.err
			}
			amount, err := v.Claim(account, receiver, now)
			if err == nil {
				logger.Debug("vested claimed", "account", account, "amount", amount)
			}
			return err
		},
		"withdrawVest": func(c *call, now uint64) error {
			v, account := c.vester("vester"), c.account("account", "")
			if c.err != nil {
				return c.err
			}
			return v.Withdraw(account, now)
		},
		"checkpoint": func(c *call, now uint64) error {
			if err := c.suite.VotingEscrow.Checkpoint(now); err != nil {
				return err
			}
			trackers := c.suite.Trackers()
			names := make([]string, 0, len(trackers))
			for name := range trackers {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				if err := trackers[name].UpdateRewards(now); err != nil {
					return errors.Wrap(err, name)
				}
			}
			return nil
		},
	}
}

// replayer applies scenarios to a kv store, one committed step at a time.
type replayer struct {
	db    kv.Store
	logDB *logdb.LogDB
	cache *state.Cache

	owner thor.Address
	cfg   builtin.Config
	// accounts seen in step args, by name
	accounts map[string]thor.Address
	next     uint32
}

// newReplayer binds the scenario to the store. A store without a suite gets one
// created and initialized from the scenario header.
func newReplayer(db kv.Store, logDB *logdb.LogDB, cache *state.Cache, sc *Scenario) (*replayer, error) {
	r := &replayer{db: db, logDB: logDB, cache: cache, accounts: make(map[string]thor.Address)}

	owner, _, err := resolveAccount(sc.Owner)
	if err != nil {
		return nil, errors.Wrap(err, "scenario owner")
	}

	meta, err := loadSuiteMeta(db)
	if err != nil {
		return nil, err
	}
	if meta == nil {
		cfg, err := sc.suiteConfig()
		if err != nil {
			return nil, err
		}
		meta = newSuiteMeta(owner, cfg)
		if err := saveSuiteMeta(db, meta); err != nil {
			return nil, errors.Wrap(err, "save suite meta")
		}
	} else if meta.Owner != owner {
		return nil, errors.Errorf("data dir belongs to owner %v, scenario has %v", meta.Owner, owner)
	}
	if r.cfg, err = meta.config(); err != nil {
		return nil, err
	}
	r.owner = meta.Owner
	if _, err := builtin.NewSuite(state.New(db, cache), r.owner, r.cfg); err != nil {
		return nil, err
	}

	newest, ok, err := logDB.NewestStep()
	if err != nil {
		return nil, err
	}
	if ok {
		r.next = newest + 1
	}

	initialized, err := r.suite(state.New(db, cache)).EsMUX.IsMinter(builtin.EmissionDistributorAddress)
	if err != nil {
		return nil, err
	}
	if !initialized {
		if err := r.commit(r.cfg.StartTime, func(s *builtin.Suite) error { return s.Initialize() }); err != nil {
			return nil, errors.Wrap(err, "initialize suite")
		}
	}
	return r, nil
}

// suite binds the replayer's wiring to st. The config was checked by newReplayer.
func (r *replayer) suite(st *state.State) *builtin.Suite {
	return builtin.MustNewSuite(st, r.owner, r.cfg)
}

// commit runs fn on a fresh state and persists its changes and events as the next step.
func (r *replayer) commit(now uint64, fn func(s *builtin.Suite) error) error {
	st := state.New(r.db, r.cache)
	if err := fn(r.suite(st)); err != nil {
		return err
	}
	stage := st.Stage()
	if err := stage.Commit(); err != nil {
		return err
	}

	w := r.logDB.NewWriter()
	if err := w.Write(r.next, now, stage.Logs()); err != nil {
		w.Rollback()
		return err
	}
	if err := w.Commit(); err != nil {
		return err
	}
	r.next++
	return nil
}

// apply runs one step. An expected revert passes and commits nothing but an empty step.
func (r *replayer) apply(i int, s *Step) error {
	err := r.commit(s.Time, func(suite *builtin.Suite) error {
		c := &call{suite: suite, step: s, seen: r.accounts}
		err := ops[s.Op](c, s.Time)
		if s.ExpectRevert == "" {
			return err
		}
		if err == nil {
			return errors.Errorf("expected %s revert", s.ExpectRevert)
		}
		if !reverts.IsKind(err, reverts.Kind(s.ExpectRevert)) {
			return errors.Wrapf(err, "expected %s revert", s.ExpectRevert)
		}
		logger.Debug("reverted as expected", "step", i, "op", s.Op, "err", err)
		return nil
	})
	return errors.Wrapf(err, "step %d (%s at %d)", i, s.Op, s.Time)
}

// accountView is the dumped state of a scenario account.
type accountView struct {
	Account   thor.Address
	Balances  map[string]*big.Int
	Locked    *big.Int
	LockEnd   uint64
	VeBalance *big.Int
	// Shares are the fMLP and sMLP held, by pool tracker name.
	Shares    map[string]*big.Int
	Claimable map[string]*big.Int
	Vesting   map[string]*vester.Position
}

func (r *replayer) views(now uint64) (map[string]*accountView, error) {
	s := r.suite(state.New(r.db, r.cache))
	views := make(map[string]*accountView, len(r.accounts))
	for name, addr := range r.accounts {
		v := &accountView{
			Account:   addr,
			Balances:  make(map[string]*big.Int),
			Shares:    make(map[string]*big.Int),
			Claimable: make(map[string]*big.Int),
			Vesting:   make(map[string]*vester.Position),
		}
		var err error
		for _, tk := range s.Tokens() {
			if v.Balances[tk.Symbol()], err = tk.BalanceOf(addr); err != nil {
				return nil, err
			}
		}
		if v.Locked, err = s.VotingEscrow.LockedAmount(addr); err != nil {
			return nil, err
		}
		if v.LockEnd, err = s.VotingEscrow.LockedEnd(addr); err != nil {
			return nil, err
		}
		if v.VeBalance, err = s.VotingEscrow.BalanceOf(addr, now); err != nil {
			return nil, err
		}
		for tname, tr := range map[string]*pooltracker.PoolTracker{"fee-pool": s.FeePoolTracker, "emission-pool": s.EmissionPoolTracker} {
			if v.Shares[tname], err = tr.BalanceOf(addr); err != nil {
				return nil, err
			}
		}
		for tname, tr := range s.Trackers() {
			if v.Claimable[tname], err = tr.Claimable(addr, now); err != nil {
				return nil, err
			}
		}
		for vname, vs := range s.Vesters() {
			if v.Vesting[vname], err = vs.Position(addr); err != nil {
				return nil, err
			}
		}
		views[name] = v
	}
	return views, nil
}
