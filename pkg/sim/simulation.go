// Package sim drives pools and agents through discrete simulated time.
package sim

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/uhyunpark/poolsim/params"
	"github.com/uhyunpark/poolsim/pkg/agent"
	"github.com/uhyunpark/poolsim/pkg/core"
	"github.com/uhyunpark/poolsim/pkg/storage"
	"github.com/uhyunpark/poolsim/pkg/util"
)

// State is the simulation lifecycle: a Simulation runs exactly once.
type State int8

const (
	Constructed State = iota
	Running
	Completed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Simulation is the step scheduler. Each tick runs, strictly in order:
// pool order execution, agent actions (in per-tick shuffled agent order),
// then engine metric capture. Everything is single-threaded; the only
// non-determinism is the seeded RNG shared by scheduler, engines and agents,
// so a fixed seed reproduces a run tick for tick.
type Simulation struct {
	steps   int64
	seed    int64
	rng     *rand.Rand
	pools   map[string]*core.Pool
	poolIDs []string // sorted; map iteration order must not leak into a run
	agents  []agent.Agent
	state   State

	experiment string
	log        *zap.SugaredLogger
	store      *storage.ResultStore // optional; nil skips the final dump
}

// Build constructs a Simulation from a validated config. All construction
// errors are fatal: a run either starts clean or not at all.
func Build(cfg params.Config, log *zap.SugaredLogger, store *storage.ResultStore) (*Simulation, error) {
	rng := util.NewRand(cfg.Simulation.Seed)

	pools := make(map[string]*core.Pool, len(cfg.Simulation.Pools))
	poolIDs := make([]string, 0, len(cfg.Simulation.Pools))
	for _, pc := range cfg.Simulation.Pools {
		pool, err := buildPool(pc, rng)
		if err != nil {
			return nil, err
		}
		pool.Engine().Logger = log
		pool.Engine().Verbose = cfg.Meta.Verbose
		pools[pool.ID] = pool
		poolIDs = append(poolIDs, pool.ID)
	}
	sort.Strings(poolIDs)

	agents := make([]agent.Agent, 0, len(cfg.Simulation.Agents))
	for _, ac := range cfg.Simulation.Agents {
		a, err := buildAgent(ac, pools, rng, log)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}

	return &Simulation{
		steps:      cfg.Simulation.Steps,
		seed:       cfg.Simulation.Seed,
		rng:        rng,
		pools:      pools,
		poolIDs:    poolIDs,
		agents:     agents,
		experiment: cfg.Meta.ExperimentName,
		log:        log,
		store:      store,
	}, nil
}

func buildPool(pc params.Pool, rng *rand.Rand) (*core.Pool, error) {
	kind, err := core.ParseAMMKind(pc.AMM.Type)
	if err != nil {
		return nil, err
	}
	tokens := make([]core.TokenBalance, 0, len(pc.Tokens))
	for _, t := range pc.Tokens {
		tokens = append(tokens, core.TokenBalance{Name: t.Name, Quantity: t.StartQuantity})
	}
	return core.NewPool(core.PoolParams{
		ID:     pc.ID,
		Name:   pc.Name,
		Tokens: tokens,
		AMM: core.AMMParams{
			Kind:    kind,
			Fee:     pc.AMM.Fee,
			Weights: pc.AMM.Weights,
		},
		StepsToCheckOrderBook: pc.StepsToCheckOrderbook,
		StepToStartSimulation: pc.StepToStartSimulation,
	}, rng)
}

func buildAgent(ac params.Agent, pools map[string]*core.Pool, rng *rand.Rand, log *zap.SugaredLogger) (agent.Agent, error) {
	pool, ok := pools[ac.PoolID]
	if !ok {
		return nil, fmt.Errorf("agent %s references unknown pool id: %s", ac.ID, ac.PoolID)
	}
	portfolio := make(core.Portfolio, len(ac.Portfolio))
	for _, t := range ac.Portfolio {
		portfolio[t.Name] = t.StartQuantity
	}

	switch ac.Type {
	case "random-trader":
		return agent.NewRandomTrader(agent.RandomTraderParams{
			ID:                 ac.ID,
			Pool:               pool,
			Portfolio:          portfolio,
			StepsBetweenOrders: ac.StepsToMakeNewTransaction,
			OrderProbability:   ac.ProbabilityToMakeOrder,
			MaxOrderVolume:     ac.MaxOrderVolume,
		}, rng, log)
	case "noise-trader":
		return agent.NewNoiseTrader(agent.NoiseTraderParams{
			ID:                 ac.ID,
			Pool:               pool,
			Portfolio:          portfolio,
			StepsBetweenOrders: ac.StepsToMakeNewTransaction,
			OrderProbability:   ac.ProbabilityToMakeOrder,
			MaxOrderVolume:     ac.MaxOrderVolume,
			LimitLifetime:      ac.LimitLifetime,
			LimitSkew:          ac.LimitSkew,
		}, rng, log)
	case "market-maker":
		return agent.NewMarketMaker(agent.MarketMakerParams{
			ID:            ac.ID,
			Pool:          pool,
			Portfolio:     portfolio,
			Token:         ac.Token,
			QuoteToken:    ac.QuoteToken,
			Interval:      ac.Interval,
			Spread:        ac.Spread,
			OrderVolume:   ac.OrderVolume,
			LimitLifetime: ac.LimitLifetime,
		}, rng, log)
	default:
		return nil, fmt.Errorf("agent type %q is not supported", ac.Type)
	}
}

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// Pool returns a pool by id (nil if unknown), for inspection.
func (s *Simulation) Pool(id string) *core.Pool { return s.pools[id] }

// Agents returns the agent collection, for inspection.
func (s *Simulation) Agents() []agent.Agent { return s.agents }

// Run executes all configured ticks and, on completion, persists the raw
// run state. A Simulation runs once; calling Run again is an error.
func (s *Simulation) Run() error {
	if s.state != Constructed {
		return fmt.Errorf("simulation already %s", s.state)
	}
	s.state = Running
	if s.log != nil {
		s.log.Infow("run_started",
			"experiment", s.experiment, "steps", s.steps, "seed", s.seed,
			"pools", len(s.pools), "agents", len(s.agents))
	}

	for tick := int64(0); tick < s.steps; tick++ {
		// (1) Pools settle whatever the throttle allows this tick.
		for _, id := range s.poolIDs {
			s.pools[id].ExecuteOrders(tick)
		}
		// (2) Shuffle agents so no agent systematically lands its orders
		// in the book first within a tick.
		s.rng.Shuffle(len(s.agents), func(i, j int) {
			s.agents[i], s.agents[j] = s.agents[j], s.agents[i]
		})
		// (3) Agent action-then-metrics hooks.
		for _, a := range s.agents {
			a.Act(tick)
		}
		// (4) Engine metric snapshots.
		for _, id := range s.poolIDs {
			s.pools[id].WriteMetrics()
		}
	}

	s.state = Completed
	if s.log != nil {
		s.log.Infow("run_completed", "experiment", s.experiment, "steps", s.steps)
	}
	return s.persist()
}

// persist dumps every pool's metric history and every agent's portfolio
// series, plus the run identity record.
func (s *Simulation) persist() error {
	if s.store == nil {
		return nil
	}
	for _, id := range s.poolIDs {
		if err := s.store.SavePoolMetrics(id, s.pools[id].Metrics); err != nil {
			return err
		}
	}
	for _, a := range s.agents {
		if err := s.store.SaveAgentHistory(a.ID(), a.History()); err != nil {
			return err
		}
	}
	return s.store.SaveRunMeta(storage.RunMeta{
		Experiment: s.experiment,
		Steps:      s.steps,
		Seed:       s.seed,
		FinishedAt: time.Now(),
	})
}
