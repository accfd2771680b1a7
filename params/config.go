// Package params loads and validates simulation experiment configuration.
// Experiments are described in YAML (see simulation.yaml at the repo root);
// a few operational knobs can be overridden from the environment.
package params

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config is the root of an experiment file.
type Config struct {
	Meta       Meta       `yaml:"meta_info"`
	Simulation Simulation `yaml:"simulation"`
}

// Meta is experiment bookkeeping: where results land and under what name.
type Meta struct {
	ExperimentName string `yaml:"experiment_name"`
	ResultsDir     string `yaml:"results_dir"`
	LogFile        string `yaml:"log_file"`
	Verbose        bool   `yaml:"verbose"`
}

// Simulation describes one run: how many ticks, the RNG seed, and the pools
// and agents participating.
type Simulation struct {
	Steps  int64   `yaml:"steps"`
	Seed   int64   `yaml:"seed"`
	Pools  []Pool  `yaml:"pools"`
	Agents []Agent `yaml:"agents"`
}

// Pool configures one liquidity pool and its AMM.
type Pool struct {
	ID                    string  `yaml:"id"`
	Name                  string  `yaml:"name"`
	Tokens                []Token `yaml:"tokens"`
	AMM                   AMM     `yaml:"amm_settings"`
	StepsToCheckOrderbook int64   `yaml:"steps_to_check_orderbook"`
	StepToStartSimulation int64   `yaml:"step_to_start_simulation"`
}

// Token seeds one reserve or one portfolio entry.
type Token struct {
	Name          string  `yaml:"name"`
	StartQuantity float64 `yaml:"start_quantity"`
}

// AMM selects and parameterizes the pricing engine of a pool.
type AMM struct {
	// Type is "uniswap-v2" (two assets, x*y=k) or "weighted" (N assets,
	// geometric-mean invariant).
	Type string  `yaml:"type"`
	Fee  float64 `yaml:"fee"`
	// Weights are optional per-token weights for the weighted variant;
	// omitted means equal weights.
	Weights map[string]float64 `yaml:"weights"`
}

// Agent configures one trading agent. Fields beyond Type/ID/PoolID are
// interpreted per agent type; unused ones are ignored.
type Agent struct {
	// Type is "random-trader", "noise-trader" or "market-maker".
	Type      string  `yaml:"type"`
	ID        string  `yaml:"id"`
	PoolID    string  `yaml:"pool_id"`
	Portfolio []Token `yaml:"portfolio"`

	StepsToMakeNewTransaction int64   `yaml:"steps_to_make_new_transaction"`
	ProbabilityToMakeOrder    float64 `yaml:"probability_to_make_order"`
	MaxOrderVolume            float64 `yaml:"max_order_volume"`
	LimitLifetime             int64   `yaml:"limit_lifetime"`
	LimitSkew                 float64 `yaml:"limit_skew"`

	// Market maker only.
	Token       string  `yaml:"token"`
	QuoteToken  string  `yaml:"quote_token"`
	Interval    int64   `yaml:"interval"`
	Spread      float64 `yaml:"spread"`
	OrderVolume float64 `yaml:"order_volume"`
}

// Default returns a config with operational defaults filled in. The pools
// and agents always come from the experiment file.
func Default() Config {
	return Config{
		Meta: Meta{
			ExperimentName: "experiment",
			ResultsDir:     "data/results",
			LogFile:        "data/simulator.log",
		},
		Simulation: Simulation{
			Steps: 1000,
			Seed:  1,
		},
	}
}

// Load reads an experiment file, applies environment overrides and
// validates the result. Any validation failure is fatal to the run: no
// simulation tick executes on a malformed config.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read settings %s", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "parse settings %s", path)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnv overrides operational knobs from .env / environment variables.
// Priority: ENV > .env file > experiment file > defaults.
func applyEnv(cfg *Config) {
	_ = godotenv.Load() // optional .env in the working directory

	if v := os.Getenv("SIM_STEPS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Steps = n
		}
	}
	if v := os.Getenv("SIM_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Simulation.Seed = n
		}
	}
	if v := os.Getenv("RESULTS_DIR"); v != "" {
		cfg.Meta.ResultsDir = v
	}
	if v := os.Getenv("LOG_FILE"); v != "" {
		cfg.Meta.LogFile = v
	}
	if v := os.Getenv("VERBOSE"); v != "" {
		cfg.Meta.Verbose = v == "true"
	}
}

// Validate checks the whole experiment eagerly. Deep engine invariants
// (weight sums, token counts per AMM variant) are re-checked by pool
// construction; this pass catches everything expressible on the raw config.
func (c Config) Validate() error {
	if c.Simulation.Steps < 1 {
		return errors.Errorf("simulation steps has to be >= 1, got %d", c.Simulation.Steps)
	}
	if len(c.Simulation.Pools) == 0 {
		return errors.New("simulation requires at least one pool")
	}

	poolIDs := make(map[string]bool, len(c.Simulation.Pools))
	for _, pool := range c.Simulation.Pools {
		if err := pool.validate(); err != nil {
			return err
		}
		if poolIDs[pool.ID] {
			return errors.Errorf("found identical pool id: %s", pool.ID)
		}
		poolIDs[pool.ID] = true
	}

	agentIDs := make(map[string]bool, len(c.Simulation.Agents))
	for _, agent := range c.Simulation.Agents {
		if agent.ID == "" {
			return errors.New("agent is expected to have an 'id' field")
		}
		if agentIDs[agent.ID] {
			return errors.Errorf("found identical agent id: %s", agent.ID)
		}
		agentIDs[agent.ID] = true
		if !poolIDs[agent.PoolID] {
			return errors.Errorf("agent %s references unknown pool id: %s", agent.ID, agent.PoolID)
		}
		switch agent.Type {
		case "random-trader", "noise-trader", "market-maker":
		default:
			return errors.Errorf("agent type %q is not supported", agent.Type)
		}
	}
	return nil
}

func (p Pool) validate() error {
	if p.ID == "" {
		return errors.New("pool is expected to have an 'id' field")
	}
	if p.AMM.Type == "" {
		return errors.Errorf("pool %s is expected to have an 'amm_settings' field with a type", p.ID)
	}
	switch p.AMM.Type {
	case "uniswap-v2", "constant-product":
		if len(p.Tokens) != 2 {
			return errors.Errorf("pool %s: amm type %q requires exactly 2 tokens, got %d", p.ID, p.AMM.Type, len(p.Tokens))
		}
	case "weighted", "weighted-geometric":
	default:
		return errors.Errorf("amm type %q is not supported", p.AMM.Type)
	}
	if p.AMM.Fee < 0 || p.AMM.Fee >= 1 {
		return errors.Errorf("pool %s: fee has to be in [0, 1), got %v", p.ID, p.AMM.Fee)
	}
	if len(p.Tokens) < 2 {
		return errors.Errorf("pool %s is expected to have 2 or more tokens, got %d", p.ID, len(p.Tokens))
	}
	names := make(map[string]bool, len(p.Tokens))
	for _, token := range p.Tokens {
		if token.Name == "" {
			return errors.Errorf("pool %s has a token without a name", p.ID)
		}
		if names[token.Name] {
			return errors.Errorf("found identical token name in pool %s", p.ID)
		}
		names[token.Name] = true
		if token.StartQuantity <= 0 {
			return errors.Errorf("pool %s: start token quantity has to be more than zero, got %v", p.ID, token.StartQuantity)
		}
	}
	if p.StepsToCheckOrderbook < 1 {
		return errors.Errorf("pool %s: steps_to_check_orderbook has to be >= 1, got %d", p.ID, p.StepsToCheckOrderbook)
	}
	if p.StepToStartSimulation < 0 {
		return errors.Errorf("pool %s: step_to_start_simulation has to be >= 0, got %d", p.ID, p.StepToStartSimulation)
	}
	return nil
}
