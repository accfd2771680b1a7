package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/uhyunpark/poolsim/params"
	"github.com/uhyunpark/poolsim/pkg/sim"
	"github.com/uhyunpark/poolsim/pkg/storage"
	"github.com/uhyunpark/poolsim/pkg/util"
)

func main() {
	configPath := flag.String("config", "simulation.yaml", "experiment configuration file")
	flag.Parse()
	if env := os.Getenv("SIM_CONFIG"); env != "" {
		*configPath = env
	}

	// A malformed experiment stops here, before any tick runs.
	cfg, err := params.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := util.NewLoggerWithFile(cfg.Meta.LogFile, cfg.Meta.Verbose)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("simulator_starting", "config", *configPath, "experiment", cfg.Meta.ExperimentName)

	store, err := storage.Open(filepath.Join(cfg.Meta.ResultsDir, cfg.Meta.ExperimentName))
	if err != nil {
		sugar.Fatalw("result_store_open_failed", "err", err)
	}
	defer store.Close()

	simulation, err := sim.Build(cfg, sugar, store)
	if err != nil {
		sugar.Fatalw("build_failed", "err", err)
	}

	if err := simulation.Run(); err != nil {
		sugar.Fatalw("run_failed", "err", err)
	}

	for _, pc := range cfg.Simulation.Pools {
		pool := simulation.Pool(pc.ID)
		sugar.Infow("pool_final_state",
			"pool", pool.ID,
			"reserves", pool.Reserves,
			"k", pool.Engine().K(),
			"orders_added", pool.OrdersAdded(),
			"resting_orders", pool.BookSize())
	}
	for _, a := range simulation.Agents() {
		sugar.Infow("agent_final_state", "agent", a.ID(), "portfolio", a.Portfolio())
	}
}
