// Command workbench generates an experiment design over a parameter
// space, runs it against a model, and mines the results for the input
// regions that produce interesting outcomes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/scenariolab/workbench/internal/config"
	"github.com/scenariolab/workbench/internal/design"
	"github.com/scenariolab/workbench/internal/discovery"
	"github.com/scenariolab/workbench/internal/ensemble"
	"github.com/scenariolab/workbench/internal/monitor"
	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/report"
	"github.com/scenariolab/workbench/internal/resultdb"
	"github.com/scenariolab/workbench/internal/results"
	"github.com/scenariolab/workbench/internal/sampling"
	"github.com/scenariolab/workbench/internal/version"
)

var (
	paramsFile  = flag.String("params", "", "CSV file defining the uncertainty parameters")
	leversFile  = flag.String("levers", "", "CSV file defining the policy levers")
	configFile  = flag.String("config", "", "Study configuration JSON file")
	modelURL    = flag.String("model-url", "", "HTTP endpoint of the model to run experiments against")
	demo        = flag.Bool("demo", false, "Run the built-in demo study instead of an external model")
	outFile     = flag.String("out", "", "Write the results table as CSV to this path")
	dbFile      = flag.String("db", "", "Archive the run in this SQLite database")
	listen      = flag.String("serve", "", "Serve run progress and the box report on this address")
	plotFile    = flag.String("plot", "", "Save the top box's peeling trajectory to this image path")
	reportFile  = flag.String("report", "", "Write the box report HTML to this path")
	outcomeName = flag.String("outcome", "value", "Outcome variable the classifier reads")
	threshold   = flag.Float64("above", 0, "Classify outcomes above this value as interesting")
	logEvery    = flag.Int("log-interval", 25, "Log progress every N experiments")
	showVersion = flag.Bool("version", false, "Print version information and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("workbench %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("workbench: %v", err)
	}
}

func run(ctx context.Context) error {
	cfg := config.EmptyStudyConfig()
	if *configFile != "" {
		loaded, err := config.LoadStudyConfig(*configFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	space, adapter, classify, err := assembleStudy(cfg)
	if err != nil {
		return err
	}

	scenarios, err := sampling.Sample(space.Uncertainties(), cfg.GetScenarios(), cfg.GetSeed(), cfg.GetSampler())
	if err != nil {
		return err
	}
	policies, err := assemblePolicies(space, cfg)
	if err != nil {
		return err
	}

	experiments, err := design.Generate(scenarios, policies, cfg.GetReplications(), design.FullFactorial)
	if err != nil {
		return err
	}
	log.Printf("[Workbench] design has %d experiments (%d scenarios x %d policies x %d replications)",
		len(experiments), len(scenarios), len(policies), cfg.GetReplications())

	var db *resultdb.RunDB
	var runRecord *resultdb.StudyRun
	if *dbFile != "" {
		if db, err = resultdb.Open(*dbFile); err != nil {
			return err
		}
		defer db.Close()
		runRecord = resultdb.NewStudyRun(cfg.GetSeed(), cfg.GetSampler().String(),
			len(scenarios), len(policies), cfg.GetReplications())
		if err := db.InsertRun(runRecord); err != nil {
			return err
		}
		log.Printf("[Workbench] archiving as run %s", runRecord.ID)
	}

	progress := ensemble.LogProgress(*logEvery)
	var web *monitor.WebServer
	if *listen != "" {
		webCfg := monitor.WebServerConfig{Address: *listen}
		if runRecord != nil {
			webCfg.RunID = runRecord.ID
		}
		web = monitor.NewWebServer(webCfg)
		go web.Start(ctx)
		progress = chainProgress(progress, web.TrackProgress())
	}

	store := results.NewStore()
	runner := &ensemble.Runner{
		Adapter:  adapter,
		Config:   cfg.RunnerConfig(),
		Progress: progress,
	}
	stats, runErr := runner.Run(ctx, experiments, store)
	log.Printf("[Workbench] run finished: %d completed, %d failed, %d cancelled",
		stats.Completed, stats.Failed, stats.Cancelled)

	// Partial results are still worth archiving and analysing.
	if saveErr := persistResults(db, runRecord, store); saveErr != nil {
		return saveErr
	}
	if runErr != nil {
		if db != nil {
			if err := db.FailRun(runRecord.ID, runErr.Error()); err != nil {
				log.Printf("[Workbench] failed to mark run failed: %v", err)
			}
		}
		return runErr
	}

	boxes, err := discoverBoxes(store, classify, cfg)
	if err != nil {
		return err
	}
	fmt.Print(report.Summary(boxes))

	if web != nil {
		web.SetBoxes(boxes)
	}
	if db != nil {
		if len(boxes) > 0 {
			if err := db.SaveBoxes(runRecord.ID, boxes); err != nil {
				return err
			}
		}
		if err := db.CompleteRun(runRecord.ID); err != nil {
			return err
		}
	}
	if *plotFile != "" && len(boxes) > 0 {
		if err := report.SavePeelTrajectory(*plotFile, boxes[0].Trajectory); err != nil {
			return err
		}
		log.Printf("[Workbench] wrote peeling trajectory to %s", *plotFile)
	}
	if *reportFile != "" {
		f, err := os.Create(*reportFile)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer f.Close()
		if err := report.WriteBoxReport(f, boxes); err != nil {
			return err
		}
		log.Printf("[Workbench] wrote box report to %s", *reportFile)
	}

	if *listen != "" {
		log.Printf("[Workbench] serving report on %s until interrupted", *listen)
		<-ctx.Done()
	}
	return nil
}

// assembleStudy resolves the parameter space, the model adapter, and the
// outcome classifier from the flags.
func assembleStudy(cfg *config.StudyConfig) (*params.Space, ensemble.ModelAdapter, func(results.Outcome) bool, error) {
	if *demo {
		space, err := demoSpace()
		if err != nil {
			return nil, nil, nil, err
		}
		return space, demoAdapter(), func(o results.Outcome) bool {
			return o["value"].Scalarize() > 15
		}, nil
	}

	if *paramsFile == "" {
		return nil, nil, nil, errors.New("either -params or -demo is required")
	}
	if *modelURL == "" {
		return nil, nil, nil, errors.New("-model-url is required unless -demo is set")
	}

	uncertainties, err := readParameterFile(*paramsFile)
	if err != nil {
		return nil, nil, nil, err
	}
	var levers []params.Parameter
	if *leversFile != "" {
		if levers, err = readParameterFile(*leversFile); err != nil {
			return nil, nil, nil, err
		}
	}
	space, err := params.NewSpace(uncertainties, levers)
	if err != nil {
		return nil, nil, nil, err
	}

	name, above := *outcomeName, *threshold
	classify := func(o results.Outcome) bool {
		m, ok := o[name]
		if !ok {
			return false
		}
		return m.Scalarize() > above
	}
	return space, ensemble.NewHTTPAdapter(*modelURL, nil), classify, nil
}

func readParameterFile(path string) ([]params.Parameter, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parameter file: %w", err)
	}
	defer f.Close()
	parameters, err := params.ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return parameters, nil
}

// assemblePolicies samples lever assignments, or falls back to the
// baseline do-nothing policy when the space has no levers.
func assemblePolicies(space *params.Space, cfg *config.StudyConfig) ([]sampling.Assignment, error) {
	levers := space.Levers()
	if len(levers) == 0 {
		return []sampling.Assignment{design.Baseline()}, nil
	}

	if *demo {
		// the demo enumerates its single categorical lever
		return []sampling.Assignment{
			{Name: "a", Values: map[string]params.Value{"l": params.CategoryValue("a")}},
			{Name: "b", Values: map[string]params.Value{"l": params.CategoryValue("b")}},
		}, nil
	}

	n := cfg.GetPolicies()
	if n < 1 {
		n = 1
	}
	// offset the seed so policy draws do not mirror the scenario draws
	policies, err := sampling.Sample(levers, n, cfg.GetSeed()+1, cfg.GetSampler())
	if err != nil {
		return nil, err
	}
	for i := range policies {
		policies[i].Name = fmt.Sprintf("policy-%d", i)
	}
	return policies, nil
}

func discoverBoxes(store *results.Store, classify func(results.Outcome) bool, cfg *config.StudyConfig) ([]discovery.Box, error) {
	boxes, err := discovery.Discover(store, classify, cfg.DiscoveryConfig())
	var empty *discovery.EmptyClassificationError
	if errors.As(err, &empty) {
		log.Printf("[Workbench] discovery skipped: %v", empty)
		return nil, nil
	}
	return boxes, err
}

func persistResults(db *resultdb.RunDB, run *resultdb.StudyRun, store *results.Store) error {
	if *outFile != "" {
		f, err := os.Create(*outFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		if err := store.WriteCSV(f); err != nil {
			return err
		}
		log.Printf("[Workbench] wrote results CSV to %s", *outFile)
	}
	if db != nil {
		if err := db.SaveResults(run.ID, store); err != nil {
			return err
		}
	}
	return nil
}

func chainProgress(sinks ...func(ensemble.ProgressEvent)) func(ensemble.ProgressEvent) {
	return func(ev ensemble.ProgressEvent) {
		for _, sink := range sinks {
			if sink != nil {
				sink(ev)
			}
		}
	}
}

// demoSpace is the space of the built-in study: one real uncertainty and
// one categorical lever.
func demoSpace() (*params.Space, error) {
	u, err := params.NewReal("u", 0, 10)
	if err != nil {
		return nil, err
	}
	l, err := params.NewCategorical("l", []string{"a", "b"})
	if err != nil {
		return nil, err
	}
	return params.NewSpace([]params.Parameter{u}, []params.Parameter{l})
}

// demoAdapter is a closed-form model: the outcome equals the uncertainty,
// doubled under lever b.
func demoAdapter() ensemble.ModelAdapter {
	return ensemble.ModelFunc(func(_ context.Context, scenario, policy sampling.Assignment) (results.Outcome, error) {
		u, ok := scenario.Get("u")
		if !ok {
			return nil, errors.New("scenario missing u")
		}
		v := u.Float()
		if l, ok := policy.Get("l"); ok && l.Category() == "b" {
			v *= 2
		}
		return results.Outcome{"value": {Scalar: v}}, nil
	})
}
