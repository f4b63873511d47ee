package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ruvnet/crdtcheck/applications/counter"
	"github.com/ruvnet/crdtcheck/applications/listmoves"
	"github.com/ruvnet/crdtcheck/applications/todo"
	"github.com/ruvnet/crdtcheck/internal/actor"
	"github.com/ruvnet/crdtcheck/internal/app"
	"github.com/ruvnet/crdtcheck/internal/config"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/automergebackend"
	"github.com/ruvnet/crdtcheck/internal/crdtdoc/fake"
	"github.com/ruvnet/crdtcheck/internal/dedup"
	"github.com/ruvnet/crdtcheck/internal/discoverypub"
	"github.com/ruvnet/crdtcheck/internal/document"
	"github.com/ruvnet/crdtcheck/internal/explorer"
	"github.com/ruvnet/crdtcheck/internal/history"
	"github.com/ruvnet/crdtcheck/internal/model"
	"github.com/ruvnet/crdtcheck/internal/properties"
	"github.com/ruvnet/crdtcheck/internal/runstore"
	"github.com/ruvnet/crdtcheck/internal/telemetry"
)

var (
	flagApp      string
	flagVariant  string
	flagServers  int
	flagSync     string
	flagMaxDepth int
	flagRestart  bool
	flagMaxRate  float64
	flagBackend  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Explore one reference application's state space",
	Long: "Explores the reachable state space of one of the bundled reference\n" +
		"applications (counter, todo, listmoves) and reports any discovered\n" +
		"property violations.",
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&flagApp, "app", "counter", "application to check: counter, todo, listmoves")
	runCmd.Flags().StringVar(&flagVariant, "variant", "crdt", "application variant (counter: naive|crdt; todo: integer|seeded)")
	runCmd.Flags().IntVar(&flagServers, "servers", 2, "number of server replicas")
	runCmd.Flags().StringVar(&flagSync, "sync-method", "messages", "sync protocol: changes|messages|snapshot")
	runCmd.Flags().IntVar(&flagMaxDepth, "max-depth", 20, "maximum exploration depth (0 = unbounded)")
	runCmd.Flags().BoolVar(&flagRestart, "restart", false, "enable simulated server restarts")
	runCmd.Flags().Float64Var(&flagMaxRate, "max-rate", 0, "cap new-state dispatch to this many states/sec (0 = unlimited); useful when run-store/discovery sinks are live")
	runCmd.Flags().StringVar(&flagBackend, "crdt-backend", "real", "CRDT document backend: real (automerge-go) or fake (in-memory test double)")
}

func buildBackend(name string) (crdtdoc.Backend, error) {
	switch name {
	case "real":
		return automergebackend.New(), nil
	case "fake":
		return fake.New(), nil
	default:
		return nil, fmt.Errorf("unknown crdt-backend %q (want real or fake)", name)
	}
}

func parseSyncMethod(s string) (actor.SyncMethod, error) {
	switch s {
	case "changes":
		return actor.SyncChanges, nil
	case "messages":
		return actor.SyncMessages, nil
	case "snapshot":
		return actor.SyncSnapshot, nil
	default:
		return 0, fmt.Errorf("unknown sync method %q", s)
	}
}

func buildConfig(backend crdtdoc.Backend, syncMethod actor.SyncMethod) (model.Config, error) {
	switch flagApp {
	case "counter":
		var appFactory func(document.ReplicaID) app.Application
		switch flagVariant {
		case "naive":
			appFactory = func(document.ReplicaID) app.Application { return counter.Naive{Backend: backend} }
		case "crdt":
			appFactory = func(document.ReplicaID) app.Application { return counter.CRDT{Backend: backend} }
		default:
			return model.Config{}, fmt.Errorf("unknown counter variant %q", flagVariant)
		}
		return model.Config{
			Servers:        flagServers,
			SyncMethod:     syncMethod,
			RestartEnabled: flagRestart,
			AppFactory:     appFactory,
			DriverFactory: func(document.ReplicaID) []app.Driver {
				return []app.Driver{
					counter.SingleShotDriver{Send: counter.Increment},
					counter.SingleShotDriver{Send: counter.Decrement},
				}
			},
			UserProperties: []properties.Property{counter.ExpectedValueProperty(0)},
		}, nil

	case "todo":
		ids := todo.ReplicaSeededIDs
		if flagVariant == "integer" {
			ids = todo.IntegerIDs
		}
		return model.Config{
			Servers:        flagServers,
			SyncMethod:     syncMethod,
			RestartEnabled: flagRestart,
			AppFactory: func(document.ReplicaID) app.Application {
				return todo.Application{Backend: backend, IDs: ids}
			},
			DriverFactory: func(document.ReplicaID) []app.Driver {
				return []app.Driver{todo.CreateThenDeleteDriver{Text: "buy milk"}}
			},
			History:        history.Default{},
			UserProperties: []properties.Property{todo.CountProperty()},
		}, nil

	case "listmoves":
		return model.Config{
			Servers:        flagServers,
			SyncMethod:     syncMethod,
			RestartEnabled: flagRestart,
			AppFactory: func(document.ReplicaID) app.Application {
				return listmoves.Application{Backend: backend}
			},
			DriverFactory: func(document.ReplicaID) []app.Driver {
				return []app.Driver{listmoves.MoveDriver{From: "b", NewIDSeq: 1}}
			},
			UserProperties: []properties.Property{listmoves.NoDuplicatesProperty()},
		}, nil

	default:
		return model.Config{}, fmt.Errorf("unknown app %q", flagApp)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	reporter, err := telemetry.New(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("build telemetry: %w", err)
	}
	defer reporter.Sync()

	syncMethod, err := parseSyncMethod(flagSync)
	if err != nil {
		return err
	}

	backend, err := buildBackend(flagBackend)
	if err != nil {
		return err
	}

	modelCfg, err := buildConfig(backend, syncMethod)
	if err != nil {
		return err
	}

	top, err := modelCfg.Build()
	if err != nil {
		return fmt.Errorf("build topology: %w", err)
	}

	var cache explorer.DedupCache
	if cfg.Dedup.Enabled {
		rc, err := dedup.New(dedup.Config{
			Host:  cfg.Dedup.Host,
			Port:  cfg.Dedup.Port,
			DB:    cfg.Dedup.DB,
			RunID: fmt.Sprintf("%s-%s", flagApp, flagVariant),
		})
		if err != nil {
			reporter.Logger.Warn("dedup cache unavailable, continuing without it", zap.Error(err))
		} else {
			defer rc.Close()
			cache = rc
		}
	}

	var limiter *rate.Limiter
	if flagMaxRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(flagMaxRate), 1)
	}

	started := time.Now()
	report := explorer.RunThrottled(top, flagMaxDepth, reporter, cache, limiter)
	finished := time.Now()

	fmt.Printf("states visited: %d\n", report.StatesVisited)
	if report.Passed() {
		fmt.Println("result: PASS (no property violations found)")
	} else {
		fmt.Println("result: FAIL")
		for _, d := range report.Discoveries {
			fmt.Printf("  - %s (%s)\n", d.Property, d.Expectation)
		}
	}

	if cfg.RunStore.Enabled {
		if err := persistRun(cfg, report, started, finished); err != nil {
			reporter.Logger.Warn("failed to persist run", zap.Error(err))
		}
	}
	if cfg.Discovery.Enabled {
		if err := publishDiscoveries(cfg, report); err != nil {
			reporter.Logger.Warn("failed to publish discoveries", zap.Error(err))
		}
	}
	if !report.Passed() {
		return fmt.Errorf("%d propert%s violated", len(report.Discoveries), plural(len(report.Discoveries)))
	}
	return nil
}

func plural(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}

func persistRun(cfg *config.Config, report *explorer.Report, started, finished time.Time) error {
	store, err := runstore.Open(cfg.RunStore.DSN)
	if err != nil {
		return err
	}
	defer store.Close()

	var violations []runstore.Violation
	for _, d := range report.Discoveries {
		violations = append(violations, runstore.Violation{
			Property:    d.Property,
			Expectation: d.Expectation.String(),
		})
	}
	_, err = store.RecordRun(runstore.Run{
		Topology:      fmt.Sprintf("%s/%s", flagApp, flagVariant),
		StatesVisited: report.StatesVisited,
		Passed:        report.Passed(),
		StartedAt:     started,
		FinishedAt:    finished,
	}, violations)
	return err
}

func publishDiscoveries(cfg *config.Config, report *explorer.Report) error {
	pub, err := discoverypub.Connect(cfg.Discovery.URL, cfg.Discovery.Subject)
	if err != nil {
		return err
	}
	defer pub.Close()

	for _, d := range report.Discoveries {
		if err := pub.Publish(discoverypub.Discovery{
			Property:    d.Property,
			Expectation: d.Expectation.String(),
			Depth:       len(d.Path),
		}); err != nil {
			return err
		}
	}
	return nil
}
