// Package cli builds the coordinator's command tree: run the bundled demo
// workflow end to end, submit a fan-out of URLs from a file, or print the
// loaded configuration. Grounded on the teacher's internal/cli/cli.go
// run/enqueue/status command shape and its --config flag convention.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dpxdt/coordinator/internal/config"
	"github.com/dpxdt/coordinator/internal/coordinator"
	"github.com/dpxdt/coordinator/internal/demo"
	"github.com/dpxdt/coordinator/internal/metrics"
	"github.com/dpxdt/coordinator/internal/queue"
	"github.com/dpxdt/coordinator/internal/worker"
	"github.com/dpxdt/coordinator/internal/workflow"
	"github.com/dpxdt/coordinator/pkg/workitem"
	"github.com/spf13/cobra"
)

var log = slog.Default()

var configFile string

// BuildCLI assembles the root command and its subcommands.
func BuildCLI() *cobra.Command {
	root := &cobra.Command{
		Use:   "coordinator",
		Short: "A user-space workflow coordinator with suspend/resume procedures",
		Long: `coordinator runs suspendable workflow procedures that yield WorkItems to
typed worker queues and resume when every yielded item (or fan-out of
items) has returned, forming a parent/child barrier tree.`,
		Version: "1.0.0",
	}

	root.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")

	root.AddCommand(buildRunCommand())
	root.AddCommand(buildSubmitCommand())
	root.AddCommand(buildStatusCommand())
	return root
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Warn("cli: could not load config file, using defaults", "path", configFile, "error", err)
		return config.Default()
	}
	return cfg
}

// system bundles a running Coordinator with the worker fleets and queues
// it needs torn down on exit.
type system struct {
	coord    *coordinator.Coordinator
	fetchQ   *queue.Queue
	transQ   *queue.Queue
	flakyQ   *queue.Queue
	fetchers *worker.Group
	transfms *worker.Group
	flakies  *worker.Group
}

func buildSystem(cfg *config.Config) *system {
	coord := coordinator.New(cfg.PollInterval, cfg.Queue.BufferSize)
	if cfg.Metrics.Enabled {
		coord.SetMetrics(metrics.NewCollector())
	}

	s := &system{
		coord:  coord,
		fetchQ: queue.New(cfg.Queue.BufferSize),
		transQ: queue.New(cfg.Queue.BufferSize),
		flakyQ: queue.New(cfg.Queue.BufferSize),
	}
	coord.Register(&demo.FetchRequest{}, s.fetchQ)
	coord.Register(&demo.TransformRequest{}, s.transQ)
	coord.Register(&demo.FlakyRequest{}, s.flakyQ)

	s.fetchers = worker.NewGroup("fetch", cfg.Worker.FetchCount, s.fetchQ, coord.Returns(), worker.HandlerFunc(demo.Fetch))
	s.transfms = worker.NewGroup("transform", cfg.Worker.TransformCount, s.transQ, coord.Returns(), worker.HandlerFunc(demo.Transform))
	s.flakies = worker.NewGroup("flaky", cfg.Worker.FlakyCount, s.flakyQ, coord.Returns(), worker.HandlerFunc(demo.Flaky))
	return s
}

func (s *system) start() {
	s.fetchers.Start()
	s.transfms.Start()
	s.flakies.Start()
	if err := s.coord.Start(); err != nil {
		log.Error("cli: coordinator already started", "error", err)
	}
}

func (s *system) stop() {
	s.coord.Stop()
	s.fetchers.Stop()
	s.transfms.Stop()
	s.flakies.Stop()
	s.coord.Join()
	s.fetchers.Join()
	s.transfms.Join()
	s.flakies.Join()
}

func buildRunCommand() *cobra.Command {
	var urls string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the bundled demo workflow against one or more URLs",
		Long:  "Fetches every URL, transforms each body, and prints the aggregated result as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			targets := splitURLs(urls)
			if len(targets) == 0 {
				return fmt.Errorf("at least one URL is required (use --urls)")
			}
			return runFetchAllWorkflow(cfg, targets)
		},
	}
	cmd.Flags().StringVar(&urls, "urls", "https://example.com", "comma-separated URLs to fetch")
	return cmd
}

func buildSubmitCommand() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a fan-out of URLs read from a JSON file",
		Long: `Reads a JSON array of URL strings from a file and runs them as a single
root workflow's fan-out yield, the in-process analogue of the original
system's HTTP work-queue "add" endpoint.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("a file is required (use --file or -f)")
			}
			cfg := loadConfig()
			targets, err := readURLFile(file)
			if err != nil {
				return err
			}
			return runFetchAllWorkflow(cfg, targets)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file containing an array of URL strings")
	cmd.MarkFlagRequired("file")
	return cmd
}

func buildStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the loaded configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig()
			fmt.Printf("config file:       %s\n", configFile)
			fmt.Printf("poll interval:     %s\n", cfg.PollInterval)
			fmt.Printf("queue buffer size: %d\n", cfg.Queue.BufferSize)
			fmt.Printf("fetch workers:     %d\n", cfg.Worker.FetchCount)
			fmt.Printf("transform workers: %d\n", cfg.Worker.TransformCount)
			fmt.Printf("flaky workers:     %d\n", cfg.Worker.FlakyCount)
			if cfg.Metrics.Enabled {
				fmt.Printf("metrics:           enabled on :%d/metrics\n", cfg.Metrics.Port)
			} else {
				fmt.Println("metrics:           disabled")
			}
			return nil
		},
	}
}

// runFetchAllWorkflow builds a root workflow that fetches every URL in
// targets, transforms each body, and waits for the aggregate result,
// shutting the system down cleanly on SIGINT/SIGTERM or completion.
func runFetchAllWorkflow(cfg *config.Config, targets []string) error {
	sys := buildSystem(cfg)

	if cfg.Metrics.Enabled {
		go func() {
			if err := metrics.StartServer(cfg.Metrics.Port); err != nil {
				log.Error("cli: metrics server stopped", "error", err)
			}
		}()
	}

	sys.start()

	root := workflow.NewRoot("fetch-all", func(y *workflow.Yielder) (any, error) {
		fetches := make([]workitem.WorkItem, len(targets))
		for i, u := range targets {
			fetches[i] = &demo.FetchRequest{URL: u}
		}
		bodies, err := y.YieldAll(fetches)
		if err != nil {
			return nil, err
		}

		transforms := make([]workitem.WorkItem, len(bodies))
		for i, b := range bodies {
			body, _ := b.(*demo.FetchRequest)
			transforms[i] = &demo.TransformRequest{Input: body.Result.(string)}
		}
		return y.YieldAll(transforms)
	})
	sys.coord.Submit(root)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done, err := sys.coord.WaitUntilDone(ctx)
	sys.stop()
	if err != nil {
		return fmt.Errorf("workflow failed: %w", err)
	}

	out, marshalErr := json.MarshalIndent(done.Result, "", "  ")
	if marshalErr != nil {
		return marshalErr
	}
	fmt.Println(string(out))
	return nil
}

func splitURLs(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func readURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("submit: read %s: %w", path, err)
	}
	var urls []string
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("submit: parse %s: %w", path, err)
	}
	return urls, nil
}
