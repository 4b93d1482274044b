package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sfuhrm/capsula/internal/config"
	"github.com/sfuhrm/capsula/pkg"
	"github.com/sfuhrm/capsula/pkg/builder"
	"github.com/sfuhrm/capsula/pkg/logging"
)

const version = "0.1.0"

var (
	descriptorPath string
	outDir         string
	buildRoot      string
	layoutsPath    string
	targets        []string
	listTargets    bool
	validateOnly   bool
	parallel       bool
	jobs           int
	stopAfter      string
	verbose        bool
	debugMode      bool
	logLevel       string
	configPath     string
	rootCmd        *cobra.Command
	versionFlag    bool
)

func getBuildTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func printVersion() {
	fmt.Printf("capsula %s\n", version)
	fmt.Printf("Built: %s\n", getBuildTimestamp())
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "capsula",
		Short: "Build OS packages from one descriptor",
		Long: `capsula builds installable packages for several distributions from a
single capsula.yaml descriptor and per-distribution layout trees.`,
		Example:       "  capsula -f capsula.yaml -o out/ -t debian_stretch -t centos_7",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	flags := rootCmd.Flags()
	flags.StringVarP(&descriptorPath, "descriptor", "f", "", "Path to capsula.yaml (required unless --list-targets)")
	flags.StringVarP(&outDir, config.FlagOut, "o", "", "Output directory for built packages")
	flags.StringVarP(&buildRoot, "build-dir", "b", "", "Build root to use instead of a fresh temporary one")
	flags.StringVarP(&layoutsPath, config.FlagLayouts, "l", "", "External layout tree instead of the bundled layouts")
	flags.StringSliceVarP(&targets, "targets", "t", nil, "Targets to build (repeatable or comma separated, default all)")
	flags.BoolVarP(&listTargets, "list-targets", "T", false, "Print the available targets and exit")
	flags.BoolVarP(&validateOnly, "validate", "c", false, "Validate the descriptor and exit")
	flags.BoolVarP(&parallel, config.FlagParallel, "p", false, "Build targets in parallel")
	flags.IntVarP(&jobs, config.FlagJobs, "j", 0, "Parallel builds at most (0 is unbounded)")
	flags.StringVarP(&stopAfter, "stop-after", "s", builder.StageAll.String(), "Last stage to run, one of read_descriptor, prepare, build, copy_result, cleanup, all")
	flags.BoolVarP(&verbose, config.FlagVerbose, "v", false, "Echo the output of build commands")
	flags.BoolVarP(&debugMode, config.FlagDebug, "d", false, "Keep working directories and write the resolved descriptor")
	flags.StringVar(&logLevel, config.FlagLogLevel, "", "Log level (trace, debug, info, warn, error, json:<level>)")
	flags.StringVar(&configPath, "config", "", "Path to a TOML config file")
	flags.BoolVarP(&versionFlag, "version", "V", false, "Show version information")
}

func main() {
	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		printVersion()
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("❌ %v", err))
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if versionFlag {
		printVersion()
		return nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.ApplyFlags(cmd.Flags()); err != nil {
		return err
	}
	logger, closeLog, err := logging.Open(logging.Options{
		Name:  "capsula",
		Level: cfg.LogLevel,
		Path:  os.Getenv("CAPSULA_LOG_PATH"),
	})
	if err != nil {
		return err
	}
	defer closeLog()
	if cfg.Source != "" {
		logger.Debug("⚙️ Config file loaded", "path", cfg.Source)
	}

	index, err := pkg.BundledIndex()
	if err != nil {
		return err
	}

	if listTargets {
		names, err := pkg.ListTargets(cfg.Layouts, index)
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	if descriptorPath == "" {
		return fmt.Errorf("required flag \"descriptor\" not set")
	}

	if validateOnly {
		violations, err := pkg.VerifyDescriptorFile(descriptorPath, logger)
		if err != nil {
			return err
		}
		return printViolations(os.Stdout, violations)
	}

	if cfg.Out == "" {
		return fmt.Errorf("required flag \"out\" not set")
	}
	stage, err := builder.ParseStage(stopAfter)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pkg.Build(ctx, pkg.BuildOptions{
		DescriptorPath: descriptorPath,
		OutDir:         cfg.Out,
		BuildRoot:      buildRoot,
		BuildDir:       cfg.BuildDir,
		Layouts:        cfg.Layouts,
		Index:          index,
		Targets:        targets,
		StopAfter:      stage,
		Parallel:       cfg.Parallel,
		Jobs:           cfg.Jobs,
		Verbose:        cfg.Verbose,
		Debug:          cfg.Debug,
		Logger:         logger,
		Stdout:         os.Stdout,
		Stderr:         os.Stderr,
	})
	if report == nil {
		return err
	}
	return printSummary(os.Stdout, report, cfg.Debug)
}
