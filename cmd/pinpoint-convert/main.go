// Command pinpoint-convert turns probeinterface probe descriptions into
// Pinpoint probe folders (metadata.json, site_map.csv, model.obj).
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"pinpoint-converter/internal/assemble"
	"pinpoint-converter/internal/batch"
	"pinpoint-converter/internal/config"
	"pinpoint-converter/internal/logging"
	"pinpoint-converter/internal/pinpoint"
	"pinpoint-converter/internal/refdata"
)

var (
	flagConfig     string
	flagLogLevel   string
	flagLogFile    string
	flagProbeTable string
	flagWorkers    int
)

func main() {
	root := &cobra.Command{
		Use:           "pinpoint-convert",
		Short:         "Convert probeinterface probe descriptions to Pinpoint folders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "also log to this file")
	root.PersistentFlags().StringVar(&flagProbeTable, "probe-table", "", "CSV overriding the embedded probe reference table")

	root.AddCommand(convertCmd(), batchCmd(), validateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup resolves config, builds the logger and the assembler.
func setup() (config.Config, *zap.SugaredLogger, *assemble.Assembler, error) {
	var cfg config.Config
	if flagConfig != "" {
		var err error
		cfg, err = config.Load(flagConfig)
		if err != nil {
			return config.Config{}, nil, nil, err
		}
	}
	cfg.Resolve(config.Flags{
		ProbeTable: flagProbeTable,
		Workers:    flagWorkers,
		LogLevel:   flagLogLevel,
		LogFile:    flagLogFile,
	})

	log, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		return config.Config{}, nil, nil, err
	}

	var table *refdata.Table
	if cfg.ProbeTable != "" {
		table, err = refdata.LoadFile(cfg.ProbeTable)
	} else {
		table, err = refdata.Load()
	}
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log.Infow("probe reference table loaded", "entries", table.Len())

	return cfg, log, assemble.New(table, cfg.AssembleOptions(), log), nil
}

func convertCmd() *cobra.Command {
	var input, electrodes, stlFile, output string
	var noValidate bool

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a single probe JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, asm, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			res := batch.ConvertOne(batch.Config{
				OutputDir: output,
				Assembler: asm,
				Validate:  !noValidate,
				Log:       log,
			}, batch.Job{ProbeJSON: input, ElectrodeCSV: electrodes, STLFile: stlFile})

			if !res.Success {
				return fmt.Errorf("convert %s: %s", input, res.Error)
			}
			log.Infow("converted", "probe", res.Name, "folder", res.Folder)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "input probeinterface JSON file")
	cmd.Flags().StringVarP(&electrodes, "electrodes", "e", "", "electrode CSV file (optional)")
	cmd.Flags().StringVarP(&stlFile, "stl", "s", "", "STL 3D model file (optional)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output directory (probe folder is created inside)")
	cmd.Flags().BoolVar(&noValidate, "no-validate", false, "skip output validation")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func batchCmd() *cobra.Command {
	var inputDir, outputDir string

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Convert every probe under <input-dir>/spikeinterface",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, asm, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			jobs, err := batch.DiscoverJobs(inputDir)
			if err != nil {
				return err
			}
			log.Infow("batch start", "probes", len(jobs), "workers", cfg.Workers)

			results := batch.Run(batch.Config{
				OutputDir: outputDir,
				Assembler: asm,
				Workers:   cfg.Workers,
				Log:       log,
			}, jobs)

			success := 0
			for _, r := range results {
				if r.Success {
					success++
				} else {
					log.Errorw("conversion failed", "probe", r.Name, "error", r.Error)
				}
			}
			log.Infow("batch done", "converted", success, "failed", len(results)-success)

			if err := os.MkdirAll(outputDir, 0755); err != nil {
				return err
			}
			manifest := filepath.Join(outputDir, "manifest.json")
			if err := batch.WriteManifest(manifest, results); err != nil {
				log.Warnw("manifest write failed", "error", err)
			}

			if success < len(results) {
				return fmt.Errorf("%d of %d probes failed", len(results)-success, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputDir, "input-dir", "i", "", "input directory")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "output directory")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "worker goroutines (default: NumCPU)")
	cmd.MarkFlagRequired("input-dir")
	cmd.MarkFlagRequired("output-dir")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <probe-folder>",
		Short: "Validate a converted Pinpoint probe folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, _, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			rep, err := pinpoint.Validate(args[0])
			if err != nil {
				return err
			}
			for _, w := range rep.Warnings {
				log.Warnw("validation", "warning", w)
			}
			if !rep.Valid() {
				for _, e := range rep.Errors {
					log.Errorw("validation", "error", e)
				}
				return fmt.Errorf("%s is not a valid Pinpoint folder", args[0])
			}
			log.Infow("folder is valid", "path", args[0])
			return nil
		},
	}
}
