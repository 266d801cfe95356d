// Command raleighsl is a demo/ops CLI over one embedded RaleighSL
// filesystem: it is not part of the core (§1, §6 place the CLI and IPC
// surfaces outside the engine) but exercises create/open/read/write/commit/
// rollback and the plugin registry end to end against a real bbolt-backed
// device, the same way the teacher's own cmd/ binary drives its engine
// through cobra subcommands.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raleighsl/raleighsl"
	"github.com/raleighsl/raleighsl/pkg/log"
	"github.com/raleighsl/raleighsl/pkg/metrics"
	"github.com/raleighsl/raleighsl/pkg/nsplugin"
	"github.com/raleighsl/raleighsl/pkg/objplugin"
	"github.com/raleighsl/raleighsl/pkg/plugin"
	"github.com/raleighsl/raleighsl/pkg/storage"
	"github.com/raleighsl/raleighsl/pkg/types"
)

// Fixed plugin identities: a filesystem's plugins must resolve to the same
// UUID on every Open, so the demo's semantic/space/format/object plugins
// use deterministic UUIDs derived from their label rather than uuid.New().
var (
	semanticUUID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("raleighsl.nsplugin.flat"))
	spaceUUID    = uuid.NewSHA1(uuid.NameSpaceOID, []byte("raleighsl.nsplugin.bump"))
	formatUUID   = uuid.NewSHA1(uuid.NameSpaceOID, []byte("raleighsl.nsplugin.null"))
	counterUUID  = uuid.NewSHA1(uuid.NameSpaceOID, []byte("raleighsl.objplugin.counter"))
)

const demoFormatID uint32 = 1

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var (
	flagDataDir        string
	flagLabel          string
	flagWorkers        int
	flagMetricsAddr    string
	flagLogLevel       string
	flagLogJSON        bool
	flagConfig         string
	flagReaperInterval time.Duration
	flagReaperMaxAge   time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "raleighsl",
	Short: "RaleighSL — embeddable transactional object-storage engine",
	Long: `raleighsl drives one embedded RaleighSL filesystem end to end:
creating it on a bbolt-backed device, installing the flat-namespace and
counter reference plugins, and running create/read/write/commit operations
against it through the exec layer (C6).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := fileConfig{
			DataDir:     "./raleighsl-data",
			Label:       "demo",
			MetricsAddr: "127.0.0.1:9191",
			LogLevel:    "info",
		}
		if flagConfig != "" {
			loaded, err := loadFileConfig(flagConfig)
			if err != nil {
				return fmt.Errorf("loading --config %s: %w", flagConfig, err)
			}
			cfg = loaded
		}
		if cmd.Flags().Changed("data-dir") {
			cfg.DataDir = flagDataDir
		} else if cfg.DataDir != "" {
			flagDataDir = cfg.DataDir
		}
		if cmd.Flags().Changed("label") {
			cfg.Label = flagLabel
		} else if cfg.Label != "" {
			flagLabel = cfg.Label
		}
		if cmd.Flags().Changed("workers") {
			cfg.Workers = flagWorkers
		} else {
			flagWorkers = cfg.Workers
		}
		if cmd.Flags().Changed("metrics-addr") {
			cfg.MetricsAddr = flagMetricsAddr
		} else if cfg.MetricsAddr != "" {
			flagMetricsAddr = cfg.MetricsAddr
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = flagLogLevel
		} else if cfg.LogLevel != "" {
			flagLogLevel = cfg.LogLevel
		}
		if cmd.Flags().Changed("log-json") {
			cfg.LogJSON = flagLogJSON
		} else {
			flagLogJSON = cfg.LogJSON
		}
		flagReaperInterval = cfg.ReaperInterval
		flagReaperMaxAge = cfg.ReaperMaxAge
		log.Init(log.Config{Level: log.Level(flagLogLevel), JSONOutput: flagLogJSON})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (flags override its fields)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "./raleighsl-data", "directory holding the bbolt device file")
	rootCmd.PersistentFlags().StringVar(&flagLabel, "label", "demo", "filesystem label stamped into the master block")
	rootCmd.PersistentFlags().IntVar(&flagWorkers, "workers", 0, "dispatcher worker pool size (0 = NumCPU)")
	rootCmd.PersistentFlags().StringVar(&flagMetricsAddr, "metrics-addr", "127.0.0.1:9191", "address the serve command exposes /metrics on")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagLogJSON, "log-json", false, "emit JSON logs instead of console formatting")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(counterCmd)
	rootCmd.AddCommand(pluginsCmd)
	rootCmd.AddCommand(serveCmd)
}

func fsConfig() raleighsl.Config {
	interval, maxAge := flagReaperInterval, flagReaperMaxAge
	if interval == 0 {
		interval = 10 * time.Second
	}
	if maxAge == 0 {
		maxAge = 30 * time.Second
	}
	return raleighsl.Config{
		Workers:        flagWorkers,
		ReaperInterval: interval,
		ReaperMaxAge:   maxAge,
		Logger:         log.Logger,
	}
}

// installedPlugins returns the fixed-identity plugin set every demo
// filesystem uses: a flat namespace, a bump space allocator, a no-op
// format, and the Counter object plugin.
func installedPlugins() (plugin.FormatPlugin, plugin.SpacePlugin, plugin.SemanticPlugin, plugin.ObjectPlugin) {
	format := nsplugin.NewNullFormat(formatUUID, "null")
	space := nsplugin.NewBumpSpace(spaceUUID, "bump")
	semantic := nsplugin.NewFlatNamespace(semanticUUID, "flat")
	object := objplugin.NewCounterWithUUID(counterUUID, "counter")
	return format, space, semantic, object
}

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a fresh filesystem under --data-dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(flagDataDir, 0o755); err != nil {
			return err
		}
		device, err := storage.NewBoltDevice(flagDataDir)
		if err != nil {
			return fmt.Errorf("opening device: %w", err)
		}

		format, space, semantic, object := installedPlugins()
		fs, err := raleighsl.Create(device, demoFormatID, flagLabel, format, space, semantic, object, fsConfig())
		if err != nil {
			device.Close()
			return err
		}
		defer fs.Close()

		mb := fs.MasterBlock()
		fmt.Printf("created filesystem %q in %s\n", flagLabel, flagDataDir)
		fmt.Printf("  uuid:  %s\n", uuid.UUID(mb.UUID))
		fmt.Printf("  ctime: %s\n", time.Unix(int64(mb.Ctime), 0).UTC())
		return nil
	},
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print the master block of the filesystem under --data-dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, closeFS, err := openDemo()
		if err != nil {
			return err
		}
		defer closeFS()

		mb := fs.MasterBlock()
		fmt.Printf("label:  %s\n", trimNul(mb.Label[:]))
		fmt.Printf("format: %d\n", mb.Format)
		fmt.Printf("uuid:   %s\n", uuid.UUID(mb.UUID))
		fmt.Printf("ctime:  %s\n", time.Unix(int64(mb.Ctime), 0).UTC())
		fmt.Printf("valid:  %t\n", mb.Valid())
		return nil
	},
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List plugins installed in the filesystem under --data-dir",
	RunE: func(cmd *cobra.Command, args []string) error {
		device, err := storage.NewBoltDevice(flagDataDir)
		if err != nil {
			return err
		}
		defer device.Close()

		recs, err := device.InstalledPlugins()
		if err != nil {
			return err
		}
		fmt.Printf("%-10s %-36s %s\n", "CATEGORY", "UUID", "LABEL")
		for _, rec := range recs {
			fmt.Printf("%-10s %-36s %s\n", rec.Category, rec.UUID, rec.Label)
		}
		return nil
	},
}

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Operate on Counter objects",
}

var counterCreateCmd = &cobra.Command{
	Use:   "create NAME",
	Short: "Create a new counter object bound to NAME",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, closeFS, err := openDemo()
		if err != nil {
			return err
		}
		defer closeFS()

		oid, errno := fs.Exec().Create(args[0], nil)
		if !errno.Ok() {
			return errno
		}
		fmt.Printf("created %s: oid=%d\n", args[0], oid)
		return nil
	},
}

var counterReadCmd = &cobra.Command{
	Use:   "read NAME",
	Short: "Read a counter object's committed value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, closeFS, err := openDemo()
		if err != nil {
			return err
		}
		defer closeFS()

		oid, errno := fs.Exec().Lookup(args[0])
		if !errno.Ok() {
			return errno
		}
		val, errno := fs.Exec().Read(oid, nil)
		if !errno.Ok() {
			return errno
		}
		fmt.Printf("%s = %v\n", args[0], val)
		return nil
	},
}

var counterAddCmd = &cobra.Command{
	Use:   "add NAME DELTA",
	Short: "Add DELTA to NAME inside a fresh transaction and commit it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var delta int64
		if _, err := fmt.Sscanf(args[1], "%d", &delta); err != nil {
			return fmt.Errorf("parsing delta %q: %w", args[1], err)
		}

		fs, closeFS, err := openDemo()
		if err != nil {
			return err
		}
		defer closeFS()

		oid, errno := fs.Exec().Lookup(args[0])
		if !errno.Ok() {
			return errno
		}

		tx := fs.Begin()
		if _, errno := fs.Exec().Write(oid, tx, objplugin.CounterDelta(delta)); !errno.Ok() {
			fs.Exec().TxnRollback(tx)
			return errno
		}
		if errno := fs.Exec().TxnCommit(tx); !errno.Ok() {
			return errno
		}

		val, errno := fs.Exec().Read(oid, nil)
		if !errno.Ok() {
			return errno
		}
		fmt.Printf("%s = %v\n", args[0], val)
		return nil
	},
}

func init() {
	counterCmd.AddCommand(counterCreateCmd, counterReadCmd, counterAddCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Open the filesystem under --data-dir and serve /metrics until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		fs, closeFS, err := openDemo()
		if err != nil {
			return err
		}
		defer closeFS()

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: flagMetricsAddr, Handler: mux}

		errCh := make(chan error, 1)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()
		fmt.Printf("serving metrics on http://%s/metrics\n", flagMetricsAddr)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sigCh:
			fmt.Println("shutting down...")
		case err := <-errCh:
			fmt.Fprintln(os.Stderr, "metrics server error:", err)
		}
		return srv.Close()
	},
}

// openDemo opens the filesystem under --data-dir with the demo's fixed
// plugin set registered, returning a close func that tears it down along
// with the underlying device.
func openDemo() (*raleighsl.Filesystem, func(), error) {
	device, err := storage.NewBoltDevice(flagDataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening device: %w", err)
	}

	registry := plugin.New()
	format, space, semantic, object := installedPlugins()
	for _, p := range []plugin.Plugin{format, space, semantic, object} {
		if err := registry.Install(p); err != nil {
			device.Close()
			return nil, nil, fmt.Errorf("installing plugin %q: %w", p.Header().Label, err)
		}
	}

	fs, err := raleighsl.Open(device, registry, fsConfig())
	if err != nil {
		device.Close()
		return nil, nil, fmt.Errorf("opening filesystem (did you run 'raleighsl create' first?): %w", err)
	}
	return fs, func() { fs.Close() }, nil
}

func trimNul(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
