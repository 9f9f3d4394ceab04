// odatadecode decodes an OData payload file (Atom/XML or JSON) and prints
// the decoded object model as JSON or msgpack.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/echa/config"
	logpkg "github.com/echa/log"
)

const (
	appName   = "odatadecode"
	envprefix = "ODATA"
)

var rootCmd = &cobra.Command{
	Use:           appName + " [OPTIONS] FILE",
	Short:         "Decode an OData payload",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		applyFlags(cmd)
		return runDecode(args[0], os.Stdout)
	},
}

var (
	conf string

	// verbosity levels
	verbose bool
	vdebug  bool
	vtrace  bool

	// decode options, overriding config when set
	format   string
	kind     string
	output   string
	metadata string
	maxBytes int64
)

func init() {
	cobra.OnInitialize(initConfig)

	config.SetDefault("decode.format", "json")
	config.SetDefault("decode.kind", "entity")
	config.SetDefault("decode.output", "json")
	config.SetDefault("decode.max_bytes", 0)
	config.SetDefault("decode.metadata", "")

	rootCmd.PersistentFlags().StringVarP(&conf, "config", "c", "", "config file")
	rootCmd.PersistentFlags().BoolVar(&verbose, "v", false, "be verbose")
	rootCmd.PersistentFlags().BoolVar(&vdebug, "vv", false, "debug mode")
	rootCmd.PersistentFlags().BoolVar(&vtrace, "vvv", false, "trace mode")

	rootCmd.Flags().StringVarP(&format, "format", "f", "", "payload format: atom, json or xml")
	rootCmd.Flags().StringVarP(&kind, "kind", "k", "", "payload kind: entity, entityset, property or error")
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "output encoding: json or msgpack")
	rootCmd.Flags().StringVarP(&metadata, "metadata", "m", "", "CSDL $metadata `file` used for typing")
	rootCmd.Flags().Int64Var(&maxBytes, "max-bytes", 0, "reject payloads larger than `n` bytes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	config.SetEnvPrefix(envprefix)
	if conf != "" {
		config.SetConfigName(conf)
	}
	realconf := config.ConfigName()
	if _, err := os.Stat(realconf); err == nil {
		if err := config.ReadConfigFile(); err != nil {
			fmt.Fprintf(os.Stderr, "Could not read config %s: %v\n", realconf, err)
			os.Exit(1)
		}
	}
	initLogging()

	switch {
	case vtrace:
		setLogLevels(logpkg.LevelTrace)
	case vdebug:
		setLogLevels(logpkg.LevelDebug)
	case verbose:
		setLogLevels(logpkg.LevelInfo)
	}
	if _, err := os.Stat(realconf); err == nil {
		log.Debugf("Using configuration file %s", realconf)
	}
}

// applyFlags copies explicitly set flags over config values.
func applyFlags(cmd *cobra.Command) {
	fl := cmd.Flags()
	if fl.Changed("format") {
		config.Set("decode.format", format)
	}
	if fl.Changed("kind") {
		config.Set("decode.kind", kind)
	}
	if fl.Changed("output") {
		config.Set("decode.output", output)
	}
	if fl.Changed("metadata") {
		config.Set("decode.metadata", metadata)
	}
	if fl.Changed("max-bytes") {
		config.Set("decode.max_bytes", maxBytes)
	}
}
