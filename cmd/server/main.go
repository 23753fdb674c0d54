// safeskin serves skin-lesion classification and treatment guidance.
//
// Usage:
//
//	safeskin serve [--port=8080] [--model=models/model.onnx]
//	safeskin classify <image> [--json]
//	safeskin labels
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Brownie44l1/safe-skin/internal/config"
	"github.com/Brownie44l1/safe-skin/internal/logging"
)

var rootFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	modelPath    string
	metadataPath string
	ortLibrary   string
}

var rootCmd = &cobra.Command{
	Use:           "safeskin",
	Short:         "Skin lesion classification with treatment guidance",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.configPath, "config", "", "YAML config file (default $SAFESKIN_CONFIG)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&rootFlags.logFormat, "log-format", "", "text or json")
	pf.StringVar(&rootFlags.modelPath, "model", "", "path to the ONNX classifier")
	pf.StringVar(&rootFlags.metadataPath, "metadata", "", "path to the model metadata JSON")
	pf.StringVar(&rootFlags.ortLibrary, "onnxruntime-lib", "", "path to the onnxruntime shared library")

	rootCmd.AddCommand(serveCmd, classifyCmd, labelsCmd)
}

// loadConfig reads configuration and applies persistent flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(rootFlags.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = rootFlags.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = rootFlags.logFormat
	}
	if flags.Changed("model") {
		cfg.ModelPath = rootFlags.modelPath
	}
	if flags.Changed("metadata") {
		cfg.MetadataPath = rootFlags.metadataPath
	}
	if flags.Changed("onnxruntime-lib") {
		cfg.SharedLibraryPath = rootFlags.ortLibrary
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logging.Init(level, cfg.LogFormat)
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "safeskin: %v\n", err)
		os.Exit(1)
	}
}
