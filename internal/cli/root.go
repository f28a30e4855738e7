package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/saeedalam/radscribe/internal/classify"
	"github.com/saeedalam/radscribe/internal/config"
	"github.com/saeedalam/radscribe/internal/logging"
	"github.com/saeedalam/radscribe/internal/patterns"
	"github.com/saeedalam/radscribe/internal/storage"
	"github.com/saeedalam/radscribe/pkg/types"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "radscribe",
	Short: "Context detection and macro expansion for radiology dictation",
	Long: `radscribe - Clinical Context Detection & Macro Expansion

radscribe classifies dictated report text by imaging modality and body part,
then expands short macro triggers into full sentences. Smart macros pick the
sentence that fits the detected body part.

Quick Start:
  radscribe init                       Initialize in current directory
  radscribe detect "CT of the chest"   Classify text
  radscribe expand "nml"               Expand macros
  radscribe macro add neg "No acute abnormality."
  radscribe serve                      Start the stdio JSON-RPC server`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .radscribe/config.yaml in the project)")
	rootCmd.PersistentFlags().Bool("auto-detect", false, "detect modality alongside body part (or set RADSCRIBE_AUTO_DETECT)")
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (or set RADSCRIBE_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("user", "", "macro owner (default $USER)")
	rootCmd.PersistentFlags().String("patterns", "", "pattern table file (YAML, TOML or JSON)")

	viper.BindPFlag("auto_detect", rootCmd.PersistentFlags().Lookup("auto-detect"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("user", rootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("patterns.file", rootCmd.PersistentFlags().Lookup("patterns"))

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(macroCmd)
	rootCmd.AddCommand(patternsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads the project config file and RADSCRIBE_* variables
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if dir, err := findProjectDirFromCwd(); err == nil {
		viper.AddConfigPath(dir)
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	} else {
		return
	}

	if err := viper.ReadInConfig(); err != nil && cfgFile != "" {
		fmt.Fprintf(os.Stderr, "Error reading config %s: %v\n", cfgFile, err)
		os.Exit(1)
	}
}

// env is what every command needs after config is resolved
type env struct {
	cfg    *config.Config
	log    *zap.Logger
	dir    string // .radscribe directory, empty outside a project
	tables types.PatternTables
}

// loadEnv resolves config, logger and pattern tables. With needProject a
// missing .radscribe directory is an error.
func loadEnv(needProject bool) (*env, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.JSON)
	if err != nil {
		return nil, err
	}

	dir, err := findProjectDirFromCwd()
	if err != nil && needProject {
		return nil, fmt.Errorf("%w\nRun 'radscribe init' first", err)
	}

	tables, err := patterns.Load(resolvePath(dir, cfg.Patterns.File))
	if err != nil {
		return nil, err
	}

	log.Debug("Environment loaded",
		zap.String("user", cfg.User),
		zap.String("project", dir),
		zap.Bool("auto_detect", cfg.AutoDetect),
		zap.String("config", viper.ConfigFileUsed()))

	return &env{cfg: cfg, log: log, dir: dir, tables: tables}, nil
}

// classifiers compiles both pattern tables
func (e *env) classifiers() (modality, bodyPart *classify.Classifier, err error) {
	modality, err = classify.New(e.tables.Modality)
	if err != nil {
		return nil, nil, fmt.Errorf("modality table: %w", err)
	}
	bodyPart, err = classify.New(e.tables.BodyPart)
	if err != nil {
		return nil, nil, fmt.Errorf("body part table: %w", err)
	}
	return modality, bodyPart, nil
}

func (e *env) openStore() (*storage.MacroStore, error) {
	if e.dir == "" {
		return nil, fmt.Errorf("no .radscribe directory found\nRun 'radscribe init' first")
	}
	return storage.NewMacroStore(e.dir)
}

// resolvePath makes a config-relative path absolute against the project dir
func resolvePath(dir, path string) string {
	if path == "" || filepath.IsAbs(path) || dir == "" {
		return path
	}
	return filepath.Join(dir, path)
}
