// Package cmd implements the datalab command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"datalab/config"
)

var (
	cfgFile string
	cfg     *config.Config
	cfgErr  error
)

var rootCmd = &cobra.Command{
	Use:   "datalab",
	Short: "Upload tabular data, explore it and train classifiers",
	Long: `datalab serves a JSON API for CSV upload, descriptive statistics, Plotly charts
and training/prediction with random forest, decision tree, KNN and logistic regression
models. The train, predict and describe commands run the same pipeline offline.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "config.yaml", "config file")
}

func loadConfig() {
	cfg, cfgErr = config.Load(cfgFile)
}

// settings returns the loaded configuration or the error that prevented loading it.
func settings() (*config.Config, error) {
	if cfgErr != nil {
		return nil, cfgErr
	}
	if cfg == nil {
		return config.Default(), nil
	}
	return cfg, nil
}
