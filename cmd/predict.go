package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"datalab/dataset"
	"datalab/session"
)

var (
	predictData      string
	predictModelPath string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict labels for a CSV file with a saved bundle",
	Long:  "predict writes the input rows back as CSV with an added prediction column.",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		path := predictModelPath
		if path == "" {
			path = c.ML.ModelPath
		}
		sess := session.New(session.DefaultID, c.ML.Seed)
		if err := sess.Load(path); err != nil {
			return err
		}
		table, err := readCSV(predictData)
		if err != nil {
			return err
		}
		labels, err := sess.Predict(table)
		if err != nil {
			return err
		}

		cols := append([]*dataset.Column(nil), table.Columns()...)
		out, err := dataset.NewTable(append(cols, dataset.NewCategoricalColumn("prediction", labels, nil))...)
		if err != nil {
			return fmt.Errorf("build output: %w", err)
		}
		return dataset.WriteCSV(cmd.OutOrStdout(), out)
	},
}

func init() {
	predictCmd.Flags().StringVar(&predictData, "data", "", "CSV file to predict")
	predictCmd.Flags().StringVar(&predictModelPath, "model-path", "", "bundle path (default ml.model_path)")
	_ = predictCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(predictCmd)
}
