package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"datalab/dataset"
	"datalab/ml"
	"datalab/session"
)

var (
	trainData     string
	trainTarget   string
	trainModel    string
	trainTestSize float64
	trainOut      string
	trainParams   map[string]string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train a classifier on a CSV file and save the bundle",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := settings()
		if err != nil {
			return err
		}
		kind, err := ml.ParseKind(trainModel)
		if err != nil {
			return err
		}
		table, err := readCSV(trainData)
		if err != nil {
			return err
		}
		testSize := c.ML.TestSize
		if cmd.Flags().Changed("test-size") {
			testSize = trainTestSize
		}
		out := trainOut
		if out == "" {
			out = c.ML.ModelPath
		}

		params := make(ml.Params, len(trainParams))
		for k, v := range trainParams {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				params[k] = f
			} else {
				params[k] = v
			}
		}
		sess := session.New(session.DefaultID, c.ML.Seed)
		result, err := sess.Train(table, session.TrainRequest{
			Kind:     kind,
			Target:   trainTarget,
			TestSize: testSize,
			Params:   params,
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		m := result.Metrics
		fmt.Fprintf(w, "model: %s (%d rows, %d features)\n", kind, result.Rows, result.Features)
		fmt.Fprintf(w, "accuracy=%.4f precision=%.4f recall=%.4f f1=%.4f train_accuracy=%.4f\n\n",
			m.Accuracy, m.Precision, m.Recall, m.F1, m.TrainAccuracy)
		fmt.Fprintln(w, m.Report)
		for i, fi := range result.Importance {
			if i == 10 {
				break
			}
			fmt.Fprintf(w, "%-24s %.4f\n", fi.Feature, fi.Importance)
		}

		if err := sess.Save(out); err != nil {
			return err
		}
		fmt.Fprintf(w, "model saved to %s\n", out)
		return nil
	},
}

func init() {
	trainCmd.Flags().StringVar(&trainData, "data", "", "CSV file to train on")
	trainCmd.Flags().StringVar(&trainTarget, "target", "", "target column")
	trainCmd.Flags().StringVar(&trainModel, "model", "random_forest", "random_forest, decision_tree, knn or logistic_regression")
	trainCmd.Flags().Float64Var(&trainTestSize, "test-size", 0.2, "fraction of rows held out for evaluation")
	trainCmd.Flags().StringVar(&trainOut, "out", "", "bundle path (default ml.model_path)")
	trainCmd.Flags().StringToStringVar(&trainParams, "param", nil, "model parameter override, e.g. --param max_depth=5")
	_ = trainCmd.MarkFlagRequired("data")
	_ = trainCmd.MarkFlagRequired("target")
	rootCmd.AddCommand(trainCmd)
}

func readCSV(path string) (*dataset.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return dataset.Load(file)
}
