package cmd

import (
	json "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"datalab/dataset"
	"datalab/pipeline"
)

var describeData string

var describeCmd = &cobra.Command{
	Use:   "describe",
	Short: "Print shape, dtypes, statistics and quality issues of a CSV file",
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := readCSV(describeData)
		if err != nil {
			return err
		}
		report := struct {
			Info          dataset.Info            `json:"info"`
			Kinds         dataset.Kinds           `json:"kinds"`
			Summary       dataset.Summary         `json:"summary"`
			QualityIssues []pipeline.QualityIssue `json:"quality_issues"`
		}{
			Info:          dataset.Describe(table),
			Kinds:         dataset.ColumnKinds(table),
			Summary:       dataset.Summarize(table),
			QualityIssues: pipeline.NewQualityChecker().Check(table),
		}
		b, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(append(b, '\n'))
		return err
	},
}

func init() {
	describeCmd.Flags().StringVar(&describeData, "data", "", "CSV file to describe")
	_ = describeCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(describeCmd)
}
