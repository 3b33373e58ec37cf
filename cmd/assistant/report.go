package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	reportCmd.Flags().String("date", "", "day to summarize, YYYY-MM-DD in UTC (default today)")
	reportCmd.Flags().Bool("json", false, "print the statistics as JSON")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize one day of the interaction log",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		day := time.Now().UTC()
		if s, _ := cmd.Flags().GetString("date"); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			day = d
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeApp(a)

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			stats, err := a.dailyReport(day)
			if err != nil {
				return err
			}
			out, err := stats.ToJSON()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		}
		text, err := a.reportText(cmd.Context(), day)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}
