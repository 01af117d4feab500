package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"treebench/internal/bench"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived benchmark runs",
	RunE:  runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().Bool("latest", false, "Show the derived metrics of the most recent run")
	historyCmd.Flags().String("db", "", "History database path (overrides config)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = viper.GetString("history.path")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("no history database at %s, archive a run with 'report --save' first", path)
	}

	store, err := bench.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	w := cmd.OutOrStdout()

	if latest, _ := cmd.Flags().GetBool("latest"); latest {
		run, err := store.LoadLatest()
		if err != nil {
			return err
		}
		if run == nil {
			fmt.Fprintln(w, dimStyle.Render("history is empty"))
			return nil
		}

		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("run %d", run.ID)))
		fmt.Fprintf(w, "%s on %s, %d results\n",
			run.CreatedAt.Format(time.RFC3339), run.Host, len(run.Results))

		keys := make([]string, 0, len(run.Context))
		for k := range run.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(tw, "%s\t%s\n", k, run.Context[k])
		}
		return tw.Flush()
	}

	runs, err := store.LoadAll()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, dimStyle.Render("history is empty"))
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "id\tdate\thost\tresults\tinsert slowdown")
	for _, run := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n",
			run.ID, run.CreatedAt.Format("2006-01-02 15:04"), run.Host,
			len(run.Results), run.Context["insert_slowdown_factor"])
	}
	return tw.Flush()
}
