package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// RunStatus prints the most recent reconciliation cycles.
func RunStatus(ctx context.Context, configFile string, limit int) error {
	app, err := setup(ctx, configFile)
	if err != nil {
		return err
	}
	defer app.Close()

	entries, err := app.History.Recent(limit)
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}
	if len(entries) == 0 {
		fmt.Println("No cycles recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tDURATION\tDRIFT\tRESTORED\tBOUNCED\tALERTED\tERRORS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			e.Started.Local().Format(time.RFC3339),
			e.Finished.Sub(e.Started).Round(time.Millisecond),
			yesNo(e.Drift),
			yesNo(e.Restored),
			yesNo(e.Bounced),
			yesNo(e.Alerted),
			strings.Join(e.Errors, "; "))
	}
	return w.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "-"
}
