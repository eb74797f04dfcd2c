package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/minkj/stackup"
)

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printOutcomes(outcomes []stackup.Outcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tOUTCOME\tSTATE\tPID\tREASON")
	for _, o := range outcomes {
		pid := ""
		if o.PID > 0 {
			pid = fmt.Sprintf("%d", o.PID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", o.Name, o.Kind, o.State, pid, o.Reason)
	}
	_ = w.Flush()
}

func printStatuses(statuses []stackup.Status) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SERVICE\tSTATE\tPID\tPORT\tLOG")
	for _, s := range statuses {
		pid := ""
		if s.PID > 0 {
			pid = fmt.Sprintf("%d", s.PID)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", s.Name, s.State, pid, s.Port, s.LogPath)
	}
	_ = w.Flush()
}

func printHistory(name string, events []stackup.Event) {
	if len(events) == 0 {
		return
	}
	fmt.Printf("\n%s:\n", name)
	for _, ev := range events {
		detail := ev.Detail
		if detail != "" {
			detail = " " + detail
		}
		if ev.PID > 0 {
			fmt.Printf("  %s %s pid=%d%s\n", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Kind, ev.PID, detail)
		} else {
			fmt.Printf("  %s %s%s\n", ev.At.Local().Format("2006-01-02 15:04:05"), ev.Kind, detail)
		}
	}
}
