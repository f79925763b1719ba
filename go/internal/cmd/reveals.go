package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/igacmun/site/go/internal/reveal"
	"github.com/igacmun/site/go/internal/siteconfig"
	"github.com/spf13/cobra"
)

var revealsAt string

var revealsCmd = &cobra.Command{
	Use:   "reveals",
	Short: "Show the countdown state of every gated section",
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := siteconfig.Load(siteConfigPath)
		if err != nil {
			return err
		}
		now := time.Now()
		if revealsAt != "" {
			now, err = reveal.ParseTarget(revealsAt)
			if err != nil {
				return fmt.Errorf("--at: %w", err)
			}
		}
		return printReveals(cmd.OutOrStdout(), content, now, jsonOutput)
	},
}

func init() {
	revealsCmd.Flags().StringVar(&revealsAt, "at", "", "evaluate at this instant instead of now")
}

type sectionStatus struct {
	Section         string          `json:"section"`
	RevealAt        string          `json:"reveal_at"`
	EnableCountdown bool            `json:"enable_countdown"`
	Countdown       reveal.Snapshot `json:"countdown"`
}

func sectionStatuses(content *siteconfig.Config, now time.Time) []sectionStatus {
	var out []sectionStatus
	for _, section := range siteconfig.Sections() {
		rv, err := content.Reveal(section)
		if err != nil {
			continue
		}
		st := sectionStatus{
			Section:         string(section),
			RevealAt:        rv.RevealAt,
			EnableCountdown: rv.EnableCountdown,
			Countdown:       reveal.Snapshot{Revealed: true},
		}
		if rv.EnableCountdown {
			st.Countdown = reveal.Evaluate(rv.RevealAt, now)
		}
		out = append(out, st)
	}
	return out
}

func printReveals(w io.Writer, content *siteconfig.Config, now time.Time, asJSON bool) error {
	statuses := sectionStatuses(content, now)

	if asJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal statuses: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTION\tREVEAL AT\tSTATUS")
	for _, st := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", st.Section, st.RevealAt, describe(st))
	}
	return tw.Flush()
}

func describe(st sectionStatus) string {
	switch {
	case !st.EnableCountdown:
		return "visible (countdown disabled)"
	case st.Countdown.Revealed:
		return "revealed"
	}
	c := st.Countdown
	return fmt.Sprintf("%dd %02dh %02dm %02ds", c.Days, c.Hours, c.Minutes, c.Seconds)
}
