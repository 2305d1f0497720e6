// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fetch-papers/internal/affiliation"
)

// classification is one line of classify output.
type classification struct {
	Affiliation string `json:"affiliation"`
	affiliation.Result
	Hits []affiliation.Hit `json:"hits,omitempty"`
}

func newClassifyCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <affiliation>...",
		Short: "Classify affiliation strings as industry or academic",
		Long: `Classify runs the affiliation classifier on each argument and prints the
decision, the company name it extracted, and the rule that decided it.
Markers from the config file are applied. Use --explain to list every rule
that fired.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			c := affiliation.FromConfig(cfg.Classifier)
			explain, _ := cmd.Flags().GetBool("explain")
			out := make([]classification, 0, len(args))
			for _, a := range args {
				cl := classification{Affiliation: a, Result: c.Classify(a)}
				if explain {
					cl.Hits = c.Evaluate(a)
				}
				out = append(out, cl)
			}

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			return printClassifications(stdout, out)
		},
	}
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("explain", false, "list every rule that matched")
	return cmd
}

func printClassifications(w io.Writer, out []classification) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Affiliation\tIndustry\tCompany\tRule\tConfidence")
	for _, cl := range out {
		fmt.Fprintf(tw, "%s\t%t\t%s\t%s\t%s\n",
			cl.Affiliation, cl.IsIndustry, cl.CompanyName, cl.Rule, cl.Confidence)
		for _, h := range cl.Hits {
			fmt.Fprintf(tw, "\t  %s (%s)\t%s\t\t%s\n", h.Rule, h.Tag, h.CompanyName, h.Confidence)
		}
	}
	return tw.Flush()
}
