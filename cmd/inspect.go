package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/boxoffice-cli/internal/mojo"
)

var (
	inspectFormat  string
	inspectYear    int
	inspectNoCache bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect URL",
	Short: "Show how the figures of one release page are decided",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if inspectFormat != "yaml" && inspectFormat != "table" {
			return eris.Errorf("unsupported format %q (want yaml or table)", inspectFormat)
		}

		ctx := cmd.Context()
		env, err := initPipeline(ctx, cfg.Scrape.OutputDir, inspectNoCache)
		if err != nil {
			return err
		}
		defer env.Close()

		scraped, err := env.Mojo.Release(ctx, args[0], inspectYear)
		if err != nil {
			return err
		}

		out, err := formatInspect(scraped, inspectFormat)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func formatInspect(s *mojo.Scraped, format string) (string, error) {
	if format == "yaml" {
		b, err := yaml.Marshal(s)
		if err != nil {
			return "", eris.Wrap(err, "marshal yaml")
		}
		return string(b), nil
	}

	var sb strings.Builder
	if !s.Labeled.Empty() {
		labeled := newTableView("Labeled values", textCol("Label"), textCol("Text"))
		labeled.add("Domestic", s.Labeled.Domestic)
		labeled.add("International", s.Labeled.International)
		labeled.add("Worldwide", s.Labeled.Worldwide)
		sb.WriteString(labeled.String())
	}
	if s.Labeled.Empty() || len(s.Candidates) > 0 {
		cands := newTableView(fmt.Sprintf("Candidates (%d)", len(s.Candidates)),
			numCol("#"), textCol("Text"), numCol("Amount"), numCol("Pos"))
		for i, c := range s.Candidates {
			cands.add(strconv.Itoa(i+1), c.Text, c.Amount.String(), strconv.Itoa(c.Pos))
		}
		sb.WriteString(cands.String())
	}

	fmt.Fprintf(&sb, "Path: %s (policy %s)\n", s.Result.Path, s.Result.PolicyVersion)
	if s.Result.Rejected {
		sb.WriteString("International figure rejected\n")
	}
	for _, n := range s.Result.Notes {
		fmt.Fprintf(&sb, "Note: %s\n", n)
	}

	rec := s.Record
	record := newTableView("Record",
		textCol("Title"), numCol("Domestic"), numCol("International"), numCol("Worldwide"), textCol("ImdbID"))
	record.add(
		rec.Title,
		rec.Figures.Domestic.String(),
		rec.Figures.International.String(),
		rec.Figures.Worldwide.String(),
		rec.ExternalID,
	)
	sb.WriteString(record.String())
	return sb.String(), nil
}

func init() {
	inspectCmd.Flags().StringVar(&inspectFormat, "format", "table", "output format: yaml or table")
	inspectCmd.Flags().IntVar(&inspectYear, "year", 0, "release year recorded on the result")
	inspectCmd.Flags().BoolVar(&inspectNoCache, "no-cache", false, "bypass the page cache")
	rootCmd.AddCommand(inspectCmd)
}
