package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"labstock/internal/config"
	"labstock/internal/core"
	"labstock/internal/report"
	"labstock/pkg/domain"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:          "seed",
		Long:         "Load the starter inventory into an empty store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), config.Global(), nil)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()
			return loadSeed(cmd.Context(), a)
		},
	}
}

type planFlags struct {
	currency string
	orgName  string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.currency, "currency", "", "display currency (USD or TWD); defaults to CURRENCY")
	cmd.Flags().StringVar(&f.orgName, "org", "", "organisation name on the report; defaults to ORG_NAME")
}

func (f *planFlags) plan(cmd *cobra.Command) (core.ReorderPlan, error) {
	cur := domain.Currency(strings.ToUpper(f.currency))
	if cur != "" && cur != domain.CurrencyUSD && cur != domain.CurrencyTWD {
		return core.ReorderPlan{}, fmt.Errorf("unsupported currency %q", f.currency)
	}
	a, err := openApp(cmd.Context(), config.Global(), nil)
	if err != nil {
		return core.ReorderPlan{}, err
	}
	defer func() { _ = a.Close() }()
	return a.svc.Reorder(cmd.Context(), domain.AppSettings{Currency: cur, OrgName: f.orgName})
}

func newReorderCommand() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:          "reorder",
		Long:         "Print the chemicals at or below their minimum level and the cost to restock them",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := flags.plan(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if plan.Empty() {
				_, err := fmt.Fprintln(out, report.NoItemsMessage)
				return err
			}
			for _, item := range plan.Items {
				fmt.Fprintf(out, "%-28s %5s/%-3d order %3d  %s%s\n",
					item.Name, item.CurrentStock, item.MinLevel, item.SuggestedQty,
					plan.Symbol, item.LineCost().StringFixed(2))
			}
			_, err = fmt.Fprintf(out, "total %s%s\n", plan.Symbol, plan.TotalCost.StringFixed(2))
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newReportCommand() *cobra.Command {
	var (
		flags  planFlags
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:          "report",
		Long:         "Render the procurement report as markdown or xlsx",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var gen report.Generator
			switch report.Format(format) {
			case report.FormatMarkdown:
				gen = report.MarkdownGenerator{}
			case report.FormatXLSX:
				gen = report.XLSXGenerator{}
			case report.FormatRemote:
				conf := config.Global()
				if conf.Report.Endpoint == "" {
					return fmt.Errorf("REPORT_ENDPOINT is not set")
				}
				gen = report.NewHTTPGenerator(conf.ReportConfig())
			default:
				return fmt.Errorf("%w: %s", report.ErrUnknownFormat, format)
			}
			plan, err := flags.plan(cmd)
			if err != nil {
				return err
			}
			doc, err := gen.Generate(cmd.Context(), report.NewRequest(plan, time.Now()))
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}
			_, err = w.Write(doc.Body)
			return err
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&format, "format", string(report.FormatMarkdown), "markdown, xlsx or remote")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	return cmd
}
