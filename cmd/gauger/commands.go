package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/gauger/internal/service"
	"github.com/yourusername/gauger/internal/statistics"
)

type tickerFlags struct {
	window int
	period string
}

func (f *tickerFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.window, "window", "w", 200, "Moving-average window in trading days")
	cmd.Flags().StringVarP(&f.period, "period", "p", "", "History to analyse, e.g. 1y, 10y, ytd, max (defaults to analysis.period)")
}

func (f *tickerFlags) resolvedPeriod() string {
	if f.period == "" {
		return cfg.Analysis.Period
	}
	return f.period
}

func newWinRatesCmd() *cobra.Command {
	var (
		period  string
		start   string
		end     string
		key     string
		persist bool
	)

	cmd := &cobra.Command{
		Use:   "win-rates",
		Short: "Compute win rates for every ticker and window",
		Long: `Computes the probability that the moving-average ratio sits below its latest
value for every ticker in the universe and every configured window.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			startDate, endDate := start, end
			if startDate == "" {
				startDate, endDate = period, ""
				if startDate == "" {
					startDate = cfg.Analysis.Period
				}
			}

			table, err := analyzer.WinRatesAll(ctx, startDate, endDate, key)
			if err != nil {
				return err
			}

			if persist {
				db, repos, err := openRepositories(ctx)
				if err != nil {
					return err
				}
				defer db.Close()

				snapshots := service.NewSnapshotService(analyzer, repos.Snapshot, startDate, key, appLog)
				if err := snapshots.Persist(ctx, table); err != nil {
					return err
				}
			}

			return render(table)
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", "", "History to analyse, e.g. 10y (ignored when --start is set)")
	cmd.Flags().StringVar(&start, "start", "", "First date to fetch, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last date to fetch, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVarP(&key, "key", "k", "", "Price field to use: Open, High, Low, Close or Volume")
	cmd.Flags().BoolVar(&persist, "persist", false, "Store the computed win rates as snapshots")
	return cmd
}

func newStockDataCmd() *cobra.Command {
	var (
		all    bool
		ma     bool
		start  string
		end    string
		period string
	)

	cmd := &cobra.Command{
		Use:   "stock-data [tickers...]",
		Short: "Print price history with moving-average ratio columns",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !all && len(args) == 0 {
				return fmt.Errorf("at least one ticker is required unless --all is set")
			}

			startDate, endDate := start, end
			if startDate == "" {
				startDate, endDate = period, ""
				if startDate == "" {
					startDate = cfg.Analysis.Period
				}
			}

			if all {
				frames, err := analyzer.AllStockData(cmd.Context(), startDate, endDate, ma)
				if err != nil {
					return err
				}
				return render(frames)
			}

			frames, err := analyzer.StockData(cmd.Context(), args, startDate, endDate, ma)
			if err != nil {
				return err
			}
			return render(frames)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Use every ticker in the universe")
	cmd.Flags().BoolVar(&ma, "ma", false, "Include the raw moving-average columns")
	cmd.Flags().StringVar(&start, "start", "", "First date to fetch, YYYY-MM-DD")
	cmd.Flags().StringVar(&end, "end", "", "Last date to fetch, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVarP(&period, "period", "p", "", "History to fetch when --start is not set")
	return cmd
}

func newPercentileCmd() *cobra.Command {
	var flags tickerFlags

	cmd := &cobra.Command{
		Use:   "percentile TICKER",
		Short: "Show where the latest ratio sits in its own distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := analyzer.TickerPercentile(cmd.Context(), args[0], flags.window, flags.resolvedPeriod())
			if err != nil {
				return err
			}
			return render(struct {
				Ticker     string  `json:"ticker" yaml:"ticker"`
				Window     int     `json:"window" yaml:"window"`
				Ratio      float64 `json:"price_ratio" yaml:"price_ratio"`
				WinRate    float64 `json:"win_rate" yaml:"win_rate"`
				Percentile float64 `json:"price_ratio_percentile" yaml:"price_ratio_percentile"`
				Days       int     `json:"days" yaml:"days"`
			}{args[0], flags.window, result.Ratio, result.WinRate, result.Percentile, len(result.Dates)})
		},
	}

	flags.register(cmd)
	return cmd
}

func newBetScheduleCmd() *cobra.Command {
	var (
		flags    tickerFlags
		minBet   float64
		maxBet   float64
		bankroll float64
	)

	cmd := &cobra.Command{
		Use:   "bet-schedule TICKER",
		Short: "Derive a martingale bet schedule from the ratio distribution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			betCfg := statistics.BetConfig{
				MinBet:           cfg.Analysis.MinBet,
				MaxBet:           cfg.Analysis.MaxBet,
				NSamplesIntegral: cfg.Analysis.NSamplesIntegral,
			}
			if cmd.Flags().Changed("min-bet") {
				betCfg.MinBet = minBet
			}
			if cmd.Flags().Changed("max-bet") {
				betCfg.MaxBet = maxBet
			}
			if !cmd.Flags().Changed("bankroll") {
				bankroll = cfg.Analysis.Bankroll
			}

			schedule, err := analyzer.TickerBetSchedule(cmd.Context(), args[0], flags.window, flags.resolvedPeriod(), betCfg)
			if err != nil {
				return err
			}

			if bankroll <= 0 {
				return render(schedule)
			}

			planner, err := service.NewStakePlanner(decimal.NewFromFloat(bankroll), schedule)
			if err != nil {
				return err
			}
			return render(struct {
				Bankroll decimal.Decimal `json:"bankroll" yaml:"bankroll"`
				Stakes   []service.Stake `json:"stakes" yaml:"stakes"`
				Total    decimal.Decimal `json:"total" yaml:"total"`
			}{planner.Bankroll(), planner.Stakes(), planner.Total()})
		},
	}

	flags.register(cmd)
	cmd.Flags().Float64Var(&minBet, "min-bet", statistics.DefaultMinBet, "Smallest bet fraction")
	cmd.Flags().Float64Var(&maxBet, "max-bet", statistics.DefaultMaxBet, "Largest bet fraction; max/min must be a power of 2")
	cmd.Flags().Float64Var(&bankroll, "bankroll", 0, "Convert fractions into stakes for this bankroll")
	return cmd
}

func newDistributionCmd() *cobra.Command {
	var (
		flags      tickerFlags
		points     int
		dropThresh float64
	)

	cmd := &cobra.Command{
		Use:   "distribution TICKER",
		Short: "Sample the ratio density for plotting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("points") && cfg.Analysis.DistributionPoints > 0 {
				points = cfg.Analysis.DistributionPoints
			}
			if !cmd.Flags().Changed("drop-thresh") {
				dropThresh = cfg.Analysis.DropThreshold
			}

			result, err := analyzer.TickerDistribution(cmd.Context(), args[0], flags.window, flags.resolvedPeriod(), points, dropThresh)
			if err != nil {
				return err
			}
			return render(result)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVarP(&points, "points", "n", statistics.DefaultDistributionPoints, "Number of evaluation points")
	cmd.Flags().Float64Var(&dropThresh, "drop-thresh", statistics.DefaultDropThreshold, "Drop points whose density is below this value")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the snapshot schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openRepositories(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			appLog.Info("Schema is up to date")
			return nil
		},
	}
}

func newPruneCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = cfg.Scheduler.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention must be at least one day")
			}

			db, repos, err := openRepositories(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			deleted, err := repos.Snapshot.DeleteBefore(cmd.Context(), cutoff)
			if err != nil {
				return err
			}

			appLog.WithFields(logrus.Fields{
				"cutoff":  cutoff.Format(time.RFC3339),
				"deleted": deleted,
			}).Info("Pruned snapshots")
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 0, "Keep this many days of snapshots (defaults to scheduler.retention_days)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "gauger %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
		},
	}
}
