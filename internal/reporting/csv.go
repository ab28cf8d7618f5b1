package reporting

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"credit-signal-lab/internal/domain"
)

const configHeader = "config_id,signal_id,lead_time,threshold_id,family"

// RenderTournamentCSV renders ranked tournament rows as CSV string.
func RenderTournamentCSV(rows []*domain.TournamentResult) string {
	var sb strings.Builder

	// Header
	sb.WriteString("rank," + configHeader + ",signal_column,benchmark,valid,")
	sb.WriteString("is_ann_return,is_ann_vol,is_sharpe,is_sortino,is_calmar,is_max_drawdown,is_avg_drawdown,is_win_rate,is_days,")
	sb.WriteString("oos_ann_return,oos_ann_vol,oos_sharpe,oos_sortino,oos_calmar,oos_max_drawdown,oos_avg_drawdown,oos_win_rate,oos_days,")
	sb.WriteString("oos_trades,oos_turnover\n")

	// Rows
	for i, r := range rows {
		sb.WriteString(fmt.Sprintf("%d,%s,%s,%t,%t,%s,%s,%d,%s\n",
			i+1,
			configCells(r.ConfigID, r.Configuration),
			r.SignalColumn,
			r.Benchmark,
			r.Valid,
			performanceCells(r.InSample),
			performanceCells(r.OutOfSample),
			r.OOSTrades,
			csvFloat(r.OOSTurnover),
		))
	}

	return sb.String()
}

// RenderWalkForwardCSV renders walk-forward rows as CSV string.
func RenderWalkForwardCSV(rows []*domain.WalkForwardRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",year,sharpe,ann_return,ann_vol,benchmark_sharpe,excess_sharpe,days\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%s,%s,%s,%s,%s,%d\n",
			configCells(r.ConfigID, r.Configuration),
			r.Year,
			csvFloat(r.Sharpe),
			csvFloat(r.AnnReturn),
			csvFloat(r.AnnVol),
			csvFloat(r.BenchmarkSharpe),
			csvFloat(r.ExcessSharpe),
			r.Days,
		))
	}
	return sb.String()
}

// RenderBootstrapCSV renders bootstrap rows as CSV string.
func RenderBootstrapCSV(rows []*domain.BootstrapRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",observed_sharpe,boot_mean_sharpe,ci_lower,ci_upper,p_value,significant,resamples,seed,days\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%t,%d,%d,%d\n",
			configCells(r.ConfigID, r.Configuration),
			csvFloat(r.ObservedSharpe),
			csvFloat(r.BootMeanSharpe),
			csvFloat(r.CILower),
			csvFloat(r.CIUpper),
			csvFloat(r.PValue),
			r.Significant,
			r.Resamples,
			r.Seed,
			r.Days,
		))
	}
	return sb.String()
}

// RenderTransactionCostsCSV renders cost rows as CSV string.
func RenderTransactionCostsCSV(rows []*domain.TransactionCostRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",cost_bps,sharpe,ann_return,days\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d\n",
			configCells(r.ConfigID, r.Configuration),
			csvFloat(r.CostBps),
			csvFloat(r.Sharpe),
			csvFloat(r.AnnReturn),
			r.Days,
		))
	}
	return sb.String()
}

// RenderBreakevenCSV renders breakeven rows as CSV string.
func RenderBreakevenCSV(rows []*domain.BreakevenRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",breakeven_bps,trade_rate,gross_mean\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s\n",
			configCells(r.ConfigID, r.Configuration),
			csvFloat(r.BreakevenBps),
			csvFloat(r.TradeRate),
			csvFloat(r.GrossMean),
		))
	}
	return sb.String()
}

// RenderDecayCSV renders signal decay rows as CSV string.
func RenderDecayCSV(rows []*domain.DecayRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",extra_delay,total_lead,sharpe,ann_return,days\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%d,%d,%s,%s,%d\n",
			configCells(r.ConfigID, r.Configuration),
			r.ExtraDelay,
			r.TotalLead,
			csvFloat(r.Sharpe),
			csvFloat(r.AnnReturn),
			r.Days,
		))
	}
	return sb.String()
}

// RenderStressCSV renders stress rows as CSV string.
func RenderStressCSV(rows []*domain.StressRow) string {
	var sb strings.Builder
	sb.WriteString(configHeader + ",window,start,end,sharpe,ann_return,max_drawdown,")
	sb.WriteString("benchmark_sharpe,benchmark_ann_return,benchmark_max_drawdown,excess_sharpe,days\n")
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%s,%d\n",
			configCells(r.ConfigID, r.Configuration),
			r.Window,
			r.Start.Format(time.DateOnly),
			r.End.Format(time.DateOnly),
			csvFloat(r.Sharpe),
			csvFloat(r.AnnReturn),
			csvFloat(r.MaxDrawdown),
			csvFloat(r.BenchmarkSharpe),
			csvFloat(r.BenchmarkAnnReturn),
			csvFloat(r.BenchmarkMaxDrawdown),
			csvFloat(r.ExcessSharpe),
			r.Days,
		))
	}
	return sb.String()
}

func configCells(id string, c domain.Configuration) string {
	return fmt.Sprintf("%s,%s,%d,%s,%s", id, c.SignalID, c.LeadTime, c.ThresholdID, c.Family)
}

func performanceCells(p domain.PerformanceRecord) string {
	return strings.Join([]string{
		csvFloat(p.AnnReturn),
		csvFloat(p.AnnVol),
		csvFloat(p.Sharpe),
		csvFloat(p.Sortino),
		csvFloat(p.Calmar),
		csvFloat(p.MaxDrawdown),
		csvFloat(p.AvgDrawdown),
		csvFloat(p.WinRate),
		strconv.Itoa(p.Days),
	}, ",")
}

// csvFloat writes undefined values as empty cells so readers see them as missing.
func csvFloat(v float64) string {
	switch {
	case math.IsNaN(v):
		return ""
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
