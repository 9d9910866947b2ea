package main

import (
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/xlab/treeprint"

	"github.com/sarchlab/rvsim/timing/core"
)

// statsTree lays out the run statistics as a tree.
func statsTree(stats core.Stats, strategy string) treeprint.Tree {
	tree := treeprint.New()
	tree.SetValue("Statistics")

	run := tree.AddBranch("Execution")
	run.AddMetaNode(stats.Instructions, "instructions")
	run.AddMetaNode(stats.Cycles, "cycles")
	run.AddMetaNode(fmt.Sprintf("%.4f", stats.CPI()), "cycles per instruction")

	cycles := run.AddBranch("Cycle breakdown")
	cycles.AddMetaNode(stats.Stalls, "stall")
	cycles.AddMetaNode(stats.PenaltyCycles, "latency penalty")
	cycles.AddMetaNode(stats.MemoryCycles, "memory")

	hazards := tree.AddBranch("Hazards")
	hazards.AddMetaNode(stats.ControlHazards, "control")
	hazards.AddMetaNode(stats.DataHazards, "data")
	hazards.AddMetaNode(stats.MemoryHazards, "memory")

	branches := tree.AddBranch(fmt.Sprintf("Branch prediction (%s)", strategy))
	branches.AddMetaNode(stats.BranchCorrect, "correct")
	branches.AddMetaNode(stats.BranchMispredictions, "mispredicted")
	branches.AddMetaNode(fmt.Sprintf("%.4f", stats.BranchAccuracy()), "accuracy")

	if stats.Cache != nil {
		cache := tree.AddBranch("Data cache")
		cache.AddMetaNode(stats.Cache.Reads, "reads")
		cache.AddMetaNode(stats.Cache.Writes, "writes")
		cache.AddMetaNode(stats.Cache.Hits, "hits")
		cache.AddMetaNode(stats.Cache.Misses, "misses")
		cache.AddMetaNode(stats.Cache.Evictions, "evictions")
		cache.AddMetaNode(stats.Cache.Writebacks, "writebacks")
	}

	return tree
}

func barData(values ...uint64) []opts.BarData {
	data := make([]opts.BarData, 0, len(values))
	for _, v := range values {
		data = append(data, opts.BarData{Value: v})
	}
	return data
}

func cycleChart(stats core.Stats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Cycles",
			Subtitle: fmt.Sprintf("%d cycles, CPI %.4f", stats.Cycles, stats.CPI()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	busy := stats.Cycles - stats.Stalls - stats.PenaltyCycles - stats.MemoryCycles
	if busy > stats.Cycles {
		busy = 0
	}
	bar.SetXAxis([]string{"pipeline", "stall", "latency penalty", "memory"}).
		AddSeries("cycles", barData(busy, stats.Stalls, stats.PenaltyCycles, stats.MemoryCycles))

	return bar
}

func hazardChart(stats core.Stats) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Hazards"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis([]string{"control", "data", "memory"}).
		AddSeries("hazards", barData(stats.ControlHazards, stats.DataHazards, stats.MemoryHazards))

	return bar
}

func branchChart(stats core.Stats, strategy string) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Branch prediction",
			Subtitle: fmt.Sprintf("%s, accuracy %.4f", strategy, stats.BranchAccuracy()),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("branches", []opts.PieData{
		{Name: "correct", Value: stats.BranchCorrect},
		{Name: "mispredicted", Value: stats.BranchMispredictions},
	}).SetSeriesOptions(
		charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Formatter: "{b}: {c}"}),
	)

	return pie
}

// writeReport renders the statistics as an HTML page of charts.
func writeReport(w io.Writer, stats core.Stats, strategy string) error {
	page := components.NewPage()
	page.PageTitle = "rvsim report"
	page.AddCharts(
		cycleChart(stats),
		hazardChart(stats),
		branchChart(stats, strategy),
	)
	return page.Render(w)
}

func writeReportFile(path string, stats core.Stats, strategy string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	if err := writeReport(f, stats, strategy); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
