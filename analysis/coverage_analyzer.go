package analysis

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/zeu5/knight-rl/core"
	"github.com/zeu5/knight-rl/util"
)

// visitCounter is implemented by states that know how many cells they cover
type visitCounter interface {
	Visited() int
}

type coverageDataset struct {
	Timesteps    []int
	Visited      []int
	Successes    []int
	UniqueStates []int
}

func (c *coverageDataset) Copy() *coverageDataset {
	return &coverageDataset{
		Timesteps:    util.CopyIntSlice(c.Timesteps),
		Visited:      util.CopyIntSlice(c.Visited),
		Successes:    util.CopyIntSlice(c.Successes),
		UniqueStates: util.CopyIntSlice(c.UniqueStates),
	}
}

// CoverageAnalyzer records, per episode, how many cells were visited, how
// many episodes succeeded so far and how many distinct states were seen.
type CoverageAnalyzer struct {
	states    map[string]bool
	successes int
	dataset   *coverageDataset
}

var _ core.Analyzer = &CoverageAnalyzer{}

func NewCoverageAnalyzer() *CoverageAnalyzer {
	return &CoverageAnalyzer{
		states: make(map[string]bool),
		dataset: &coverageDataset{
			Timesteps:    make([]int, 0),
			Visited:      make([]int, 0),
			Successes:    make([]int, 0),
			UniqueStates: make([]int, 0),
		},
	}
}

func (c *CoverageAnalyzer) Reset() {
	c.states = make(map[string]bool)
	c.successes = 0
	c.dataset = &coverageDataset{
		Timesteps:    make([]int, 0),
		Visited:      make([]int, 0),
		Successes:    make([]int, 0),
		UniqueStates: make([]int, 0),
	}
}

func (c *CoverageAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if trace.Error() != nil {
		return
	}
	for i := 0; i < trace.Len(); i++ {
		step := trace.Step(i)
		c.states[step.State.Hash()] = true
		c.states[step.NextState.Hash()] = true
	}
	visited := trace.Len() + 1
	if last := trace.Last(); last != nil {
		if vc, ok := last.NextState.(visitCounter); ok {
			visited = vc.Visited()
		}
	}
	if trace.Succeeded() {
		c.successes++
	}

	lastTimeStep := 0
	if len(c.dataset.Timesteps) > 0 {
		lastTimeStep = c.dataset.Timesteps[len(c.dataset.Timesteps)-1]
	}
	c.dataset.Timesteps = append(c.dataset.Timesteps, lastTimeStep+trace.Len())
	c.dataset.Visited = append(c.dataset.Visited, visited)
	c.dataset.Successes = append(c.dataset.Successes, c.successes)
	c.dataset.UniqueStates = append(c.dataset.UniqueStates, len(c.states))
}

func (c *CoverageAnalyzer) DataSet() core.DataSet {
	return c.dataset.Copy()
}

type CoverageAnalyzerConstructor struct{}

func NewCoverageAnalyzerConstructor() *CoverageAnalyzerConstructor {
	return &CoverageAnalyzerConstructor{}
}

var _ core.AnalyzerConstructor = &CoverageAnalyzerConstructor{}

func (c *CoverageAnalyzerConstructor) NewAnalyzer(_ string, _ int) core.Analyzer {
	return NewCoverageAnalyzer()
}

// CoverageComparator saves the coverage data sets of a run as JSON and as an
// HTML page of line charts.
type CoverageComparator struct {
	savePath string
}

var _ core.Comparator = &CoverageComparator{}

func NewCoverageComparator(savePath string) *CoverageComparator {
	return &CoverageComparator{
		savePath: savePath,
	}
}

func (c *CoverageComparator) Compare(experimentNames []string, datasets []core.DataSet) {
	out := make(map[string]*coverageDataset)
	for i, name := range experimentNames {
		ds, ok := datasets[i].(*coverageDataset)
		if !ok {
			continue
		}
		out[name] = ds
	}

	util.SaveJson(path.Join(c.savePath, "coverage.json"), out)
	if err := c.plot(experimentNames, out); err != nil {
		fmt.Fprintf(os.Stderr, "plotting coverage: %s\n", err)
	}
}

func (c *CoverageComparator) plot(names []string, data map[string]*coverageDataset) error {
	page := components.NewPage()
	page.AddCharts(
		lineChart("Cells visited per episode", names, data, func(d *coverageDataset) []int { return d.Visited }),
		lineChart("Covered episodes", names, data, func(d *coverageDataset) []int { return d.Successes }),
		lineChart("Distinct states", names, data, func(d *coverageDataset) []int { return d.UniqueStates }),
	)

	if err := os.MkdirAll(c.savePath, 0755); err != nil {
		return err
	}
	f, err := os.Create(path.Join(c.savePath, "coverage.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	return page.Render(f)
}

func lineChart(title string, names []string, data map[string]*coverageDataset, series func(*coverageDataset) []int) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: title,
		}),
	)

	episodes := 0
	for _, d := range data {
		if len(series(d)) > episodes {
			episodes = len(series(d))
		}
	}
	xAxis := make([]string, episodes)
	for i := range xAxis {
		xAxis[i] = strconv.Itoa(i)
	}
	line.SetXAxis(xAxis)

	for _, name := range names {
		d, ok := data[name]
		if !ok {
			continue
		}
		items := make([]opts.LineData, 0, len(series(d)))
		for _, v := range series(d) {
			items = append(items, opts.LineData{Value: v})
		}
		line.AddSeries(name, items)
	}
	return line
}

type CoverageComparatorConstructor struct {
	savePath string
}

var _ core.ComparatorConstructor = &CoverageComparatorConstructor{}

func (c *CoverageComparatorConstructor) NewComparator(run int) core.Comparator {
	return NewCoverageComparator(path.Join(c.savePath, strconv.Itoa(run)))
}

func NewCoverageComparatorConstructor(savePath string) *CoverageComparatorConstructor {
	return &CoverageComparatorConstructor{
		savePath: savePath,
	}
}
