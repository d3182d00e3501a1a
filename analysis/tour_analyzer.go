package analysis

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/zeu5/knight-rl/core"
)

// TourAnalyzer writes every successful episode to a file under tours/
type TourAnalyzer struct {
	savePath string
	exp      string
	tours    int
}

var _ core.Analyzer = &TourAnalyzer{}

func NewTourAnalyzer(savePath string) *TourAnalyzer {
	if _, err := os.Stat(path.Join(savePath, "tours")); os.IsNotExist(err) {
		os.MkdirAll(path.Join(savePath, "tours"), 0755)
	}
	return &TourAnalyzer{
		savePath: path.Join(savePath, "tours"),
	}
}

func (ta *TourAnalyzer) Analyze(eCtx *core.EpisodeContext, trace *core.Trace) {
	if !trace.Succeeded() {
		return
	}
	ta.tours++

	fileName := path.Join(ta.savePath, fmt.Sprintf("%d_tour_%d.txt", eCtx.Run, eCtx.Episode))
	if ta.exp != "" {
		fileName = path.Join(ta.savePath, fmt.Sprintf("%d_%s_tour_%d.txt", eCtx.Run, ta.exp, eCtx.Episode))
	}
	os.WriteFile(fileName, []byte(tourToString(trace)), 0644)
}

func tourToString(trace *core.Trace) string {
	moves := make([]string, trace.Len())
	for i := 0; i < trace.Len(); i++ {
		moves[i] = actionToString(trace.Step(i).Action)
	}
	out := fmt.Sprintf("Moves: %s\n", strings.Join(moves, " "))
	if last := trace.Last(); last != nil {
		out += fmt.Sprintf("Final State: %s\n", stateToString(last.NextState))
	}
	return out
}

// Tours is the number of successful episodes seen since the last reset
func (ta *TourAnalyzer) Tours() int {
	return ta.tours
}

func (*TourAnalyzer) DataSet() core.DataSet {
	return nil
}

func (ta *TourAnalyzer) Reset() {
	ta.tours = 0
}

type TourAnalyzerConstructor struct {
	SavePath string
}

var _ core.AnalyzerConstructor = &TourAnalyzerConstructor{}

func NewTourAnalyzerConstructor(savePath string) *TourAnalyzerConstructor {
	return &TourAnalyzerConstructor{
		SavePath: savePath,
	}
}

func (c *TourAnalyzerConstructor) NewAnalyzer(exp string, _ int) core.Analyzer {
	a := NewTourAnalyzer(c.SavePath)
	a.exp = exp
	return a
}
