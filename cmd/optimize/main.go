// Command optimize tunes crossover rate, mutation rate, tournament size and
// initial weight scale with CMA-ES. Each candidate is scored by running short
// evolutions over several seeds.
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/neurosnake/config"
)

// formatDuration formats a duration as 1h02m03s, or 2m03s under an hour.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

// tracker logs every CMA-ES evaluation and keeps the best candidate.
type tracker struct {
	params   *ParamVector
	eval     *FitnessEvaluator
	out      *csv.Writer
	maxEvals int
	start    time.Time

	count       int
	bestFitness float64
	bestParams  []float64 // clamped raw values
}

func newTracker(params *ParamVector, eval *FitnessEvaluator, out *csv.Writer, maxEvals int) *tracker {
	header := []string{"eval", "fitness", "mean_best"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	out.Write(header)

	return &tracker{
		params:      params,
		eval:        eval,
		out:         out,
		maxEvals:    maxEvals,
		start:       time.Now(),
		bestFitness: 1e18,
	}
}

// objective scores a normalized point; CMA-ES minimizes it.
func (tr *tracker) objective(x []float64) float64 {
	raw := tr.params.Clamp(tr.params.Denormalize(x))
	fitness := tr.eval.Evaluate(raw)
	tr.count++

	if fitness < tr.bestFitness {
		tr.bestFitness = fitness
		tr.bestParams = raw
	}

	meanBest := tr.eval.LastMeanBest()
	row := []string{strconv.Itoa(tr.count), fmt.Sprintf("%.6f", fitness), fmt.Sprintf("%.6f", meanBest)}
	for _, v := range raw {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	tr.out.Write(row)
	tr.out.Flush()

	elapsed := time.Since(tr.start)
	eta := time.Duration(max(tr.maxEvals-tr.count, 0)) * (elapsed / time.Duration(tr.count))
	fmt.Printf("Eval %d/%d: champion=%.1f (best=%.1f) | elapsed: %s, ETA: %s\n",
		tr.count, tr.maxEvals, meanBest, -tr.bestFitness,
		formatDuration(elapsed), formatDuration(eta))

	return fitness
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	generations := flag.Int("generations", 20, "Generations per evolution run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if *seeds < 1 || *generations < 1 {
		log.Fatal("--seeds and --generations must be positive")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := baseCfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	params := NewParamVector()
	evalSeeds := make([]int64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, *generations, evalSeeds, baseCfg)

	logFile, err := os.Create(filepath.Join(*outputDir, "optimize_log.csv"))
	if err != nil {
		log.Fatalf("failed to create log file: %v", err)
	}
	defer logFile.Close()
	logWriter := csv.NewWriter(logFile)
	defer logWriter.Flush()

	tr := newTracker(params, evaluator, logWriter, *maxEvals)

	popSize := *population
	if popSize == 0 {
		popSize = 4 + 3*params.Dim()/2
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}
	settings := &optimize.Settings{FuncEvaluations: *maxEvals}

	fmt.Printf("Starting CMA-ES over %d GA knobs, population=%d, max_evals=%d\n", params.Dim(), popSize, *maxEvals)
	fmt.Printf("Seeds per evaluation: %d, generations per run: %d\n", *seeds, *generations)

	// Start from the loaded config in normalized space
	initX := params.Normalize(params.ExtractFromConfig(baseCfg))
	result, err := optimize.Minimize(optimize.Problem{Func: tr.objective}, initX, settings, method)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}

	best := tr.bestParams
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		log.Fatal("no evaluation completed")
	}

	fmt.Printf("\nOptimization complete after %d evaluations in %s\n", tr.count, formatDuration(time.Since(tr.start)))
	fmt.Printf("Best champion fitness: %.1f\n", -tr.bestFitness)
	fmt.Println("\nBest parameters:")
	for i, spec := range params.Specs {
		fmt.Printf("  %s: %.6f\n", spec.Name, best[i])
	}

	if err := writeResults(*outputDir, *configPath, params, best, evaluator); err != nil {
		log.Fatal(err)
	}
}

// writeResults saves the tuned config and the hall of fame of the best
// evaluation.
func writeResults(dir, configPath string, params *ParamVector, best []float64, evaluator *FitnessEvaluator) error {
	bestCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(bestCfg, best)

	cfgPath := filepath.Join(dir, "best_config.yaml")
	if err := bestCfg.WriteYAML(cfgPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	fmt.Printf("\nBest config saved to: %s\n", cfgPath)

	hof := evaluator.BestHallOfFame()
	if hof == nil {
		return nil
	}
	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}
	hofPath := filepath.Join(dir, "hall_of_fame.json")
	if err := os.WriteFile(hofPath, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	fmt.Printf("Hall of fame saved to: %s\n", hofPath)
	return nil
}
