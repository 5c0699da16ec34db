package telemetry

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/pthm-cable/neurosnake/config"
)

// Line colors for best, mean and min fitness.
var plotColors = [3]color.Color{
	color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
	color.RGBA{R: 0xff, G: 0x7f, B: 0x0e, A: 0xff},
	color.RGBA{R: 0x2c, G: 0xa0, B: 0x2c, A: 0xff},
}

// OutputManager handles structured run output with CSV logging.
type OutputManager struct {
	dir            string
	generationFile *os.File

	// Track if headers have been written
	generationHeaderWritten bool

	// Kept for the fitness plot
	history []GenerationStats
}

// NewOutputManager creates a new output manager and initializes the output directory.
// Returns nil if dir is empty (output disabled).
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}

	// Create output directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	// Open generations.csv
	f, err := os.Create(filepath.Join(dir, "generations.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating generations.csv: %w", err)
	}
	om.generationFile = f

	return om, nil
}

// WriteConfig saves the current configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	configPath := filepath.Join(om.dir, "config.yaml")
	return cfg.WriteYAML(configPath)
}

// WriteGeneration appends a generation stats record to generations.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats) error {
	if om == nil {
		return nil
	}

	records := []GenerationStats{stats}

	if !om.generationHeaderWritten {
		// First write includes headers
		if err := gocsv.Marshal(records, om.generationFile); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
		om.generationHeaderWritten = true
	} else {
		// Subsequent writes skip headers
		if err := gocsv.MarshalWithoutHeaders(records, om.generationFile); err != nil {
			return fmt.Errorf("writing generation stats: %w", err)
		}
	}

	om.history = append(om.history, stats)
	return nil
}

// WriteHallOfFame saves the hall of fame as JSON.
func (om *OutputManager) WriteHallOfFame(hof *HallOfFame) error {
	if om == nil || hof == nil {
		return nil
	}

	hofPath := filepath.Join(om.dir, "hall_of_fame.json")
	data, err := hof.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling hall of fame: %w", err)
	}

	if err := os.WriteFile(hofPath, data, 0644); err != nil {
		return fmt.Errorf("writing hall_of_fame.json: %w", err)
	}

	return nil
}

// WritePlot draws best, mean and min fitness per generation to fitness.png.
func (om *OutputManager) WritePlot() error {
	if om == nil || len(om.history) == 0 {
		return nil
	}

	best := make(plotter.XYs, len(om.history))
	mean := make(plotter.XYs, len(om.history))
	low := make(plotter.XYs, len(om.history))
	for i, s := range om.history {
		x := float64(s.Generation)
		best[i] = plotter.XY{X: x, Y: s.BestFitness}
		mean[i] = plotter.XY{X: x, Y: s.MeanFitness}
		low[i] = plotter.XY{X: x, Y: s.MinFitness}
	}

	p := plot.New()
	p.Title.Text = "Fitness per generation"
	p.X.Label.Text = "generation"
	p.Y.Label.Text = "fitness"

	for i, series := range []struct {
		name string
		xys  plotter.XYs
	}{
		{"best", best},
		{"mean", mean},
		{"min", low},
	} {
		line, err := plotter.NewLine(series.xys)
		if err != nil {
			return fmt.Errorf("plotting %s fitness: %w", series.name, err)
		}
		line.Color = plotColors[i]
		p.Add(line)
		p.Legend.Add(series.name, line)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filepath.Join(om.dir, "fitness.png")); err != nil {
		return fmt.Errorf("writing fitness.png: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	if om.generationFile != nil {
		return om.generationFile.Close()
	}
	return nil
}
