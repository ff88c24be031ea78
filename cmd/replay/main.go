// Command replay runs a recorded detector frame file (one JSON frame per
// line) through a fresh estimation engine and prints the resulting
// measurement. With -plot it also renders the hip-Y trace against the
// calibrated baseline, which is the quickest way to sanity-check a session
// recording offline.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/apexmetrics/vertical.report/internal/config"
	"github.com/apexmetrics/vertical.report/internal/detector"
	"github.com/apexmetrics/vertical.report/internal/pose"
	"github.com/apexmetrics/vertical.report/internal/units"
)

var (
	input       = flag.String("input", "", "Path to recorded frames file (one JSON frame per line)")
	heightCm    = flag.Float64("height", 0, "Athlete standing height in cm (required)")
	eyeToVertex = flag.Float64("eye-to-vertex", 0, "Eye-line to head-vertex offset in cm (optional)")
	reachCm     = flag.Float64("reach", 0, "Heel-to-hand standing reach in cm (optional)")
	plotFile    = flag.String("plot", "", "Write a hip-Y trace PNG to this path")
	configPath  = flag.String("config", "", "Path to tuning config JSON")
	lengthUnits = flag.String("units", units.CM, "Output units (cm, in, m)")
)

func main() {
	flag.Parse()

	if *input == "" {
		log.Fatal("-input is required")
	}
	if *heightCm <= 0 {
		log.Fatal("-height is required and must be positive")
	}
	if !units.IsValid(*lengthUnits) {
		log.Fatalf("invalid units %q; valid values: %s", *lengthUnits, units.GetValidUnitsString())
	}

	tuning := config.MustLoadDefaultConfig()
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	engine := pose.NewEngine(pose.EngineConfigFromTuning(tuning), nil)
	defer engine.Close()

	anthro := pose.Anthropometry{HeightCm: *heightCm}
	if *eyeToVertex > 0 {
		anthro.EyeToHeadVertexCm = eyeToVertex
	}
	if *reachCm > 0 {
		anthro.HeelToHandReachCm = reachCm
	}
	engine.SetAnthropometry(anthro)

	f, err := os.Open(*input)
	if err != nil {
		log.Fatalf("failed to open input: %v", err)
	}
	defer f.Close()

	type hipSample struct {
		frame int
		hipY  float64
	}
	var trace []hipSample
	var baselineHipY float64

	scan := bufio.NewScanner(f)
	scan.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scan.Scan() {
		lineNo++
		frame, err := detector.ParseFrame(scan.Text())
		if errors.Is(err, detector.ErrNotAFrame) {
			continue
		}
		if err != nil {
			log.Printf("line %d: %v", lineNo, err)
			continue
		}

		snap := engine.ProcessFrame(frame)
		if snap.PoseDetected {
			trace = append(trace, hipSample{frame: int(snap.FrameCount), hipY: snap.CurrentHipYPx})
		}
		if snap.BaselineHipYPx > 0 {
			baselineHipY = snap.BaselineHipYPx
		}
	}
	if err := scan.Err(); err != nil {
		log.Fatalf("failed to read input: %v", err)
	}

	snap := engine.Snapshot()
	m := engine.Measurement()

	fmt.Printf("frames processed:  %d\n", snap.FrameCount)
	fmt.Printf("final phase:       %s\n", snap.Phase)
	if scale := engine.Scale(); scale != nil {
		fmt.Printf("px-to-cm scale:    %.5f (precise: %v)\n", scale.PxToCm, scale.IsPrecise)
	} else {
		fmt.Println("px-to-cm scale:    never calibrated")
	}
	fmt.Printf("max jump height:   %.1f %s  [%.1f, %.1f]\n",
		units.ConvertLength(m.MaxHeightCm, *lengthUnits), *lengthUnits,
		units.ConvertLength(m.MaxHeightLowerCm, *lengthUnits),
		units.ConvertLength(m.MaxHeightUpperCm, *lengthUnits))
	if m.MaxSpikeReachCm > 0 {
		fmt.Printf("max spike reach:   %.1f %s  [%.1f, %.1f]\n",
			units.ConvertLength(m.MaxSpikeReachCm, *lengthUnits), *lengthUnits,
			units.ConvertLength(m.MaxSpikeReachLowerCm, *lengthUnits),
			units.ConvertLength(m.MaxSpikeReachUpperCm, *lengthUnits))
	}

	if *plotFile == "" {
		return
	}
	if len(trace) == 0 {
		log.Fatal("no pose-bearing frames to plot")
	}

	p := plot.New()
	p.Title.Text = "Hip Height Trace"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Hip Y (px, image coordinates)"
	// Image Y grows downward; flip the axis so jumps go up on the page.
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}

	hipPts := make(plotter.XYs, len(trace))
	for i, s := range trace {
		hipPts[i] = plotter.XY{X: float64(s.frame), Y: s.hipY}
	}
	hipLine, err := plotter.NewLine(hipPts)
	if err != nil {
		log.Fatalf("failed to build hip trace: %v", err)
	}
	hipLine.Width = vg.Points(1)
	p.Add(hipLine)
	p.Legend.Add("hip midpoint", hipLine)

	if baselineHipY > 0 {
		basePts := plotter.XYs{
			{X: float64(trace[0].frame), Y: baselineHipY},
			{X: float64(trace[len(trace)-1].frame), Y: baselineHipY},
		}
		baseLine, err := plotter.NewLine(basePts)
		if err != nil {
			log.Fatalf("failed to build baseline trace: %v", err)
		}
		baseLine.Width = vg.Points(1)
		baseLine.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
		p.Add(baseLine)
		p.Legend.Add("calibrated baseline", baseLine)
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(14*vg.Inch, 6*vg.Inch, *plotFile); err != nil {
		log.Fatalf("failed to save plot: %v", err)
	}
	log.Printf("wrote hip trace to %s", *plotFile)
}
