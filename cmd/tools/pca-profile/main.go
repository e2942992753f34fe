// Command pca-profile plots the track-vertex distance as the vertex is
// swept along an axis, as a quick visual check that the closest
// approach estimate behaves (zero at the trajectory, monotonic away
// from it).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/hepflow/vertexing/internal/config"
	"github.com/hepflow/vertexing/internal/field"
	"github.com/hepflow/vertexing/internal/propagation"
	"github.com/hepflow/vertexing/internal/track"
	"github.com/hepflow/vertexing/internal/vertexing"
)

func main() {
	d0 := flag.Float64("d0", 0, "track d0 in mm")
	z0 := flag.Float64("z0", 0, "track z0 in mm")
	phi := flag.Float64("phi", 0, "track phi in rad")
	theta := flag.Float64("theta", 1.5707963, "track theta in rad")
	qOverP := flag.Float64("qop", 1.0, "track q/p in 1/GeV")
	vertexArg := flag.String("vertex", "0,0,0", "sweep centre in mm as x,y,z")
	axisArg := flag.String("axis", "0,1,0", "sweep direction as x,y,z")
	halfRange := flag.Float64("range", 50, "sweep half-range in mm")
	samples := flag.Int("samples", 201, "number of sweep samples")
	configPath := flag.String("config", config.DefaultConfigPath, "path to tuning config")
	out := flag.String("out", "pca-profile.png", "output PNG path")
	flag.Parse()

	base, err := parseVec(*vertexArg)
	if err != nil {
		log.Fatalf("invalid -vertex: %v", err)
	}
	axis, err := parseVec(*axisArg)
	if err != nil {
		log.Fatalf("invalid -axis: %v", err)
	}
	if r3.Norm(axis) == 0 {
		log.Fatalf("invalid -axis: zero direction")
	}
	axis = r3.Unit(axis)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	acc := field.Constant{Bz: cfg.GetBzTesla()}
	est := vertexing.NewEstimator(vertexing.Config{
		Field:         acc,
		Propagator:    propagation.NewHelixPropagator(acc),
		MaxIterations: cfg.GetMaxIterations(),
		Precision:     cfg.GetPrecision(),
	})

	trk := &track.Parameters{
		Surface: track.NewPerigeeSurface(r3.Vec{}),
		Loc0:    *d0, Loc1: *z0,
		Phi: *phi, Theta: *theta, QOverP: *qOverP,
	}

	pts := make(plotter.XYs, 0, *samples)
	ctx := context.Background()
	for i := 0; i < *samples; i++ {
		off := -*halfRange + 2*(*halfRange)*float64(i)/float64(*samples-1)
		vtx := r3.Add(base, r3.Scale(off, axis))
		dist, err := est.CalculateDistance(ctx, trk, vtx)
		if err != nil {
			log.Printf("skipping offset %.3f: %v", off, err)
			continue
		}
		pts = append(pts, plotter.XY{X: off, Y: dist})
	}
	if len(pts) == 0 {
		log.Fatalf("no usable sweep samples")
	}

	p := plot.New()
	p.Title.Text = "track-vertex distance profile"
	p.X.Label.Text = fmt.Sprintf("vertex offset along (%s) [mm]", *axisArg)
	p.Y.Label.Text = "closest approach distance [mm]"

	line, err := plotter.NewLine(pts)
	if err != nil {
		log.Fatalf("build line plot: %v", err)
	}
	p.Add(line, plotter.NewGrid())

	if err := p.Save(8*vg.Inch, 5*vg.Inch, *out); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	log.Printf("wrote %s (%d samples)", *out, len(pts))
}

func parseVec(arg string) (r3.Vec, error) {
	parts := strings.Split(arg, ",")
	if len(parts) != 3 {
		return r3.Vec{}, fmt.Errorf("want x,y,z, got %q", arg)
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return r3.Vec{}, fmt.Errorf("component %d: %w", i, err)
		}
		vals[i] = v
	}
	return r3.Vec{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}
