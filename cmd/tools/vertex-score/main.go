// Command vertex-score scores a pool of tracks against a vertex
// candidate and prints the distance and compatibility per track,
// optionally persisting the run to a SQLite database for later
// comparison.
//
// The track file is a JSON array of bound perigee parameters:
//
//	[{"id": "trk-1", "d0": 0.1, "z0": -2.0, "phi": 0.3,
//	  "theta": 1.5707, "q_over_p": 1.2, "ref": [0, 0, 0]}]
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
	_ "modernc.org/sqlite"

	"github.com/hepflow/vertexing/internal/config"
	"github.com/hepflow/vertexing/internal/diag"
	"github.com/hepflow/vertexing/internal/field"
	"github.com/hepflow/vertexing/internal/propagation"
	"github.com/hepflow/vertexing/internal/storage"
	"github.com/hepflow/vertexing/internal/track"
	"github.com/hepflow/vertexing/internal/vertexing"
)

type trackRecord struct {
	ID     string     `json:"id"`
	D0     float64    `json:"d0"`
	Z0     float64    `json:"z0"`
	Phi    float64    `json:"phi"`
	Theta  float64    `json:"theta"`
	QOverP float64    `json:"q_over_p"`
	Ref    [3]float64 `json:"ref"`
}

func main() {
	tracksPath := flag.String("tracks", "", "path to JSON track file (required)")
	vertexArg := flag.String("vertex", "0,0,0", "vertex position in mm as x,y,z")
	configPath := flag.String("config", config.DefaultConfigPath, "path to tuning config")
	dbPath := flag.String("db", "", "optional SQLite file to persist the run")
	runID := flag.String("run", "", "run identifier used when persisting (default: vertex string)")
	verbose := flag.Bool("v", false, "log excluded tracks")
	flag.Parse()

	if *tracksPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	diag.Verbose = *verbose

	vtx, err := parseVertex(*vertexArg)
	if err != nil {
		log.Fatalf("invalid -vertex: %v", err)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	tracks, err := loadTracks(*tracksPath)
	if err != nil {
		log.Fatalf("load tracks: %v", err)
	}

	acc := field.Constant{Bz: cfg.GetBzTesla()}
	dir := propagation.Backward
	if !cfg.GetDoBackwardPropagation() {
		dir = propagation.Forward
	}
	est := vertexing.NewEstimator(vertexing.Config{
		Field:         acc,
		Propagator:    propagation.NewHelixPropagator(acc),
		Options:       propagation.Options{Direction: dir},
		MaxIterations: cfg.GetMaxIterations(),
		Precision:     cfg.GetPrecision(),
	})

	scored := vertexing.ScoreTracks(context.Background(), est, tracks, vtx)
	log.Printf("scored %d/%d tracks against vertex (%.3f, %.3f, %.3f)",
		len(scored), len(tracks), vtx.X, vtx.Y, vtx.Z)

	fmt.Printf("%-38s %14s %16s\n", "TRACK", "DISTANCE (mm)", "COMPATIBILITY")
	for _, tav := range scored {
		fmt.Printf("%-38s %14.6f %16.6f\n", tav.ID, tav.Distance, tav.Compatibility)
	}

	if *dbPath != "" {
		id := *runID
		if id == "" {
			id = *vertexArg
		}
		if err := persist(*dbPath, id, vtx, scored); err != nil {
			log.Fatalf("persist run: %v", err)
		}
		log.Printf("saved run %q to %s", id, *dbPath)
	}
}

func parseVertex(arg string) (r3.Vec, error) {
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

func loadTracks(path string) ([]vertexing.Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var records []trackRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	out := make([]vertexing.Candidate, 0, len(records))
	for i, rec := range records {
		p := &track.Parameters{
			Surface: track.NewPerigeeSurface(r3.Vec{X: rec.Ref[0], Y: rec.Ref[1], Z: rec.Ref[2]}),
			Loc0:    rec.D0,
			Loc1:    rec.Z0,
			Phi:     rec.Phi,
			Theta:   rec.Theta,
			QOverP:  rec.QOverP,
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("track %d: %w", i, err)
		}
		out = append(out, vertexing.Candidate{ID: rec.ID, Params: p})
	}
	return out, nil
}

func persist(dbPath, runID string, vtx r3.Vec, scored []vertexing.TrackAtVertex) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := storage.NewScoreStore(db)
	if err != nil {
		return err
	}
	return store.SaveRun(runID, vtx, scored)
}
