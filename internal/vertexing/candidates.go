package vertexing

import (
	"context"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/hepflow/vertexing/internal/diag"
	"github.com/hepflow/vertexing/internal/track"
)

// Candidate is a track submitted for scoring. A caller-assigned ID is
// carried through to the scored result so that rows from different
// scoring runs over the same pool can be joined per track.
type Candidate struct {
	// ID is optional; ScoreTracks assigns a fresh uuid when empty.
	ID string

	// Params are the track parameters on their measurement surface.
	Params *track.Parameters
}

// TrackAtVertex is one track scored against one vertex candidate.
type TrackAtVertex struct {
	// ID is the candidate's identifier, or the uuid assigned by
	// ScoreTracks when the candidate carried none.
	ID string

	// Params are the input parameters on their original surface.
	Params *track.Parameters

	// AtPCA are the parameters re-expressed at the point of closest
	// approach to the vertex.
	AtPCA *track.Parameters

	// Distance is the 3D track-vertex distance (mm).
	Distance float64

	// Compatibility is the weighted score; larger is worse.
	Compatibility float64
}

// ScoreTracks scores a pool of tracks against a vertex position.
// Tracks whose estimation fails in any stage are excluded from the
// result rather than failing the whole pool; exclusions are reported
// through the diag logger. The input slice and its parameters are not
// mutated.
func ScoreTracks(ctx context.Context, est *Estimator, cands []Candidate, vtx r3.Vec) []TrackAtVertex {
	out := make([]TrackAtVertex, 0, len(cands))
	for _, cand := range cands {
		id := cand.ID
		if id == "" {
			id = uuid.NewString()
		}
		tav := TrackAtVertex{ID: id, Params: cand.Params}

		dist, err := est.CalculateDistance(ctx, cand.Params, vtx)
		if err != nil {
			diag.Debugf("vertexing: excluding track %s: %v", id, err)
			continue
		}
		tav.Distance = dist

		atPCA, err := est.ParamsAtClosestApproach(ctx, cand.Params, vtx)
		if err != nil {
			diag.Debugf("vertexing: excluding track %s: %v", id, err)
			continue
		}
		tav.AtPCA = atPCA

		compat, err := est.VertexCompatibility(ctx, atPCA, vtx)
		if err != nil {
			diag.Debugf("vertexing: excluding track %s: %v", id, err)
			continue
		}
		tav.Compatibility = compat

		out = append(out, tav)
	}
	return out
}
