// Package ivfgo trains inverted-file (IVF) partition centroids from a
// sample of float32 vectors.
//
// The engine uses kmeans++ seeding followed by Elkan's accelerated
// variant of Lloyd's algorithm, which maintains per-sample distance
// bounds so most exact distance computations can be skipped each
// iteration. Small inputs take a quick path that reuses the samples
// themselves as centers. Either way the resulting center set is checked
// for degenerate output (missing, duplicate, NaN/Inf or zero-norm
// centers) before it is returned.
//
// Clustering is a single synchronous call:
//
//	samples := ivfgo.VectorSetOf(vecs)
//	centers := ivfgo.NewVectorSet(nlist, dim)
//
//	err := ivfgo.Cluster(ctx, samples, centers, ivfgo.KindFloat32, distance.MetricL2,
//		ivfgo.WithRand(rand.New(rand.NewSource(1))),
//		ivfgo.WithController(ctrl),
//	)
//
// The sample set is read-only to the engine and may be shared by
// concurrent callers clustering independently; each call owns its center
// set and scratch state exclusively. Scratch memory is checked against
// the controller's budget before anything is allocated and is released
// on every exit path.
package ivfgo
