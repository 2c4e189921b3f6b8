// Package workflow wires the sediment-yield pipeline together.
//
// A run moves through four stages:
//
//	hydrology -> [fault] -> watershed -> bqart
//
// Hydrology derives the stream network from the project DEM inside a batch
// directory. Fault intersects the streams with a fault dataset to produce
// pour points and a fault correlation table; it only runs when no existing
// pour-points dataset is available. Watershed snaps the pour points and
// delineates one zone per point inside a watershed sub-batch. BQART averages
// the climate rasters (through the climate cache), joins the zonal
// statistics and writes qs_data.csv inside a climate sub-batch.
//
// Every stage flushes its manifest durably before it returns, and the
// engine checkpoints the run state after it, so an interrupted run can be
// continued with Pipeline.Resume. Runs that start part-way through
// (Request.Mode) locate the earlier manifests from explicit paths, the
// last-run record or an operator selection.
package workflow
