// Package bqart computes long-term suspended sediment yield per watershed
// zone with the BQART equation and a tectonic correction term.
//
// For a zone with mean precipitation P (mm/yr), area a (m²), relief R (km),
// and mean temperature T (°C):
//
//	Qw  = P/1000 · a / SecondsPerYear                  (m³/s)
//	Qs  = Omega · B · (Qw · SecondsPerYear / 1e9)^0.31 · sqrt(a/1e6) · R · T
//	                                                   (MT/yr)
//	Qs' = Qs · 1e9 / Density · BulkCorrection          (m³/yr)
//	E   = Qs' / a                                      (m/yr)
//
// The tectonic term is a · (slip/1000) / Density, where slip is the maximum
// slip rate of the correlated fault, or the uniform uplift rate when the
// zone has no fault within the search radius.
//
// Zones are independent. Run computes them concurrently and returns records
// ordered by zone id.
package bqart
