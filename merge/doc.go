// Package merge assembles a single surface over a target grid from an
// ordered stack of heterogeneous source rasters.
//
// Layers are ranked by priority (index 0 highest). Each layer is resampled
// onto the target grid in its own coordinate reference, filtered against its
// optional elevation bounds, offset, clipped to its optional mask geometry,
// and only then combined into the running output under its merge method. The
// default method keeps the first valid value a cell sees, so earlier layers
// stay authoritative even when a later layer carries finer resolution.
//
// Value constraints (zmin/zmax) are evaluated on the resampled, pre-offset
// values; the offset is added to the survivors. All arithmetic is 64-bit
// regardless of source precision. NaN marks no-data throughout.
package merge
