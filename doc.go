// Package confset indexes and lazily materializes per-conformation training
// samples from hierarchical molecular-dynamics archives.
//
// A conformation sample carries the atomic numbers of one molecule or protein
// domain, one coordinate frame, and usually the matching force frame and a
// reference-corrected potential energy. Archives store thousands of such
// frames nested under molecules, or under domain/temperature/replica
// trajectories; confset turns those hierarchies into flat, randomly
// addressable sequences a training loop can consume.
//
// # Datasets
//
// Three dataset shapes cover the common archive layouts:
//
//	// Stream every frame of every molecule in a set of archives.
//	enum := confset.NewEnumerator(store, []string{"ani_md_bench.h5"})
//	for sample, err := range enum.Samples() { ... }
//
//	// Compose several flat datasets into one index space.
//	suite := confset.NewSuite(ds1, ds2, ds3)
//	sample, _ := suite.Get(7)
//
//	// Filter domain trajectories by metadata, index frames lazily.
//	ts, _ := confset.NewTrajSet(store,
//	    confset.WithTemperatures([]string{"348"}),
//	    confset.WithStride(4),
//	    confset.WithMaxGyrationRadius(3.5),
//	)
//	n := ts.Len()          // known after the metadata scan
//	sample, _ := ts.Get(0) // first access reads the bulk arrays
//
// TrajSet separates a cheap metadata-only qualification scan (run at
// construction) from the expensive bulk-array indexing (run on the first
// Get). Len is valid, and stable, before any bulk data is touched.
//
// # Archives
//
// Datasets read through the archive.Store abstraction; archive/hdf5 provides
// the HDF5 backend and archive.Memory backs tests. Handles are opened per
// read operation, never cached across calls, so index construction stays
// safe across the process forks used by multi-worker data loaders.
//
// Remote archives are retrieved with the fetch package (HTTP, S3, MinIO).
package confset
