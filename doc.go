// Package lasprep prepares machine-learning datasets from airborne LIDAR
// tiles. A run takes a directory of zipped LAS tiles plus a directory of
// aerial orthoimages and produces colorized tiles, optional square sub-tiles,
// and a manifest of the train/val/test split each tile was assigned to.
//
// The work is divided into a handful of stages, each of which is a small
// type in this package. The Preparer wires them together.
//
// 1. Matcher
//
//    Every tile file name carries an identifier like "0123456-7890". The
//    Matcher extracts it and finds the single orthoimage for the configured
//    raster resolution whose name contains "<identifier>_<resolution>". All
//    tiles are matched before anything is written, so a missing or ambiguous
//    orthoimage stops the run early.
//
// 2. Assigner
//
//    Tiles are shuffled once and cut into contiguous train, val and test
//    groups. The random source is injected so runs can be reproduced.
//
// 3. Extractor
//
//    Tile archives are zip files holding one LAS file. The Extractor expands
//    them into the colorized directory.
//
// 4. Colorizer and Splitter
//
//    Both hand a pipeline description to an Engine, which is normally PDAL
//    (see the pdal package). The Colorizer samples RGB values from the
//    orthoimage; the Splitter cuts the colorized tile into square cells,
//    keeping every dimension of the source.
//
// 5. Manifest and Ledger
//
//    The Manifest lists each processed tile with its split and is written as
//    CSV at the end of a run. The Ledger keeps a TileRecord per tile so an
//    interrupted run can resume where it stopped.
package lasprep
