// Package workspace owns the scratch files of a pipeline run.
//
// Each run gets root/<id> guarded by a flock lock file. Temporary files are
// tracked as scoped handles whose Release is idempotent, and closing the run
// removes whatever is left along with the directory. CleanStale sweeps run
// directories left behind by processes that were killed, skipping any run
// whose lock is still held.
package workspace
