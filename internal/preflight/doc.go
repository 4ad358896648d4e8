// Package preflight provides readiness checks for the filesystem paths and
// remote hosts a download batch depends on.
//
// These checks run in two contexts:
//   - The pipeline calls CheckDirectoryAccess on the images and output
//     directories during setup; a failure aborts the batch before any job is
//     dispatched.
//   - The CLI "cinefetch check" command calls RunAll to display every check,
//     including the image host probe, without starting a batch.
package preflight
