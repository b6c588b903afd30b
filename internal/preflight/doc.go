// Package preflight provides readiness checks for the filesystem paths
// and external tools a scan depends on.
//
// These checks run in two contexts:
//   - The scan command runs RunAll and CheckSystemDeps before starting;
//     failed filesystem checks stop the scan, while missing optional
//     tools only produce warnings since affected files degrade to
//     digest-only participation.
//   - The CLI "mediadup status" command renders the same results as a
//     health table.
package preflight
