// Package preflight provides readiness checks for the external tools,
// toolkit checkout, and filesystem paths that voiceloom depends on.
//
// These checks run in two contexts:
//   - The CLI "voiceloom status" command runs RunAll to show whether the
//     install can actually carry a training run before hours are sunk
//     into one.
//   - Individual check functions (CheckSynthesisFromConfig,
//     CheckDirectoryAccess) back narrower status displays.
//
// Optional integrations are skipped when unconfigured -- a missing
// synthesis endpoint is fine, an unreachable configured one is not.
package preflight
