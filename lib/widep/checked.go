//go:build !unchecked

package widep

// Checked selects the strict access profile: every downcast and tagged
// accessor verifies the descriptor or tag and reports mismatches as
// errors. Build with -tags unchecked to trade those checks for
// throughput at call sites with statically proven invariants.
const Checked = true
