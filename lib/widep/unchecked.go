//go:build unchecked

package widep

// Checked is off: downcasts and tagged accessors skip their descriptor
// and tag checks entirely. A mismatch under this profile is a contract
// violation with undefined behavior, not a reported error.
const Checked = false
