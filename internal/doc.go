// Package internal contains helpers that are intentionally private to
// authgate, currently uniform numeric passcode generation.
//
// # What this package must NOT do
//
//   - Export types that appear in the public authgate API.
//   - Be imported by any package outside the authgate module.
package internal
