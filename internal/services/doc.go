// Package services defines shared helpers consumed by the player, render and
// daemon packages.
//
// Key responsibilities:
//   - Context helpers that stamp session identifiers, slide activations, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures carry a
//     classification that logs, history rows, and notifications can share.
package services
