// Package dedupe tracks handled webhook update IDs in a time-based cache
// so redelivered updates are dropped instead of replayed into a dialogue.
package dedupe
