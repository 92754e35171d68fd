// Package vcs drives the git command line: listing tracked files and
// committing and pushing regenerated artifacts.
//
// Nothing here retries. Callers log failures and carry on, because a
// failed push must never discard a run's output.
package vcs
