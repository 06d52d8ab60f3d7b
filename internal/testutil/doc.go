// Package testutil holds helpers shared by module and command tests: running
// modules in a throwaway engine, writing input trees, asserting on output
// files and building Git repositories.
package testutil
