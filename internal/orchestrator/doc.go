// Package orchestrator runs conformance tests against deployed MCP servers.
//
// A Runner takes one server definition through its whole lifecycle:
//
//	skip checks -> environment resolution -> workspace provisioning ->
//	handshake -> tool listing -> test cases -> cleanup
//
// Every failure is folded into a RunResult; nothing escapes a run. The first
// failing test case ends the run. Cleanup is deferred and happens exactly
// once for every run that created a workspace.
//
// A Suite runs many servers through the scheduler, prints each run's output
// as one block in definition order, renders a summary table and optionally
// writes a JSON report and a Prometheus textfile.
package orchestrator
