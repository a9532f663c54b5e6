// Package workspace manages the remote workspaces a test run deploys into.
//
// The Client speaks the control-plane REST API. The Manager drives one
// workspace through its lifecycle:
//
//  1. create the workspace
//  2. store every resolved fixture secret
//  3. deploy the server definition
//  4. poll the deployment until it is ready, fails or times out
//  5. delete the workspace, unless cleanup is skipped for debugging
//
// Provision performs steps 1 to 4 and hands back a Lease. Releasing the lease
// performs step 5 exactly once, whichever way the run ends.
package workspace
