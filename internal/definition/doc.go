// Package definition loads server definitions and their test fixtures.
//
// A definitions directory holds one subdirectory per server:
//
//	servers/
//	  context7/
//	    server.yaml   # name, version, status, package or remote
//	    test.yaml     # optional fixture
//
// Both files may also be written as JSON. A fixture looks like:
//
//	skip: false
//	environment:
//	  CONTEXT7_API_KEY: "${CONTEXT7_API_KEY}"
//	tests:
//	  - name: search
//	    tool: search_documentation
//	    arguments:
//	      query: "useState"
//	    expect:
//	      type: text
//	      contains: "useState"
//
// Environment values support ${VAR} and ${VAR:-default} interpolation. A
// referenced variable that is not set is a fatal error raised before any
// remote call is made.
package definition
