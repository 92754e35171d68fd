// Package main provides the entry point for the upsub CLI.
//
// upsub collects proxy subscription links from a repository, fetches each
// feed, extracts its proxy nodes, and writes one numbered file per working
// subscription.
//
// Usage:
//
//	upsub run
//	upsub run --repo owner/name --rename --base64
//	upsub links
//
// See --help for all available options.
package main

// main is the entry point for upsub.
func main() {
	Execute()
}
