// Package main hosts the ytsum CLI entrypoint and command graph.
//
// "ytsum summarize <url>" runs the full pipeline and prints the summary;
// "plan" shows the chunking decision from metadata alone; "status" runs the
// preflight checks; "clean" sweeps run directories left by killed processes;
// "config" scaffolds and inspects the TOML configuration.
//
// Configuration is loaded once per invocation by commandContext. Heavy lifting
// lives in the internal packages; commands only translate flags and render
// results.
package main
