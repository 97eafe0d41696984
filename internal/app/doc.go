// Package app contains the core application lifecycle: configure the
// logger, install the node catalog, load the document, then compile,
// evaluate and write artifacts. It is decoupled from any specific
// entrypoint like the CLI.
package app
