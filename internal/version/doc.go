// Package version exposes mailprobe build metadata. Values are injected via
// -ldflags and fall back to the module build info embedded by the Go toolchain.
package version
