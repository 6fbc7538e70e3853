// Package main provides the entry point for the codeflip CLI.
//
// codeflip post-processes documentation pages: every <pre> source block is
// compiled with an external transformer and replaced by a dual view that
// toggles between the original source and the compiled output.
//
// Usage:
//
//	codeflip build docs -o public --transformer "coffee --stdio --print --bare"
//	codeflip serve docs
//
// See --help for all available options.
package main

// main is the entry point for codeflip.
func main() {
	Execute()
}
