// Package pipeline runs the processing steps over pages.
//
// A page goes through a fixed sequence of steps: parse the input into an
// HTML tree, replace the source blocks with dual views, and append the
// footnote list. Each step is a Step that receives the page and its report
// and may modify both.
//
// Within one page the transforms run concurrently with a bound while the
// tree is only mutated by the goroutine running the step. Across pages a
// BatchProcessor runs one pipeline per page with errgroup.
package pipeline
