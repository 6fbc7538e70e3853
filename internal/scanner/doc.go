// Package scanner finds the source blocks of a page that take part in
// dual rendering.
//
// A source block is a <pre> element. Participation is decided by a marker
// class on the element immediately before the block: in opt-out mode a
// marked block is skipped, in opt-in mode only marked blocks are kept.
//
// # Usage
//
//	seq := scanner.Scan(doc, scanner.Policy{Mode: scanner.ModeOptIn, Marker: "csscript"})
//	for block := range seq.All() {
//		fmt.Println(block.Index, block.Text)
//	}
package scanner
