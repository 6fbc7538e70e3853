// Package source finds input documents on disk, loads them as pages,
// writes processed pages back out and watches inputs for changes.
package source
