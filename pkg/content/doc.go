// Package content classifies repository files for preview.
//
// Classification is a pure function of the file name, a sample of its bytes and
// the extension Tables: extension lookup first, then the MIME type registered
// for the name, then a byte heuristic for unnamed text. The MIME type assigned
// is what the raw endpoint serves; anything unknown is application/octet-stream.
package content
