// Package output writes node lists as numbered artifact files.
//
// Every run regenerates the output directory from scratch: Reset removes
// all previous artifacts, and Write then creates NNN.txt files starting
// from 001. Artifacts are either newline-joined nodes or the base64
// encoding of that text.
package output
