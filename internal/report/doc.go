// Package report renders probe results as CSV, XLSX, HTML and Markdown.
//
// Writers never mutate the result slice they are given; each sorts its own
// copy back into input order before rendering.
package report
