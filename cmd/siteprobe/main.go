// Package main provides the siteprobe CLI.
//
// Usage:
//
//	siteprobe check domains.txt
//	siteprobe capture domains.txt --format html,xlsx
//	siteprobe history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
