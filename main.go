// Package main is the entry point for aria.
package main

import "github.com/llehouerou/aria/cmd"

func main() {
	cmd.Execute()
}
