// The main package for the videoscan executable.
package main

import "github.com/civicwire/videoscan/cmd"

func main() {
	cmd.Execute()
}
