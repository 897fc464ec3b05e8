package main

import "github.com/faceproj/facefinder/cmd"

func main() {
	cmd.Execute()
}
