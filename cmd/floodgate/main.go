package main

import "go.minekube.com/floodgate/pkg/cmd/floodgate"

func main() {
	floodgate.Execute()
}
