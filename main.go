package main

import "housing-listings/cmd"

func main() {
	cmd.Execute()
}
