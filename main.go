package main

import "assessment-sync/cmd"

func main() {
	cmd.Execute()
}
