package main

import "github.com/Tiliavir/time-tracker-server/cmd"

func main() {
	cmd.Execute()
}
