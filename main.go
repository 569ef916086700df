package main

import "github.com/Mohsinsiddi/launchpad/cmd"

func main() {
	cmd.Execute()
}
