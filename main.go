package main

import "github.com/Rosh-10/automated-analysis-project/cmd"

func main() {
	cmd.Execute()
}
