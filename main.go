package main

import "datalab/cmd"

func main() {
	cmd.Execute()
}
