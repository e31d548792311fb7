package main

import "interviewace/cmd"

func main() {
	cmd.Execute()
}
