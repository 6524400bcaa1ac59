package main

import "certrag/cmd"

func main() {
	cmd.Execute()
}
