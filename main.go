package main

import "github.com/Yates-Labs/verbump/cmd"

func main() {
	cmd.Execute()
}
