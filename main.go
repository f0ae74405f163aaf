package main

import "github.com/tranqh91/nimbus/cmd"

func main() {
	cmd.Execute()
}
