package main

import "github.com/ValentinKolb/rmq/cmd"

func main() {
	cmd.Execute()
}
