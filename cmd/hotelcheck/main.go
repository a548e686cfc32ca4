package main

import "hotelcheck/cmd/hotelcheck/cmd"

func main() {
	cmd.Execute()
}
