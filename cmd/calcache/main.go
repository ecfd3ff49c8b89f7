package main

import "calendar-cache/internal/cli"

func main() {
	cli.Execute()
}
