package main

import "vehicle-service-scheduling/cmd/cli"

func main() {
	cli.Execute()
}
