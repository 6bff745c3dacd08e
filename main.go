package main

import "github.com/frahmantamala/plant-maintenance/cmd"

func main() {
	cmd.Execute()
}
