package main

import "github.com/viewlulu/pouch-backend/cmd"

func main() {
	cmd.Execute()
}
