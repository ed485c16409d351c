package main

import "example.com/planner/services/calendar/cmd"

func main() {
	cmd.Execute()
}
