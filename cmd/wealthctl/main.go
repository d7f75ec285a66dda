// Command wealthctl is a terminal client for the goal planner. It computes
// plans offline, manages the goals in the configured store and asks a
// running wealthwise server for advice.
package main

func main() {
	Execute()
}
