// Package main runs commands on the monitors chosen by affinity rules.
package main

// main is the entrypoint for monlaunch.
func main() {
	Execute()
}
