// Command faceadmin manages the face registry from the command line.
package main

func main() {
	Execute()
}
