// Ossia is a streaming music player: tracks are found through a search
// provider, confirmed against an authoritative metadata catalog and streamed
// from a stream provider, with recommendation-driven continuous playback.
package main

import "ossia/cmd"

func main() {
	cmd.Execute()
}
