package main

import "log"

// dropError logs cold-path diagnostics.
//   - err != nil prints "<prefix>: <error>"
//   - err == nil prints "<prefix>"
func dropError(prefix string, err error) {
	if err != nil {
		log.Printf("%s: %v", prefix, err)
	} else {
		log.Print(prefix)
	}
}
