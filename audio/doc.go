// Package audio converts between the float samples produced by browser and
// mobile capture graphs and the 16-bit little-endian PCM the speech API
// consumes, and builds minimal mono WAV containers for local playback.
package audio
