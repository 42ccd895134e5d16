package scano

// Version is the scano release, overridden at build time with -ldflags.
var Version = "0.1.0"
