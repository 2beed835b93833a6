package parley

// Version is the library version. Overridable at build time:
//
//	go build -ldflags "-X github.com/parleyhq/parley.Version=v1.2.3"
var Version = "0.1.0"
