//go:build !(linux && arm)

package main

// Init returns a Platform with every hardware-backed field left nil;
// main skips a subsystem entirely when its field is nil instead of
// talking to hardware that doesn't exist on this build, matching
// reflexd's no-op dummy platform for non-device builds.
func Init() (*Platform, error) {
	return &Platform{
		Close: func() error { return nil },
	}, nil
}
