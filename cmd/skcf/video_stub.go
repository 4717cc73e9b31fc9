//go:build nogocv

package main

import "fmt"

func openVideo(path string) (frameSource, error) {
	return nil, fmt.Errorf("cannot open %s: built without video support (nogocv)", path)
}
