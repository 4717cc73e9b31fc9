//go:build !nogocv

package main

import (
	"fmt"
	"image"
	"io"

	"gocv.io/x/gocv"
)

type videoSource struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
}

func openVideo(path string) (frameSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return &videoSource{capture: capture, frame: gocv.NewMat()}, nil
}

func (v *videoSource) Next() (image.Image, error) {
	if ok := v.capture.Read(&v.frame); !ok || v.frame.Empty() {
		return nil, io.EOF
	}
	img, err := v.frame.ToImage()
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	return img, nil
}

func (v *videoSource) Close() error {
	v.frame.Close()
	return v.capture.Close()
}
