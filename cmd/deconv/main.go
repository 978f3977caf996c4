// Package main provides the Deconv ML Library CLI.
package main

import (
	"fmt"
	"os"

	"github.com/deconv-ml/deconv/backend/cpu"
	"github.com/deconv-ml/deconv/nn"
	"github.com/deconv-ml/deconv/tensor"
)

const version = "v0.0.1-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Deconv ML Library %s\n", version)
			return
		case "demo":
			demo()
			return
		}
	}

	fmt.Println("Deconv ML Library - 2D Transposed Convolution for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  demo       Run a 2x bilinear upsampling demo")
}

// demo upsamples a small gradient image 2x with a bilinear-initialized
// transposed convolution and prints both.
func demo() {
	backend := cpu.New()
	layer := nn.NewConvTranspose2D(nn.Config{
		InPlanes: 1, OutPlanes: 1,
		KernelH: 4, KernelW: 4,
		StrideH: 2, StrideW: 2,
		PadH: 1, PadW: 1,
		NoBias: true,
		Init:   nn.InitBilinear,
	}, backend)
	fmt.Println(layer.String())

	input := tensor.MustNewRaw(tensor.Shape{1, 4, 4}, tensor.Float32)
	data := input.AsFloat32()
	for i := range data {
		data[i] = float32(i%4 + i/4)
	}

	output := layer.Forward(input)

	fmt.Println("\nInput (4x4):")
	printImage(input.AsFloat32(), 4, 4)
	fmt.Println("\nOutput (8x8):")
	printImage(output.AsFloat32(), 8, 8)
}

func printImage(data []float32, h, w int) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			fmt.Printf("%6.2f ", data[y*w+x])
		}
		fmt.Println()
	}
}
