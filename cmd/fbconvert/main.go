// Command fbconvert converts an image to the pixel-stream format a
// console.Sink consumes: a 4-byte little-endian width, a 4-byte
// little-endian height, then width*height RGB565 pixels.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"
)

func main() {
	previewText := flag.String("preview-text", "", "draw this text over the image before converting (uses the 7x13 basicfont bitmap face)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fbconvert [-preview-text text] <input-image> <output-binary>\n")
		fmt.Fprintf(os.Stderr, "Converts an image to a console.Sink-compatible pixel stream.\n")
		fmt.Fprintf(os.Stderr, "Output format:\n")
		fmt.Fprintf(os.Stderr, "  4 bytes: width (uint32 little-endian)\n")
		fmt.Fprintf(os.Stderr, "  4 bytes: height (uint32 little-endian)\n")
		fmt.Fprintf(os.Stderr, "  width*height*2 bytes: RGB565 pixel data\n")
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(1)
	}

	inputPath := flag.Arg(0)
	outputPath := flag.Arg(1)

	file, err := os.Open(inputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening image: %v\n", err)
		os.Exit(1)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error decoding image: %v\n", err)
		os.Exit(1)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if *previewText != "" {
		ctx := gg.NewContextForImage(img)
		ctx.SetFontFace(basicfont.Face7x13)
		ctx.SetRGB(1, 1, 1)
		ctx.DrawStringAnchored(*previewText, float64(width)/2, float64(height)-8, 0.5, 0.5)
		img = ctx.Image()
	}

	fmt.Printf("image size: %d x %d\n", width, height)

	outFile, err := os.Create(outputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error creating output file: %v\n", err)
		os.Exit(1)
	}
	defer outFile.Close()

	if err := binary.Write(outFile, binary.LittleEndian, uint32(width)); err != nil {
		fmt.Fprintf(os.Stderr, "error writing width: %v\n", err)
		os.Exit(1)
	}
	if err := binary.Write(outFile, binary.LittleEndian, uint32(height)); err != nil {
		fmt.Fprintf(os.Stderr, "error writing height: %v\n", err)
		os.Exit(1)
	}

	pixelCount := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			pixel := rgb565(uint8(r>>8), uint8(g>>8), uint8(b>>8))
			if err := binary.Write(outFile, binary.LittleEndian, pixel); err != nil {
				fmt.Fprintf(os.Stderr, "error writing pixel data: %v\n", err)
				os.Exit(1)
			}
			pixelCount++
		}
	}

	fmt.Printf("wrote %d pixels to %s\n", pixelCount, outputPath)
	fileInfo, _ := os.Stat(outputPath)
	fmt.Printf("output file size: %d bytes\n", fileInfo.Size())
}

func rgb565(r, g, b uint8) uint16 {
	return (uint16(r)>>3)<<11 | (uint16(g)>>2)<<5 | uint16(b)>>3
}
