/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package imageio recognises, loads and decodes the raster images that can be
// placed on a board, and classifies dropped payloads.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNotImage is returned for data no registered decoder understands.
var ErrNotImage = errors.New("not a supported image")

// Image is an encoded image together with its decoded pixel size.
type Image struct {
	Data   []byte
	Width  int
	Height int
	Format string
}

// Decode reads the header of data and returns it with its dimensions.
// The pixel data itself stays encoded.
func Decode(data []byte) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, fmt.Errorf("%w: empty %s image", ErrNotImage, format)
	}
	return Image{Data: data, Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// DecodePixels fully decodes data.
func DecodePixels(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return img, nil
}

// LoadFile reads and decodes the image at path.
func LoadFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	img, err := Decode(data)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Loader loads local image files.
type Loader interface {
	Load(path string) (Image, error)
}

// FileLoader is the Loader backed by the local filesystem.
type FileLoader struct{}

// Load implements Loader.
func (FileLoader) Load(path string) (Image, error) { return LoadFile(path) }

// IsImageFile reports whether path names an existing regular file that looks
// like an image, judged by its extension or by sniffing its first bytes.
func IsImageFile(path string) bool {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return false
	}
	if strings.HasPrefix(mime.TypeByExtension(strings.ToLower(filepath.Ext(path))), "image/") {
		return true
	}
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return false
	}
	return strings.HasPrefix(http.DetectContentType(head[:n]), "image/")
}

// PayloadKind classifies one dropped payload.
type PayloadKind int

const (
	Unsupported PayloadKind = iota
	LocalImage
	RemoteURL
)

func (k PayloadKind) String() string {
	switch k {
	case LocalImage:
		return "local"
	case RemoteURL:
		return "remote"
	default:
		return "unsupported"
	}
}

// Classify decides how a dropped payload is handled. file:// URLs and plain
// paths are local and must look like images; http and https URLs are remote.
// It returns the local path or the URL to fetch.
func Classify(payload string) (PayloadKind, string) {
	p := strings.TrimSpace(payload)
	if p == "" {
		return Unsupported, ""
	}
	if u, err := url.Parse(p); err == nil && u.Scheme != "" && !isDriveLetter(u.Scheme) {
		switch strings.ToLower(u.Scheme) {
		case "http", "https":
			if u.Host == "" {
				return Unsupported, ""
			}
			return RemoteURL, u.String()
		case "file":
			p = filepath.FromSlash(u.Path)
		default:
			return Unsupported, ""
		}
	}
	if IsImageFile(p) {
		return LocalImage, p
	}
	return Unsupported, ""
}

// C:\ paths parse as a URL with a one-letter scheme.
func isDriveLetter(scheme string) bool {
	return runtime.GOOS == "windows" && len(scheme) == 1
}
