// SPDX-License-Identifier: MIT
// Package assets manages the overlay image store. Install copies images
// into a managed directory with content-hash dedup, and RewriteOverlayPath
// points the config file at the installed copy.
package assets

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	// Installed overlays must decode before they are accepted.
	_ "image/jpeg"
	_ "image/png"

	applog "spectra/internal/log"

	"gopkg.in/yaml.v3"
)

// Install validates that srcPath decodes as an image and copies it into
// assetsDir, returning the installed path. Identical content already in the
// store is reused; a name collision with different content gets a _1, _2, …
// suffix.
func Install(srcPath, assetsDir string) (string, error) {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return "", fmt.Errorf("reading overlay image: %w", err)
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("%s is not a decodable image: %w", srcPath, err)
	}

	if err := os.MkdirAll(assetsDir, 0o755); err != nil {
		return "", fmt.Errorf("creating assets dir: %w", err)
	}

	srcSum := sha256.Sum256(data)
	base := filepath.Base(srcPath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	name := base
	for n := 1; ; n++ {
		dst := filepath.Join(assetsDir, name)
		existing, err := os.ReadFile(dst)
		if os.IsNotExist(err) {
			if err := os.WriteFile(dst, data, 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", dst, err)
			}
			applog.Infof("assets: installed %s", dst)
			return dst, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", dst, err)
		}
		if sha256.Sum256(existing) == srcSum {
			applog.Infof("assets: %s already installed as %s", srcPath, dst)
			return dst, nil
		}
		name = fmt.Sprintf("%s_%d%s", stem, n, ext)
	}
}

// RewriteOverlayPath points overlay.path in the YAML config file at the
// installed asset, preserving every other key. A missing config file is
// created with just the overlay section.
func RewriteOverlayPath(configPath, overlayPath string) error {
	doc := map[string]any{}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("parsing %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", configPath, err)
	}

	overlay, _ := doc["overlay"].(map[string]any)
	if overlay == nil {
		overlay = map[string]any{}
	}
	overlay["path"] = overlayPath
	doc["overlay"] = overlay

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	applog.Infof("assets: %s now points overlay.path at %s", configPath, overlayPath)
	return nil
}
