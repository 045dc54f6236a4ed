package musicxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// maxManifestBytes caps the container manifest read; real manifests
// are a few hundred bytes.
const maxManifestBytes = 64 * 1024

// containerManifest mirrors META-INF/container.xml, which names the
// root score document inside a compressed container.
type containerManifest struct {
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

// ExtractContainer returns the root score document from a compressed
// .mxl container. The root is located through META-INF/container.xml
// when present, else the first top-level .musicxml/.xml entry.
//
// maxBytes caps the decompressed size of every entry read; archives
// that inflate past it fail with ErrTooLarge before the excess is
// buffered. The caller fingerprints and stores the raw container
// bytes; only metadata extraction sees the decompressed document.
func ExtractContainer(data []byte, maxBytes int64) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	rootPath, err := manifestRootPath(zr)
	if err != nil {
		return nil, err
	}

	var root *zip.File
	if rootPath != "" {
		for _, file := range zr.File {
			if file.Name == rootPath {
				root = file
				break
			}
		}
		if root == nil {
			return nil, fmt.Errorf("%w: manifest names missing entry %q", ErrMalformed, rootPath)
		}
	} else {
		for _, file := range zr.File {
			if strings.Contains(file.Name, "/") {
				continue
			}
			lower := strings.ToLower(file.Name)
			if strings.HasSuffix(lower, ".musicxml") || strings.HasSuffix(lower, ".xml") {
				root = file
				break
			}
		}
		if root == nil {
			return nil, fmt.Errorf("%w: container has no score document", ErrMalformed)
		}
	}

	doc, err := readZipEntry(root, maxBytes)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// manifestRootPath reads META-INF/container.xml and returns the first
// rootfile path, or "" when the archive has no manifest.
func manifestRootPath(zr *zip.Reader) (string, error) {
	var manifest *zip.File
	for _, file := range zr.File {
		if strings.EqualFold(file.Name, "META-INF/container.xml") {
			manifest = file
			break
		}
	}
	if manifest == nil {
		return "", nil
	}

	raw, err := readZipEntry(manifest, maxManifestBytes)
	if err != nil {
		return "", err
	}

	// The manifest is XML from the same untrusted archive; it gets the
	// same pre-scan and hardened decode as the score document.
	if containsForbiddenDecl(raw) {
		return "", fmt.Errorf("%w: declaration in container manifest", ErrUnsafeContent)
	}

	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Strict = true
	dec.Entity = nil

	var m containerManifest
	if err := dec.Decode(&m); err != nil {
		return "", fmt.Errorf("%w: container manifest: %v", ErrMalformed, err)
	}

	for _, rf := range m.RootFiles {
		if rf.FullPath != "" {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("%w: container manifest names no root file", ErrMalformed)
}

// readZipEntry decompresses one archive entry, enforcing maxBytes on
// the decompressed size.
func readZipEntry(f *zip.File, maxBytes int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: open %q: %v", ErrMalformed, f.Name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read %q: %v", ErrMalformed, f.Name, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %q inflates past %d bytes", ErrTooLarge, f.Name, maxBytes)
	}
	return data, nil
}
