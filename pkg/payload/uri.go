package payload

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

const dataURIPrefix = "data:"

func isDataURI(uri string) bool {
	return strings.HasPrefix(uri, dataURIPrefix)
}

// decodeDataURI decodes a base64 data URI.
// Format: data:[<mediatype>][;base64],<data>
func decodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 {
		return nil, fmt.Errorf("%w: data URI without payload separator", ErrInvalidURI)
	}

	header := uri[len(dataURIPrefix):comma]
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: unsupported data URI encoding %q", ErrInvalidURI, header)
	}

	data, err := base64.StdEncoding.DecodeString(uri[comma+1:])
	if err != nil {
		return nil, fmt.Errorf("%w: decoding base64: %v", ErrInvalidURI, err)
	}
	return data, nil
}

// resolvePath turns a relative glTF URI into a path under root. URIs are
// percent-decoded and must not leave root.
func resolvePath(root, uri string) (string, error) {
	rel, err := url.PathUnescape(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURI, uri, err)
	}
	rel = filepath.FromSlash(rel)
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("%w: %q escapes the root folder", ErrInvalidURI, uri)
	}
	return filepath.Join(root, rel), nil
}

// loadURI returns the bytes behind uri and the file path they were read from
// (empty for data URIs).
func loadURI(root, uri string) ([]byte, string, error) {
	if isDataURI(uri) {
		data, err := decodeDataURI(uri)
		return data, "", err
	}

	path, err := resolvePath(root, uri)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrIO, err)
	}
	return data, path, nil
}
