// Package sink stores downloaded results on the local disk, in S3 or in
// Azure Blob Storage.
package sink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/curious-containers/cc-jupyter-cli/internal/config"
)

// Kind of a result destination.
type Kind int

const (
	KindLocal Kind = iota
	KindS3
	KindAzure
)

func (k Kind) String() string {
	switch k {
	case KindS3:
		return "s3"
	case KindAzure:
		return "azblob"
	default:
		return "local"
	}
}

// ErrInvalidDestination is returned for destinations that cannot be parsed.
var ErrInvalidDestination = errors.New("invalid destination")

// Destination is a parsed --dest value. Remote destinations are prefixes:
// result names are appended to Prefix.
//
//	./results                      -> local directory
//	s3://bucket/some/prefix        -> Bucket, Prefix
//	azblob://account/container/dir -> Account, Container, Prefix
type Destination struct {
	Kind      Kind
	Dir       string
	Bucket    string
	Region    string
	Account   string
	Container string
	Prefix    string
}

// ParseDestination parses raw. An empty raw selects defaultDir.
func ParseDestination(raw, defaultDir string) (Destination, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = defaultDir
	}
	if raw == "" {
		raw = "."
	}

	scheme, _, found := strings.Cut(raw, "://")
	if !found {
		return Destination{Kind: KindLocal, Dir: config.ExpandHome(raw)}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Destination{}, fmt.Errorf("%w: %s: %v", ErrInvalidDestination, raw, err)
	}
	rest := strings.Trim(u.Path, "/")

	switch strings.ToLower(scheme) {
	case "s3":
		if u.Host == "" {
			return Destination{}, fmt.Errorf("%w: %s: missing bucket", ErrInvalidDestination, raw)
		}
		return Destination{Kind: KindS3, Bucket: u.Host, Prefix: rest, Region: u.Query().Get("region")}, nil
	case "azblob":
		container, prefix, _ := strings.Cut(rest, "/")
		if u.Host == "" || container == "" {
			return Destination{}, fmt.Errorf("%w: %s: want azblob://account/container[/prefix]", ErrInvalidDestination, raw)
		}
		return Destination{Kind: KindAzure, Account: u.Host, Container: container, Prefix: prefix}, nil
	default:
		return Destination{}, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDestination, scheme)
	}
}

func (d Destination) String() string {
	switch d.Kind {
	case KindS3:
		return "s3://" + d.Bucket + "/" + d.Prefix
	case KindAzure:
		return "azblob://" + d.Account + "/" + d.Container + "/" + d.Prefix
	default:
		return d.Dir
	}
}

// objectKey joins a remote prefix and a result name.
func objectKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
