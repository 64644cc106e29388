package metadata

import (
	"context"
	"fmt"
	"strings"

	"github.com/barasher/go-exiftool"
)

type metadataExtractor interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
	Close() error
}

// ExiftoolCollector reads tags through a long-running exiftool process.
// Only tags named in Filter are kept, in Filter order.
type ExiftoolCollector struct {
	extractor metadataExtractor
	Filter    []string
}

// NewExiftoolCollector starts exiftool. The binary must be on PATH.
func NewExiftoolCollector(filter []string) (*ExiftoolCollector, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return newExiftoolCollector(et, filter), nil
}

func newExiftoolCollector(extractor metadataExtractor, filter []string) *ExiftoolCollector {
	if len(filter) == 0 {
		filter = DefaultFilter
	}
	return &ExiftoolCollector{extractor: extractor, Filter: filter}
}

func (c *ExiftoolCollector) Collect(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	results := c.extractor.ExtractMetadata(path)
	if len(results) == 0 {
		return Metadata{}, fmt.Errorf("exiftool returned nothing for %s", path)
	}
	fileMetadata := results[0]
	if fileMetadata.Err != nil {
		return Metadata{}, fmt.Errorf("extract metadata for %q: %w", path, fileMetadata.Err)
	}

	var collected Metadata
	for _, tag := range c.Filter {
		raw, found := fileMetadata.Fields[tag]
		if !found {
			continue
		}
		value := strings.TrimSpace(fmt.Sprint(raw))
		if value == "" {
			continue
		}
		if tag == gpsPositionTag {
			if latitude, longitude, err := ParseCoordinates(value); err == nil {
				collected.Latitude, collected.Longitude, collected.HasGPS = latitude, longitude, true
			}
			continue
		}
		collected.Fields = append(collected.Fields, Field{Key: tag, Value: value})
	}
	return collected, nil
}

func (c *ExiftoolCollector) Close() error {
	return c.extractor.Close()
}
