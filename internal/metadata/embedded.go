package metadata

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/PedroLopes/ai-rename-images/internal/fsops"
)

const exifDateLayout = "2006:01:02 15:04:05"

// EmbeddedCollector decodes EXIF in-process, without external tools.
type EmbeddedCollector struct {
	FS fsops.FS
}

var embeddedTags = []struct {
	key  string
	name exif.FieldName
}{
	{key: "Make", name: exif.Make},
	{key: "Model", name: exif.Model},
	{key: "LensModel", name: exif.LensModel},
	{key: "ExposureTime", name: exif.ExposureTime},
	{key: "ISOSpeedRatings", name: exif.ISOSpeedRatings},
	{key: "FocalLength", name: exif.FocalLength},
	{key: "Flash", name: exif.Flash},
	{key: "Orientation", name: exif.Orientation},
}

// Collect returns empty metadata for files that carry no EXIF block.
func (c EmbeddedCollector) Collect(ctx context.Context, path string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	data, err := c.FS.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("read %s: %w", path, err)
	}
	decoded, decodeErr := exif.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return Metadata{}, nil
	}

	var collected Metadata
	if taken, dateErr := decoded.DateTime(); dateErr == nil {
		collected.Fields = append(collected.Fields, Field{Key: "DateTimeOriginal", Value: taken.Format(exifDateLayout)})
	}
	for _, embeddedTag := range embeddedTags {
		tag, getErr := decoded.Get(embeddedTag.name)
		if getErr != nil {
			continue
		}
		if value := tagValue(tag); value != "" {
			collected.Fields = append(collected.Fields, Field{Key: embeddedTag.key, Value: value})
		}
	}
	if latitude, longitude, gpsErr := decoded.LatLong(); gpsErr == nil {
		collected.Latitude, collected.Longitude, collected.HasGPS = latitude, longitude, true
	}
	return collected, nil
}

func tagValue(tag *tiff.Tag) string {
	if tag.Format() == tiff.StringVal {
		if value, err := tag.StringVal(); err == nil {
			return cleanExifString(value)
		}
	}
	return cleanExifString(strings.Trim(tag.String(), `"`))
}

func cleanExifString(value string) string {
	return strings.TrimSpace(strings.TrimRight(value, "\x00"))
}
