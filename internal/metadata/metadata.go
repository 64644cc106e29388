// Package metadata extracts capture attributes from image files and resolves
// GPS coordinates to a readable location.
package metadata

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const gpsPositionTag = "GPSPosition"

// DefaultFilter lists the exiftool tags passed to the prompt when none are configured.
var DefaultFilter = []string{"DateTimeOriginal", "Flash", "Make", "Model", "Orientation", gpsPositionTag}

// Field is one key/value attribute of an image.
type Field struct {
	Key   string
	Value string
}

// Metadata is the ordered set of attributes found for a single file.
type Metadata struct {
	Fields    []Field
	Latitude  float64
	Longitude float64
	HasGPS    bool
}

// Lines renders every field as "Key: Value".
func (m Metadata) Lines() []string {
	lines := make([]string, 0, len(m.Fields))
	for _, field := range m.Fields {
		lines = append(lines, field.Key+": "+field.Value)
	}
	return lines
}

// Empty reports whether neither fields nor coordinates were found.
func (m Metadata) Empty() bool {
	return len(m.Fields) == 0 && !m.HasGPS
}

// Collector reads the metadata of the file at path.
type Collector interface {
	Collect(ctx context.Context, path string) (Metadata, error)
}

// Geocoder turns coordinates into a human-readable address.
type Geocoder interface {
	Reverse(ctx context.Context, latitude float64, longitude float64) (string, error)
}

// ParseCoordinates reads a "lat, lon" pair in decimal or degree/minute/second
// notation, e.g. `35 deg 39' 36.12" N, 139 deg 44' 44.15" E`.
func ParseCoordinates(value string) (float64, float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("gps position %q: expected latitude and longitude", value)
	}
	latitude, latErr := parseCoordinate(parts[0])
	if latErr != nil {
		return 0, 0, fmt.Errorf("gps latitude %q: %w", parts[0], latErr)
	}
	longitude, lonErr := parseCoordinate(parts[1])
	if lonErr != nil {
		return 0, 0, fmt.Errorf("gps longitude %q: %w", parts[1], lonErr)
	}
	if math.Abs(latitude) > 90 || math.Abs(longitude) > 180 {
		return 0, 0, fmt.Errorf("gps position %q out of range", value)
	}
	return latitude, longitude, nil
}

func parseCoordinate(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("empty coordinate")
	}
	sign := 1.0
	switch strings.ToUpper(trimmed[len(trimmed)-1:]) {
	case "S", "W":
		sign = -1
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	case "N", "E":
		trimmed = strings.TrimSpace(trimmed[:len(trimmed)-1])
	}
	if strings.HasPrefix(trimmed, "-") {
		sign = -sign
		trimmed = trimmed[1:]
	}

	numbers := strings.FieldsFunc(trimmed, func(r rune) bool {
		return (r < '0' || r > '9') && r != '.'
	})
	if len(numbers) == 0 || len(numbers) > 3 {
		return 0, fmt.Errorf("unrecognized coordinate")
	}
	divisors := []float64{1, 60, 3600}
	total := 0.0
	for index, number := range numbers {
		parsed, err := strconv.ParseFloat(number, 64)
		if err != nil {
			return 0, err
		}
		total += parsed / divisors[index]
	}
	return sign * total, nil
}
