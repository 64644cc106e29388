package metadata

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/barasher/go-exiftool"

	"github.com/PedroLopes/ai-rename-images/internal/fsops"
)

type fakeExtractor struct {
	results []exiftool.FileMetadata
	closed  bool
}

func (f *fakeExtractor) ExtractMetadata(files ...string) []exiftool.FileMetadata {
	return f.results
}

func (f *fakeExtractor) Close() error {
	f.closed = true
	return nil
}

func TestParseCoordinates(t *testing.T) {
	testCases := []struct {
		name              string
		value             string
		expectedLatitude  float64
		expectedLongitude float64
		expectError       bool
	}{
		{name: "degrees minutes seconds", value: `35 deg 39' 36.00" N, 139 deg 44' 24.00" E`, expectedLatitude: 35.66, expectedLongitude: 139.74},
		{name: "southern and western hemisphere", value: `33 deg 52' 12.00" S, 151 deg 12' 36.00" W`, expectedLatitude: -33.87, expectedLongitude: -151.21},
		{name: "decimal", value: "48.8584, 2.2945", expectedLatitude: 48.8584, expectedLongitude: 2.2945},
		{name: "negative decimal", value: "-22.9519, -43.2105", expectedLatitude: -22.9519, expectedLongitude: -43.2105},
		{name: "single value", value: "48.8584", expectError: true},
		{name: "out of range", value: "95.0, 10.0", expectError: true},
		{name: "no numbers", value: "N, E", expectError: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			latitude, longitude, err := ParseCoordinates(testCase.value)
			if testCase.expectError {
				if err == nil {
					t.Fatalf("expected error for %q", testCase.value)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse %q: %v", testCase.value, err)
			}
			if math.Abs(latitude-testCase.expectedLatitude) > 1e-4 || math.Abs(longitude-testCase.expectedLongitude) > 1e-4 {
				t.Fatalf("expected %f,%f got %f,%f", testCase.expectedLatitude, testCase.expectedLongitude, latitude, longitude)
			}
		})
	}
}

func TestExiftoolCollectorFiltersInOrder(t *testing.T) {
	extractor := &fakeExtractor{results: []exiftool.FileMetadata{{
		File: "/photos/a.jpg",
		Fields: map[string]interface{}{
			"Model":            "X100V",
			"Make":             "FUJIFILM",
			"DateTimeOriginal": "2024:03:05 10:00:00",
			"ISO":              float64(200),
			"Orientation":      "Horizontal (normal)",
			"GPSPosition":      `35 deg 39' 36.00" N, 139 deg 44' 24.00" E`,
		},
	}}}
	collector := newExiftoolCollector(extractor, nil)

	collected, err := collector.Collect(context.Background(), "/photos/a.jpg")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	expectedLines := []string{
		"DateTimeOriginal: 2024:03:05 10:00:00",
		"Make: FUJIFILM",
		"Model: X100V",
		"Orientation: Horizontal (normal)",
	}
	if !reflect.DeepEqual(collected.Lines(), expectedLines) {
		t.Fatalf("expected %v, got %v", expectedLines, collected.Lines())
	}
	if !collected.HasGPS || math.Abs(collected.Latitude-35.66) > 1e-4 {
		t.Fatalf("expected gps coordinates, got %+v", collected)
	}
	if err := collector.Close(); err != nil || !extractor.closed {
		t.Fatalf("expected extractor closed, err=%v", err)
	}
}

func TestExiftoolCollectorReportsExtractionError(t *testing.T) {
	extractionErr := errors.New("file not found")
	collector := newExiftoolCollector(&fakeExtractor{results: []exiftool.FileMetadata{{Err: extractionErr}}}, []string{"Make"})
	if _, err := collector.Collect(context.Background(), "/missing.jpg"); !errors.Is(err, extractionErr) {
		t.Fatalf("expected extraction error, got %v", err)
	}
}

func TestEmbeddedCollectorWithoutExif(t *testing.T) {
	memoryFS := fsops.NewMem()
	var encoded bytes.Buffer
	picture := image.NewRGBA(image.Rect(0, 0, 4, 4))
	picture.Set(1, 1, color.RGBA{R: 255, A: 255})
	if err := png.Encode(&encoded, picture); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := memoryFS.WriteFile("/photos/plain.jpg", encoded.Bytes(), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	collected, err := EmbeddedCollector{FS: memoryFS}.Collect(context.Background(), "/photos/plain.jpg")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !collected.Empty() {
		t.Fatalf("expected empty metadata, got %+v", collected)
	}

	if _, err := (EmbeddedCollector{FS: memoryFS}).Collect(context.Background(), "/photos/missing.jpg"); err == nil {
		t.Fatalf("expected read error for missing file")
	}
}

func TestNominatimReverse(t *testing.T) {
	var receivedQuery, receivedAgent string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != nominatimReversePath {
			t.Errorf("unexpected path %s", request.URL.Path)
		}
		receivedQuery = request.URL.RawQuery
		receivedAgent = request.Header.Get("User-Agent")
		_, _ = writer.Write([]byte(`{"display_name":"Tokyo Tower, Minato, Tokyo, Japan"}`))
	}))
	defer server.Close()

	geocoder := Nominatim{BaseURL: server.URL}
	address, err := geocoder.Reverse(context.Background(), 35.6586, 139.7454)
	if err != nil {
		t.Fatalf("reverse: %v", err)
	}
	if address != "Tokyo Tower, Minato, Tokyo, Japan" {
		t.Fatalf("unexpected address %q", address)
	}
	if receivedAgent != DefaultNominatimUserAgent {
		t.Fatalf("unexpected user agent %q", receivedAgent)
	}
	for _, expected := range []string{"format=jsonv2", "lat=35.658600", "lon=139.745400"} {
		if !strings.Contains(receivedQuery, expected) {
			t.Fatalf("expected %s in query %q", expected, receivedQuery)
		}
	}
}

func TestNominatimErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "error field", status: http.StatusOK, body: `{"error":"Unable to geocode"}`},
		{name: "empty address", status: http.StatusOK, body: `{}`},
		{name: "http failure", status: http.StatusForbidden, body: `blocked`},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(testCase.status)
				_, _ = writer.Write([]byte(testCase.body))
			}))
			defer server.Close()

			if _, err := (Nominatim{BaseURL: server.URL}).Reverse(context.Background(), 1, 2); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
