package geo

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeZone serializes a polygon into the storage column text format:
//
//	[
//	    (lat,long),
//	    (lat,long)
//	]
//
// Coordinates are written with 5-decimal fixed precision.
func EncodeZone(polygon []Coordinate) string {
	pairs := make([]string, 0, len(polygon))
	for _, c := range polygon {
		pairs = append(pairs, fmt.Sprintf("(%.5f,%.5f)", c.Lat, c.Long))
	}
	return fmt.Sprintf("[\n    %s\n]", strings.Join(pairs, ",\n    "))
}

// DecodeZone parses the storage column text format back into a polygon.
// Tokens that fail to parse decode as 0.
func DecodeZone(s string) []Coordinate {
	content := strings.TrimSpace(s)
	content = strings.TrimPrefix(content, "[")
	content = strings.TrimSuffix(content, "]")
	content = strings.TrimSpace(content)

	var tokens []string
	for _, tok := range strings.Split(content, ",") {
		if strings.TrimSpace(tok) == "" {
			continue
		}
		tokens = append(tokens, tok)
	}

	var polygon []Coordinate
	for i := 0; i+1 < len(tokens); i += 2 {
		polygon = append(polygon, Coordinate{
			Lat:  parseToken(tokens[i]),
			Long: parseToken(tokens[i+1]),
		})
	}
	return polygon
}

func parseToken(tok string) float64 {
	tok = strings.TrimSpace(tok)
	tok = strings.TrimPrefix(tok, "(")
	tok = strings.TrimSuffix(tok, ")")
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0
	}
	return v
}
