package repository

import (
	"fmt"
	"strconv"
	"strings"
)

// vectorToString は[]float32をpgvectorのリテラル形式（[0.1,0.2,...]）に変換する。
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = strconv.FormatFloat(float64(val), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// parseVector はpgvectorのリテラル形式を[]float32にパースする。
func parseVector(s string) ([]float32, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, fmt.Errorf("invalid vector literal: %q", s)
	}
	body := s[1 : len(s)-1]
	if body == "" {
		return []float32{}, nil
	}

	parts := strings.Split(body, ",")
	out := make([]float32, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return nil, fmt.Errorf("invalid vector element %d: %w", i, err)
		}
		out[i] = float32(f)
	}
	return out, nil
}
