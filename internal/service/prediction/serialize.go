package prediction

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// EncodeRegressor serializes a regressor for the binary store.
func EncodeRegressor(m *LinearRegressor) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode regressor: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeRegressor deserializes a regressor from the binary store.
func DecodeRegressor(b []byte) (*LinearRegressor, error) {
	var m LinearRegressor
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode regressor: %w", err)
	}
	return &m, nil
}

// EncodeClassifier serializes a classifier for the binary store.
func EncodeClassifier(m *LogisticClassifier) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(m); err != nil {
		return nil, fmt.Errorf("encode classifier: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeClassifier deserializes a classifier from the binary store.
func DecodeClassifier(b []byte) (*LogisticClassifier, error) {
	var m LogisticClassifier
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode classifier: %w", err)
	}
	return &m, nil
}
