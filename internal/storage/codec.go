package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/roadsigns/internal/models"
)

// ErrMalformedPersistedData is reported when a stored blob cannot be decoded.
// Callers recover by falling back to the bucket's default.
var ErrMalformedPersistedData = errors.New("malformed persisted data")

// CapturedAtLayout is the text form of Observation.CapturedAt on disk:
// RFC 3339 in UTC with exactly three fractional digits.
const CapturedAtLayout = "2006-01-02T15:04:05.000Z07:00"

type signRecord struct {
	ID         string  `json:"id"`
	Category   string  `json:"category"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	CapturedAt string  `json:"capturedAt"`
}

// EncodeSigns serializes the sign collection.
func EncodeSigns(signs []models.Observation) ([]byte, error) {
	records := make([]signRecord, 0, len(signs))
	for _, s := range signs {
		records = append(records, signRecord{
			ID:         s.ID,
			Category:   s.Category,
			Latitude:   s.Latitude,
			Longitude:  s.Longitude,
			CapturedAt: s.CapturedAt.UTC().Format(CapturedAtLayout),
		})
	}
	return json.Marshal(records)
}

// DecodeSigns parses a blob written by EncodeSigns.
func DecodeSigns(blob []byte) ([]models.Observation, error) {
	var records []signRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("%w: signs: %v", ErrMalformedPersistedData, err)
	}
	signs := make([]models.Observation, 0, len(records))
	for _, r := range records {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: signs: record without id", ErrMalformedPersistedData)
		}
		at, err := time.Parse(time.RFC3339Nano, r.CapturedAt)
		if err != nil {
			return nil, fmt.Errorf("%w: signs: %s: %v", ErrMalformedPersistedData, r.ID, err)
		}
		signs = append(signs, models.Observation{
			ID:         r.ID,
			Category:   r.Category,
			Latitude:   r.Latitude,
			Longitude:  r.Longitude,
			CapturedAt: at,
		})
	}
	return signs, nil
}

// EncodeCredentials serializes the credential set.
func EncodeCredentials(creds []models.Credential) ([]byte, error) {
	if creds == nil {
		creds = []models.Credential{}
	}
	return json.Marshal(creds)
}

// DecodeCredentials parses a blob written by EncodeCredentials.
func DecodeCredentials(blob []byte) ([]models.Credential, error) {
	var creds []models.Credential
	if err := json.Unmarshal(blob, &creds); err != nil {
		return nil, fmt.Errorf("%w: credentials: %v", ErrMalformedPersistedData, err)
	}
	return creds, nil
}
