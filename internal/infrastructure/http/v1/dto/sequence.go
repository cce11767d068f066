package dto

import (
	"time"

	"bizdesk/internal/core/numerator"
	numfmt "bizdesk/pkg/numerator"
)

// AdvanceSequenceRequest raises a counter.
type AdvanceSequenceRequest struct {
	Value *int64 `json:"value" binding:"required,min=0"`
}

// NextNumberResponse carries one issued number.
type NextNumberResponse struct {
	Key    string `json:"key"`
	Number string `json:"number"`
}

// SequenceResponse is the read-only view of a counter.
type SequenceResponse struct {
	Key          string    `json:"key"`
	StoreKey     string    `json:"storeKey"`
	CurrentValue int64     `json:"currentValue"`
	LastNumber   string    `json:"lastNumber"`
	LastUpdated  time.Time `json:"lastUpdated"`
	Version      int64     `json:"version"`
}

// FromCounter creates SequenceResponse; cfg formats the last issued value.
func FromCounter(key string, c numerator.Counter, cfg numerator.Config) SequenceResponse {
	return SequenceResponse{
		Key:          key,
		StoreKey:     c.Key,
		CurrentValue: c.CurrentValue,
		LastNumber:   numfmt.Format(cfg, c.CurrentValue),
		LastUpdated:  c.LastUpdated,
		Version:      c.Version,
	}
}
