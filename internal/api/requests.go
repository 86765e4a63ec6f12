// AgroAdvisor - Adaptive Crop Recommendation Engine
// Copyright 2026 Kisan Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/kisanlabs/agroadvisor

package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/kisanlabs/agroadvisor/internal/advisor"
	"github.com/kisanlabs/agroadvisor/internal/providers"
)

// maxBodyBytes bounds request bodies; condition payloads are tiny.
const maxBodyBytes = 1 << 20

// ConditionsRequest carries field conditions. Clients send either the
// full set or latitude/longitude, in which case the weather provider
// fills temperature, rainfall and humidity, and the soil reference
// tables fill pH and organic matter.
type ConditionsRequest struct {
	SoilType      string   `json:"soil_type" validate:"required"`
	Season        string   `json:"season" validate:"required"`
	Temperature   *float64 `json:"temperature" validate:"omitempty,gte=-20,lte=60"`
	Rainfall      *float64 `json:"rainfall" validate:"omitempty,gte=0,lte=12000"`
	Humidity      *float64 `json:"humidity" validate:"omitempty,gte=0,lte=100"`
	PH            *float64 `json:"ph" validate:"omitempty,gt=0,lte=14"`
	OrganicMatter *float64 `json:"organic_matter" validate:"omitempty,gte=0,lte=100"`
	Latitude      *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"omitempty,longitude"`
}

// PersonalizedRequest adds the requesting user to a conditions payload.
type PersonalizedRequest struct {
	ConditionsRequest
	UserID string `json:"user_id" validate:"required"`
}

// CropQueryRequest targets a specific crop, for yield and fertilizer
// predictions.
type CropQueryRequest struct {
	ConditionsRequest
	Crop string `json:"crop" validate:"required"`
}

// FeedbackRequest reports an observed outcome for a past prediction.
type FeedbackRequest struct {
	UserID         string            `json:"user_id" validate:"required"`
	PredictionType string            `json:"prediction_type" validate:"required,oneof=crop_recommendation yield_prediction fertilizer_recommendation"`
	Conditions     ConditionsRequest `json:"conditions"`
	Outcome        advisor.Outcome   `json:"outcome"`
	Rating         int               `json:"rating" validate:"required,gte=1,lte=5"`
}

// decodeJSON reads and strictly decodes a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Reject trailing garbage after the JSON document.
	if dec.More() {
		return fmt.Errorf("unexpected data after JSON body")
	}
	_, _ = io.Copy(io.Discard, body)
	return nil
}

// resolveConditions turns a request payload into engine conditions,
// consulting the weather provider for any climate fields the client
// omitted when coordinates are present.
func resolveConditions(ctx context.Context, req ConditionsRequest, weather providers.WeatherProvider) (advisor.Conditions, error) {
	cond := advisor.Conditions{
		SoilType: req.SoilType,
		Season:   req.Season,
	}

	var obs providers.Observation
	needWeather := req.Temperature == nil || req.Rainfall == nil || req.Humidity == nil
	if needWeather {
		if req.Latitude == nil || req.Longitude == nil {
			return advisor.Conditions{}, &advisor.ValidationError{
				Field:  "latitude",
				Reason: "temperature, rainfall and humidity are required unless latitude and longitude are given",
			}
		}
		if weather == nil {
			return advisor.Conditions{}, fmt.Errorf("no weather provider configured")
		}
		var err error
		obs, err = weather.Current(ctx, *req.Latitude, *req.Longitude)
		if err != nil {
			return advisor.Conditions{}, fmt.Errorf("resolve weather: %w", err)
		}
	}

	cond.Temperature = valueOr(req.Temperature, obs.TemperatureC)
	cond.Rainfall = valueOr(req.Rainfall, obs.RainfallMM)
	cond.Humidity = valueOr(req.Humidity, obs.Humidity)
	cond.PH = valueOr(req.PH, advisor.SoilPH(req.SoilType))
	cond.OrganicMatter = valueOr(req.OrganicMatter, advisor.OrganicMatterFor(req.SoilType))

	return cond, nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v != nil {
		return *v
	}
	return fallback
}
