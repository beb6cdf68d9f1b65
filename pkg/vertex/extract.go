package vertex

import (
	"clipify-backend/domain"
)

// The provider returns structurally different completion payloads depending on
// model family and API version: image models put samples under "predictions",
// video models under "videos", and some single-output endpoints inline the
// bytes at the top level. Extraction tries each known shape in fixed priority
// order and stops at the first one carrying inline bytes.

type (
	operationResult struct {
		Predictions        []mediaSample `json:"predictions,omitempty"`
		Videos             []mediaSample `json:"videos,omitempty"`
		BytesBase64Encoded string        `json:"bytesBase64Encoded,omitempty"`
		GcsURI             string        `json:"gcsUri,omitempty"`
		MimeType           string        `json:"mimeType,omitempty"`
	}

	mediaSample struct {
		BytesBase64Encoded string `json:"bytesBase64Encoded,omitempty"`
		GcsURI             string `json:"gcsUri,omitempty"`
		MimeType           string `json:"mimeType,omitempty"`
	}

	extractor func(*operationResult) (string, bool)
)

var extractors = []extractor{
	extractPredictionBytes,
	extractVideoBytes,
	extractInlineBytes,
}

// ExtractPayload returns the base64-encoded result of a finished operation.
// A result that only references remote storage is rejected: completion must
// carry the bytes inline, a secondary fetch is deliberately not performed.
func ExtractPayload(result *operationResult) (string, error) {
	for _, extract := range extractors {
		if payload, ok := extract(result); ok {
			return payload, nil
		}
	}

	if hasRemoteReference(result) {
		return "", domain.ErrUnsupportedResult
	}
	return "", domain.ErrEmptyResultPayload
}

func extractPredictionBytes(result *operationResult) (string, bool) {
	for _, sample := range result.Predictions {
		if sample.BytesBase64Encoded != "" {
			return sample.BytesBase64Encoded, true
		}
	}
	return "", false
}

func extractVideoBytes(result *operationResult) (string, bool) {
	for _, sample := range result.Videos {
		if sample.BytesBase64Encoded != "" {
			return sample.BytesBase64Encoded, true
		}
	}
	return "", false
}

func extractInlineBytes(result *operationResult) (string, bool) {
	if result.BytesBase64Encoded != "" {
		return result.BytesBase64Encoded, true
	}
	return "", false
}

func hasRemoteReference(result *operationResult) bool {
	if result.GcsURI != "" {
		return true
	}
	for _, sample := range result.Predictions {
		if sample.GcsURI != "" {
			return true
		}
	}
	for _, sample := range result.Videos {
		if sample.GcsURI != "" {
			return true
		}
	}
	return false
}
