package vertex

import (
	"clipify-backend/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPayloadPrefersPredictions(t *testing.T) {
	result := &operationResult{
		Predictions:        []mediaSample{{BytesBase64Encoded: "from-predictions"}},
		Videos:             []mediaSample{{BytesBase64Encoded: "from-videos"}},
		BytesBase64Encoded: "from-top-level",
	}

	payload, err := ExtractPayload(result)
	require.NoError(t, err)
	assert.Equal(t, "from-predictions", payload)
}

func TestExtractPayloadVideosBeforeInline(t *testing.T) {
	result := &operationResult{
		Videos:             []mediaSample{{BytesBase64Encoded: "from-videos"}},
		BytesBase64Encoded: "from-top-level",
	}

	payload, err := ExtractPayload(result)
	require.NoError(t, err)
	assert.Equal(t, "from-videos", payload)
}

func TestExtractPayloadInlineBytes(t *testing.T) {
	result := &operationResult{BytesBase64Encoded: "from-top-level"}

	payload, err := ExtractPayload(result)
	require.NoError(t, err)
	assert.Equal(t, "from-top-level", payload)
}

func TestExtractPayloadSkipsSamplesWithoutBytes(t *testing.T) {
	result := &operationResult{
		Predictions: []mediaSample{
			{GcsURI: "gs://bucket/sample-0.png"},
			{BytesBase64Encoded: "second-sample"},
		},
	}

	payload, err := ExtractPayload(result)
	require.NoError(t, err)
	assert.Equal(t, "second-sample", payload)
}

func TestExtractPayloadRemoteReferenceOnly(t *testing.T) {
	results := []*operationResult{
		{GcsURI: "gs://bucket/out.mp4"},
		{Predictions: []mediaSample{{GcsURI: "gs://bucket/out.png"}}},
		{Videos: []mediaSample{{GcsURI: "gs://bucket/out.mp4", MimeType: "video/mp4"}}},
	}

	for _, result := range results {
		_, err := ExtractPayload(result)
		assert.ErrorIs(t, err, domain.ErrUnsupportedResult)
	}
}

func TestExtractPayloadEmptyResult(t *testing.T) {
	_, err := ExtractPayload(&operationResult{})
	assert.ErrorIs(t, err, domain.ErrEmptyResultPayload)
}
