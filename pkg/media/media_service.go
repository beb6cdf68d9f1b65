package media

import (
	"bytes"
	"clipify-backend/domain"
	"clipify-backend/internal/utils/storage"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

type (
	MediaService interface {
		// Ingest turns a raw result payload (data URI, remote URL or bare
		// base64) into a durable object and returns its public reference.
		Ingest(ctx context.Context, payload, mediaKind, userID, generationID string) (domain.OutputRef, error)
	}

	mediaService struct {
		s3         storage.AwsS3
		httpClient *http.Client
	}
)

func NewMediaService(s3 storage.AwsS3) MediaService {
	return &mediaService{
		s3:         s3,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (s *mediaService) Ingest(ctx context.Context, payload, mediaKind, userID, generationID string) (domain.OutputRef, error) {
	data, sourceURL, err := s.resolvePayload(ctx, payload)
	if err != nil {
		return domain.OutputRef{}, err
	}
	if len(data) == 0 {
		return domain.OutputRef{}, domain.ErrEmptyPayload
	}

	contentType, ext, recognized := sniffContentType(mediaKind, data)
	if !recognized {
		// Lenient policy: providers occasionally ship exotic containers, so an
		// unknown signature is logged but the bytes are still stored.
		log.Printf("media: unrecognized %s signature for generation %s, uploading anyway", mediaKind, generationID)
	}

	objectKey := fmt.Sprintf("generations/%s/%s%s", userID, generationID, ext)
	key, err := s.s3.UploadBytes(objectKey, data, contentType)
	if err != nil {
		// The billable work already happened; a storage failure must not sink
		// the completion. Fall back to whatever reference the payload carried.
		log.Printf("media: upload failed for generation %s, keeping source reference: %v", generationID, err)
		if sourceURL != "" {
			return domain.OutputRef{URL: sourceURL}, nil
		}
		return domain.OutputRef{}, fmt.Errorf("upload failed and no fallback reference: %w", err)
	}

	return domain.OutputRef{
		URL: s.s3.GetPublicLinkKey(key),
		Key: key,
	}, nil
}

// resolvePayload decodes the payload into raw bytes. Detection order: data
// URI, remote URL (gs:// mapped to the public storage host), raw base64.
func (s *mediaService) resolvePayload(ctx context.Context, payload string) ([]byte, string, error) {
	payload = strings.TrimSpace(payload)

	switch {
	case strings.HasPrefix(payload, "data:"):
		marker := ";base64,"
		idx := strings.Index(payload, marker)
		if idx < 0 {
			return nil, "", fmt.Errorf("%w: data URI without base64 payload", domain.ErrEmptyPayload)
		}
		data, err := base64.StdEncoding.DecodeString(payload[idx+len(marker):])
		if err != nil {
			return nil, "", err
		}
		return data, "", nil

	case strings.HasPrefix(payload, "http://"), strings.HasPrefix(payload, "https://"), strings.HasPrefix(payload, "gs://"):
		url := payload
		if strings.HasPrefix(payload, "gs://") {
			url = "https://storage.googleapis.com/" + strings.TrimPrefix(payload, "gs://")
		}
		data, err := s.fetchRemote(ctx, url)
		if err != nil {
			return nil, "", err
		}
		return data, payload, nil

	default:
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", err
		}
		return data, "", nil
	}
}

func (s *mediaService) fetchRemote(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPayloadFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", domain.ErrPayloadFetch, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

var (
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47}
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	webpRIFF  = []byte("RIFF")
	webmMagic = []byte{0x1A, 0x45, 0xDF, 0xA3}
	mp4Brand  = []byte("ftyp")
)

// sniffContentType checks well-known magic numbers for the declared media
// kind. The third return reports whether the signature was recognized.
func sniffContentType(mediaKind string, data []byte) (string, string, bool) {
	switch mediaKind {
	case domain.GenTypeVideo:
		if len(data) >= 12 && bytes.Equal(data[4:8], mp4Brand) {
			return "video/mp4", ".mp4", true
		}
		if bytes.HasPrefix(data, webmMagic) {
			return "video/webm", ".webm", true
		}
		return "video/mp4", ".mp4", false
	default:
		if bytes.HasPrefix(data, pngMagic) {
			return "image/png", ".png", true
		}
		if bytes.HasPrefix(data, jpegMagic) {
			return "image/jpeg", ".jpg", true
		}
		if bytes.HasPrefix(data, webpRIFF) && len(data) >= 12 && bytes.Equal(data[8:12], []byte("WEBP")) {
			return "image/webp", ".webp", true
		}
		return "image/png", ".png", false
	}
}
