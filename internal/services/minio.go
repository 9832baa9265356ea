package services

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog/log"
)

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// ImageStore range les photos produit dans un bucket MinIO.
type ImageStore struct {
	client *minio.Client
	bucket string
}

func NewImageStore(client *minio.Client, bucket string) *ImageStore {
	return &ImageStore{client: client, bucket: bucket}
}

// ObjectName construit une clé unique "products/<id>/<uuid><ext>".
func ObjectName(productID, contentType string) (string, error) {
	ext, ok := allowedImageTypes[contentType]
	if !ok {
		return "", fmt.Errorf("type d'image non supporté: %q", contentType)
	}
	return path.Join("products", productID, uuid.NewString()+ext), nil
}

// Upload enregistre l'image et renvoie la clé de l'objet, pas une URL :
// les URLs sont signées à la lecture.
func (s *ImageStore) Upload(ctx context.Context, productID string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := ObjectName(productID, contentType)
	if err != nil {
		return "", err
	}
	_, err = s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("upload minio: %w", err)
	}
	log.Info().Str("bucket", s.bucket).Str("key", key).Msg("🖼️ Image produit enregistrée")
	return key, nil
}

func (s *ImageStore) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if strings.HasPrefix(key, "http://") || strings.HasPrefix(key, "https://") {
		return key, nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		return "", err
	}
	return u.String(), nil
}
