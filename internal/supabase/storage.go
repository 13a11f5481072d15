package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
)

var ErrUnsupportedProofType = errors.New("proof must be an image or a PDF")

// ObjectStorage is the subset of the storage-go client used for proofs.
type ObjectStorage interface {
	UploadFile(bucketID string, relativePath string, data io.Reader, fileOptions ...storage_go.FileOptions) (storage_go.FileUploadResponse, error)
	GetPublicUrl(bucketID string, filePath string, urlOptions ...storage_go.UrlOptions) storage_go.SignedUrlResponse
}

// ProofStore keeps bank-transfer receipts in a Supabase storage bucket.
type ProofStore struct {
	storage ObjectStorage
	bucket  string
}

func NewProofStore(storage ObjectStorage, bucket string) *ProofStore {
	return &ProofStore{storage: storage, bucket: bucket}
}

// Upload stores the proof under <payerID>/<uuid><ext> and returns its public URL.
// storage-go has no context support, so ctx is only checked before the upload.
func (s *ProofStore) Upload(ctx context.Context, payerID, filename, contentType string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !allowedProofType(contentType) {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProofType, contentType)
	}
	if payerID == "" {
		payerID = "anonymous"
	}

	objectPath := payerID + "/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
	upsert := false
	_, err := s.storage.UploadFile(s.bucket, objectPath, data, storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	})
	if err != nil {
		return "", fmt.Errorf("upload proof: %w", err)
	}

	return s.storage.GetPublicUrl(s.bucket, objectPath).SignedURL, nil
}

func allowedProofType(contentType string) bool {
	return strings.HasPrefix(contentType, "image/") || contentType == "application/pdf"
}
