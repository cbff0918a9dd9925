package storage

import (
	"context"
	"fmt"
	"io"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// StandingsKey is the object key of a classification snapshot taken at round.
func StandingsKey(tournamentID, round int) string {
	return fmt.Sprintf("standings/tournament-%d/round-%d.json", tournamentID, round)
}
