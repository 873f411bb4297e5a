package artifacts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/hashicorp/go-hclog"

	"github.com/sonarkit-io/sonarkit/pkg/shared/config"
	"github.com/sonarkit-io/sonarkit/pkg/shared/files"
)

const s3Prefix = "s3://"

// GetArtifactName builds and returns an artifact name.
// Example: findings-sync_my-project_2026-08-25T08:28:46Z.sonarkit-artifact.
func GetArtifactName(command, target string, t time.Time) string {
	ts := t.UTC().Format(time.RFC3339)
	metaDataFileName := fmt.Sprintf("%s_%s_%s.sonarkit-artifact", command, target, ts)
	return metaDataFileName
}

// SaveArtifactJSON writes the provided result to <artifacts>/<base>.json.
// Returns full path.
func SaveArtifactJSON(cfg *config.Config, logger hclog.Logger, command, target string, result interface{}) (string, error) {
	dir := config.GetSonarkitArtifactsHome(cfg)
	base := GetArtifactName(command, target, time.Now())
	path := filepath.Join(dir, base+".json")

	resultData, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return path, fmt.Errorf("error marshaling the result data: %w", err)
	}

	if err := files.WriteFile(path, resultData); err != nil {
		return path, fmt.Errorf("error writing result to artifact file: %w", err)
	}
	logger.Info("artifact saved to file", "path", path)

	return path, nil
}

// WriteJSON writes the result to the requested output location.
// Supported locations: "-" for stdout, an "s3://bucket/key" URL, a local file
// path, or empty for the default artifacts folder. Returns the location the
// artifact ended up at.
func WriteJSON(cfg *config.Config, logger hclog.Logger, command, target, output string, result interface{}) (string, error) {
	if output == "" {
		return SaveArtifactJSON(cfg, logger, command, target, result)
	}

	resultData, err := json.MarshalIndent(result, "", "    ")
	if err != nil {
		return output, fmt.Errorf("error marshaling the result data: %w", err)
	}

	return WriteRaw(cfg, logger, command, target, output, "json", append(resultData, '\n'))
}

// WriteRaw writes pre-rendered artifact data to the requested output
// location with the same dispatch as WriteJSON; ext names the default
// artifact extension (csv, sarif, yml).
func WriteRaw(cfg *config.Config, logger hclog.Logger, command, target, output, ext string, data []byte) (string, error) {
	switch {
	case output == "":
		dir := config.GetSonarkitArtifactsHome(cfg)
		path := filepath.Join(dir, GetArtifactName(command, target, time.Now())+"."+ext)
		if err := files.WriteFile(path, data); err != nil {
			return path, fmt.Errorf("error writing result to artifact file: %w", err)
		}
		logger.Info("artifact saved to file", "path", path)
		return path, nil
	case output == "-":
		if _, err := os.Stdout.Write(data); err != nil {
			return output, fmt.Errorf("error writing result to stdout: %w", err)
		}
		return output, nil
	case strings.HasPrefix(output, s3Prefix):
		bucket, key, err := parseS3URL(output)
		if err != nil {
			return output, err
		}
		if err := uploadS3(logger, bucket, key, data); err != nil {
			return output, err
		}
		return output, nil
	default:
		path, err := files.ExpandPath(output)
		if err != nil {
			return output, fmt.Errorf("failed to expand output path %q: %w", output, err)
		}
		if err := files.CreateFolderIfNotExists(filepath.Dir(path)); err != nil {
			return path, err
		}
		if err := files.WriteFile(path, data); err != nil {
			return path, fmt.Errorf("error writing result to file: %w", err)
		}
		logger.Info("artifact saved to file", "path", path)
		return path, nil
	}
}

// parseS3URL splits an s3://bucket/key URL into its bucket and key parts.
func parseS3URL(raw string) (string, string, error) {
	trimmed := strings.TrimPrefix(raw, s3Prefix)
	parts := strings.SplitN(trimmed, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid S3 URL %q: expected s3://bucket/key", raw)
	}
	return parts[0], parts[1], nil
}

// uploadS3 uploads the artifact body to S3. Credentials and region come from
// the standard AWS environment and shared config.
func uploadS3(logger hclog.Logger, bucket, key string, data []byte) error {
	sess, err := session.NewSessionWithOptions(session.Options{
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return fmt.Errorf("unable to create AWS session: %w", err)
	}

	uploader := s3manager.NewUploader(sess)
	result, err := uploader.Upload(&s3manager.UploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to upload artifact to s3://%s/%s: %w", bucket, key, err)
	}
	logger.Info("artifact uploaded", "location", result.Location)

	return nil
}
