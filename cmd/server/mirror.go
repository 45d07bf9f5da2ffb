package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/blackrab369/Versaas-ai/internal/persistence/mirror"
)

// buildMirror constructs the off-site snapshot mirror from VERSAAS_MIRROR_*
// environment variables. It returns nil when mirroring is disabled; a nil
// Mirror is a no-op.
func buildMirror(dataDir string, logger *log.Logger) (*mirror.Mirror, error) {
	if !envBool("VERSAAS_MIRROR", false) {
		return nil, nil
	}

	endpoint := strings.TrimSpace(os.Getenv("VERSAAS_MIRROR_ENDPOINT"))
	bucket := strings.TrimSpace(os.Getenv("VERSAAS_MIRROR_BUCKET"))
	accessKeyID := strings.TrimSpace(os.Getenv("VERSAAS_MIRROR_ACCESS_KEY_ID"))
	secretAccessKey := strings.TrimSpace(os.Getenv("VERSAAS_MIRROR_SECRET_ACCESS_KEY"))

	if endpoint == "" || bucket == "" || accessKeyID == "" || secretAccessKey == "" {
		return nil, fmt.Errorf("VERSAAS_MIRROR=true but VERSAAS_MIRROR_ENDPOINT/VERSAAS_MIRROR_BUCKET/VERSAAS_MIRROR_ACCESS_KEY_ID/VERSAAS_MIRROR_SECRET_ACCESS_KEY are not fully set")
	}

	client, err := mirror.NewClient(endpoint, bucket, accessKeyID, secretAccessKey)
	if err != nil {
		return nil, err
	}

	return mirror.New(client, mirror.Options{
		DataDir: dataDir,
		Prefix:  strings.TrimSpace(os.Getenv("VERSAAS_MIRROR_PREFIX")),
		Workers: envInt("VERSAAS_MIRROR_UPLOAD_WORKERS", 2),
		Logger:  logger,
	}), nil
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
