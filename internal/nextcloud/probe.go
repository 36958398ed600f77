package nextcloud

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/webdav-tools/nextcloud_sync/internal/retry"
)

// probeTimeout bounds a single preflight request.
const probeTimeout = 10 * time.Second

// ProbeWithRetry checks that the server answers its status endpoint before
// the sync loop starts. Best effort by contract: callers decide whether a
// persistent failure is fatal or just a warning.
func ProbeWithRetry(ctx context.Context, serverURL string) error {
	config := retry.ProbeDefaults()
	statusURL := NormalizeServerURL(serverURL) + "/status.php"

	err := retry.WithOperation(ctx, config, func() error {
		return probe(ctx, statusURL)
	}, "server probe")

	if err != nil {
		logrus.WithError(err).WithField("url", statusURL).
			Warn("Server preflight failed after all retries")
		return err
	}

	logrus.WithField("url", statusURL).Info("Server preflight succeeded")
	return nil
}

func probe(ctx context.Context, statusURL string) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}
