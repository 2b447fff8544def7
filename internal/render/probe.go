package render

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"kiosk/internal/services"
)

// checkLocation confirms the asset exists, without reading it.
func checkLocation(ctx context.Context, client *http.Client, component string, loc Location) error {
	if loc.Remote() {
		return headURL(ctx, client, component, loc.URL)
	}
	info, err := os.Stat(loc.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return renderFailure(services.ErrNotFound, component, "stat", loc.Path, err)
		}
		return renderFailure(services.ErrTransient, component, "stat", loc.Path, err)
	}
	if info.IsDir() {
		return renderFailure(services.ErrValidation, component, "stat", loc.Path+" is a directory", nil)
	}
	return nil
}

func headURL(ctx context.Context, client *http.Client, component, rawURL string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return renderFailure(services.ErrValidation, component, "head", "build request", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return renderFailure(services.ErrTransient, component, "head", rawURL, err)
	}
	resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return renderFailure(services.ErrNotFound, component, "head", fmt.Sprintf("%s (%d)", rawURL, resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		return renderFailure(services.ErrTransient, component, "head", fmt.Sprintf("%s (%d)", rawURL, resp.StatusCode), nil)
	}
	return nil
}
