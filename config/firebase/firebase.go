package firebase

import (
	"context"
	"fmt"

	fb "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

// NewApp builds the Firebase Admin app shared by the auth and Firestore clients.
// An empty credentials file falls back to application default credentials.
func NewApp(ctx context.Context, projectID, credentialsFile string) (*fb.App, error) {
	var conf *fb.Config
	if projectID != "" {
		conf = &fb.Config{ProjectID: projectID}
	}

	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := fb.NewApp(ctx, conf, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	return app, nil
}
