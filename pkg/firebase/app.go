package firebase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/jgechelper/backend/pkg/config"
	"github.com/jgechelper/backend/pkg/logger"
	"google.golang.org/api/option"
)

const pingTimeout = 5 * time.Second

// App bundles the Firebase Admin clients the service talks to.
type App struct {
	app       *firebase.App
	auth      *auth.Client
	firestore *firestore.Client
	bucket    string
	opts      []option.ClientOption
}

// New initializes the Firebase Admin SDK. Firestore is only opened when
// withFirestore is set so SQL-backed deployments do not need the API enabled.
func New(ctx context.Context, cfg config.FirebaseConfig, withFirestore bool, logg *logger.Logger) (*App, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is required")
	}

	opts := clientOptions(cfg)
	app, err := firebase.NewApp(ctx, &firebase.Config{
		ProjectID:     cfg.ProjectID,
		StorageBucket: cfg.StorageBucket,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	authClient, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase auth: %w", err)
	}

	out := &App{app: app, auth: authClient, bucket: cfg.StorageBucket, opts: opts}

	if withFirestore {
		fs, err := app.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore: %w", err)
		}
		out.firestore = fs
	}

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"project_id": cfg.ProjectID,
			"firestore":  withFirestore,
		}), "firebase app initialized")
	}
	return out, nil
}

func clientOptions(cfg config.FirebaseConfig) []option.ClientOption {
	switch {
	case cfg.CredentialsJSON != "":
		return []option.ClientOption{option.WithCredentialsJSON([]byte(cfg.CredentialsJSON))}
	case cfg.CredentialsFile != "":
		return []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
	}
	return nil
}

// Auth returns the Admin auth client.
func (a *App) Auth() *auth.Client {
	return a.auth
}

// Firestore returns the document client, or nil when it was not requested.
func (a *App) Firestore() *firestore.Client {
	return a.firestore
}

// ClientOptions exposes the credential options for sibling Google clients.
func (a *App) ClientOptions() []option.ClientOption {
	return a.opts
}

// StorageBucket is the default Firebase Storage bucket name.
func (a *App) StorageBucket() string {
	return a.bucket
}

// Ping reads the settings document to prove Firestore is reachable. A
// missing document still counts as healthy.
func (a *App) Ping(ctx context.Context) error {
	if a == nil || a.firestore == nil {
		return errors.New("firestore not initialized")
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if _, err := a.firestore.Collection("settings").Doc("general").Get(ctx); err != nil && !IsNotFound(err) {
		return err
	}
	return nil
}

// Close releases the Firestore connection if one was opened.
func (a *App) Close() error {
	if a == nil || a.firestore == nil {
		return nil
	}
	return a.firestore.Close()
}
