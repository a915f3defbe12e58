package main

import (
	"log"

	"cloud.google.com/go/firestore"
	"go.uber.org/zap"

	"teknigo_backend/internal/config"
	"teknigo_backend/internal/firebase"
	"teknigo_backend/internal/platform/logger"
)

// provideLogger builds the application logger and flushes it on cleanup.
func provideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	l, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := l.Sync(); err != nil {
			log.Printf("ERROR: Failed to sync logger during cleanup: %v", err)
		}
	}
	return l, cleanup, nil
}

func provideFirestore(fb *firebase.FirebaseService) *firestore.Client {
	return fb.Firestore()
}
