package main

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"bookingwidget/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog(t *testing.T) {
	logger := zerolog.New(io.Discard)

	t.Run("missing file keeps defaults", func(t *testing.T) {
		catalog := loadCatalog(filepath.Join(t.TempDir(), "nope.yaml"), &logger)
		assert.Equal(t, models.DefaultCatalog(), catalog)
	})

	t.Run("services override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte("services:\n  - Pet Grooming\n  - Cat Sitting\n"), 0o600))

		catalog := loadCatalog(path, &logger)
		assert.Equal(t, []string{"Pet Grooming", "Cat Sitting"}, catalog.Services)
		assert.Equal(t, models.TimeSlots, catalog.TimeSlots)
	})

	t.Run("time slots override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte("time_slots: [\"10:00\", \"10:30\"]\n"), 0o600))

		catalog := loadCatalog(path, &logger)
		assert.Equal(t, []string{"10:00", "10:30"}, catalog.TimeSlots)
		assert.Equal(t, models.Services, catalog.Services)
	})

	t.Run("broken yaml keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "services.yaml")
		require.NoError(t, os.WriteFile(path, []byte("services: [unclosed\n"), 0o600))

		catalog := loadCatalog(path, &logger)
		assert.Equal(t, models.DefaultCatalog(), catalog)
	})
}
