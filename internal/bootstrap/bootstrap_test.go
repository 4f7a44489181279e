package bootstrap_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/insight-agent/internal/app/conversation"
	"github.com/PabloGalante/insight-agent/internal/bootstrap"
	"github.com/PabloGalante/insight-agent/internal/config"
	"github.com/PabloGalante/insight-agent/internal/domain"
)

func TestNewWithEachLocalBackend(t *testing.T) {
	for _, backend := range []config.StorageBackend{config.StorageMemory, config.StorageSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			ctx := context.Background()
			cfg := &config.Config{
				StorageBackend: backend,
				SQLitePath:     filepath.Join(t.TempDir(), "insight.db"),
				TransitionStep: 50,
			}

			app, err := bootstrap.New(ctx, cfg)
			require.NoError(t, err)
			t.Cleanup(func() { app.Close() })

			started, err := app.Service.StartSession(ctx, conversation.StartSessionInput{UserID: "u1"})
			require.NoError(t, err)

			out, err := app.Service.Submit(ctx, conversation.SendMessageInput{
				SessionID: started.Session.ID,
				Text:      "매체 기여도 분석",
			})
			require.NoError(t, err)
			assert.Equal(t, domain.ModeAttribution, out.Session.View.Mode)

			_, msgs, err := app.Service.GetSessionTimeline(ctx, started.Session.ID, 0)
			require.NoError(t, err)
			assert.Len(t, msgs, 2)
		})
	}
}

func TestNewRouterFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	require.NoError(t, os.WriteFile(path, []byte("causal: [uplift]\nattribution: [credit]\nhome: [back]\n"), 0o600))

	r, err := bootstrap.NewRouter(path)
	require.NoError(t, err)
	assert.Equal(t, domain.ModeCausal, r.Classify("uplift", domain.ModeDefault).Next)

	_, err = bootstrap.NewRouter(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
