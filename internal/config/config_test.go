package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"szurubooru": {"url": "http://localhost:8080", "username": "bot", "token": "secret"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, filepath.Join(os.TempDir(), "szurutag"), cfg.AutoTagger.TmpPath)
	require.Equal(t, 80, cfg.AutoTagger.SauceNao.MinSimilarity)
	require.InDelta(t, 0.35, cfg.AutoTagger.Tagger.Threshold, 0.0001)
	require.Equal(t, "szurutag.db", cfg.History.Path)
	require.Equal(t, 8824, cfg.Serve.Port)
	require.Equal(t, "0 3 * * *", cfg.Daemon.Schedule)
	require.Equal(t, "tag-count:0", cfg.Daemon.Query)
}

func TestLoad_RejectsMissingBoardCredentials(t *testing.T) {
	path := writeConfig(t, `{"szurubooru": {"url": "http://localhost:8080", "username": "bot"}}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "szurubooru.token")
}

func TestLoad_RejectsEnabledSauceNaoWithoutKey(t *testing.T) {
	path := writeConfig(t, `{
		"szurubooru": {"url": "u", "username": "n", "token": "t"},
		"auto_tagger": {"saucenao": {"enabled": true}}
	}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "saucenao.api_key")
}

func TestLoad_RejectsBadCronSchedule(t *testing.T) {
	path := writeConfig(t, `{
		"szurubooru": {"url": "u", "username": "n", "token": "t"},
		"daemon": {"schedule": "not a cron"}
	}`)
	_, err := Load(path)
	require.ErrorContains(t, err, "daemon.schedule")
}
