package logging_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/x-research-team/post-query/internal/config"
	"github.com/x-research-team/post-query/internal/logging"
)

func TestNew_JSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(config.LogConfig{Level: "info", Format: config.FormatJSON}, &buf)
	require.NoError(t, err)

	logger.Debug("скрыто")
	logger.Info("запрос обработан", "query.type", "all_posts")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "ровно одна запись: debug отфильтрован")
	assert.Equal(t, "запрос обработан", entry["msg"])
	assert.Equal(t, "all_posts", entry["query.type"])

	ts, err := time.Parse(time.RFC3339Nano, entry["time"].(string))
	require.NoError(t, err)
	assert.Equal(t, time.UTC, ts.Location())
}

func TestNew_Text(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger, err := logging.New(config.LogConfig{Level: "debug", Format: config.FormatText}, &buf)
	require.NoError(t, err)

	logger.Debug("отладка", "kind", "post_by_id")
	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "kind=post_by_id")
	assert.Contains(t, buf.String(), "source=")
}

func TestNew_InvalidLevel(t *testing.T) {
	t.Parallel()

	_, err := logging.New(config.LogConfig{Level: "loud"}, &bytes.Buffer{})
	require.Error(t, err)
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := logging.Discard()
	logger.Error("никуда")
	assert.False(t, logger.Enabled(t.Context(), 0))
}
