package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bakkerme/jobalert/internal/config"
	"github.com/bakkerme/jobalert/internal/core"
	"github.com/bakkerme/jobalert/internal/outputs/message/mock"
	"github.com/bakkerme/jobalert/internal/runner/snapshot"
	"github.com/bakkerme/jobalert/internal/sources/adzuna"
	adzunamock "github.com/bakkerme/jobalert/internal/sources/adzuna/mock"
)

func TestDefaultDocumentBuildsWorkingPipeline(t *testing.T) {
	searcher := &adzunamock.Searcher{Jobs: []adzuna.Job{{ID: "1", Title: "Graduate Engineer"}}}
	sender := &mock.Sender{}
	env := config.EnvConfig{Twilio: config.TwilioEnvConfig{From: "whatsapp:+1", To: "whatsapp:+2"}}
	f := &Factory{Env: env, AdzunaSearcher: searcher, Sender: sender}

	pipeline, err := config.DefaultDocument().ParseToPipelineWithFactory(f)
	require.NoError(t, err)
	assert.Nil(t, pipeline.Trigger)
	assert.Equal(t, "adzuna", pipeline.Source.Name())
	assert.Equal(t, "twilio", pipeline.Output.Name())
	require.Len(t, pipeline.Quality, 1)

	postings, err := pipeline.Source.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, postings, 1)
	require.NoError(t, pipeline.Output.Deliver(context.Background(), postings[0]))
	require.Len(t, sender.Messages, 1)
	assert.Equal(t, "whatsapp:+2", sender.Messages[0].To)
	assert.Contains(t, sender.Messages[0].Body, "Role: Graduate Engineer")
}

func TestDocumentOverridesAndSnapshots(t *testing.T) {
	doc, err := config.ParseDocument([]byte(`
source:
  adzuna:
    keywords: [sde]
    snapshot: {snapshot: true, path: "snapshots/adzuna.json"}
output:
  telegram: {chat_id: -100}
schedule:
  cron: "0 9 * * *"
`))
	require.NoError(t, err)
	sender := &mock.Sender{}
	f := &Factory{Env: config.EnvConfig{Telegram: config.TelegramEnvConfig{ChatID: 5}}, AdzunaSearcher: &adzunamock.Searcher{}, Sender: sender}

	pipeline, err := doc.ParseToPipelineWithFactory(f)
	require.NoError(t, err)
	_, wrapped := pipeline.Source.(*snapshot.SourceWrapper)
	assert.True(t, wrapped)
	require.NotNil(t, pipeline.Trigger)

	require.NoError(t, pipeline.Output.Deliver(context.Background(), core.Posting{Title: "Intern"}))
	assert.Equal(t, "-100", sender.Messages[0].To)
}

func TestTelegramRequiresChatID(t *testing.T) {
	f := &Factory{Sender: &mock.Sender{}}
	_, err := f.NewTelegramOutput(&config.TelegramOutput{}, config.DeliveryConfig{})
	assert.Error(t, err)
}

func TestInvalidCronIsRejected(t *testing.T) {
	f := &Factory{}
	_, err := f.NewCronTrigger(&config.CronTrigger{Cron: "every day"})
	assert.Error(t, err)
}
