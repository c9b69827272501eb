package pubsub

import (
	"context"
	"testing"

	"github.com/angelmondragon/fieldpos-backend/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicResourceName(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		project string
		name    string
		want    string
	}{
		"bare id":       {project: "fieldpos", name: "pos-notifications", want: "projects/fieldpos/topics/pos-notifications"},
		"full name":     {project: "other", name: "projects/fieldpos/topics/x", want: "projects/fieldpos/topics/x"},
		"trims":         {project: " fieldpos ", name: " t ", want: "projects/fieldpos/topics/t"},
		"empty name":    {project: "fieldpos", name: "", want: ""},
		"empty project": {project: "", name: "t", want: ""},
	}
	for name, tc := range cases {
		tc := tc
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, TopicResourceName(tc.project, tc.name))
		})
	}
}

func TestNewClientValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := NewClient(context.Background(), config.GCPConfig{}, config.PubSubConfig{NotificationTopic: "t"}, nil)
	require.ErrorIs(t, err, errProjectIDRequired)

	_, err = NewClient(context.Background(), config.GCPConfig{ProjectID: "p"}, config.PubSubConfig{}, nil)
	require.ErrorIs(t, err, errNoTopic)
}

func TestNilClientIsSafe(t *testing.T) {
	t.Parallel()

	var c *Client
	assert.Nil(t, c.Publisher("t"))
	assert.Nil(t, c.NotificationPublisher())
	assert.NoError(t, c.Close())
	assert.Error(t, c.Ping(context.Background()))
}
