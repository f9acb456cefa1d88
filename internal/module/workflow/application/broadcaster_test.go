package application_test

import (
	"testing"
	"time"

	"github.com/jinford/brandforge/internal/module/workflow/application"
	"github.com/jinford/brandforge/internal/module/workflow/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEvent(jobID string, progress int) domain.ProgressEvent {
	return domain.ProgressEvent{
		Type:      domain.EventProgress,
		JobID:     jobID,
		Progress:  progress,
		Message:   "working",
		Timestamp: time.Now().UTC(),
	}
}

func TestBroadcaster_Subscribe_UnknownJob(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	events := application.NewBroadcaster(registry, testLogger())

	// Execute
	_, ok := events.Subscribe("missing", func(domain.ProgressEvent) {})

	// Assert
	assert.False(t, ok)
}

func TestBroadcaster_PublishDeliversInRegistrationOrder(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	events := application.NewBroadcaster(registry, testLogger())
	job := registry.Create(testBrief("Acme"))

	var order []string
	_, ok := events.Subscribe(job.ID, func(domain.ProgressEvent) {
		order = append(order, "first")
	})
	require.True(t, ok)
	_, ok = events.Subscribe(job.ID, func(domain.ProgressEvent) {
		order = append(order, "second")
	})
	require.True(t, ok)

	// Execute
	events.Publish(job.ID, testEvent(job.ID, 10))

	// Assert
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	events := application.NewBroadcaster(registry, testLogger())
	job := registry.Create(testBrief("Acme"))

	var count int
	token, ok := events.Subscribe(job.ID, func(domain.ProgressEvent) {
		count++
	})
	require.True(t, ok)

	// Execute
	events.Publish(job.ID, testEvent(job.ID, 10))
	events.Unsubscribe(job.ID, token)
	events.Publish(job.ID, testEvent(job.ID, 50))

	// Assert: 解除後のイベントは届かない
	assert.Equal(t, 1, count)
}

func TestBroadcaster_PanickingObserverDoesNotBlockOthers(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	events := application.NewBroadcaster(registry, testLogger())
	job := registry.Create(testBrief("Acme"))

	_, ok := events.Subscribe(job.ID, func(domain.ProgressEvent) {
		panic("observer failure")
	})
	require.True(t, ok)

	var delivered bool
	_, ok = events.Subscribe(job.ID, func(domain.ProgressEvent) {
		delivered = true
	})
	require.True(t, ok)

	// Execute: panicは発行側へ伝播しない
	assert.NotPanics(t, func() {
		events.Publish(job.ID, testEvent(job.ID, 10))
	})

	// Assert
	assert.True(t, delivered)
}

func TestBroadcaster_PublishWithoutSubscribers(t *testing.T) {
	// Setup
	registry := application.NewJobRegistry(0, testLogger())
	events := application.NewBroadcaster(registry, testLogger())
	job := registry.Create(testBrief("Acme"))

	// Execute & Assert: 購読者ゼロでも発行は成功する
	assert.NotPanics(t, func() {
		events.Publish(job.ID, testEvent(job.ID, 10))
	})
}
