package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/IBM/sarama"

	"github.com/abbank/notification-gateway/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDispatcher returns a fixed result set, or panics when told to.
type fakeDispatcher struct {
	results   []model.DeliveryResult
	panicWith any
	calls     int
}

func (f *fakeDispatcher) Dispatch(_ context.Context, _ *model.NotificationEvent, _ *model.CustomerProfile) []model.DeliveryResult {
	f.calls++
	if f.panicWith != nil {
		panic(f.panicWith)
	}
	return f.results
}

// fakeResolver maps account IDs to profiles; missing IDs are not found.
type fakeResolver struct {
	profiles map[int64]*model.CustomerProfile
	err      error
}

func (f *fakeResolver) Resolve(_ context.Context, accountID int64) (*model.CustomerProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[accountID], nil
}

// fakeDLQ records published payloads.
type fakeDLQ struct {
	mu       sync.Mutex
	payloads [][]byte
	keys     []string
	err      error
}

func (f *fakeDLQ) Publish(key string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, append([]byte(nil), payload...))
	return nil
}

func (f *fakeDLQ) Close() error { return nil }

func (f *fakeDLQ) published() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.payloads)
}

func record(payload string) *sarama.ConsumerMessage {
	return &sarama.ConsumerMessage{
		Topic:     "notifications.fraud-alerts",
		Partition: 0,
		Offset:    42,
		Value:     []byte(payload),
	}
}

const validPayload = `{"notificationId":"n-1","notificationType":"FRAUD_ALERT","severity":"HIGH","channel":"EMAIL","accountId":100001,"subject":"s","body":"b"}`

func knownProfiles() map[int64]*model.CustomerProfile {
	return map[int64]*model.CustomerProfile{
		100001: {CustomerID: 1001, AccountID: 100001, Email: "a@b.c", Phone: "+2348031001001"},
	}
}

func TestProcess_SuccessfulDeliveryCountsDelivered(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Success("sendgrid", model.ChannelEmail, "m1", 202),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	snap := stats.Snapshot()
	if snap.Received != 1 || snap.Delivered != 1 || snap.Failed != 0 || snap.Skipped != 0 {
		t.Errorf("stats = %+v, want one received, one delivered", snap)
	}
	if disp.calls != 1 {
		t.Errorf("dispatch calls = %d, want 1", disp.calls)
	}
}

func TestProcess_DecodeErrorCountsFailed(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(`{not json`))

	snap := stats.Snapshot()
	if snap.Received != 1 || snap.Failed != 1 {
		t.Errorf("stats = %+v, want one received, one failed", snap)
	}
	if disp.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0 for undecodable record", disp.calls)
	}
}

func TestProcess_UnknownCustomerCountsSkipped(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{}
	p := NewProcessor(&fakeResolver{profiles: map[int64]*model.CustomerProfile{}}, disp, stats,
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	snap := stats.Snapshot()
	if snap.Received != 1 || snap.Skipped != 1 {
		t.Errorf("stats = %+v, want one received, one skipped", snap)
	}
	if disp.calls != 0 {
		t.Errorf("dispatch calls = %d, want 0 without a profile", disp.calls)
	}
}

func TestProcess_ResolverErrorCountsSkipped(t *testing.T) {
	stats := &Stats{}
	p := NewProcessor(&fakeResolver{err: errors.New("lookup broke")}, &fakeDispatcher{}, stats,
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Skipped != 1 {
		t.Errorf("stats = %+v, want one skipped", snap)
	}
}

func TestProcess_AllFailuresInvokeLogPolicy(t *testing.T) {
	stats := &Stats{}
	dlq := &fakeDLQ{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Failure("sendgrid", model.ChannelEmail, "HTTP 500", 500),
		model.Failure("twilio", model.ChannelSMS, "HTTP 503", 503),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithExhaustedPolicy("log", dlq),
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Failed != 1 {
		t.Errorf("stats = %+v, want one failed", snap)
	}
	if dlq.published() != 0 {
		t.Errorf("DLQ published %d messages under log policy, want 0", dlq.published())
	}
}

func TestProcess_ExhaustionPublishesOriginalPayloadToDLQ(t *testing.T) {
	stats := &Stats{}
	dlq := &fakeDLQ{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Failure("sendgrid", model.ChannelEmail, "HTTP 500", 500),
		model.Failure("twilio", model.ChannelSMS, "HTTP 503", 503),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithExhaustedPolicy("kafka", dlq),
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Failed != 1 {
		t.Errorf("stats = %+v, want one failed", snap)
	}
	if dlq.published() != 1 {
		t.Fatalf("DLQ published %d messages, want 1", dlq.published())
	}
	if string(dlq.payloads[0]) != validPayload {
		t.Errorf("DLQ payload = %q, want the original record bytes", dlq.payloads[0])
	}
	if dlq.keys[0] != "n-1" {
		t.Errorf("DLQ key = %q, want notificationId", dlq.keys[0])
	}
}

func TestProcess_PartialSuccessCountsDeliveredAndSkipsDLQ(t *testing.T) {
	stats := &Stats{}
	dlq := &fakeDLQ{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Failure("sendgrid", model.ChannelEmail, "HTTP 500", 500),
		model.Success("twilio", model.ChannelSMS, "SM123", 201),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithExhaustedPolicy("kafka", dlq),
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Delivered != 1 || snap.Failed != 0 {
		t.Errorf("stats = %+v, want delivered with no failure", snap)
	}
	if dlq.published() != 0 {
		t.Errorf("DLQ published %d messages for a partially delivered event, want 0", dlq.published())
	}
}

func TestProcess_DLQPublishFailureIsAbsorbed(t *testing.T) {
	stats := &Stats{}
	dlq := &fakeDLQ{err: errors.New("broker unreachable")}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Failure("sendgrid", model.ChannelEmail, "HTTP 500", 500),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithExhaustedPolicy("kafka", dlq),
		WithProcessorLogger(discardLogger()))

	// Must not panic or retry; the record stays committed.
	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Failed != 1 {
		t.Errorf("stats = %+v, want one failed", snap)
	}
}

func TestProcess_KafkaPolicyWithoutPublisherDegradesToLog(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Failure("sendgrid", model.ChannelEmail, "HTTP 500", 500),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithExhaustedPolicy("kafka", nil),
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	if snap := stats.Snapshot(); snap.Failed != 1 {
		t.Errorf("stats = %+v, want one failed", snap)
	}
}

func TestProcess_PanicInDispatchIsContained(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{panicWith: "adapter blew up"}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithProcessorLogger(discardLogger()))

	p.Process(context.Background(), record(validPayload))

	snap := stats.Snapshot()
	if snap.Received != 1 || snap.Failed != 1 {
		t.Errorf("stats = %+v, want the panicking record counted failed", snap)
	}
}

func TestProcess_IsolationAcrossRecords(t *testing.T) {
	stats := &Stats{}
	disp := &fakeDispatcher{results: []model.DeliveryResult{
		model.Success("sendgrid", model.ChannelEmail, "m1", 202),
	}}
	p := NewProcessor(&fakeResolver{profiles: knownProfiles()}, disp, stats,
		WithProcessorLogger(discardLogger()))

	// A poison record between two good ones must not affect them.
	p.Process(context.Background(), record(validPayload))
	p.Process(context.Background(), record(`garbage`))
	p.Process(context.Background(), record(validPayload))

	snap := stats.Snapshot()
	if snap.Received != 3 || snap.Delivered != 2 || snap.Failed != 1 {
		t.Errorf("stats = %+v, want 3 received, 2 delivered, 1 failed", snap)
	}
}
