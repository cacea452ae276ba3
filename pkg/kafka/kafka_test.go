package kafka

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDecodeJSON(t *testing.T) {
	type req struct {
		JobID string   `json:"job_id"`
		Terms []string `json:"terms"`
	}
	got, err := DecodeJSON[req]([]byte(`{"job_id":"j1","terms":["a","b"]}`))
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if got.JobID != "j1" || len(got.Terms) != 2 {
		t.Fatalf("decoded %+v", got)
	}

	if _, err := DecodeJSON[req]([]byte(`{not json`)); !errors.Is(err, ErrPermanent) {
		t.Fatalf("err = %v, want ErrPermanent", err)
	}
}

func TestPingWithoutBrokers(t *testing.T) {
	if err := Ping(context.Background(), nil); err == nil {
		t.Fatal("Ping with no brokers succeeded")
	}
}

func TestPingUnreachableBroker(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Port 1 on loopback refuses connections.
	if err := Ping(ctx, []string{"127.0.0.1:1"}); err == nil {
		t.Fatal("Ping to closed port succeeded")
	}
}
